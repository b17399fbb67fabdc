package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "jotter-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func note(id, author string, pinned bool, updated time.Time) *models.Note {
	return &models.Note{
		ID:        id,
		Author:    author,
		Text:      "t " + id,
		Title:     "t " + id,
		Kind:      models.KindPlain,
		Pinned:    pinned,
		Tags:      []string{},
		CreatedAt: updated,
		UpdatedAt: updated,
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	n := &models.Note{
		ID:        "01A",
		Author:    "alice",
		Text:      "= list\nmilk\neggs",
		Title:     "= list",
		Body:      "milk\neggs",
		Kind:      models.KindList,
		List:      []string{"milk", "eggs"},
		Pinned:    true,
		Tags:      []string{"home", "food"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.UpsertNote(ctx, n); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	got, err := db.GetNote(ctx, "01A")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Author != "alice" || got.Kind != models.KindList || !got.Pinned {
		t.Errorf("got %+v", got)
	}
	if len(got.List) != 2 || got.List[1] != "eggs" {
		t.Errorf("list = %v", got.List)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "home" {
		t.Errorf("tags = %v", got.Tags)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Errorf("updated_at = %v, want %v", got.UpdatedAt, now)
	}
}

func TestUpsertReplacesButKeepsAuthor(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Now()
	_ = db.UpsertNote(ctx, note("x", "alice", false, now))

	changed := note("x", "mallory", true, now.Add(time.Second))
	changed.Text = "new"
	if err := db.UpsertNote(ctx, changed); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	got, _ := db.GetNote(ctx, "x")
	if got.Text != "new" || !got.Pinned {
		t.Errorf("content not replaced: %+v", got)
	}
	if got.Author != "alice" {
		t.Errorf("author = %q, upsert must not change the owner", got.Author)
	}
}

func TestStructuredDataRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	n := note("s", "bob", false, time.Now())
	n.Kind = models.KindStructured
	n.Data = map[string]any{"a": []any{"x", "y"}}
	_ = db.UpsertNote(ctx, n)

	got, _ := db.GetNote(ctx, "s")
	m, ok := got.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T", got.Data)
	}
	if seq, _ := m["a"].([]any); len(seq) != 2 {
		t.Errorf("data = %v", got.Data)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetNote(context.Background(), "nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.UpsertNote(ctx, note("d", "alice", false, time.Now()))

	if err := db.DeleteNote(ctx, "d"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := db.GetNote(ctx, "d"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete = %v", err)
	}
	if err := db.DeleteNote(ctx, "d"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestListNotes_Ordering(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	base := time.Now()
	_ = db.UpsertNote(ctx, note("old", "alice", false, base))
	_ = db.UpsertNote(ctx, note("new", "bob", false, base.Add(2*time.Second)))
	_ = db.UpsertNote(ctx, note("pinned-old", "alice", true, base.Add(-time.Hour)))
	_ = db.UpsertNote(ctx, note("pinned-new", "bob", true, base.Add(time.Second)))

	all, err := db.ListNotes(ctx, "")
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	want := []string{"pinned-new", "pinned-old", "new", "old"}
	if len(all) != len(want) {
		t.Fatalf("len = %d, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("all[%d] = %q, want %q", i, all[i].ID, id)
		}
	}

	mine, _ := db.ListNotes(ctx, "alice")
	if len(mine) != 2 || mine[0].ID != "pinned-old" || mine[1].ID != "old" {
		t.Errorf("alice notes = %+v", mine)
	}
}

func TestListNotes_EmptyIsNonNil(t *testing.T) {
	db := testDB(t)
	got, err := db.ListNotes(context.Background(), "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Error("expected empty slice, got nil")
	}
}
