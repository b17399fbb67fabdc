package sse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/jotter/internal/models"
)

var at = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func saved(id, author string) models.Change {
	return models.Change{Kind: models.ChangeSaved, ID: id, Author: author, UpdatedAt: at}
}

// drain collects what is buffered for s after the loop has caught up.
func drain(s *Subscription) []string {
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg := <-s.C:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

// changeData decodes the data line of a note event.
func changeData(t *testing.T, msg string) models.Change {
	t.Helper()
	for _, line := range strings.Split(msg, "\n") {
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			var c models.Change
			if err := json.Unmarshal([]byte(data), &c); err != nil {
				t.Fatalf("decode %q: %v", data, err)
			}
			return c
		}
	}
	t.Fatalf("no data line in %q", msg)
	return models.Change{}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	s := b.Subscribe("")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(s)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublish_FrameCarriesChange(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	s := b.Subscribe("")
	defer b.Unsubscribe(s)

	b.Publish(saved("01A", "alice"))

	msgs := drain(s)
	if len(msgs) != 2 {
		t.Fatalf("messages = %q, want change and list", msgs)
	}
	if !strings.HasPrefix(msgs[0], "id: 1\nevent: note.saved\n") {
		t.Errorf("frame = %q", msgs[0])
	}
	c := changeData(t, msgs[0])
	if c.ID != "01A" || c.Author != "alice" || !c.UpdatedAt.Equal(at) || c.Seq != 1 {
		t.Errorf("change = %+v", c)
	}
	if !strings.Contains(msgs[1], "event: notes.changed") {
		t.Errorf("list frame = %q", msgs[1])
	}
}

func TestPublish_SequenceIsMonotonic(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	s := b.Subscribe("")
	defer b.Unsubscribe(s)

	b.Publish(saved("01A", "alice"))
	b.Publish(models.Change{Kind: models.ChangeDeleted, ID: "01A", Author: "alice", UpdatedAt: at})
	b.Publish(saved("01B", "bob"))

	var seqs []uint64
	for _, msg := range drain(s) {
		if strings.Contains(msg, "event: notes.changed") {
			continue
		}
		seqs = append(seqs, changeData(t, msg).Seq)
	}
	if len(seqs) != 3 || seqs[0] != 1 || seqs[1] != 2 || seqs[2] != 3 {
		t.Errorf("seqs = %v, want [1 2 3]", seqs)
	}
}

func TestPublish_UnknownKindIgnored(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	s := b.Subscribe("")
	defer b.Unsubscribe(s)

	b.Publish(models.Change{Kind: "renamed", ID: "01A"})
	if msgs := drain(s); len(msgs) != 0 {
		t.Errorf("messages = %q, want none", msgs)
	}
}

func TestSubscribe_AuthorScope(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	alice := b.Subscribe("alice")
	defer b.Unsubscribe(alice)
	all := b.Subscribe("")
	defer b.Unsubscribe(all)

	b.Publish(saved("01B", "bob"))
	b.Publish(saved("01A", "alice"))

	var ids []string
	for _, msg := range drain(alice) {
		if strings.Contains(msg, "event: note.") {
			ids = append(ids, changeData(t, msg).ID)
		}
	}
	if len(ids) != 1 || ids[0] != "01A" {
		t.Errorf("alice saw %v, want [01A]", ids)
	}

	notes := 0
	for _, msg := range drain(all) {
		if strings.Contains(msg, "event: note.") {
			notes++
		}
	}
	if notes != 2 {
		t.Errorf("unscoped subscriber saw %d changes, want 2", notes)
	}
}

func TestPublish_ListThrottlePerSubscriber(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	alice := b.Subscribe("alice")
	defer b.Unsubscribe(alice)
	bob := b.Subscribe("bob")
	defer b.Unsubscribe(bob)

	// alice's second change falls inside her window; bob's first opens his.
	b.Publish(saved("01A", "alice"))
	b.Publish(saved("01A", "alice"))
	b.Publish(saved("01B", "bob"))

	count := func(msgs []string) (notes, lists int) {
		for _, m := range msgs {
			if strings.Contains(m, "notes.changed") {
				lists++
			} else {
				notes++
			}
		}
		return
	}
	if n, l := count(drain(alice)); n != 2 || l != 1 {
		t.Errorf("alice: notes=%d lists=%d, want 2 and 1", n, l)
	}
	if n, l := count(drain(bob)); n != 1 || l != 1 {
		t.Errorf("bob: notes=%d lists=%d, want 1 and 1", n, l)
	}
}

func TestSSEHandler_ScopesByAuthorQuery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events?author=alice", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(saved("bob-note", "bob"))
	b.Publish(saved("alice-note", "alice"))
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, `"id":"alice-note"`) {
		t.Errorf("handler output missing alice's change: %q", body)
	}
	if strings.Contains(body, "bob-note") {
		t.Errorf("handler output leaked another author's change: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	s := b.Subscribe("")
	defer b.Unsubscribe(s)

	// Buffer holds 64 messages; the rest are dropped without blocking.
	for i := 0; i < 70; i++ {
		b.Publish(saved("x", "alice"))
	}
	if got := len(drain(s)); got != 64 {
		t.Errorf("buffered = %d, want 64", got)
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	s := b.Subscribe("")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-s.C:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(saved("x", "alice"))
	if s := b.Subscribe(""); s.C == nil {
		t.Fatal("subscription after close should carry a closed channel")
	}
}
