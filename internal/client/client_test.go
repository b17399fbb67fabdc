package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/jotter/internal/api"
	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/identity"
	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/noteservice"
	"github.com/starford/jotter/internal/search"
	"github.com/starford/jotter/internal/testutil"
)

func testServer(t *testing.T) string {
	t.Helper()
	svc := noteservice.NewService(testutil.TestDB(t), nil)
	idp := identity.NewProvider(identity.ModeToken, "tok", "", "alice")
	srv := httptest.NewServer(api.NewRouter(svc, idp, nil))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(testServer(t), "tok")

	created, err := c.Save(ctx, noteservice.SaveInput{Text: "< config\nport: 80"})
	require.NoError(t, err)
	assert.Equal(t, "alice", created.Author)
	assert.Equal(t, map[string]any{"port": float64(80)}, created.Data)

	got, err := c.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	tagged, err := c.AddTag(ctx, created.ID, "ops")
	require.NoError(t, err)
	assert.Equal(t, []string{"ops"}, tagged.Tags)

	pinned, err := c.SetPinned(ctx, created.ID, true)
	require.NoError(t, err)
	assert.True(t, pinned.Pinned)

	untagged, err := c.RemoveTag(ctx, created.ID, "ops")
	require.NoError(t, err)
	assert.Empty(t, untagged.Tags)

	mine, err := c.ListByAuthor(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	deleted, err := c.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = c.Get(ctx, created.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestClient_Search(t *testing.T) {
	ctx := context.Background()
	c := New(testServer(t), "tok")

	_, err := c.Save(ctx, noteservice.SaveInput{Text: "release plan\nship it", Tags: []string{"work"}})
	require.NoError(t, err)
	_, err = c.Save(ctx, noteservice.SaveInput{Text: "holiday\nbeach"})
	require.NoError(t, err)

	notes, err := c.Search(ctx, search.Query{Scope: search.ScopeMine, Tags: []string{"work"}})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "release plan", notes[0].Title)

	notes, err = c.Search(ctx, search.Query{Scope: search.ScopeAll, Text: "beach"})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "holiday", notes[0].Title)
}

func TestClient_AnonymousSaveIsUnauthenticated(t *testing.T) {
	c := New(testServer(t), "")

	_, err := c.Save(context.Background(), noteservice.SaveInput{Text: "x"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	notes, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestClient_WithCoordinator(t *testing.T) {
	ctx := context.Background()
	c := New(testServer(t), "tok")
	co := NewCoordinator(c, NewCache(c), nil)

	created, err := co.Save(ctx, models.Note{Text: "draft\none"})
	require.NoError(t, err)

	edit, err := co.Cache().Get(ctx, created.ID)
	require.NoError(t, err)
	edit.Text, edit.Title, edit.Body = "draft\ntwo", "", ""
	_, err = co.Save(ctx, edit)
	require.NoError(t, err)

	got, err := co.Cache().Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "two", got.Body)
	co.Wait()
}
