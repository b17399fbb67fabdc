package client

import (
	"context"
	"sync"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/noteservice"
)

type result struct {
	note *models.Note
	err  error
}

// call is one store request parked until the test replies.
type call struct {
	op    string
	id    string
	in    noteservice.SaveInput
	reply chan result
}

// fakeStore serves Get from memory and hands every Save and Delete to the
// test through calls.
type fakeStore struct {
	mu    sync.Mutex
	notes map[string]models.Note
	gets  int

	getHook func(ctx context.Context, id string)
	calls   chan call
}

func newFakeStore(notes ...models.Note) *fakeStore {
	s := &fakeStore{notes: make(map[string]models.Note), calls: make(chan call, 8)}
	for _, n := range notes {
		s.notes[n.ID] = n
	}
	return s
}

func (s *fakeStore) Get(ctx context.Context, id string) (*models.Note, error) {
	if s.getHook != nil {
		s.getHook(ctx, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	n, ok := s.notes[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	n = n.Clone()
	return &n, nil
}

func (s *fakeStore) Save(ctx context.Context, in noteservice.SaveInput) (*models.Note, error) {
	c := call{op: "save", id: in.ID, in: in, reply: make(chan result, 1)}
	s.calls <- c
	select {
	case r := <-c.reply:
		return r.note, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeStore) Delete(ctx context.Context, id string) (*models.Note, error) {
	c := call{op: "delete", id: id, reply: make(chan result, 1)}
	s.calls <- c
	select {
	case r := <-c.reply:
		return r.note, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// commit writes the call's payload and replies with the stored note.
func (s *fakeStore) commit(c call) models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.op == "delete" {
		n := s.notes[c.id]
		delete(s.notes, c.id)
		c.reply <- result{note: &n}
		return n
	}
	n := s.notes[c.in.ID]
	if n.ID == "" {
		n.ID = "new-" + c.in.Text
	}
	n.Text, n.Title, n.Body = c.in.Text, c.in.Title, c.in.Body
	if c.in.Pinned != nil {
		n.Pinned = *c.in.Pinned
	}
	n.Tags = c.in.Tags
	s.notes[n.ID] = n
	out := n.Clone()
	c.reply <- result{note: &out}
	return n
}

func (s *fakeStore) fail(c call, err error) {
	c.reply <- result{err: err}
}

func (s *fakeStore) getCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}
