// Package noteservice implements note CRUD with ownership checks and
// content classification on top of a storage.Provider.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/content"
	"github.com/starford/jotter/internal/identity"
	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/search"
	"github.com/starford/jotter/internal/storage"
)

// Publisher receives a notification after every successful mutation.
type Publisher interface {
	Publish(c models.Change)
}

// SaveInput is the payload of a save. An empty ID creates a note.
// Pinned and Tags replace the stored values only when non-nil.
type SaveInput struct {
	ID     string   `json:"id,omitempty"`
	Text   string   `json:"text"`
	Title  string   `json:"title,omitempty"`
	Body   string   `json:"body,omitempty"`
	Pinned *bool    `json:"pinned,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// Service coordinates storage, classification and change events.
type Service struct {
	store  storage.Provider
	events Publisher
	now    func() time.Time
}

// NewService creates a new note service. events may be nil.
func NewService(store storage.Provider, events Publisher) *Service {
	return &Service{store: store, events: events, now: time.Now}
}

// Get returns a note by id. Reads are public.
func (s *Service) Get(ctx context.Context, id string) (*models.Note, error) {
	return s.store.GetNote(ctx, id)
}

// ListAll returns every note, pinned first, then most recently updated.
func (s *Service) ListAll(ctx context.Context) ([]models.Note, error) {
	return s.store.ListNotes(ctx, "")
}

// ListByAuthor returns author's notes when who is author; otherwise empty.
func (s *Service) ListByAuthor(ctx context.Context, who identity.User, author string) ([]models.Note, error) {
	if who.Anonymous() || who.Name != author {
		return []models.Note{}, nil
	}
	return s.store.ListNotes(ctx, author)
}

// Search runs the filter pipeline over the full collection.
func (s *Service) Search(ctx context.Context, who identity.User, q search.Query) ([]models.Note, error) {
	notes, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return search.Filter(notes, who, q), nil
}

// Save creates a note owned by who, or replaces the content of an existing
// note that who owns. Derived fields are recomputed on every save.
func (s *Service) Save(ctx context.Context, who identity.User, in SaveInput) (*models.Note, error) {
	if who.Anonymous() {
		return nil, apperr.ErrUnauthenticated
	}

	now := s.now().UTC()
	var n models.Note
	if in.ID != "" {
		existing, err := s.owned(ctx, who, in.ID, "save")
		if err != nil {
			return nil, err
		}
		n = *existing
		// keep updated_at strictly increasing per note
		if !now.After(n.UpdatedAt) {
			now = n.UpdatedAt.Add(time.Nanosecond)
		}
	} else {
		n = models.Note{
			ID:        ulid.Make().String(),
			Author:    who.Name,
			CreatedAt: now,
		}
	}

	n.Text, n.Title, n.Body = content.Resolve(in.Text, in.Title, in.Body)
	if in.Pinned != nil {
		n.Pinned = *in.Pinned
	}
	if in.Tags != nil {
		n.Tags = in.Tags
	}
	n.Tags = models.NormalizeTags(n.Tags)
	content.Classify(n.Title, n.Body).Apply(&n)
	n.UpdatedAt = now

	if err := s.store.UpsertNote(ctx, &n); err != nil {
		return nil, fmt.Errorf("save note: %w", err)
	}
	s.publish(models.ChangeSaved, n.ID, n.Author, n.UpdatedAt)
	return &n, nil
}

// Delete removes a note owned by who and returns its last state.
func (s *Service) Delete(ctx context.Context, who identity.User, id string) (*models.Note, error) {
	if who.Anonymous() {
		return nil, apperr.ErrUnauthenticated
	}
	existing, err := s.owned(ctx, who, id, "delete")
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteNote(ctx, id); err != nil {
		return nil, err
	}
	at := s.now().UTC()
	if !at.After(existing.UpdatedAt) {
		at = existing.UpdatedAt.Add(time.Nanosecond)
	}
	s.publish(models.ChangeDeleted, existing.ID, existing.Author, at)
	return existing, nil
}

// AddTag adds tag to the note. Adding a present tag writes nothing.
func (s *Service) AddTag(ctx context.Context, who identity.User, id, tag string) (*models.Note, error) {
	return s.mutate(ctx, who, id, func(n *models.Note) bool { return n.AddTag(tag) })
}

// RemoveTag removes tag from the note.
func (s *Service) RemoveTag(ctx context.Context, who identity.User, id, tag string) (*models.Note, error) {
	return s.mutate(ctx, who, id, func(n *models.Note) bool { return n.RemoveTag(tag) })
}

// SetPinned sets the pinned flag.
func (s *Service) SetPinned(ctx context.Context, who identity.User, id string, pinned bool) (*models.Note, error) {
	return s.mutate(ctx, who, id, func(n *models.Note) bool {
		if n.Pinned == pinned {
			return false
		}
		n.Pinned = pinned
		return true
	})
}

// mutate applies fn to an owned note and saves it when fn reports a change.
func (s *Service) mutate(ctx context.Context, who identity.User, id string, fn func(*models.Note) bool) (*models.Note, error) {
	if who.Anonymous() {
		return nil, apperr.ErrUnauthenticated
	}
	n, err := s.owned(ctx, who, id, "update")
	if err != nil {
		return nil, err
	}
	if !fn(n) {
		return n, nil
	}
	pinned := n.Pinned
	return s.Save(ctx, who, SaveInput{
		ID:     n.ID,
		Text:   n.Text,
		Title:  n.Title,
		Body:   n.Body,
		Pinned: &pinned,
		Tags:   n.Tags,
	})
}

// owned loads id and checks that who is its author. Not-found and
// ownership rejection are distinct errors here; the transport hides the
// difference from callers.
func (s *Service) owned(ctx context.Context, who identity.User, id, op string) (*models.Note, error) {
	n, err := s.store.GetNote(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			slog.Debug("note not found", slog.String("op", op), slog.String("id", id))
		}
		return nil, err
	}
	if n.Author != who.Name {
		slog.Info("ownership rejected",
			slog.String("op", op),
			slog.String("id", id),
			slog.String("caller", who.Name))
		return nil, apperr.ErrForbidden
	}
	return n, nil
}

func (s *Service) publish(kind models.ChangeKind, id, author string, at time.Time) {
	if s.events != nil {
		s.events.Publish(models.Change{Kind: kind, ID: id, Author: author, UpdatedAt: at})
	}
}
