// Package storage persists notes in SQLite.
package storage

import (
	"context"

	"github.com/starford/jotter/internal/models"
)

// Provider is the persistence boundary for notes. It exposes only point
// lookup, listing, upsert by id and delete by id.
type Provider interface {
	// GetNote returns apperr.ErrNotFound when no row has the id.
	GetNote(ctx context.Context, id string) (*models.Note, error)
	// ListNotes returns every note, or only author's when author is non-empty,
	// pinned first and then most recently updated first.
	ListNotes(ctx context.Context, author string) ([]models.Note, error)
	// UpsertNote inserts or fully replaces the row with n.ID.
	UpsertNote(ctx context.Context, n *models.Note) error
	// DeleteNote removes the row with id; apperr.ErrNotFound when absent.
	DeleteNote(ctx context.Context, id string) error
	Close() error
}

// Verify *DB satisfies Provider at compile time.
var _ Provider = (*DB)(nil)
