package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/models"
)

const selectColumns = `id, author, text, title, body, kind, markdown, list, data, pinned, tags, created_at, updated_at`

// GetNote loads a single note by id.
func (db *DB) GetNote(ctx context.Context, id string) (*models.Note, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get note: %w", err)
	}
	return n, nil
}

// ListNotes returns notes pinned-first, then newest-updated-first.
func (db *DB) ListNotes(ctx context.Context, author string) ([]models.Note, error) {
	query := `SELECT ` + selectColumns + ` FROM notes`
	var args []any
	if author != "" {
		query += ` WHERE author = ?`
		args = append(args, author)
	}
	query += ` ORDER BY pinned DESC, updated_at DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list notes: %w", err)
	}
	defer rows.Close()

	out := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan note: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// UpsertNote inserts or replaces a note in a single statement.
func (db *DB) UpsertNote(ctx context.Context, n *models.Note) error {
	list, err := json.Marshal(n.List)
	if err != nil {
		return fmt.Errorf("storage: encode list: %w", err)
	}
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("storage: encode data: %w", err)
	}
	tags, err := json.Marshal(nonNil(n.Tags))
	if err != nil {
		return fmt.Errorf("storage: encode tags: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO notes (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text       = excluded.text,
			title      = excluded.title,
			body       = excluded.body,
			kind       = excluded.kind,
			markdown   = excluded.markdown,
			list       = excluded.list,
			data       = excluded.data,
			pinned     = excluded.pinned,
			tags       = excluded.tags,
			updated_at = excluded.updated_at
	`, n.ID, n.Author, n.Text, n.Title, n.Body, string(n.Kind), n.Markdown,
		string(list), string(data), n.Pinned, string(tags),
		n.CreatedAt.UnixNano(), n.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("storage: upsert note: %w", err)
	}
	return nil
}

// DeleteNote removes a note by id.
func (db *DB) DeleteNote(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("storage: delete note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (*models.Note, error) {
	var (
		n                      models.Note
		kind, list, data, tags string
		created, updated       int64
	)
	if err := s.Scan(&n.ID, &n.Author, &n.Text, &n.Title, &n.Body, &kind, &n.Markdown,
		&list, &data, &n.Pinned, &tags, &created, &updated); err != nil {
		return nil, err
	}
	n.Kind = models.Kind(kind)
	if err := json.Unmarshal([]byte(list), &n.List); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &n.Data); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	n.Tags = nonNil(n.Tags)
	n.CreatedAt = time.Unix(0, created).UTC()
	n.UpdatedAt = time.Unix(0, updated).UTC()
	return &n, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
