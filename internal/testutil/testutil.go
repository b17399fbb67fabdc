// Package testutil provides shared test helpers for databases and event sinks.
package testutil

import (
	"os"
	"sync"
	"testing"

	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *storage.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "jotter-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := storage.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Recorder collects change notifications in order.
type Recorder struct {
	mu     sync.Mutex
	events []models.Change
}

// Publish records the change.
func (r *Recorder) Publish(c models.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, c)
}

// Events returns a copy of the recorded changes.
func (r *Recorder) Events() []models.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Change(nil), r.events...)
}
