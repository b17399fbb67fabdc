package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/models"
)

// ErrSuperseded is returned by a read that was suspended before anything was
// cached for its id.
var ErrSuperseded = errors.New("read superseded by a local write")

// Fetcher loads the authoritative state of one note.
type Fetcher interface {
	Get(ctx context.Context, id string) (*models.Note, error)
}

type entry struct {
	note  models.Note
	stale bool
}

// Cache is the local read-cache of notes keyed by id.
//
// Invalidate only marks an entry stale: Peek still returns it, Get refetches.
// Reads in flight for an id can be suspended, after which their results are
// dropped.
type Cache struct {
	fetch Fetcher
	items *cache.Cache

	mu       sync.Mutex
	gens     map[string]uint64
	inflight map[string]map[uint64]context.CancelFunc
	nextRead uint64
}

// NewCache creates an empty cache that loads misses through fetch.
func NewCache(fetch Fetcher) *Cache {
	return &Cache{
		fetch:    fetch,
		items:    cache.New(cache.NoExpiration, 0),
		gens:     make(map[string]uint64),
		inflight: make(map[string]map[uint64]context.CancelFunc),
	}
}

// Get returns the cached note, fetching it when missing or stale. A fetch
// that is suspended before it returns yields whatever is cached by then.
func (c *Cache) Get(ctx context.Context, id string) (models.Note, error) {
	c.mu.Lock()
	if e, ok := c.load(id); ok && !e.stale {
		c.mu.Unlock()
		return e.note.Clone(), nil
	}
	gen := c.gens[id]
	fctx, cancel := context.WithCancel(ctx)
	c.nextRead++
	read := c.nextRead
	if c.inflight[id] == nil {
		c.inflight[id] = make(map[uint64]context.CancelFunc)
	}
	c.inflight[id][read] = cancel
	c.mu.Unlock()

	n, err := c.fetch.Get(fctx, id)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight[id], read)
	if len(c.inflight[id]) == 0 {
		delete(c.inflight, id)
	}

	if c.gens[id] != gen {
		if e, ok := c.load(id); ok {
			return e.note.Clone(), nil
		}
		return models.Note{}, ErrSuperseded
	}
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.items.Delete(id)
		}
		return models.Note{}, err
	}
	c.store(*n, false)
	return n.Clone(), nil
}

// Peek returns the cached value without fetching, stale or not.
func (c *Cache) Peek(id string) (models.Note, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.load(id)
	if !ok {
		return models.Note{}, false
	}
	return e.note.Clone(), true
}

// Stale reports whether id is cached but marked for refetch.
func (c *Cache) Stale(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.load(id)
	return ok && e.stale
}

// Put stores n as fresh.
func (c *Cache) Put(n models.Note) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(n, false)
}

// PutAll stores every note of a listing as fresh.
func (c *Cache) PutAll(notes []models.Note) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range notes {
		c.store(n, false)
	}
}

// Delete drops id from the cache.
func (c *Cache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Delete(id)
}

// Invalidate marks id stale so the next Get refetches it.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.load(id); ok {
		c.store(e.note, true)
	}
}

// InvalidateBefore marks id stale when the cached copy was last updated
// before updated. It reports whether the entry was marked.
func (c *Cache) InvalidateBefore(id string, updated time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.load(id)
	if !ok || e.stale || !e.note.UpdatedAt.Before(updated) {
		return false
	}
	c.store(e.note, true)
	return true
}

// Suspend cancels reads of id that are in flight and ensures their results,
// should they still arrive, never overwrite the cache.
func (c *Cache) Suspend(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspend(id)
}

// swap suspends reads of id, then replaces its entry with next (nil
// deletes) and returns the previous entry. It all happens under one lock so
// no read can land between the snapshot and the write.
func (c *Cache) swap(id string, next *models.Note) *models.Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspend(id)

	var prev *models.Note
	if e, ok := c.load(id); ok {
		n := e.note.Clone()
		prev = &n
	}
	if next == nil {
		c.items.Delete(id)
	} else {
		c.store(*next, false)
	}
	return prev
}

func (c *Cache) suspend(id string) {
	c.gens[id]++
	for _, cancel := range c.inflight[id] {
		cancel()
	}
	delete(c.inflight, id)
}

// Len returns the number of cached notes.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}

func (c *Cache) load(id string) (entry, bool) {
	v, ok := c.items.Get(id)
	if !ok {
		return entry{}, false
	}
	return v.(entry), true
}

func (c *Cache) store(n models.Note, stale bool) {
	c.items.Set(n.ID, entry{note: n.Clone(), stale: stale}, cache.NoExpiration)
}
