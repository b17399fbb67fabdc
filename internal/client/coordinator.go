package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/jotter/internal/content"
	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/noteservice"
)

// Store is the remote side of the coordinator.
type Store interface {
	Fetcher
	Save(ctx context.Context, in noteservice.SaveInput) (*models.Note, error)
	Delete(ctx context.Context, id string) (*models.Note, error)
}

// Notifier shows a transient message to the user.
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

// Notify calls f(msg).
func (f NotifierFunc) Notify(msg string) { f(msg) }

// State is the lifecycle position of a Mutation.
type State int

const (
	StatePending State = iota
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled back"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Mutation is one optimistic write. It starts Pending and settles exactly
// once, to Committed or RolledBack.
type Mutation struct {
	Proposed *models.Note // nil for deletes

	seq      uint64
	snapshot *models.Note
	snapSeq  uint64
	snapFirm bool
	done     chan struct{}

	mu     sync.Mutex
	id     string
	state  State
	result *models.Note
	err    error
}

// ID returns the note id. A create has none until the store assigns it.
func (m *Mutation) ID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

// State returns the current state.
func (m *Mutation) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Done is closed once the mutation settles.
func (m *Mutation) Done() <-chan struct{} { return m.done }

// Wait blocks until the mutation settles and returns the stored note (the
// last state for deletes) or the store error.
func (m *Mutation) Wait() (*models.Note, error) {
	<-m.done
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result, m.err
}

func (m *Mutation) settle(state State, result *models.Note, err error) {
	m.mu.Lock()
	m.state, m.result, m.err = state, result, err
	m.mu.Unlock()
	close(m.done)
}

// handoff replaces the value m restores on failure. A committed value is
// only replaced by one committed from a later link.
func (m *Mutation) handoff(n *models.Note, seq uint64, firm bool) {
	if m.snapFirm && seq <= m.snapSeq {
		return
	}
	m.snapshot, m.snapSeq, m.snapFirm = n, seq, firm
}

// chain holds the unsettled mutations of one id in start order and the
// newest value the store has confirmed for it.
type chain struct {
	links   []*Mutation
	seq     uint64
	head    *models.Note // nil after a committed delete
	headSeq uint64
}

func (ch *chain) index(m *Mutation) int {
	for i, p := range ch.links {
		if p == m {
			return i
		}
	}
	return -1
}

// Coordinator applies writes to the Cache before the store confirms them and
// rolls them back when the store refuses.
//
// Mutations of one id form a chain in start order; each one snapshots what
// was cached when it started, which may be the previous link's optimistic
// value. A link that fails hands its snapshot to its successor, so when every
// link fails the cache ends where it began. A link that commits hands its
// result instead, and no older link can later restore over it.
type Coordinator struct {
	store  Store
	cache  *Cache
	notify Notifier

	mu      sync.Mutex
	pending map[string]*chain
	wg      sync.WaitGroup
}

// NewCoordinator creates a coordinator. notify may be nil.
func NewCoordinator(store Store, cache *Cache, notify Notifier) *Coordinator {
	if notify == nil {
		notify = NotifierFunc(func(string) {})
	}
	return &Coordinator{
		store:   store,
		cache:   cache,
		notify:  notify,
		pending: make(map[string]*chain),
	}
}

// Cache returns the cache the coordinator writes to.
func (c *Coordinator) Cache() *Cache { return c.cache }

// Save applies proposed and waits for the store.
func (c *Coordinator) Save(ctx context.Context, proposed models.Note) (*models.Note, error) {
	return c.StartSave(ctx, proposed).Wait()
}

// Delete removes id and waits for the store.
func (c *Coordinator) Delete(ctx context.Context, id string) (*models.Note, error) {
	return c.StartDelete(ctx, id).Wait()
}

// StartSave applies proposed to the cache right away and commits it in the
// background. A note without id is a create: nothing is applied until the
// store assigns the id.
func (c *Coordinator) StartSave(ctx context.Context, proposed models.Note) *Mutation {
	local := proposed.Clone()
	local.Text, local.Title, local.Body = content.Resolve(local.Text, local.Title, local.Body)
	local.Tags = models.NormalizeTags(local.Tags)
	content.Classify(local.Title, local.Body).Apply(&local)

	create := local.ID == ""
	m := &Mutation{id: local.ID, Proposed: &local, done: make(chan struct{})}
	if !create {
		c.begin(m, &local)
	}

	pinned := local.Pinned
	in := noteservice.SaveInput{
		ID:     local.ID,
		Text:   local.Text,
		Title:  local.Title,
		Body:   local.Body,
		Pinned: &pinned,
		Tags:   local.Tags,
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res, err := c.store.Save(ctx, in)
		if create {
			c.settleCreate(m, res, err)
			return
		}
		c.settle(m, res, err)
	}()
	return m
}

// StartDelete removes id from the cache right away and commits the delete in
// the background.
func (c *Coordinator) StartDelete(ctx context.Context, id string) *Mutation {
	m := &Mutation{id: id, done: make(chan struct{})}
	c.begin(m, nil)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res, err := c.store.Delete(ctx, id)
		c.settle(m, res, err)
	}()
	return m
}

// Wait blocks until every started mutation has settled.
func (c *Coordinator) Wait() { c.wg.Wait() }

// Apply folds a change announced by the server into the cache. Ids with
// local mutations in flight are skipped; settling them refreshes the entry.
func (c *Coordinator) Apply(ch models.Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.pending[ch.ID]; busy {
		return
	}
	switch ch.Kind {
	case models.ChangeSaved:
		c.cache.InvalidateBefore(ch.ID, ch.UpdatedAt)
	case models.ChangeDeleted:
		c.cache.Delete(ch.ID)
	}
}

func (c *Coordinator) begin(m *Mutation, next *models.Note) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := c.pending[m.id]
	if ch == nil {
		ch = &chain{}
		c.pending[m.id] = ch
	}
	ch.seq++
	m.seq = ch.seq
	m.snapshot = c.cache.swap(m.id, next)

	// The cached value came from whichever is newer: the last pending link's
	// optimistic write or the last committed one.
	var lastSeq uint64
	if n := len(ch.links); n > 0 {
		lastSeq = ch.links[n-1].seq
	}
	if ch.headSeq >= lastSeq {
		m.snapSeq, m.snapFirm = ch.headSeq, true
	} else {
		m.snapSeq = lastSeq
	}
	ch.links = append(ch.links, m)
}

func (c *Coordinator) settle(m *Mutation, res *models.Note, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := c.pending[m.id]
	idx := ch.index(m)
	var next *Mutation
	if idx < len(ch.links)-1 {
		next = ch.links[idx+1]
	}
	superseded := ch.headSeq > m.seq

	if err != nil {
		switch {
		case next != nil:
			next.handoff(m.snapshot, m.snapSeq, m.snapFirm)
		case superseded:
			c.cache.swap(m.id, ch.head)
		default:
			c.cache.swap(m.id, m.snapshot)
		}
		slog.Warn("optimistic write rolled back", slog.String("id", m.id), slog.String("error", err.Error()))
		c.notify.Notify(failureMessage(m, err))
		m.settle(StateRolledBack, nil, err)
	} else {
		committed := res
		if m.Proposed == nil {
			committed = nil
		}
		if !superseded {
			ch.head, ch.headSeq = committed, m.seq
		}
		switch {
		case next != nil:
			next.handoff(committed, m.seq, true)
		case superseded:
			// a later write already landed and is cached
		case committed != nil:
			c.cache.Put(*committed)
		}
		m.settle(StateCommitted, res, nil)
	}

	ch.links = append(ch.links[:idx:idx], ch.links[idx+1:]...)
	if len(ch.links) == 0 {
		delete(c.pending, m.id)
		c.cache.Invalidate(m.id)
	}
}

func (c *Coordinator) settleCreate(m *Mutation, res *models.Note, err error) {
	if err != nil {
		slog.Warn("create failed", slog.String("error", err.Error()))
		c.notify.Notify(failureMessage(m, err))
		m.settle(StateRolledBack, nil, err)
		return
	}
	c.cache.Put(*res)
	m.mu.Lock()
	m.id = res.ID
	m.mu.Unlock()
	m.settle(StateCommitted, res, nil)
}

func failureMessage(m *Mutation, err error) string {
	if m.Proposed == nil {
		return fmt.Sprintf("could not delete note: %v", err)
	}
	return fmt.Sprintf("could not save %q: %v", m.Proposed.Title, err)
}
