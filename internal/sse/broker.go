// Package sse implements a Server-Sent Events feed of note changes.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/jotter/internal/models"
)

// Feed event names.
const (
	EventSaved   = "note.saved"
	EventDeleted = "note.deleted"
	EventChanged = "notes.changed"
)

// Subscription is one feed consumer. Author, when set, limits the feed to
// changes of that author's notes.
type Subscription struct {
	Author string
	C      <-chan []byte

	ch chan []byte
}

func (s *Subscription) wants(c models.Change) bool {
	return s.Author == "" || s.Author == c.Author
}

// Broker fans committed note changes out to SSE subscribers.
//
// A single event loop goroutine owns the subscriber set, the change sequence
// and the per-subscriber list throttle; public methods talk to it over
// channels.
type Broker struct {
	listMin time.Duration

	subscribeCh   chan *Subscription
	unsubscribeCh chan *Subscription
	changeCh      chan models.Change
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits at most one notes.changed event per
// listThrottle interval to each subscriber.
func NewBroker(listThrottle time.Duration) *Broker {
	if listThrottle <= 0 {
		listThrottle = 2 * time.Second
	}

	b := &Broker{
		listMin:       listThrottle,
		subscribeCh:   make(chan *Subscription),
		unsubscribeCh: make(chan *Subscription),
		changeCh:      make(chan models.Change, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// frame renders one SSE message. id is omitted when zero.
func frame(event string, id uint64, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event, payload)), nil
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", id, event, payload)), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	subs := make(map[*Subscription]time.Time)
	var seq uint64

	send := func(s *Subscription, msg []byte) {
		select {
		case s.ch <- msg:
		default:
			// slow client; drop
		}
	}

	for {
		select {
		case <-b.stopCh:
			for s := range subs {
				close(s.ch)
			}
			return

		case s := <-b.subscribeCh:
			subs[s] = time.Time{}

		case s := <-b.unsubscribeCh:
			if _, ok := subs[s]; ok {
				delete(subs, s)
				close(s.ch)
			}

		case c := <-b.changeCh:
			var event string
			switch c.Kind {
			case models.ChangeSaved:
				event = EventSaved
			case models.ChangeDeleted:
				event = EventDeleted
			default:
				continue
			}
			seq++
			c.Seq = seq
			msg, err := frame(event, seq, c)
			if err != nil {
				slog.Error("encode change", slog.String("id", c.ID), slog.String("error", err.Error()))
				continue
			}
			listMsg, _ := frame(EventChanged, 0, map[string]uint64{"seq": seq})

			now := time.Now()
			for s, lastList := range subs {
				if !s.wants(c) {
					continue
				}
				send(s, msg)
				if now.Sub(lastList) >= b.listMin {
					subs[s] = now
					send(s, listMsg)
				}
			}

		case resp := <-b.countReqCh:
			resp <- len(subs)
		}
	}
}

// Close gracefully stops broker loop and closes all subscriber channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a consumer of changes by author, or of every change
// when author is empty.
func (b *Broker) Subscribe(author string) *Subscription {
	ch := make(chan []byte, 64)
	s := &Subscription{Author: author, C: ch, ch: ch}
	if b.closed.Load() {
		close(ch)
		return s
	}

	select {
	case b.subscribeCh <- s:
	case <-b.stopped:
		close(ch)
	}

	return s
}

// Unsubscribe removes s and closes its channel.
func (b *Broker) Unsubscribe(s *Subscription) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- s:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected subscribers.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish announces a committed change. Any Seq on c is replaced.
func (b *Broker) Publish(c models.Change) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- c:
	case <-b.stopped:
	}
}

// ServeHTTP streams changes to one client (GET /api/events). The author
// query parameter narrows the feed to one author's notes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s := b.Subscribe(r.URL.Query().Get("author"))
	defer b.Unsubscribe(s)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.C:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
