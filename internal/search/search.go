// Package search narrows a note collection by owner, tags and fuzzy text.
package search

import (
	"sort"

	"github.com/sahilm/fuzzy"

	"github.com/starford/jotter/internal/identity"
	"github.com/starford/jotter/internal/models"
)

// Scope selects whose notes are considered.
type Scope string

const (
	ScopeAll  Scope = "all"
	ScopeMine Scope = "mine"
)

// ParseScope maps anything other than "mine" to ScopeAll.
func ParseScope(s string) Scope {
	if Scope(s) == ScopeMine {
		return ScopeMine
	}
	return ScopeAll
}

// Query is the filter context for one listing.
type Query struct {
	Scope Scope    `json:"scope"`
	Tags  []string `json:"tags"`
	Text  string   `json:"text"`
}

// Filter applies the owner, tag and text stages in that order. notes is
// expected in store order; that order is kept unless Text is set, in which
// case results are ordered by relevance.
func Filter(notes []models.Note, who identity.User, q Query) []models.Note {
	out := ByOwner(notes, who, q.Scope)
	out = ByTags(out, q.Tags)
	return ByText(out, q.Text)
}

// ByOwner keeps who's notes for ScopeMine; anonymous callers get nothing.
func ByOwner(notes []models.Note, who identity.User, scope Scope) []models.Note {
	if scope != ScopeMine {
		return notes
	}
	out := []models.Note{}
	if who.Anonymous() {
		return out
	}
	for _, n := range notes {
		if n.Author == who.Name {
			out = append(out, n)
		}
	}
	return out
}

// ByTags keeps notes carrying every tag in tags.
func ByTags(notes []models.Note, tags []string) []models.Note {
	if len(tags) == 0 {
		return notes
	}
	out := []models.Note{}
	for _, n := range notes {
		if hasAll(n, tags) {
			out = append(out, n)
		}
	}
	return out
}

func hasAll(n models.Note, tags []string) bool {
	for _, t := range tags {
		if !n.HasTag(t) {
			return false
		}
	}
	return true
}

type field struct {
	notes []models.Note
	get   func(models.Note) string
}

func (f field) String(i int) string { return f.get(f.notes[i]) }
func (f field) Len() int            { return len(f.notes) }

type hit struct {
	pos        int
	titleHit   bool
	titleScore int
	bodyScore  int
}

// ByText fuzzy-matches text against title and body. Title matches rank ahead
// of body-only matches; within a tier the higher fuzzy score wins and ties
// keep input order.
func ByText(notes []models.Note, text string) []models.Note {
	if text == "" {
		return notes
	}

	hits := make(map[int]*hit)
	lookup := func(i int) *hit {
		h, ok := hits[i]
		if !ok {
			h = &hit{pos: i}
			hits[i] = h
		}
		return h
	}
	for _, m := range fuzzy.FindFrom(text, field{notes, func(n models.Note) string { return n.Title }}) {
		h := lookup(m.Index)
		h.titleHit = true
		h.titleScore = m.Score
	}
	bodyHits := make(map[int]bool)
	for _, m := range fuzzy.FindFrom(text, field{notes, func(n models.Note) string { return n.Body }}) {
		h := lookup(m.Index)
		h.bodyScore = m.Score
		bodyHits[m.Index] = true
	}

	ranked := make([]*hit, 0, len(hits))
	for _, h := range hits {
		ranked = append(ranked, h)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.titleHit != b.titleHit {
			return a.titleHit
		}
		if a.titleHit && a.titleScore != b.titleScore {
			return a.titleScore > b.titleScore
		}
		if bodyHits[a.pos] != bodyHits[b.pos] {
			return bodyHits[a.pos]
		}
		if a.bodyScore != b.bodyScore {
			return a.bodyScore > b.bodyScore
		}
		return a.pos < b.pos
	})

	out := make([]models.Note, len(ranked))
	for i, h := range ranked {
		out[i] = notes[h.pos]
	}
	return out
}
