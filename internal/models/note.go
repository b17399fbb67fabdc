// Package models defines the domain types for jotter.
package models

import (
	"strings"
	"time"
)

// Kind is the render variant of a note, selected by the title sigil.
type Kind string

const (
	KindPlain      Kind = "plain"
	KindMarkdown   Kind = "markdown"
	KindList       Kind = "list"
	KindStructured Kind = "structured"
)

// Note is the single persisted entity.
type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Kind      Kind      `json:"kind"`
	Markdown  string    `json:"markdown,omitempty"`
	List      []string  `json:"list,omitempty"`
	Data      any       `json:"data,omitempty"`
	Author    string    `json:"author"`
	Pinned    bool      `json:"pinned"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy that shares no slices or maps with n.
func (n Note) Clone() Note {
	c := n
	if n.List != nil {
		c.List = append([]string(nil), n.List...)
	}
	if n.Tags != nil {
		c.Tags = append([]string(nil), n.Tags...)
	}
	c.Data = cloneData(n.Data)
	return c
}

// cloneData copies the containers of a decoded JSON value.
func cloneData(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = cloneData(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneData(e)
		}
		return out
	default:
		return v
	}
}

// HasTag reports whether tag is set on the note.
func (n *Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag appends tag unless it is blank or already present.
// It reports whether the tag set changed.
func (n *Note) AddTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" || n.HasTag(tag) {
		return false
	}
	n.Tags = append(n.Tags, tag)
	return true
}

// RemoveTag drops tag, reporting whether it was present.
func (n *Note) RemoveTag(tag string) bool {
	for i, t := range n.Tags {
		if t == tag {
			n.Tags = append(n.Tags[:i:i], n.Tags[i+1:]...)
			return true
		}
	}
	return false
}

// NormalizeTags trims tags, drops blanks and keeps the first occurrence of
// each value in order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ParseTags splits a comma separated tag list and normalizes it.
func ParseTags(raw string) []string {
	return NormalizeTags(strings.Split(raw, ","))
}
