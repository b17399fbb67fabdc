package models

import "time"

// ChangeKind names what happened to a note.
type ChangeKind string

const (
	ChangeSaved   ChangeKind = "saved"
	ChangeDeleted ChangeKind = "deleted"
)

// Change announces a committed mutation to feed subscribers. Seq is assigned
// by the feed and grows by one per announced change.
type Change struct {
	Kind      ChangeKind `json:"kind"`
	ID        string     `json:"id"`
	Author    string     `json:"author"`
	UpdatedAt time.Time  `json:"updated_at"`
	Seq       uint64     `json:"seq,omitempty"`
}
