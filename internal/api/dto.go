package api

import (
	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/noteservice"
)

// SaveNoteRequest is the request body for creating or updating a note.
type SaveNoteRequest = noteservice.SaveInput

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// TagRequest is the request body for adding a tag.
type TagRequest struct {
	Tag string `json:"tag" example:"groceries" validate:"required"`
}

// PinRequest is the request body for pinning or unpinning a note.
type PinRequest struct {
	Pinned bool `json:"pinned" example:"true"`
}
