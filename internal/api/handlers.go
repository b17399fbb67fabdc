package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/starford/jotter/internal/identity"
	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/noteservice"
	"github.com/starford/jotter/internal/search"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes, pinned first then most recently updated
//	@Tags			notes
//	@Produce		json
//	@Param			author	query		string	false	"Only this author's notes (caller must be the author)"
//	@Success		200		{object}	NoteListResponse
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	var (
		notes []models.Note
		err   error
	)
	if author := r.URL.Query().Get("author"); author != "" {
		notes, err = h.svc.ListByAuthor(r.Context(), identity.FromContext(r.Context()), author)
	} else {
		notes, err = h.svc.ListAll(r.Context())
	}
	if err != nil {
		writeError(w, "list notes", "", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	models.Note
//	@Failure		404	{object}	errResponse
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get note", id, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// SaveNote handles POST /api/notes and PUT /api/notes/{id}.
// A body without id creates a note; the path id wins over the body id.
//
//	@Summary		Create or update a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SaveNoteRequest	true	"Note content"
//	@Success		200		{object}	models.Note
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req SaveNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		req.ID = id
	}

	note, err := h.svc.Save(r.Context(), identity.FromContext(r.Context()), req)
	if err != nil {
		writeError(w, "save note", req.ID, err)
		return
	}
	status := http.StatusOK
	if req.ID == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, note)
}

// DeleteNote handles DELETE /api/notes/{id} and returns the deleted note.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	models.Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.svc.Delete(r.Context(), identity.FromContext(r.Context()), id)
	if err != nil {
		writeError(w, "delete note", id, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// AddTag handles POST /api/notes/{id}/tags.
func (h *Handler) AddTag(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	id := chi.URLParam(r, "id")
	var req TagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Tag == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("tag is required"))
		return
	}
	note, err := h.svc.AddTag(r.Context(), identity.FromContext(r.Context()), id, req.Tag)
	if err != nil {
		writeError(w, "add tag", id, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// RemoveTag handles DELETE /api/notes/{id}/tags/{tag}.
func (h *Handler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tag, err := url.PathUnescape(chi.URLParam(r, "tag"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid tag"))
		return
	}
	note, err := h.svc.RemoveTag(r.Context(), identity.FromContext(r.Context()), id, tag)
	if err != nil {
		writeError(w, "remove tag", id, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// SetPinned handles PUT /api/notes/{id}/pin.
func (h *Handler) SetPinned(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	id := chi.URLParam(r, "id")
	var req PinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	note, err := h.svc.SetPinned(r.Context(), identity.FromContext(r.Context()), id, req.Pinned)
	if err != nil {
		writeError(w, "pin note", id, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Search handles GET /api/search.
//
//	@Summary		Filter notes by owner, tags and fuzzy text
//	@Tags			search
//	@Produce		json
//	@Param			scope	query		string		false	"mine or all"	Enums(mine, all)
//	@Param			tag		query		[]string	false	"Required tags (all must match)"
//	@Param			q		query		string		false	"Fuzzy text"
//	@Success		200		{object}	NoteListResponse
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := search.Query{
		Scope: search.ParseScope(q.Get("scope")),
		Tags:  q["tag"],
		Text:  q.Get("q"),
	}
	notes, err := h.svc.Search(r.Context(), identity.FromContext(r.Context()), query)
	if err != nil {
		writeError(w, "search", "", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}
