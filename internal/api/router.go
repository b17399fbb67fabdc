package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/jotter/internal/identity"
	"github.com/starford/jotter/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// Reads are public; mutations need a verified identity.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *noteservice.Service, idp *identity.Provider, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(IdentityMiddleware(idp))

	r.Get("/notes", h.ListNotes)
	r.Get("/notes/{id}", h.GetNote)
	r.Get("/search", h.Search)

	r.Group(func(r chi.Router) {
		r.Use(RequireIdentity)
		r.Post("/notes", h.SaveNote)
		r.Put("/notes/{id}", h.SaveNote)
		r.Delete("/notes/{id}", h.DeleteNote)
		r.Post("/notes/{id}/tags", h.AddTag)
		r.Delete("/notes/{id}/tags/{tag}", h.RemoveTag)
		r.Put("/notes/{id}/pin", h.SetPinned)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
