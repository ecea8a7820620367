package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/thoughtmap/internal/thoughtservice"
	"github.com/starford/thoughtmap/internal/view"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// surface, if non-nil, is served under /graph.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *thoughtservice.Service, surface *view.Surface, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Thoughts.
	r.Get("/thoughts", h.ListThoughts)
	r.Get("/thoughts/{id}", h.GetThought)
	r.Post("/thoughts/{id}/status", h.UpdateStatus)
	r.Post("/thoughts/{id}/memoize", h.Memoize)
	r.Post("/thoughts/{id}/self-reference", h.AddSelfReference)

	// Documents CRUD.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Post("/documents/move", h.MoveDocument)
	r.Get("/documents/*", h.GetDocument)
	r.Put("/documents/*", h.UpdateDocument)
	r.Delete("/documents/*", h.DeleteDocument)

	// Search.
	r.Get("/search", h.Search)

	// Graph surface.
	if surface != nil {
		gh := NewGraphHandler(surface)
		r.Get("/graph", gh.Frame)
		r.Get("/graph.svg", gh.SVG)
		r.Put("/graph/view", gh.SetView)
		r.Post("/graph/interactions", gh.Interact)
	}

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
