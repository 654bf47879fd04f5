package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mcgivrer/marknote/internal/index"
	"github.com/mcgivrer/marknote/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(idx *index.Store, broker *sse.Broker, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(idx, broker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Queries.
	r.Get("/entries", h.ListEntries)
	r.Get("/entries/*", h.GetEntry)
	r.Get("/search", h.Search)
	r.Get("/tags", h.Tags)

	// Index lifecycle.
	r.Post("/rebuild", h.Rebuild)
	r.Post("/reset", h.Reset)

	// Incremental updates driven by the editing UI.
	r.Post("/files/update", h.UpdateFile)
	r.Post("/files/remove", h.RemoveFile)
	r.Post("/files/remove-under", h.RemoveFilesUnder)
	r.Post("/files/rename", h.RenameFile)
	r.Post("/files/move", h.MoveFiles)
	r.Post("/files/copy", h.CopyFiles)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
