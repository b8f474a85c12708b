package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", h.ListDocuments)
		r.Post("/", h.CreateDocument)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetDocument)
			r.Put("/", h.ReplaceDocument)
			r.Delete("/", h.DeleteDocument)
			r.Get("/markdown", h.ExportMarkdown)
			r.Post("/import", h.ImportMarkdown)
			r.Post("/save", h.SaveDocument)

			r.Post("/blocks", h.InsertBlock)
			r.Route("/blocks/{blockID}", func(r chi.Router) {
				r.Patch("/", h.UpdateBlock)
				r.Delete("/", h.RemoveBlock)
				r.Post("/move", h.MoveBlock)
				r.Post("/convert", h.ConvertBlock)
				r.Post("/merge", h.MergeBlock)
				r.Post("/reparent", h.ReparentBlock)
			})
		})
	})

	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
