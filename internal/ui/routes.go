package ui

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"duck-pgcatalog/internal/ui/assets"
)

// MountRoutes registers the UI under r, which is expected to be mounted at
// /ui behind the authentication middleware.
func MountRoutes(r chi.Router, h *Handler) {
	staticFS, err := fs.Sub(assets.StaticFS(), "static")
	if err == nil {
		r.Handle("/static/*", http.StripPrefix("/ui/static/", http.FileServer(http.FS(staticFS))))
	}

	r.Group(func(r chi.Router) {
		r.Use(h.EnsureCSRFToken)
		r.Use(h.RequireCSRF)
		r.Get("/", h.RelationsList)
		r.Get("/relations/{name}", h.RelationDetail)
		r.Get("/functions", h.FunctionsList)
		r.Get("/sql", h.SQLEditorPage)
		r.Post("/sql", h.SQLEditorRun)
		r.Get("/queries", h.QueriesList)
	})
}
