// Package ui serves a small HTML browser over the pg_catalog relations and
// the SQL engine.
package ui

import (
	"context"
	"net/http"
	"strings"

	gomponents "maragu.dev/gomponents"

	"duck-pgcatalog/internal/middleware"
	"duck-pgcatalog/internal/service/introspection"
	"duck-pgcatalog/internal/service/query"
)

type Handler struct {
	Relations  *introspection.RelationService
	Query      *query.QueryService
	Production bool
}

func NewHandler(relations *introspection.RelationService, querySvc *query.QueryService, production bool) *Handler {
	return &Handler{
		Relations:  relations,
		Query:      querySvc,
		Production: production,
	}
}

func renderHTML(w http.ResponseWriter, status int, node gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}

func principalLabel(ctx context.Context) string {
	name, ok := middleware.PrincipalFromContext(ctx)
	if !ok || strings.TrimSpace(name) == "" {
		return "unknown"
	}
	return name
}
