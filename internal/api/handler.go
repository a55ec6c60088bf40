// Package api provides the JSON HTTP API over the pg_catalog relations, the
// introspection functions and the query engine.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"duck-pgcatalog/internal/domain"
	"duck-pgcatalog/internal/service/introspection"
	"duck-pgcatalog/internal/service/query"
)

// maxQueryBodyBytes caps POST /v1/query request bodies.
const maxQueryBodyBytes = 1 << 20

// APIHandler serves the /v1 routes.
type APIHandler struct {
	relations *introspection.RelationService
	query     *query.QueryService
	logger    *slog.Logger
}

// NewHandler creates a new APIHandler.
func NewHandler(relations *introspection.RelationService, query *query.QueryService, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{
		relations: relations,
		query:     query,
		logger:    logger.With("component", "api"),
	}
}

// Routes mounts the API on r.
func (h *APIHandler) Routes(r chi.Router) {
	r.Get("/relations", h.ListRelations)
	r.Get("/relations/{name}", h.GetRelation)
	r.Get("/relations/{name}/columns", h.DescribeRelation)
	r.Get("/functions", h.ListFunctions)
	r.Post("/query", h.ExecuteQuery)
	r.Get("/queries", h.ListQueries)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// limitParam reads the optional non-negative "limit" query parameter.
// Zero means no limit.
func limitParam(r *http.Request) (int, error) {
	var limit *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		return 0, domain.ErrValidation("invalid limit: %v", err)
	}
	if limit == nil {
		return 0, nil
	}
	if *limit < 0 {
		return 0, domain.ErrValidation("limit must be non-negative, got %d", *limit)
	}
	return *limit, nil
}
