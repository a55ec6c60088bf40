package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// ListRelations handles GET /v1/relations.
func (h *APIHandler) ListRelations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"relations": h.relations.List()})
}

// DescribeRelation handles GET /v1/relations/{name}/columns.
func (h *APIHandler) DescribeRelation(w http.ResponseWriter, r *http.Request) {
	info, err := h.relations.Describe(chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GetRelation handles GET /v1/relations/{name}. Each request walks the
// catalogs again; the optional limit truncates the rows returned but
// row_count always reports the full snapshot.
func (h *APIHandler) GetRelation(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	data, err := h.relations.Fetch(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if limit > 0 && len(data.Rows) > limit {
		data.Rows = data.Rows[:limit]
	}
	w.Header().Set("X-Fetch-Duration-Ms", strconv.FormatInt(data.FetchedIn.Milliseconds(), 10))
	writeJSON(w, http.StatusOK, data)
}

// ListFunctions handles GET /v1/functions.
func (h *APIHandler) ListFunctions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"functions": h.relations.Functions()})
}
