package ui

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"duck-pgcatalog/internal/domain"
)

func (h *Handler) RelationsList(w http.ResponseWriter, r *http.Request) {
	renderHTML(w, http.StatusOK, relationsListPage(principalLabel(r.Context()), h.Relations.List()))
}

func (h *Handler) RelationDetail(w http.ResponseWriter, r *http.Request) {
	rel, err := h.Relations.Fetch(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			renderHTML(w, http.StatusNotFound, errorPage("Relation not found", err.Error()))
			return
		}
		renderHTML(w, http.StatusInternalServerError, errorPage("Relation unavailable", err.Error()))
		return
	}
	renderHTML(w, http.StatusOK, relationDetailPage(principalLabel(r.Context()), rel))
}

func (h *Handler) FunctionsList(w http.ResponseWriter, r *http.Request) {
	renderHTML(w, http.StatusOK, functionsPage(principalLabel(r.Context()), h.Relations.Functions()))
}
