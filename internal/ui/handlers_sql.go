package ui

import (
	"net/http"
	"strings"

	"duck-pgcatalog/internal/engine"
)

const sqlEditorMaxRows = 200

const defaultSQLSnippet = `SELECT n.nspname, c.relname, c.relkind
FROM pg_catalog.pg_class c
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
ORDER BY 1, 2`

func (h *Handler) SQLEditorPage(w http.ResponseWriter, r *http.Request) {
	sqlText := strings.TrimSpace(r.URL.Query().Get("sql"))
	if sqlText == "" {
		sqlText = defaultSQLSnippet
	}
	renderHTML(w, http.StatusOK, sqlEditorPage(principalLabel(r.Context()), sqlText, nil, "", csrfField(r)))
}

func (h *Handler) SQLEditorRun(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderHTML(w, http.StatusBadRequest, errorPage("Bad Request", "Invalid form payload."))
		return
	}
	sqlText := strings.TrimSpace(r.Form.Get("sql"))
	principal := principalLabel(r.Context())

	results, err := h.Query.Execute(r.Context(), principal, sqlText)
	runError := ""
	status := http.StatusOK
	if err != nil {
		runError = err.Error()
		status = http.StatusUnprocessableEntity
	}
	renderHTML(w, status, sqlEditorPage(principal, sqlText, results, runError, csrfField(r)))
}

func (h *Handler) QueriesList(w http.ResponseWriter, r *http.Request) {
	renderHTML(w, http.StatusOK, queriesPage(principalLabel(r.Context()), h.Query.History(0)))
}

func lastResult(results []*engine.Result) *engine.Result {
	if len(results) == 0 {
		return nil
	}
	return results[len(results)-1]
}
