package api

import (
	"encoding/json"
	"net/http"

	"duck-pgcatalog/internal/domain"
	"duck-pgcatalog/internal/engine"
	"duck-pgcatalog/internal/middleware"
	"duck-pgcatalog/internal/pgcatalog"
	"duck-pgcatalog/internal/service/introspection"
)

// ExecuteQueryRequest is the body of POST /v1/query.
type ExecuteQueryRequest struct {
	SQL string `json:"sql"`
}

// QueryColumn is one result column with its PostgreSQL type name.
type QueryColumn struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	TypeOid uint32 `json:"type_oid"`
}

// QueryResult is the outcome of one statement.
type QueryResult struct {
	Columns  []QueryColumn `json:"columns"`
	Rows     [][]any       `json:"rows"`
	RowCount int           `json:"row_count"`
	Tag      string        `json:"tag"`
}

// ExecuteQueryResponse lists one result per statement. When a statement
// fails, Error is set and Results holds the statements that completed
// before it.
type ExecuteQueryResponse struct {
	Results []QueryResult `json:"results"`
	Error   *Error        `json:"error,omitempty"`
}

// ExecuteQuery handles POST /v1/query.
func (h *APIHandler) ExecuteQuery(w http.ResponseWriter, r *http.Request) {
	var req ExecuteQueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, r, domain.ErrValidation("invalid request body: %v", err))
		return
	}

	principal, _ := middleware.PrincipalFromContext(r.Context())
	results, err := h.query.Execute(r.Context(), principal, req.SQL)
	if err != nil && len(results) == 0 {
		h.writeError(w, r, err)
		return
	}

	resp := ExecuteQueryResponse{Results: make([]QueryResult, len(results))}
	for i, res := range results {
		resp.Results[i] = queryResultToAPI(res)
	}
	code := http.StatusOK
	if err != nil {
		code = httpStatusFromDomainError(err)
		resp.Error = &Error{Code: code, Message: err.Error()}
	}
	writeJSON(w, code, resp)
}

// ListQueries handles GET /v1/queries.
func (h *APIHandler) ListQueries(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queries": h.query.History(limit)})
}

func queryResultToAPI(res *engine.Result) QueryResult {
	out := QueryResult{
		Columns:  make([]QueryColumn, len(res.Columns)),
		Rows:     make([][]any, len(res.Rows)),
		RowCount: len(res.Rows),
		Tag:      res.Tag,
	}
	for i, c := range res.Columns {
		name := "unknown"
		if t, ok := pgcatalog.LookupType(c.TypeOid); ok {
			name = t.Name
		}
		out.Columns[i] = QueryColumn{Name: c.Name, Type: name, TypeOid: c.TypeOid}
	}
	for i, row := range res.Rows {
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = introspection.JSONValue(v)
		}
		out.Rows[i] = vals
	}
	return out
}
