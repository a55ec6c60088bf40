package api

import (
	"context"
	"errors"
	"net/http"

	"duck-pgcatalog/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var lookup *domain.CatalogLookupError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var syntax *domain.SyntaxError
	var conflict *domain.ConflictError
	var notImplemented *domain.NotImplementedError

	switch {
	case errors.As(err, &lookup), errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation), errors.As(err, &syntax):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &notImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Error is the JSON body of every non-2xx response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatusFromDomainError(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, code, Error{Code: code, Message: err.Error()})
}
