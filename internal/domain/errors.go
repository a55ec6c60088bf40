// Package domain defines the catalog interfaces and error kinds shared by the
// pg_catalog bridge, its catalog backends and its wire servers.
package domain

import "fmt"

// NotFoundError indicates a catalog, schema, table or relation was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates insufficient permissions.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// SyntaxError indicates a statement the SQL parser rejected.
type SyntaxError struct {
	Message string
}

func (e *SyntaxError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate schema registration).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// NotImplementedError indicates a feature the bridge does not support.
type NotImplementedError struct {
	Message string
}

func (e *NotImplementedError) Error() string { return e.Message }

// ConfigurationError indicates the bridge could not be installed, e.g. the
// catalog that should host pg_catalog does not exist. It is fatal at setup.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

// CatalogLookupError indicates that a catalog, schema or table listed by the
// catalog could not be resolved while walking it. The walk that produced it
// is aborted as a whole.
type CatalogLookupError struct {
	Catalog string
	Schema  string
	Table   string
	Err     error
}

func (e *CatalogLookupError) Error() string {
	path := e.Catalog
	if e.Schema != "" {
		path += "." + e.Schema
	}
	if e.Table != "" {
		path += "." + e.Table
	}
	if path == "" {
		return fmt.Sprintf("catalog lookup failed: %v", e.Err)
	}
	return fmt.Sprintf("catalog lookup failed for %s: %v", path, e.Err)
}

func (e *CatalogLookupError) Unwrap() error { return e.Err }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrSyntax creates a SyntaxError with a formatted message.
func ErrSyntax(format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotImplemented creates a NotImplementedError with a formatted message.
func ErrNotImplemented(format string, args ...interface{}) *NotImplementedError {
	return &NotImplementedError{Message: fmt.Sprintf(format, args...)}
}

// ErrConfiguration creates a ConfigurationError with a formatted message.
func ErrConfiguration(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}
