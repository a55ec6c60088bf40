package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", ErrNotFound("table %q not found", "t1"), `table "t1" not found`},
		{"access denied", ErrAccessDenied("no access to %s", "c1"), "no access to c1"},
		{"validation", ErrValidation("bad value %d", 3), "bad value 3"},
		{"syntax", ErrSyntax("syntax error at %q", "SELEC"), `syntax error at "SELEC"`},
		{"conflict", ErrConflict("schema %q already exists", "s"), `schema "s" already exists`},
		{"not implemented", ErrNotImplemented("COPY is not supported"), "COPY is not supported"},
		{"configuration", ErrConfiguration("catalog not found when registering pg_catalog: %s", "x"), "catalog not found when registering pg_catalog: x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestCatalogLookupError(t *testing.T) {
	cause := ErrNotFound("gone")

	tests := []struct {
		name string
		err  *CatalogLookupError
		want string
	}{
		{"catalog", &CatalogLookupError{Catalog: "c", Err: cause}, "catalog lookup failed for c: gone"},
		{"schema", &CatalogLookupError{Catalog: "c", Schema: "s", Err: cause}, "catalog lookup failed for c.s: gone"},
		{"table", &CatalogLookupError{Catalog: "c", Schema: "s", Table: "t", Err: cause}, "catalog lookup failed for c.s.t: gone"},
		{"listing", &CatalogLookupError{Err: cause}, "catalog lookup failed: gone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestCatalogLookupError_Unwrap(t *testing.T) {
	cause := ErrNotFound("gone")
	err := fmt.Errorf("fetch pg_class: %w", &CatalogLookupError{Catalog: "c", Err: cause})

	var lookup *CatalogLookupError
	require.True(t, errors.As(err, &lookup))
	assert.Equal(t, "c", lookup.Catalog)

	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
	assert.True(t, errors.Is(err, cause))
}
