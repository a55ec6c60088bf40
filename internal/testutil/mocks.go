// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"

	"duck-pgcatalog/internal/domain"
)

// === Catalog List Mock ===

// MockCatalogList implements domain.CatalogList for testing.
type MockCatalogList struct {
	CatalogNamesFn func(ctx context.Context) ([]string, error)
	CatalogFn      func(ctx context.Context, name string) (domain.Catalog, error)

	mu    sync.Mutex
	Calls []string // lookups in call order, for asserting traversal
}

func (m *MockCatalogList) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// CatalogNames implements the interface method for testing.
func (m *MockCatalogList) CatalogNames(ctx context.Context) ([]string, error) {
	m.record("CatalogNames")
	if m.CatalogNamesFn != nil {
		return m.CatalogNamesFn(ctx)
	}
	panic("unexpected call to MockCatalogList.CatalogNames")
}

// Catalog implements the interface method for testing.
func (m *MockCatalogList) Catalog(ctx context.Context, name string) (domain.Catalog, error) {
	m.record("Catalog:" + name)
	if m.CatalogFn != nil {
		return m.CatalogFn(ctx, name)
	}
	panic("unexpected call to MockCatalogList.Catalog")
}

// === Catalog Mock ===

// MockCatalog implements domain.Catalog for testing.
type MockCatalog struct {
	SchemaNamesFn func(ctx context.Context) ([]string, error)
	SchemaFn      func(ctx context.Context, name string) (domain.Schema, error)
}

// SchemaNames implements the interface method for testing.
func (m *MockCatalog) SchemaNames(ctx context.Context) ([]string, error) {
	if m.SchemaNamesFn != nil {
		return m.SchemaNamesFn(ctx)
	}
	panic("unexpected call to MockCatalog.SchemaNames")
}

// Schema implements the interface method for testing.
func (m *MockCatalog) Schema(ctx context.Context, name string) (domain.Schema, error) {
	if m.SchemaFn != nil {
		return m.SchemaFn(ctx, name)
	}
	panic("unexpected call to MockCatalog.Schema")
}

// === Schema Mock ===

// MockSchema implements domain.Schema for testing.
type MockSchema struct {
	TableNamesFn func(ctx context.Context) ([]string, error)
	TableFn      func(ctx context.Context, name string) (domain.Table, error)
}

// TableNames implements the interface method for testing.
func (m *MockSchema) TableNames(ctx context.Context) ([]string, error) {
	if m.TableNamesFn != nil {
		return m.TableNamesFn(ctx)
	}
	panic("unexpected call to MockSchema.TableNames")
}

// Table implements the interface method for testing.
func (m *MockSchema) Table(ctx context.Context, name string) (domain.Table, error) {
	if m.TableFn != nil {
		return m.TableFn(ctx, name)
	}
	panic("unexpected call to MockSchema.Table")
}

// === Table Mock ===

// MockTable implements domain.Table for testing.
type MockTable struct {
	Columns *arrow.Schema
}

// Schema implements the interface method for testing.
func (m *MockTable) Schema() *arrow.Schema { return m.Columns }

// === Function Registry Mock ===

// MockFunctionRegistry collects registered functions. It is generic over
// the function type so it can serve any registry interface.
type MockFunctionRegistry[F any] struct {
	RegisterFn func(fn F) error
	Registered []F
}

// RegisterFunction implements the interface method for testing.
func (m *MockFunctionRegistry[F]) RegisterFunction(fn F) error {
	if m.RegisterFn != nil {
		if err := m.RegisterFn(fn); err != nil {
			return err
		}
	}
	m.Registered = append(m.Registered, fn)
	return nil
}
