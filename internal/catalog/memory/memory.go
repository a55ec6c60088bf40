// Package memory is a mutable, in-process catalog. Names are listed in
// insertion order.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"

	"duck-pgcatalog/internal/domain"
)

// CatalogList is the root of an in-memory catalog hierarchy.
type CatalogList struct {
	mu       sync.RWMutex
	names    []string
	catalogs map[string]*Catalog
}

// NewCatalogList creates an empty catalog list.
func NewCatalogList() *CatalogList {
	return &CatalogList{catalogs: make(map[string]*Catalog)}
}

// AddCatalog creates a catalog. Adding an existing name is a conflict.
func (l *CatalogList) AddCatalog(name string) (*Catalog, error) {
	if name == "" {
		return nil, domain.ErrValidation("catalog name is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.catalogs[name]; ok {
		return nil, domain.ErrConflict("catalog %q already exists", name)
	}
	c := NewCatalog()
	l.catalogs[name] = c
	l.names = append(l.names, name)
	return c, nil
}

// EnsureCatalog returns the named catalog, creating it when missing.
func (l *CatalogList) EnsureCatalog(name string) (*Catalog, error) {
	l.mu.RLock()
	c, ok := l.catalogs[name]
	l.mu.RUnlock()
	if ok {
		return c, nil
	}
	return l.AddCatalog(name)
}

// DropCatalog removes a catalog and everything in it.
func (l *CatalogList) DropCatalog(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.catalogs[name]; !ok {
		return domain.ErrNotFound("catalog %q not found", name)
	}
	delete(l.catalogs, name)
	l.names = slices.DeleteFunc(l.names, func(n string) bool { return n == name })
	return nil
}

func (l *CatalogList) CatalogNames(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.names), nil
}

func (l *CatalogList) Catalog(ctx context.Context, name string) (domain.Catalog, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.catalogs[name]
	if !ok {
		return nil, domain.ErrNotFound("catalog %q not found", name)
	}
	return c, nil
}

// Catalog holds schemas. Besides its own schemas it accepts externally
// provided ones through RegisterSchema.
type Catalog struct {
	mu      sync.RWMutex
	names   []string
	schemas map[string]domain.Schema
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{schemas: make(map[string]domain.Schema)}
}

// AddSchema creates an empty schema.
func (c *Catalog) AddSchema(name string) (*Schema, error) {
	s := NewSchema()
	if err := c.RegisterSchema(name, s); err != nil {
		return nil, err
	}
	return s, nil
}

// EnsureSchema returns the named schema, creating it when missing. It fails
// when the name belongs to a registered schema of another kind.
func (c *Catalog) EnsureSchema(name string) (*Schema, error) {
	c.mu.RLock()
	existing, ok := c.schemas[name]
	c.mu.RUnlock()
	if !ok {
		return c.AddSchema(name)
	}
	s, ok := existing.(*Schema)
	if !ok {
		return nil, domain.ErrConflict("schema %q is not writable", name)
	}
	return s, nil
}

func (c *Catalog) RegisterSchema(name string, schema domain.Schema) error {
	if name == "" {
		return domain.ErrValidation("schema name is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.schemas[name]; ok {
		return domain.ErrConflict("schema %q already exists", name)
	}
	c.schemas[name] = schema
	c.names = append(c.names, name)
	return nil
}

// DropSchema removes a schema.
func (c *Catalog) DropSchema(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.schemas[name]; !ok {
		return domain.ErrNotFound("schema %q not found", name)
	}
	delete(c.schemas, name)
	c.names = slices.DeleteFunc(c.names, func(n string) bool { return n == name })
	return nil
}

func (c *Catalog) SchemaNames(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.names), nil
}

func (c *Catalog) Schema(ctx context.Context, name string) (domain.Schema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.schemas[name]
	if !ok {
		return nil, domain.ErrNotFound("schema %q not found", name)
	}
	return s, nil
}

// Schema holds tables.
type Schema struct {
	mu     sync.RWMutex
	names  []string
	tables map[string]*Table
}

// NewSchema creates an empty schema.
func NewSchema() *Schema {
	return &Schema{tables: make(map[string]*Table)}
}

// AddTable creates a table with the given columns.
func (s *Schema) AddTable(name string, columns *arrow.Schema) (*Table, error) {
	if name == "" {
		return nil, domain.ErrValidation("table name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; ok {
		return nil, domain.ErrConflict("table %q already exists", name)
	}
	t := NewTable(columns)
	s.tables[name] = t
	s.names = append(s.names, name)
	return t, nil
}

// DropTable removes a table.
func (s *Schema) DropTable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; !ok {
		return domain.ErrNotFound("table %q not found", name)
	}
	delete(s.tables, name)
	s.names = slices.DeleteFunc(s.names, func(n string) bool { return n == name })
	return nil
}

func (s *Schema) TableNames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.names), nil
}

func (s *Schema) Table(ctx context.Context, name string) (domain.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return nil, domain.ErrNotFound("table %q not found", name)
	}
	return t, nil
}

// Table is an immutable column list.
type Table struct {
	schema *arrow.Schema
}

// NewTable wraps a column list. A nil schema means no columns.
func NewTable(columns *arrow.Schema) *Table {
	if columns == nil {
		columns = arrow.NewSchema(nil, nil)
	}
	return &Table{schema: columns}
}

func (t *Table) Schema() *arrow.Schema { return t.schema }
