// Package sqlitecat exposes SQLite database files as catalogs. Each file is
// one catalog; its main database and every attached database are schemas.
package sqlitecat

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	_ "github.com/mattn/go-sqlite3"

	"duck-pgcatalog/internal/catalog"
	"duck-pgcatalog/internal/domain"
)

// Compile-time checks.
var (
	_ domain.CatalogList = (*CatalogList)(nil)
	_ domain.Catalog     = (*Catalog)(nil)
	_ domain.Schema      = (*Schema)(nil)
)

// Spec names one SQLite database file exposed as a catalog.
type Spec struct {
	Name string
	Path string
}

// ParseSpecs parses a comma separated "name=path" list.
func ParseSpecs(s string) ([]Spec, error) {
	var specs []Spec
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, path, ok := strings.Cut(part, "=")
		name, path = strings.TrimSpace(name), strings.TrimSpace(path)
		if !ok || name == "" || path == "" {
			return nil, domain.ErrValidation("invalid sqlite catalog %q: expected name=path", part)
		}
		if seen[name] {
			return nil, domain.ErrValidation("duplicate sqlite catalog %q", name)
		}
		seen[name] = true
		specs = append(specs, Spec{Name: name, Path: path})
	}
	return specs, nil
}

// CatalogList holds one catalog per SQLite connection, in attach order.
type CatalogList struct {
	mu    sync.RWMutex
	names []string
	dbs   map[string]*sql.DB
	owned []*sql.DB
}

// NewCatalogList creates an empty catalog list.
func NewCatalogList() *CatalogList {
	return &CatalogList{dbs: make(map[string]*sql.DB)}
}

// Open opens every spec read-only. The returned list owns the connections.
func Open(specs []Spec) (*CatalogList, error) {
	l := NewCatalogList()
	for _, spec := range specs {
		db, err := sql.Open("sqlite3", spec.Path+"?_query_only=true")
		if err != nil {
			_ = l.Close()
			return nil, fmt.Errorf("open sqlite catalog %q: %w", spec.Name, err)
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			_ = l.Close()
			return nil, fmt.Errorf("open sqlite catalog %q: %w", spec.Name, err)
		}
		if err := l.Attach(spec.Name, db); err != nil {
			_ = db.Close()
			_ = l.Close()
			return nil, err
		}
		l.owned = append(l.owned, db)
	}
	return l, nil
}

// Attach exposes db as the catalog name. The caller keeps ownership of db.
func (l *CatalogList) Attach(name string, db *sql.DB) error {
	if name == "" {
		return domain.ErrValidation("catalog name is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.dbs[name]; ok {
		return domain.ErrConflict("catalog %q already exists", name)
	}
	l.dbs[name] = db
	l.names = append(l.names, name)
	return nil
}

// Close closes the connections opened by Open.
func (l *CatalogList) Close() error {
	var first error
	for _, db := range l.owned {
		if err := db.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.owned = nil
	return first
}

func (l *CatalogList) CatalogNames(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.names...), nil
}

func (l *CatalogList) Catalog(ctx context.Context, name string) (domain.Catalog, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	db, ok := l.dbs[name]
	if !ok {
		return nil, domain.ErrNotFound("catalog %q not found", name)
	}
	return &Catalog{db: db, name: name}, nil
}

// Catalog is one SQLite connection.
type Catalog struct {
	db   *sql.DB
	name string
}

// SchemaNames lists the main and attached databases in sequence order. The
// temp database is skipped.
func (c *Catalog) SchemaNames(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `PRAGMA database_list`)
	if err != nil {
		return nil, fmt.Errorf("list sqlite databases of %q: %w", c.name, err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var (
			seq        int
			name, file string
		)
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return nil, fmt.Errorf("scan sqlite database of %q: %w", c.name, err)
		}
		if name == "temp" {
			continue
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sqlite databases of %q: %w", c.name, err)
	}
	return names, nil
}

func (c *Catalog) Schema(ctx context.Context, name string) (domain.Schema, error) {
	names, err := c.SchemaNames(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		if n == name {
			return &Schema{db: c.db, catalog: c.name, name: name}, nil
		}
	}
	return nil, domain.ErrNotFound("schema %q not found in catalog %q", name, c.name)
}

// Schema is one SQLite database of a connection.
type Schema struct {
	db      *sql.DB
	catalog string
	name    string
}

// TableNames lists user tables in creation order.
func (s *Schema) TableNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM `+quoteIdent(s.name)+`.sqlite_master
		 WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		 ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list tables of %s.%s: %w", s.catalog, s.name, err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan table of %s.%s: %w", s.catalog, s.name, err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s *Schema) Table(ctx context.Context, name string) (domain.Table, error) {
	rows, err := s.db.QueryContext(ctx, `PRAGMA `+quoteIdent(s.name)+`.table_info(`+quoteIdent(name)+`)`)
	if err != nil {
		return nil, fmt.Errorf("describe table %q: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	var fields []arrow.Field
	for rows.Next() {
		var (
			cid         int
			column, typ string
			notNull, pk int
			dflt        sql.NullString
		)
		if err := rows.Scan(&cid, &column, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column of %q: %w", name, err)
		}
		fields = append(fields, arrow.Field{Name: column, Type: AffinityType(typ), Nullable: notNull == 0})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describe table %q: %w", name, err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound("table %q not found in %s.%s", name, s.catalog, s.name)
	}
	return table{schema: arrow.NewSchema(fields, nil)}, nil
}

type table struct {
	schema *arrow.Schema
}

func (t table) Schema() *arrow.Schema { return t.schema }

// AffinityType maps a declared SQLite column type to an Arrow type using
// SQLite's affinity rules. Declared types that name a specific type
// (DATE, BOOLEAN, DECIMAL(10,2), ...) keep that type.
func AffinityType(declared string) arrow.DataType {
	d := strings.ToUpper(declared)
	switch {
	case strings.Contains(d, "INT"):
		return arrow.PrimitiveTypes.Int64
	case strings.Contains(d, "CHAR"), strings.Contains(d, "CLOB"), strings.Contains(d, "TEXT"):
		return arrow.BinaryTypes.String
	case strings.Contains(d, "BLOB"), strings.TrimSpace(d) == "":
		return arrow.BinaryTypes.Binary
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"):
		return arrow.PrimitiveTypes.Float64
	}
	if dt, err := catalog.ParseType(declared); err == nil {
		return dt
	}
	return &arrow.Decimal128Type{Precision: 38, Scale: 10}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
