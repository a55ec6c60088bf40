// Package duckdbcat exposes the databases attached to a DuckDB connection as
// a catalog list, read through DuckDB's metadata table functions.
package duckdbcat

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"duck-pgcatalog/internal/catalog"
	"duck-pgcatalog/internal/domain"
)

// Compile-time checks.
var (
	_ domain.CatalogList = (*CatalogList)(nil)
	_ domain.Catalog     = (*Catalog)(nil)
	_ domain.Schema      = (*Schema)(nil)
)

// Schemas DuckDB creates in every database for its own compatibility views.
var hiddenSchemas = []string{"information_schema", "pg_catalog"}

// CatalogList lists the non-internal DuckDB databases, ordered by oid.
type CatalogList struct {
	db *sql.DB
}

// New creates a catalog list over db.
func New(db *sql.DB) *CatalogList {
	return &CatalogList{db: db}
}

func (l *CatalogList) CatalogNames(ctx context.Context) ([]string, error) {
	names, err := queryNames(ctx, l.db,
		`SELECT database_name FROM duckdb_databases() WHERE NOT internal ORDER BY database_oid`)
	if err != nil {
		return nil, fmt.Errorf("list duckdb databases: %w", err)
	}
	return names, nil
}

func (l *CatalogList) Catalog(ctx context.Context, name string) (domain.Catalog, error) {
	ok, err := exists(ctx, l.db,
		`SELECT count(*) FROM duckdb_databases() WHERE NOT internal AND database_name = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("lookup duckdb database %q: %w", name, err)
	}
	if !ok {
		return nil, domain.ErrNotFound("catalog %q not found", name)
	}
	return &Catalog{db: l.db, name: name}, nil
}

// Catalog is one DuckDB database.
type Catalog struct {
	db   *sql.DB
	name string
}

func (c *Catalog) SchemaNames(ctx context.Context) ([]string, error) {
	names, err := queryNames(ctx, c.db,
		`SELECT schema_name FROM duckdb_schemas()
		 WHERE database_name = ? AND schema_name NOT IN (?, ?)
		 ORDER BY oid`, c.name, hiddenSchemas[0], hiddenSchemas[1])
	if err != nil {
		return nil, fmt.Errorf("list schemas of %q: %w", c.name, err)
	}
	return names, nil
}

func (c *Catalog) Schema(ctx context.Context, name string) (domain.Schema, error) {
	ok, err := exists(ctx, c.db,
		`SELECT count(*) FROM duckdb_schemas() WHERE database_name = ? AND schema_name = ?`, c.name, name)
	if err != nil {
		return nil, fmt.Errorf("lookup schema %q: %w", name, err)
	}
	if !ok {
		return nil, domain.ErrNotFound("schema %q not found in catalog %q", name, c.name)
	}
	return &Schema{db: c.db, catalog: c.name, name: name}, nil
}

// Schema is one schema of a DuckDB database. Only base tables are listed.
type Schema struct {
	db      *sql.DB
	catalog string
	name    string
}

func (s *Schema) TableNames(ctx context.Context) ([]string, error) {
	names, err := queryNames(ctx, s.db,
		`SELECT table_name FROM duckdb_tables()
		 WHERE database_name = ? AND schema_name = ?
		 ORDER BY table_oid`, s.catalog, s.name)
	if err != nil {
		return nil, fmt.Errorf("list tables of %s.%s: %w", s.catalog, s.name, err)
	}
	return names, nil
}

func (s *Schema) Table(ctx context.Context, name string) (domain.Table, error) {
	ok, err := exists(ctx, s.db,
		`SELECT count(*) FROM duckdb_tables() WHERE database_name = ? AND schema_name = ? AND table_name = ?`,
		s.catalog, s.name, name)
	if err != nil {
		return nil, fmt.Errorf("lookup table %q: %w", name, err)
	}
	if !ok {
		return nil, domain.ErrNotFound("table %q not found in %s.%s", name, s.catalog, s.name)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT column_name, data_type, is_nullable FROM duckdb_columns()
		 WHERE database_name = ? AND schema_name = ? AND table_name = ?
		 ORDER BY column_index`, s.catalog, s.name, name)
	if err != nil {
		return nil, fmt.Errorf("list columns of %q: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	var fields []arrow.Field
	for rows.Next() {
		var (
			column, dataType string
			nullable         bool
		)
		if err := rows.Scan(&column, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("scan column of %q: %w", name, err)
		}
		fields = append(fields, arrow.Field{Name: column, Type: ArrowType(dataType), Nullable: nullable})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list columns of %q: %w", name, err)
	}
	return table{schema: arrow.NewSchema(fields, nil)}, nil
}

type table struct {
	schema *arrow.Schema
}

func (t table) Schema() *arrow.Schema { return t.schema }

// ArrowType converts a DuckDB type name, as reported by duckdb_columns() or
// a result set, into an Arrow type. Types without an Arrow counterpart
// become Null.
func ArrowType(name string) arrow.DataType {
	name = strings.TrimSpace(name)
	if elem, size, ok := fixedArray(name); ok {
		return arrow.FixedSizeListOf(size, ArrowType(elem))
	}
	dt, err := catalog.ParseType(name)
	if err != nil {
		return arrow.Null
	}
	return dt
}

// fixedArray splits DuckDB's "INTEGER[3]" into "INTEGER" and 3.
func fixedArray(name string) (string, int32, bool) {
	if !strings.HasSuffix(name, "]") {
		return "", 0, false
	}
	open := strings.LastIndexByte(name, '[')
	if open <= 0 {
		return "", 0, false
	}
	size, err := strconv.ParseInt(name[open+1:len(name)-1], 10, 32)
	if err != nil || size <= 0 {
		return "", 0, false
	}
	return name[:open], int32(size), true
}

func queryNames(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func exists(ctx context.Context, db *sql.DB, query string, args ...any) (bool, error) {
	var n int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
