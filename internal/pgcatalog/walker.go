// Package pgcatalog projects an engine-owned catalog into PostgreSQL-shaped
// system relations (pg_namespace, pg_class, pg_attribute, pg_database,
// pg_proc, pg_type, pg_am) and the introspection functions clients expect.
package pgcatalog

import (
	"context"
	"errors"

	"github.com/apache/arrow-go/v18/arrow"

	"duck-pgcatalog/internal/domain"
)

// IntrospectionSchema is the schema that hosts the relations of this package.
const IntrospectionSchema = "pg_catalog"

// WalkedSchema is one schema emitted by the walker.
type WalkedSchema struct {
	Catalog string
	Name    string
	// SystemOid is non-zero when the schema maps onto a fixed system
	// namespace (public, information_schema).
	SystemOid uint32
	Tables    []WalkedTable
}

// WalkedTable is one table emitted by the walker, with its ordered columns.
type WalkedTable struct {
	Name    string
	Columns []arrow.Field
}

// CatalogWalker traverses a catalog list in its own enumeration order.
type CatalogWalker struct {
	catalogs domain.CatalogList
}

// NewCatalogWalker creates a walker over catalogs.
func NewCatalogWalker(catalogs domain.CatalogList) *CatalogWalker {
	return &CatalogWalker{catalogs: catalogs}
}

// Catalogs lists catalog names only.
func (w *CatalogWalker) Catalogs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names, err := w.catalogs.CatalogNames(ctx)
	if err != nil {
		return nil, lookupError(ctx, &domain.CatalogLookupError{Err: err})
	}
	return names, nil
}

// Walk resolves every catalog, schema and table sequentially. Any failed
// lookup aborts the walk and nothing is returned.
func (w *CatalogWalker) Walk(ctx context.Context) ([]WalkedSchema, error) {
	catalogNames, err := w.Catalogs(ctx)
	if err != nil {
		return nil, err
	}

	var out []WalkedSchema
	for _, catalogName := range catalogNames {
		schemas, err := w.walkCatalog(ctx, catalogName)
		if err != nil {
			return nil, err
		}
		out = append(out, schemas...)
	}
	return out, nil
}

func (w *CatalogWalker) walkCatalog(ctx context.Context, catalogName string) ([]WalkedSchema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cat, err := w.catalogs.Catalog(ctx, catalogName)
	if err == nil && cat == nil {
		err = domain.ErrNotFound("catalog %q not found", catalogName)
	}
	if err != nil {
		return nil, lookupError(ctx, &domain.CatalogLookupError{Catalog: catalogName, Err: err})
	}
	schemaNames, err := cat.SchemaNames(ctx)
	if err != nil {
		return nil, lookupError(ctx, &domain.CatalogLookupError{Catalog: catalogName, Err: err})
	}

	out := make([]WalkedSchema, 0, len(schemaNames))
	for _, schemaName := range schemaNames {
		if schemaName == IntrospectionSchema {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		schema, err := cat.Schema(ctx, schemaName)
		if err == nil && schema == nil {
			err = domain.ErrNotFound("schema %q not found", schemaName)
		}
		if err != nil {
			return nil, lookupError(ctx, &domain.CatalogLookupError{Catalog: catalogName, Schema: schemaName, Err: err})
		}
		ws := WalkedSchema{Catalog: catalogName, Name: schemaName}
		if oid, ok := systemNamespaceOid(schemaName); ok {
			ws.SystemOid = oid
		}
		ws.Tables, err = w.walkSchema(ctx, catalogName, schemaName, schema)
		if err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, nil
}

func (w *CatalogWalker) walkSchema(ctx context.Context, catalogName, schemaName string, schema domain.Schema) ([]WalkedTable, error) {
	tableNames, err := schema.TableNames(ctx)
	if err != nil {
		return nil, lookupError(ctx, &domain.CatalogLookupError{Catalog: catalogName, Schema: schemaName, Err: err})
	}

	tables := make([]WalkedTable, 0, len(tableNames))
	for _, tableName := range tableNames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, err := schema.Table(ctx, tableName)
		if err == nil && table == nil {
			err = domain.ErrNotFound("table %q not found", tableName)
		}
		if err != nil {
			return nil, lookupError(ctx, &domain.CatalogLookupError{Catalog: catalogName, Schema: schemaName, Table: tableName, Err: err})
		}
		var cols []arrow.Field
		if s := table.Schema(); s != nil {
			cols = append(cols, s.Fields()...)
		}
		tables = append(tables, WalkedTable{Name: tableName, Columns: cols})
	}
	return tables, nil
}

// lookupError keeps cancellation distinguishable from a vanished object.
func lookupError(ctx context.Context, lerr *domain.CatalogLookupError) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(lerr.Err, ctxErr) {
		return ctxErr
	}
	return lerr
}
