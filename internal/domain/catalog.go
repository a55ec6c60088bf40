package domain

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
)

// CatalogList is the read-only root of an engine's catalog hierarchy.
// Name listings define the canonical traversal order; implementations must
// return names in a stable order for an unmutated catalog.
type CatalogList interface {
	CatalogNames(ctx context.Context) ([]string, error)
	// Catalog resolves a catalog by name. A missing catalog yields *NotFoundError.
	Catalog(ctx context.Context, name string) (Catalog, error)
}

// Catalog is a named group of schemas.
type Catalog interface {
	SchemaNames(ctx context.Context) ([]string, error)
	Schema(ctx context.Context, name string) (Schema, error)
}

// Schema is a named group of tables.
type Schema interface {
	TableNames(ctx context.Context) ([]string, error)
	Table(ctx context.Context, name string) (Table, error)
}

// Table exposes its ordered column list as an Arrow schema: field name,
// native type and nullability, in declaration order.
type Table interface {
	Schema() *arrow.Schema
}

// SchemaRegistrar is implemented by catalogs that accept externally provided
// schemas, such as the pg_catalog relations.
type SchemaRegistrar interface {
	RegisterSchema(name string, schema Schema) error
}
