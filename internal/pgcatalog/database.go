package pgcatalog

import (
	"context"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

const PgDatabase = "pg_database"

// DefaultDatabaseName is always present in pg_database; client tooling
// connects to it before anything else.
const DefaultDatabaseName = "postgres"

var databaseSchema = arrow.NewSchema([]arrow.Field{
	field("oid", int32Type),
	field("datname", utf8Type),
	field("datdba", int32Type),
	field("encoding", int32Type),
	field("datcollate", utf8Type),
	field("datctype", utf8Type),
	field("datistemplate", boolType),
	field("datallowconn", boolType),
	field("datconnlimit", int32Type),
	field("datlastsysoid", int32Type),
	field("datfrozenxid", int32Type),
	field("datminmxid", int32Type),
	field("dattablespace", int32Type),
	nullableField("datacl", utf8Type),
}, nil)

const (
	utf8EncodingID    int32 = 6
	defaultLocale           = "en_US.UTF-8"
	defaultTablespace int32 = 1663
	lastSystemOid     int32 = 100000
)

// DatabaseRow is one pg_database entry; every catalog is a database.
type DatabaseRow struct {
	Oid  uint32
	Name string
}

func (r DatabaseRow) values() []any {
	return []any{
		int32(r.Oid), r.Name, BootstrapSuperuserOid, utf8EncodingID,
		defaultLocale, defaultLocale,
		false, true, int32(-1),
		lastSystemOid, int32(1), int32(1), defaultTablespace,
		nil,
	}
}

func databaseRows(ctx context.Context, walker *CatalogWalker) ([]DatabaseRow, error) {
	names, err := walker.Catalogs(ctx)
	if err != nil {
		return nil, err
	}

	assigner := NewOidAssigner(DatabaseOidBase)
	rows := make([]DatabaseRow, 0, len(names)+1)
	for _, name := range names {
		rows = append(rows, DatabaseRow{Oid: assigner.Next(), Name: name})
	}
	if !slices.Contains(names, DefaultDatabaseName) {
		rows = append(rows, DatabaseRow{Oid: assigner.Next(), Name: DefaultDatabaseName})
	}
	return rows, nil
}

func newDatabaseRelation(walker *CatalogWalker, mem memory.Allocator) Relation {
	return newDynamicRelation(PgDatabase, databaseSchema, mem, func(ctx context.Context) ([]DatabaseRow, error) {
		return databaseRows(ctx, walker)
	})
}
