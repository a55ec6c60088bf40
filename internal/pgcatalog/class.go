package pgcatalog

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

const PgClass = "pg_class"

// RelKindOrdinaryTable is the only relkind produced; views, indexes and
// sequences are not modeled.
const RelKindOrdinaryTable = "r"

var classSchema = arrow.NewSchema([]arrow.Field{
	field("oid", int32Type),
	field("relname", utf8Type),
	field("relnamespace", int32Type),
	field("reltype", int32Type),
	nullableField("reloftype", int32Type),
	field("relowner", int32Type),
	field("relam", int32Type),
	field("relfilenode", int32Type),
	field("reltablespace", int32Type),
	field("relpages", int32Type),
	field("reltuples", float64Type),
	field("relallvisible", int32Type),
	field("reltoastrelid", int32Type),
	field("relhasindex", boolType),
	field("relisshared", boolType),
	field("relpersistence", utf8Type),
	field("relkind", utf8Type),
	field("relnatts", int16Type),
	field("relchecks", int16Type),
	field("relhasrules", boolType),
	field("relhastriggers", boolType),
	field("relhassubclass", boolType),
	field("relrowsecurity", boolType),
	field("relforcerowsecurity", boolType),
	field("relispopulated", boolType),
	field("relreplident", utf8Type),
	field("relispartition", boolType),
	nullableField("relrewrite", int32Type),
	field("relfrozenxid", int32Type),
	field("relminmxid", int32Type),
}, nil)

// ClassRow is one pg_class entry. Statistics are fixed placeholders.
type ClassRow struct {
	Oid       uint32
	Name      string
	Namespace uint32
	Kind      string
	NumAttrs  int16
}

func (r ClassRow) values() []any {
	return []any{
		int32(r.Oid), r.Name, int32(r.Namespace),
		// reltype, reloftype, relowner, relam
		int32(0), nil, int32(0), int32(0),
		// relfilenode, reltablespace
		int32(r.Oid), int32(0),
		// relpages, reltuples, relallvisible, reltoastrelid
		int32(1), float64(0), int32(0), int32(0),
		// relhasindex, relisshared, relpersistence
		false, false, "p",
		r.Kind, r.NumAttrs, int16(0),
		// relhasrules, relhastriggers, relhassubclass, relrowsecurity, relforcerowsecurity
		false, false, false, false, false,
		// relispopulated, relreplident, relispartition, relrewrite
		true, "d", false, nil,
		// relfrozenxid, relminmxid
		int32(0), int32(0),
	}
}

func classRows(ctx context.Context, walker *CatalogWalker) ([]ClassRow, error) {
	schemas, err := walker.Walk(ctx)
	if err != nil {
		return nil, err
	}

	var rows []ClassRow
	for _, s := range assignOids(schemas) {
		for _, t := range s.Tables {
			if err := checkColumnCount(s, t); err != nil {
				return nil, err
			}
			rows = append(rows, ClassRow{
				Oid:       t.Oid,
				Name:      t.Name,
				Namespace: s.Oid,
				Kind:      RelKindOrdinaryTable,
				NumAttrs:  int16(len(t.Columns)),
			})
		}
	}
	return rows, nil
}

func newClassRelation(walker *CatalogWalker, mem memory.Allocator) Relation {
	return newDynamicRelation(PgClass, classSchema, mem, func(ctx context.Context) ([]ClassRow, error) {
		return classRows(ctx, walker)
	})
}
