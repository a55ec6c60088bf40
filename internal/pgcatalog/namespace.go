package pgcatalog

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

const PgNamespace = "pg_namespace"

var namespaceSchema = arrow.NewSchema([]arrow.Field{
	field("oid", int32Type),
	field("nspname", utf8Type),
	field("nspowner", int32Type),
	nullableField("nspacl", utf8Type),
	nullableField("options", utf8Type),
}, nil)

// NamespaceRow is one pg_namespace entry.
type NamespaceRow struct {
	Oid   uint32
	Name  string
	Owner int32
}

func (r NamespaceRow) values() []any {
	return []any{int32(r.Oid), r.Name, r.Owner, nil, nil}
}

// namespaceRows emits the fixed system namespaces followed by every
// discovered schema.
func namespaceRows(ctx context.Context, walker *CatalogWalker) ([]NamespaceRow, error) {
	schemas, err := walker.Walk(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]NamespaceRow, 0, len(systemNamespaces)+len(schemas))
	for _, ns := range systemNamespaces {
		rows = append(rows, NamespaceRow{Oid: ns.oid, Name: ns.name, Owner: BootstrapSuperuserOid})
	}
	for _, s := range assignOids(schemas) {
		if s.System {
			continue
		}
		rows = append(rows, NamespaceRow{Oid: s.Oid, Name: s.Name, Owner: BootstrapSuperuserOid})
	}
	return rows, nil
}

func newNamespaceRelation(walker *CatalogWalker, mem memory.Allocator) Relation {
	return newDynamicRelation(PgNamespace, namespaceSchema, mem, func(ctx context.Context) ([]NamespaceRow, error) {
		return namespaceRows(ctx, walker)
	})
}
