package pgcatalog

import (
	"context"
	"log/slog"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"duck-pgcatalog/internal/domain"
)

const PgAttribute = "pg_attribute"

var attributeSchema = arrow.NewSchema([]arrow.Field{
	field("attrelid", int32Type),
	field("attname", utf8Type),
	field("atttypid", int32Type),
	field("attlen", int16Type),
	field("attnum", int16Type),
	field("attcacheoff", int32Type),
	field("atttypmod", int32Type),
	field("attndims", int16Type),
	field("attbyval", boolType),
	field("attalign", utf8Type),
	field("attstorage", utf8Type),
	field("attcompression", utf8Type),
	field("attnotnull", boolType),
	field("atthasdef", boolType),
	field("atthasmissing", boolType),
	field("attidentity", utf8Type),
	field("attgenerated", utf8Type),
	field("attisdropped", boolType),
	field("attislocal", boolType),
	field("attinhcount", int32Type),
	field("attcollation", int32Type),
	nullableField("attacl", utf8Type),
	nullableField("attoptions", utf8Type),
	nullableField("attfdwoptions", utf8Type),
	nullableField("attmissingval", utf8Type),
}, nil)

// AttributeRow is one pg_attribute entry.
type AttributeRow struct {
	RelationOid uint32
	Name        string
	Num         int16
	NotNull     bool
	Type        TypeInfo
}

func (r AttributeRow) values() []any {
	var ndims int16
	if r.Type.IsArray {
		ndims = 1
	}
	return []any{
		int32(r.RelationOid), r.Name, int32(r.Type.Oid), r.Type.Len, r.Num,
		// attcacheoff, atttypmod
		int32(-1), int32(-1),
		ndims, r.Type.ByVal, r.Type.Align, r.Type.Storage,
		"", r.NotNull,
		// atthasdef, atthasmissing, attidentity, attgenerated
		false, false, "", "",
		// attisdropped, attislocal, attinhcount, attcollation
		false, true, int32(0), int32(0),
		nil, nil, nil, nil,
	}
}

func attributeRows(ctx context.Context, walker *CatalogWalker, logger *slog.Logger) ([]AttributeRow, error) {
	schemas, err := walker.Walk(ctx)
	if err != nil {
		return nil, err
	}

	var rows []AttributeRow
	for _, s := range assignOids(schemas) {
		for _, t := range s.Tables {
			if err := checkColumnCount(s, t); err != nil {
				return nil, err
			}
			for i, col := range t.Columns {
				info := MapType(col.Type)
				if !info.Mapped {
					logger.Debug("column type has no postgres mapping",
						"catalog", s.Catalog, "schema", s.Name, "table", t.Name,
						"column", col.Name, "type", typeName(col.Type))
				}
				rows = append(rows, AttributeRow{
					RelationOid: t.Oid,
					Name:        col.Name,
					Num:         int16(i + 1),
					NotNull:     !col.Nullable,
					Type:        info,
				})
			}
		}
	}
	return rows, nil
}

// MaxColumns is the widest table whose attribute numbers fit relnatts and
// attnum (int2).
const MaxColumns = math.MaxInt16

func checkColumnCount(s plannedSchema, t plannedTable) error {
	if len(t.Columns) > MaxColumns {
		return domain.ErrValidation("table %s.%s.%s has %d columns; at most %d are supported",
			s.Catalog, s.Name, t.Name, len(t.Columns), MaxColumns)
	}
	return nil
}

func typeName(dt arrow.DataType) string {
	if dt == nil {
		return "<nil>"
	}
	return dt.String()
}

func newAttributeRelation(walker *CatalogWalker, mem memory.Allocator, logger *slog.Logger) Relation {
	return newDynamicRelation(PgAttribute, attributeSchema, mem, func(ctx context.Context) ([]AttributeRow, error) {
		return attributeRows(ctx, walker, logger)
	})
}
