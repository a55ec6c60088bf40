package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"duck-pgcatalog/internal/sqlrewrite"
)

// castTypes are the DuckDB aliases used to pin the column types of a
// materialized relation. They are plain identifiers to the PostgreSQL
// grammar, so they survive a parse/deparse round trip unchanged.
var castTypes = map[arrow.Type]string{
	arrow.BOOL:    "bool",
	arrow.INT16:   "int2",
	arrow.INT32:   "int4",
	arrow.INT64:   "int8",
	arrow.FLOAT32: "float4",
	arrow.FLOAT64: "float8",
	arrow.STRING:  "text",
}

// materializeRecord renders rec as a SELECT over a typed VALUES list. An
// empty record becomes a typed select that returns no rows, so the column
// types are preserved either way.
func materializeRecord(rec arrow.Record) (string, error) {
	schema := rec.Schema()
	cols := make([]string, schema.NumFields())
	casts := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		cast, ok := castTypes[f.Type.ID()]
		if !ok {
			return "", fmt.Errorf("materialize column %s: unsupported type %s", f.Name, f.Type)
		}
		cols[i] = sqlrewrite.QuoteIdentifier(f.Name)
		casts[i] = cast
	}

	if rec.NumRows() == 0 {
		defs := make([]string, len(cols))
		for i := range cols {
			defs[i] = fmt.Sprintf("NULL::%s AS %s", casts[i], cols[i])
		}
		return fmt.Sprintf("SELECT %s WHERE false", strings.Join(defs, ", ")), nil
	}

	var b strings.Builder
	b.WriteString("SELECT * FROM (VALUES ")
	for r := 0; r < int(rec.NumRows()); r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < int(rec.NumCols()); c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(literal(rec.Column(c), r))
			b.WriteString("::")
			b.WriteString(casts[c])
		}
		b.WriteByte(')')
	}
	fmt.Fprintf(&b, ") AS v(%s)", strings.Join(cols, ", "))
	return b.String(), nil
}

// literal renders one cell. Floats are quoted so that NaN and infinities
// stay valid SQL.
func literal(col arrow.Array, row int) string {
	if col.IsNull(row) {
		return "NULL"
	}
	switch a := col.(type) {
	case *array.Boolean:
		return strconv.FormatBool(a.Value(row))
	case *array.Int16:
		return strconv.FormatInt(int64(a.Value(row)), 10)
	case *array.Int32:
		return strconv.FormatInt(int64(a.Value(row)), 10)
	case *array.Int64:
		return strconv.FormatInt(a.Value(row), 10)
	case *array.Float32:
		return sqlrewrite.QuoteLiteral(strconv.FormatFloat(float64(a.Value(row)), 'g', -1, 32))
	case *array.Float64:
		return sqlrewrite.QuoteLiteral(strconv.FormatFloat(a.Value(row), 'g', -1, 64))
	case *array.String:
		return sqlrewrite.QuoteLiteral(a.Value(row))
	default:
		return sqlrewrite.QuoteLiteral(a.ValueStr(row))
	}
}
