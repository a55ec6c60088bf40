package pgcatalog

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/jackc/pgx/v5/pgtype"
)

const PgType = "pg_type"

var typeSchema = arrow.NewSchema([]arrow.Field{
	field("oid", int32Type),
	field("typname", utf8Type),
	field("typnamespace", int32Type),
	field("typowner", int32Type),
	field("typlen", int16Type),
	field("typbyval", boolType),
	field("typtype", utf8Type),
	field("typcategory", utf8Type),
	field("typispreferred", boolType),
	field("typisdefined", boolType),
	field("typdelim", utf8Type),
	field("typrelid", int32Type),
	field("typsubscript", int32Type),
	field("typelem", int32Type),
	field("typarray", int32Type),
	field("typinput", int32Type),
	field("typoutput", int32Type),
	field("typreceive", int32Type),
	field("typsend", int32Type),
	field("typmodin", int32Type),
	field("typmodout", int32Type),
	field("typanalyze", int32Type),
	field("typalign", utf8Type),
	field("typstorage", utf8Type),
	field("typnotnull", boolType),
	field("typbasetype", int32Type),
	field("typtypmod", int32Type),
	field("typndims", int32Type),
	field("typcollation", int32Type),
	nullableField("typdefaultbin", utf8Type),
	nullableField("typdefault", utf8Type),
	nullableField("typacl", utf8Type),
}, nil)

const (
	textInputProc    int32  = 1242
	textOutputProc   int32  = 1243
	arraySubscript   uint32 = 2750
	defaultCollation uint32 = 100
)

// TypeRow is one pg_type entry.
type TypeRow struct {
	Oid       uint32
	Name      string
	Len       int16
	ByVal     bool
	Kind      string
	Category  string
	Preferred bool
	Subscript uint32
	Elem      uint32
	Array     uint32
	Receive   int32
	Send      int32
	Align     string
	Storage   string
	Collation uint32
}

func (r TypeRow) values() []any {
	return []any{
		int32(r.Oid), r.Name, int32(PgCatalogNamespaceOid), BootstrapSuperuserOid,
		r.Len, r.ByVal, r.Kind, r.Category, r.Preferred,
		true, ",", int32(0),
		int32(r.Subscript), int32(r.Elem), int32(r.Array),
		textInputProc, textOutputProc, r.Receive, r.Send,
		// typmodin, typmodout, typanalyze
		int32(0), int32(0), int32(0),
		r.Align, r.Storage,
		// typnotnull, typbasetype, typtypmod, typndims
		false, int32(0), int32(-1), int32(0),
		int32(r.Collation),
		nil, nil, nil,
	}
}

func baseType(oid uint32, name string, length int16, byVal bool, category string, preferred bool, array uint32, align, storage string) TypeRow {
	return TypeRow{
		Oid: oid, Name: name, Len: length, ByVal: byVal, Kind: "b", Category: category,
		Preferred: preferred, Array: array, Receive: 2562, Send: 2563, Align: align, Storage: storage,
	}
}

// baseTypes lists the scalar types the bridge can produce.
var baseTypes = func() []TypeRow {
	rows := []TypeRow{
		baseType(pgtype.BoolOID, "bool", 1, true, "B", true, pgtype.BoolArrayOID, "c", "p"),
		baseType(pgtype.Int2OID, "int2", 2, true, "N", false, pgtype.Int2ArrayOID, "s", "p"),
		baseType(pgtype.Int4OID, "int4", 4, true, "N", true, pgtype.Int4ArrayOID, "i", "p"),
		baseType(pgtype.Int8OID, "int8", 8, true, "N", false, pgtype.Int8ArrayOID, "d", "p"),
		baseType(pgtype.Float4OID, "float4", 4, true, "N", false, pgtype.Float4ArrayOID, "i", "p"),
		baseType(pgtype.Float8OID, "float8", 8, true, "N", true, pgtype.Float8ArrayOID, "d", "p"),
		baseType(pgtype.VarcharOID, "varchar", -1, false, "S", false, pgtype.VarcharArrayOID, "i", "x"),
		baseType(pgtype.TextOID, "text", -1, false, "S", true, pgtype.TextArrayOID, "i", "x"),
		baseType(pgtype.DateOID, "date", 4, true, "D", false, pgtype.DateArrayOID, "i", "p"),
		baseType(pgtype.TimestampOID, "timestamp", 8, true, "D", false, pgtype.TimestampArrayOID, "d", "p"),
		baseType(pgtype.TimestamptzOID, "timestamptz", 8, true, "D", true, pgtype.TimestamptzArrayOID, "d", "p"),
		baseType(pgtype.TimeOID, "time", 8, true, "D", false, pgtype.TimeArrayOID, "d", "p"),
		baseType(pgtype.IntervalOID, "interval", 16, false, "T", false, pgtype.IntervalArrayOID, "d", "p"),
		baseType(pgtype.ByteaOID, "bytea", -1, false, "U", false, pgtype.ByteaArrayOID, "i", "x"),
		baseType(pgtype.NumericOID, "numeric", -1, false, "N", false, pgtype.NumericArrayOID, "i", "m"),
		baseType(pgtype.QCharOID, "char", 1, true, "S", false, pgtype.QCharArrayOID, "c", "p"),
	}
	rows[0].Receive, rows[0].Send = 2556, 2557
	for i := range rows {
		switch rows[i].Oid {
		case pgtype.VarcharOID, pgtype.TextOID, pgtype.QCharOID:
			rows[i].Collation = defaultCollation
		}
	}
	return rows
}()

var unknownTypeRow = TypeRow{
	Oid: pgtype.UnknownOID, Name: "unknown", Len: -2, Kind: "p", Category: "X",
	Receive: 2562, Send: 2563, Align: "c", Storage: "p",
}

// typeRows returns the base types, the unknown pseudo-type and one array
// type per base type, in that order.
func typeRows() []TypeRow {
	rows := make([]TypeRow, 0, 2*len(baseTypes)+1)
	rows = append(rows, baseTypes...)
	rows = append(rows, unknownTypeRow)
	for _, base := range baseTypes {
		rows = append(rows, TypeRow{
			Oid:       base.Array,
			Name:      "_" + base.Name,
			Len:       -1,
			Kind:      "b",
			Category:  "A",
			Subscript: arraySubscript,
			Elem:      base.Oid,
			Receive:   2562,
			Send:      2563,
			Align:     "i",
			Storage:   "x",
		})
	}
	return rows
}

var typesByOid = func() map[uint32]TypeRow {
	rows := typeRows()
	m := make(map[uint32]TypeRow, len(rows))
	for _, r := range rows {
		m[r.Oid] = r
	}
	return m
}()

// LookupType returns the pg_type entry for oid.
func LookupType(oid uint32) (TypeRow, bool) {
	r, ok := typesByOid[oid]
	return r, ok
}
