package pgcatalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

const PgProc = "pg_proc"

const internalLanguageOid int32 = 12

var procSchema = arrow.NewSchema([]arrow.Field{
	field("oid", int32Type),
	field("proname", utf8Type),
	field("pronamespace", int32Type),
	field("proowner", int32Type),
	field("prolang", int32Type),
	field("procost", float32Type),
	field("prorows", float32Type),
	field("provariadic", int32Type),
	field("prosupport", int32Type),
	field("prokind", utf8Type),
	field("prosecdef", boolType),
	field("proleakproof", boolType),
	field("proisstrict", boolType),
	field("proretset", boolType),
	field("provolatile", utf8Type),
	field("proparallel", utf8Type),
	field("pronargs", int16Type),
	field("pronargdefaults", int16Type),
	field("prorettype", int32Type),
	field("proargtypes", utf8Type),
	nullableField("proallargtypes", utf8Type),
	nullableField("proargmodes", utf8Type),
	nullableField("proargnames", utf8Type),
	nullableField("proargdefaults", utf8Type),
	nullableField("protrftypes", utf8Type),
	field("prosrc", utf8Type),
	nullableField("probin", utf8Type),
	nullableField("prosqlbody", utf8Type),
	nullableField("proconfig", utf8Type),
	nullableField("proacl", utf8Type),
}, nil)

// ProcRow is one pg_proc entry.
type ProcRow struct {
	Oid        uint32
	Name       string
	NumArgs    int16
	ReturnType uint32
	// ArgTypes is the space separated list of argument type oids.
	ArgTypes string
	ArgNames *string
	Volatile string
	Source   string
}

func (r ProcRow) values() []any {
	return []any{
		int32(r.Oid), r.Name, int32(PgCatalogNamespaceOid), BootstrapSuperuserOid, internalLanguageOid,
		float32(1), float32(0), int32(0), int32(0), "f",
		// prosecdef, proleakproof, proisstrict, proretset
		false, true, true, false,
		r.Volatile, "s", r.NumArgs, int16(0), int32(r.ReturnType), r.ArgTypes,
		nil, nil, optional(r.ArgNames), nil, nil,
		r.Source,
		nil, nil, nil, nil,
	}
}

func volatilityCode(v Volatility) string {
	switch v {
	case VolatilityImmutable:
		return "i"
	default:
		return "v"
	}
}

func procRow(fn ScalarFunction) ProcRow {
	argTypes := make([]string, 0, len(fn.Args))
	argNames := make([]string, 0, len(fn.Args))
	for _, a := range fn.Args {
		argTypes = append(argTypes, strconv.FormatUint(uint64(MapType(a.Type).Oid), 10))
		argNames = append(argNames, a.Name)
	}
	row := ProcRow{
		Oid:        fn.Oid,
		Name:       fn.Name,
		NumArgs:    int16(len(fn.Args)),
		ReturnType: fn.ReturnOid(),
		ArgTypes:   strings.Join(argTypes, " "),
		Volatile:   volatilityCode(fn.Volatility),
		Source:     fn.Source,
	}
	if len(argNames) > 0 {
		names := strings.Join(argNames, " ")
		row.ArgNames = &names
	}
	return row
}

func newProcRelation(fns []ScalarFunction, mem memory.Allocator) Relation {
	return newDynamicRelation(PgProc, procSchema, mem, func(ctx context.Context) ([]ProcRow, error) {
		rows := make([]ProcRow, 0, len(fns))
		for _, fn := range fns {
			rows = append(rows, procRow(fn))
		}
		return rows, nil
	})
}
