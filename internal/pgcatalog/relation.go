package pgcatalog

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Relation is one pg_catalog relation as seen by the host engine.
type Relation interface {
	Name() string
	Schema() *arrow.Schema
	// Fetch materializes the relation. The caller releases the record.
	Fetch(ctx context.Context) (arrow.Record, error)
}

// rowValuer is implemented by the typed row structs. values returns one
// entry per schema column; nil encodes NULL.
type rowValuer interface {
	values() []any
}

// dynamicRelation recomputes its rows from the catalog on every fetch.
type dynamicRelation[R rowValuer] struct {
	name   string
	schema *arrow.Schema
	mem    memory.Allocator
	rows   func(ctx context.Context) ([]R, error)
}

func newDynamicRelation[R rowValuer](name string, schema *arrow.Schema, mem memory.Allocator, rows func(context.Context) ([]R, error)) *dynamicRelation[R] {
	return &dynamicRelation[R]{name: name, schema: schema, mem: mem, rows: rows}
}

func (r *dynamicRelation[R]) Name() string          { return r.name }
func (r *dynamicRelation[R]) Schema() *arrow.Schema { return r.schema }

func (r *dynamicRelation[R]) Fetch(ctx context.Context) (arrow.Record, error) {
	rows, err := r.rows(ctx)
	if err != nil {
		return nil, err
	}
	return buildRecord(ctx, r.mem, r.schema, rows)
}

// staticRelation serves a record built once at construction.
type staticRelation struct {
	name   string
	record arrow.Record
}

func newStaticRelation[R rowValuer](name string, schema *arrow.Schema, mem memory.Allocator, rows []R) (*staticRelation, error) {
	rec, err := buildRecord(context.Background(), mem, schema, rows)
	if err != nil {
		return nil, err
	}
	return &staticRelation{name: name, record: rec}, nil
}

func (r *staticRelation) Name() string          { return r.name }
func (r *staticRelation) Schema() *arrow.Schema { return r.record.Schema() }

func (r *staticRelation) Fetch(ctx context.Context) (arrow.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.record.Retain()
	return r.record, nil
}

func (r *staticRelation) release() { r.record.Release() }

// buildRecord assembles rows into a single record. Builders are released on
// every path; a cancelled context yields no record.
func buildRecord[R rowValuer](ctx context.Context, mem memory.Allocator, schema *arrow.Schema, rows []R) (arrow.Record, error) {
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	width := len(schema.Fields())
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vals := row.values()
		if len(vals) != width {
			return nil, fmt.Errorf("row %d has %d values, schema has %d columns", i, len(vals), width)
		}
		for col, v := range vals {
			if err := appendValue(b.Field(col), v); err != nil {
				return nil, fmt.Errorf("column %s: %w", schema.Field(col).Name, err)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.NewRecord(), nil
}

func appendValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch fb := b.(type) {
	case *array.Int32Builder:
		x, ok := v.(int32)
		if !ok {
			return fmt.Errorf("expected int32, got %T", v)
		}
		fb.Append(x)
	case *array.Int16Builder:
		x, ok := v.(int16)
		if !ok {
			return fmt.Errorf("expected int16, got %T", v)
		}
		fb.Append(x)
	case *array.Float32Builder:
		x, ok := v.(float32)
		if !ok {
			return fmt.Errorf("expected float32, got %T", v)
		}
		fb.Append(x)
	case *array.Float64Builder:
		x, ok := v.(float64)
		if !ok {
			return fmt.Errorf("expected float64, got %T", v)
		}
		fb.Append(x)
	case *array.BooleanBuilder:
		x, ok := v.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		fb.Append(x)
	case *array.StringBuilder:
		x, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		fb.Append(x)
	default:
		return fmt.Errorf("unsupported builder %T", b)
	}
	return nil
}

// optional turns a nil pointer into NULL.
func optional[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func field(name string, dt arrow.DataType) arrow.Field {
	return arrow.Field{Name: name, Type: dt}
}

func nullableField(name string, dt arrow.DataType) arrow.Field {
	return arrow.Field{Name: name, Type: dt, Nullable: true}
}

var (
	int16Type   = arrow.PrimitiveTypes.Int16
	int32Type   = arrow.PrimitiveTypes.Int32
	float32Type = arrow.PrimitiveTypes.Float32
	float64Type = arrow.PrimitiveTypes.Float64
	boolType    = arrow.FixedWidthTypes.Boolean
	utf8Type    = arrow.BinaryTypes.String
)
