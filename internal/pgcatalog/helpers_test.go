package pgcatalog

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	memcat "duck-pgcatalog/internal/catalog/memory"
)

type fixtureTable struct {
	catalog, schema, table string
	fields                 []arrow.Field
}

func newFixture(t *testing.T, tables ...fixtureTable) *memcat.CatalogList {
	t.Helper()
	list := memcat.NewCatalogList()
	for _, ft := range tables {
		cat, err := list.EnsureCatalog(ft.catalog)
		require.NoError(t, err)
		if ft.schema == "" {
			continue
		}
		s, err := cat.EnsureSchema(ft.schema)
		require.NoError(t, err)
		if ft.table == "" {
			continue
		}
		_, err = s.AddTable(ft.table, arrow.NewSchema(ft.fields, nil))
		require.NoError(t, err)
	}
	return list
}

// endToEndFixture is c1.s1.t1(a int4 not null, b text not null).
func endToEndFixture(t *testing.T) *memcat.CatalogList {
	return newFixture(t, fixtureTable{
		catalog: "c1", schema: "s1", table: "t1",
		fields: []arrow.Field{
			{Name: "a", Type: arrow.PrimitiveTypes.Int32},
			{Name: "b", Type: arrow.BinaryTypes.String},
		},
	})
}

func newTestProvider(t *testing.T, list *memcat.CatalogList, opts ...Option) (*Provider, *memory.CheckedAllocator) {
	t.Helper()
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	opts = append([]Option{WithAllocator(mem)}, opts...)
	p, err := NewProvider(list, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		p.Close()
		mem.AssertSize(t, 0)
	})
	return p, mem
}

func fetch(t *testing.T, p *Provider, name string) arrow.Record {
	t.Helper()
	rel, ok := p.Relation(name)
	require.True(t, ok, "relation %s", name)
	rec, err := rel.Fetch(context.Background())
	require.NoError(t, err)
	t.Cleanup(rec.Release)
	return rec
}

func column(t *testing.T, rec arrow.Record, name string) arrow.Array {
	t.Helper()
	idx := rec.Schema().FieldIndices(name)
	require.Len(t, idx, 1, "column %s", name)
	return rec.Column(idx[0])
}

func int32s(t *testing.T, rec arrow.Record, name string) []int32 {
	t.Helper()
	return column(t, rec, name).(*array.Int32).Int32Values()
}

func int16s(t *testing.T, rec arrow.Record, name string) []int16 {
	t.Helper()
	return column(t, rec, name).(*array.Int16).Int16Values()
}

func strs(t *testing.T, rec arrow.Record, name string) []string {
	t.Helper()
	arr := column(t, rec, name).(*array.String)
	out := make([]string, arr.Len())
	for i := range out {
		out[i] = arr.Value(i)
	}
	return out
}

func bools(t *testing.T, rec arrow.Record, name string) []bool {
	t.Helper()
	arr := column(t, rec, name).(*array.Boolean)
	out := make([]bool, arr.Len())
	for i := range out {
		out[i] = arr.Value(i)
	}
	return out
}
