package introspection

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memcat "duck-pgcatalog/internal/catalog/memory"
	"duck-pgcatalog/internal/domain"
	"duck-pgcatalog/internal/pgcatalog"
)

func newService(t *testing.T) *RelationService {
	t.Helper()
	list := memcat.NewCatalogList()
	cat, err := list.AddCatalog("c1")
	require.NoError(t, err)
	s1, err := cat.EnsureSchema("s1")
	require.NoError(t, err)
	_, err = s1.AddTable("t1", arrow.NewSchema([]arrow.Field{
		{Name: "a", Type: arrow.PrimitiveTypes.Int32},
		{Name: "b", Type: arrow.BinaryTypes.String},
	}, nil))
	require.NoError(t, err)

	p, err := pgcatalog.NewProvider(list)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return NewRelationService(p, nil)
}

func TestRelationService_List(t *testing.T) {
	svc := newService(t)

	relations := svc.List()
	names := make([]string, len(relations))
	for i, r := range relations {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"pg_type", "pg_class", "pg_attribute", "pg_namespace", "pg_proc", "pg_database", "pg_am"}, names)

	for _, r := range relations {
		assert.NotEmpty(t, r.Columns, r.Name)
	}
}

func TestRelationService_Describe(t *testing.T) {
	svc := newService(t)

	info, err := svc.Describe(" PG_CATALOG.pg_namespace ")
	require.NoError(t, err)
	assert.Equal(t, "pg_namespace", info.Name)
	require.Len(t, info.Columns, 5)
	assert.Equal(t, Column{Name: "oid", Type: "int4", TypeOid: pgtype.Int4OID}, info.Columns[0])
	assert.Equal(t, Column{Name: "nspacl", Type: "text", TypeOid: pgtype.TextOID, Nullable: true}, info.Columns[3])

	_, err = svc.Describe("pg_tables")
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestRelationService_Fetch(t *testing.T) {
	svc := newService(t)

	data, err := svc.Fetch(context.Background(), "pg_namespace")
	require.NoError(t, err)
	assert.Equal(t, "pg_namespace", data.Name)
	assert.Equal(t, len(data.Rows), data.RowCount)

	var names []string
	for _, row := range data.Rows {
		require.Len(t, row, 5)
		names = append(names, row[1].(string))
		assert.Nil(t, row[3])
	}
	assert.Contains(t, names, "s1")
	assert.Contains(t, names, "pg_catalog")

	encoded, err := json.Marshal(data)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"row_count"`)
}

func TestRelationService_FetchAttributes(t *testing.T) {
	svc := newService(t)

	data, err := svc.Fetch(context.Background(), "pg_attribute")
	require.NoError(t, err)
	assert.Equal(t, 2, data.RowCount)
}

func TestRelationService_FetchCanceled(t *testing.T) {
	svc := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Fetch(ctx, "pg_class")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRelationService_FetchUnknown(t *testing.T) {
	svc := newService(t)

	_, err := svc.Fetch(context.Background(), "pg_settings")
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestRelationService_Functions(t *testing.T) {
	svc := newService(t)

	fns := svc.Functions()
	require.NotEmpty(t, fns)

	byName := make(map[string]FunctionInfo, len(fns))
	for _, fn := range fns {
		byName[fn.Name] = fn
	}

	version, ok := byName["version"]
	require.True(t, ok)
	assert.Empty(t, version.Args)
	assert.Equal(t, "text", version.ReturnType)
	assert.Equal(t, "immutable", version.Volatility)

	schemas, ok := byName["current_schemas"]
	require.True(t, ok)
	assert.Equal(t, []FunctionArg{{Name: "implicit", Type: "bool", TypeOid: pgtype.BoolOID}}, schemas.Args)
	assert.Equal(t, "_text", schemas.ReturnType)
	assert.Equal(t, uint32(pgtype.TextArrayOID), schemas.ReturnOid)
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "", FormatCell(nil))
	assert.Equal(t, "abc", FormatCell("abc"))
	assert.Equal(t, "42", FormatCell(int32(42)))
	assert.Equal(t, "true", FormatCell(true))
	assert.Equal(t, `["a","b"]`, FormatCell(json.RawMessage(`["a","b"]`)))
	assert.Equal(t, `\x0aff`, FormatCell([]byte{0x0a, 0xff}))
	assert.Equal(t, "{public,NULL}", FormatCell([]any{"public", nil}))
	assert.Equal(t, "{public,pg_catalog}", FormatCell([]string{"public", "pg_catalog"}))
	assert.Equal(t, "2024-01-02T03:04:05Z", FormatCell(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
}
