package sqlitecat

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-pgcatalog/internal/domain"
)

func createSQLite(t *testing.T, path string, ddl ...string) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	for _, stmt := range ddl {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
}

func TestParseSpecs(t *testing.T) {
	specs, err := ParseSpecs(" meta=/data/meta.db, ,aux = ./aux.sqlite ")
	require.NoError(t, err)
	assert.Equal(t, []Spec{{Name: "meta", Path: "/data/meta.db"}, {Name: "aux", Path: "./aux.sqlite"}}, specs)

	specs, err = ParseSpecs("")
	require.NoError(t, err)
	assert.Empty(t, specs)

	for _, bad := range []string{"meta", "=x.db", "meta=", "a=1.db,a=2.db"} {
		_, err := ParseSpecs(bad)
		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr, bad)
	}
}

func TestOpen_ListsTablesAndColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.sqlite")
	createSQLite(t, path,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, score REAL, avatar BLOB, joined DATE, ratio DECIMAL(10,2), misc)`,
		`CREATE TABLE events (kind VARCHAR(20))`,
		`CREATE VIEW recent AS SELECT * FROM events`,
	)

	list, err := Open([]Spec{{Name: "meta", Path: path}})
	require.NoError(t, err)
	defer func() { _ = list.Close() }()
	ctx := context.Background()

	names, err := list.CatalogNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"meta"}, names)

	cat, err := list.Catalog(ctx, "meta")
	require.NoError(t, err)
	schemas, err := cat.SchemaNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, schemas)

	schema, err := cat.Schema(ctx, "main")
	require.NoError(t, err)
	tables, err := schema.TableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "events"}, tables)

	tbl, err := schema.Table(ctx, "users")
	require.NoError(t, err)
	fields := tbl.Schema().Fields()
	require.Len(t, fields, 7)

	want := []arrow.DataType{
		arrow.PrimitiveTypes.Int64,
		arrow.BinaryTypes.String,
		arrow.PrimitiveTypes.Float64,
		arrow.BinaryTypes.Binary,
		arrow.FixedWidthTypes.Date32,
		&arrow.Decimal128Type{Precision: 10, Scale: 2},
		arrow.BinaryTypes.Binary,
	}
	for i, dt := range want {
		assert.True(t, arrow.TypeEqual(dt, fields[i].Type), "column %s: got %s", fields[i].Name, fields[i].Type)
	}
	assert.False(t, fields[1].Nullable)
	assert.True(t, fields[2].Nullable)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open([]Spec{{Name: "gone", Path: filepath.Join(t.TempDir(), "nope", "x.sqlite")}})
	assert.ErrorContains(t, err, `open sqlite catalog "gone"`)
}

func TestCatalog_AttachedDatabasesAreSchemas(t *testing.T) {
	dir := t.TempDir()
	mainPath, auxPath := filepath.Join(dir, "main.sqlite"), filepath.Join(dir, "aux.sqlite")
	createSQLite(t, auxPath, `CREATE TABLE lookup (code TEXT)`)

	db, err := sql.Open("sqlite3", mainPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`ATTACH DATABASE '` + auxPath + `' AS aux`)
	require.NoError(t, err)

	list := NewCatalogList()
	require.NoError(t, list.Attach("app", db))
	ctx := context.Background()

	cat, err := list.Catalog(ctx, "app")
	require.NoError(t, err)
	schemas, err := cat.SchemaNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "aux"}, schemas)

	schema, err := cat.Schema(ctx, "aux")
	require.NoError(t, err)
	tables, err := schema.TableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lookup"}, tables)

	_, err = schema.Table(ctx, "missing")
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = cat.Schema(ctx, "temp")
	assert.ErrorAs(t, err, &nf)
}

func TestCatalogList_Errors(t *testing.T) {
	list := NewCatalogList()
	var verr *domain.ValidationError
	assert.ErrorAs(t, list.Attach("", nil), &verr)

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	require.NoError(t, list.Attach("x", db))

	var conflict *domain.ConflictError
	assert.ErrorAs(t, list.Attach("x", db), &conflict)

	_, err = list.Catalog(context.Background(), "y")
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestAffinityType(t *testing.T) {
	tests := []struct {
		declared string
		want     arrow.DataType
	}{
		{"INTEGER", arrow.PrimitiveTypes.Int64},
		{"bigint", arrow.PrimitiveTypes.Int64},
		{"NVARCHAR(100)", arrow.BinaryTypes.String},
		{"CLOB", arrow.BinaryTypes.String},
		{"BLOB", arrow.BinaryTypes.Binary},
		{"", arrow.BinaryTypes.Binary},
		{"DOUBLE PRECISION", arrow.PrimitiveTypes.Float64},
		{"FLOAT", arrow.PrimitiveTypes.Float64},
		{"BOOLEAN", arrow.FixedWidthTypes.Boolean},
		{"DATETIME", &arrow.TimestampType{Unit: arrow.Microsecond}},
		{"NUMERIC", &arrow.Decimal128Type{Precision: 18, Scale: 3}},
		{"MONEY", &arrow.Decimal128Type{Precision: 38, Scale: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			got := AffinityType(tt.declared)
			assert.True(t, arrow.TypeEqual(tt.want, got), "got %s", got)
		})
	}
}
