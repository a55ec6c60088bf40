package flightsql

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"duck-pgcatalog/internal/domain"
	"duck-pgcatalog/internal/engine"
)

func TestArrowTypeForOid(t *testing.T) {
	assert.Equal(t, arrow.PrimitiveTypes.Int64, arrowTypeForOid(pgtype.Int8OID))
	assert.Equal(t, arrow.BinaryTypes.String, arrowTypeForOid(pgtype.NumericOID))
	assert.Equal(t, arrow.BinaryTypes.String, arrowTypeForOid(999999))
	assert.True(t, arrow.TypeEqual(arrow.ListOf(arrow.BinaryTypes.String), arrowTypeForOid(pgtype.TextArrayOID)))
	assert.True(t, arrow.TypeEqual(&arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}, arrowTypeForOid(pgtype.TimestamptzOID)))
}

func TestSchemaForResult_NamesBlankColumns(t *testing.T) {
	schema := schemaForResult(&engine.Result{Columns: []engine.Column{
		{Name: "", TypeOid: pgtype.Int4OID},
		{Name: "oid", TypeOid: pgtype.OIDOID},
	}})
	require.Len(t, schema.Fields(), 2)
	assert.Equal(t, "column_1", schema.Field(0).Name)
	assert.Equal(t, "oid", schema.Field(1).Name)
	assert.True(t, schema.Field(1).Nullable)
}

func TestRecordForResult(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	res := &engine.Result{
		Columns: []engine.Column{
			{Name: "flag", TypeOid: pgtype.BoolOID},
			{Name: "small", TypeOid: pgtype.Int2OID},
			{Name: "ratio", TypeOid: pgtype.Float4OID},
			{Name: "raw", TypeOid: pgtype.ByteaOID},
			{Name: "day", TypeOid: pgtype.DateOID},
			{Name: "oid", TypeOid: pgtype.OIDOID},
		},
		Rows: [][]any{
			{true, int16(3), float64(0.5), []byte{1}, day, uint32(2200)},
			{nil, nil, nil, nil, nil, nil},
		},
	}
	schema := schemaForResult(res)
	rec, err := recordForResult(mem, schema, res)
	require.NoError(t, err)
	defer rec.Release()

	require.Equal(t, int64(2), rec.NumRows())
	assert.True(t, rec.Column(0).(*array.Boolean).Value(0))
	assert.Equal(t, int16(3), rec.Column(1).(*array.Int16).Value(0))
	assert.Equal(t, float32(0.5), rec.Column(2).(*array.Float32).Value(0))
	assert.Equal(t, []byte{1}, rec.Column(3).(*array.Binary).Value(0))
	assert.Equal(t, arrow.Date32FromTime(day), rec.Column(4).(*array.Date32).Value(0))
	assert.Equal(t, "2200", rec.Column(5).(*array.String).Value(0))
	for c := 0; c < int(rec.NumCols()); c++ {
		assert.True(t, rec.Column(c).IsNull(1), "column %d", c)
	}
}

func TestRecordForResult_TypeMismatch(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	res := &engine.Result{
		Columns: []engine.Column{{Name: "n", TypeOid: pgtype.Int2OID}},
		Rows:    [][]any{{int64(70000)}},
	}
	_, err := recordForResult(mem, schemaForResult(res), res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1 column n")
}

func TestLikeMatch(t *testing.T) {
	tests := []struct {
		pattern string
		value   string
		want    bool
	}{
		{"%", "", true},
		{"%", "orders", true},
		{"ord%", "orders", true},
		{"%ers", "orders", true},
		{"o_ders", "orders", true},
		{"o_ders", "oders", false},
		{"orders", "orders", true},
		{"orders", "order", false},
		{"%d%s", "orders", true},
		{"_", "", false},
		{"", "", true},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s~%s", tc.pattern, tc.value), func(t *testing.T) {
			assert.Equal(t, tc.want, likeMatch([]rune(tc.pattern), []rune(tc.value)))
		})
	}
	assert.True(t, matchPattern(nil, "anything"))
}

func TestMatchTableTypes(t *testing.T) {
	assert.True(t, matchTableTypes(nil))
	assert.True(t, matchTableTypes([]string{"view", "table"}))
	assert.True(t, matchTableTypes([]string{"BASE TABLE"}))
	assert.False(t, matchTableTypes([]string{"VIEW"}))
}

func TestGRPCError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"lookup", &domain.CatalogLookupError{Catalog: "c1", Err: domain.ErrNotFound("gone")}, codes.NotFound},
		{"not found", domain.ErrNotFound("gone"), codes.NotFound},
		{"syntax", domain.ErrSyntax("bad"), codes.InvalidArgument},
		{"validation", domain.ErrValidation("bad"), codes.InvalidArgument},
		{"access denied", domain.ErrAccessDenied("no"), codes.PermissionDenied},
		{"not implemented", domain.ErrNotImplemented("later"), codes.Unimplemented},
		{"conflict", domain.ErrConflict("dup"), codes.AlreadyExists},
		{"canceled", fmt.Errorf("run: %w", context.Canceled), codes.Canceled},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"status passthrough", status.Error(codes.Aborted, "x"), codes.Aborted},
		{"other", fmt.Errorf("boom"), codes.Internal},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, status.Code(grpcError(tc.err)))
		})
	}
}

func TestPrincipalFromContext(t *testing.T) {
	assert.Equal(t, "anonymous", principalFromContext(context.Background()))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("user", "duck"))
	assert.Equal(t, "duck", principalFromContext(ctx))

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("user", "duck", "x-principal", "admin"))
	assert.Equal(t, "admin", principalFromContext(ctx))
}
