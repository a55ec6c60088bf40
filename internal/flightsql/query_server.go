package flightsql

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	arrowflight "github.com/apache/arrow-go/v18/arrow/flight"
	arrowflightsql "github.com/apache/arrow-go/v18/arrow/flight/flightsql"
	"github.com/apache/arrow-go/v18/arrow/flight/flightsql/schema_ref"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"duck-pgcatalog/internal/domain"
	"duck-pgcatalog/internal/engine"
	"duck-pgcatalog/internal/pgcatalog"
)

// CatalogSource lists what metadata requests report. *pgcatalog.CatalogWalker
// satisfies it.
type CatalogSource interface {
	Catalogs(ctx context.Context) ([]string, error)
	Walk(ctx context.Context) ([]pgcatalog.WalkedSchema, error)
}

type emptyCatalogs struct{}

func (emptyCatalogs) Catalogs(context.Context) ([]string, error)               { return nil, nil }
func (emptyCatalogs) Walk(context.Context) ([]pgcatalog.WalkedSchema, error) { return nil, nil }

const tableTypeTable = "TABLE"

type queryServer struct {
	arrowflightsql.BaseServer

	logger   *slog.Logger
	query    QueryExecutor
	catalogs CatalogSource
	mem      memory.Allocator

	mu       sync.Mutex
	tickets  map[string]*engine.Result
	canceled map[string]struct{}
}

func newQueryServer(logger *slog.Logger, query QueryExecutor, catalogs CatalogSource) *queryServer {
	srv := &queryServer{
		logger:   logger,
		query:    query,
		catalogs: catalogs,
		mem:      memory.DefaultAllocator,
		tickets:  make(map[string]*engine.Result),
		canceled: make(map[string]struct{}),
	}
	srv.Alloc = srv.mem
	_ = srv.RegisterSqlInfo(arrowflightsql.SqlInfoFlightSqlServerName, "duck-pgcatalog")
	_ = srv.RegisterSqlInfo(arrowflightsql.SqlInfoFlightSqlServerVersion, pgcatalog.ServerVersion)
	_ = srv.RegisterSqlInfo(arrowflightsql.SqlInfoFlightSqlServerArrowVersion, "18")
	_ = srv.RegisterSqlInfo(arrowflightsql.SqlInfoFlightSqlServerSql, true)
	_ = srv.RegisterSqlInfo(arrowflightsql.SqlInfoFlightSqlServerReadOnly, false)
	_ = srv.RegisterSqlInfo(arrowflightsql.SqlInfoFlightSqlServerCancel, true)
	return srv
}

// runStatement executes a Flight SQL statement and keeps the last result,
// which is the one a single-statement client asked for.
func (s *queryServer) runStatement(ctx context.Context, sqlQuery string) (*engine.Result, error) {
	principal := principalFromContext(ctx)
	results, err := s.query(ctx, principal, sqlQuery)
	if err != nil {
		s.logger.Warn("flight sql query failed", "principal", principal, "error", err)
		return nil, grpcError(err)
	}
	if len(results) == 0 {
		return &engine.Result{Tag: "EMPTY"}, nil
	}
	return results[len(results)-1], nil
}

func (s *queryServer) GetFlightInfoStatement(ctx context.Context, stmt arrowflightsql.StatementQuery, desc *arrowflight.FlightDescriptor) (*arrowflight.FlightInfo, error) {
	result, err := s.runStatement(ctx, stmt.GetQuery())
	if err != nil {
		return nil, err
	}

	handle := uuid.NewString()
	s.mu.Lock()
	s.tickets[handle] = result
	s.mu.Unlock()

	ticket, err := arrowflightsql.CreateStatementQueryTicket([]byte(handle))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "create statement query ticket: %v", err)
	}

	info := s.flightInfo(schemaForResult(result), desc, ticket)
	info.TotalRecords = int64(len(result.Rows))
	return info, nil
}

func (s *queryServer) GetSchemaStatement(ctx context.Context, stmt arrowflightsql.StatementQuery, _ *arrowflight.FlightDescriptor) (*arrowflight.SchemaResult, error) {
	result, err := s.runStatement(ctx, stmt.GetQuery())
	if err != nil {
		return nil, err
	}
	return &arrowflight.SchemaResult{Schema: arrowflight.SerializeSchema(schemaForResult(result), s.mem)}, nil
}

func (s *queryServer) DoGetStatement(ctx context.Context, queryTicket arrowflightsql.StatementQueryTicket) (*arrow.Schema, <-chan arrowflight.StreamChunk, error) {
	handle := string(queryTicket.GetStatementHandle())

	s.mu.Lock()
	result, ok := s.tickets[handle]
	delete(s.tickets, handle)
	_, canceled := s.canceled[handle]
	delete(s.canceled, handle)
	s.mu.Unlock()
	if canceled {
		return nil, nil, status.Error(codes.Canceled, "query canceled")
	}
	if !ok {
		return nil, nil, status.Error(codes.NotFound, "unknown statement handle")
	}

	schema := schemaForResult(result)
	record, err := recordForResult(s.mem, schema, result)
	if err != nil {
		return nil, nil, status.Error(codes.Internal, err.Error())
	}
	return streamSingleRecord(ctx, schema, record)
}

// CancelFlightInfo drops a pending statement result. Statements run to
// completion in GetFlightInfo, so cancellation only discards the result.
func (s *queryServer) CancelFlightInfo(_ context.Context, req *arrowflight.CancelFlightInfoRequest) (arrowflight.CancelFlightInfoResult, error) {
	info := req.GetInfo()
	if info == nil || len(info.GetEndpoint()) == 0 {
		return arrowflight.CancelFlightInfoResult{Status: arrowflight.CancelStatusUnspecified}, status.Error(codes.InvalidArgument, "flight info has no endpoint")
	}
	ticket, err := arrowflightsql.GetStatementQueryTicket(info.GetEndpoint()[0].GetTicket())
	if err != nil {
		return arrowflight.CancelFlightInfoResult{Status: arrowflight.CancelStatusNotCancellable}, nil
	}
	handle := string(ticket.GetStatementHandle())

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[handle]; !ok {
		return arrowflight.CancelFlightInfoResult{Status: arrowflight.CancelStatusNotCancellable}, nil
	}
	delete(s.tickets, handle)
	s.canceled[handle] = struct{}{}
	return arrowflight.CancelFlightInfoResult{Status: arrowflight.CancelStatusCancelled}, nil
}

func (s *queryServer) GetFlightInfoCatalogs(_ context.Context, desc *arrowflight.FlightDescriptor) (*arrowflight.FlightInfo, error) {
	return s.flightInfo(schema_ref.Catalogs, desc, desc.Cmd), nil
}

func (s *queryServer) DoGetCatalogs(ctx context.Context) (*arrow.Schema, <-chan arrowflight.StreamChunk, error) {
	names, err := s.catalogs.Catalogs(ctx)
	if err != nil {
		return nil, nil, grpcError(err)
	}

	b := array.NewRecordBuilder(s.mem, schema_ref.Catalogs)
	defer b.Release()
	b.Field(0).(*array.StringBuilder).AppendValues(names, nil)
	return streamSingleRecord(ctx, schema_ref.Catalogs, b.NewRecord())
}

func (s *queryServer) GetFlightInfoSchemas(_ context.Context, _ arrowflightsql.GetDBSchemas, desc *arrowflight.FlightDescriptor) (*arrowflight.FlightInfo, error) {
	return s.flightInfo(schema_ref.DBSchemas, desc, desc.Cmd), nil
}

func (s *queryServer) DoGetDBSchemas(ctx context.Context, req arrowflightsql.GetDBSchemas) (*arrow.Schema, <-chan arrowflight.StreamChunk, error) {
	schemas, err := s.catalogs.Walk(ctx)
	if err != nil {
		return nil, nil, grpcError(err)
	}

	b := array.NewRecordBuilder(s.mem, schema_ref.DBSchemas)
	defer b.Release()
	catalogs := b.Field(0).(*array.StringBuilder)
	names := b.Field(1).(*array.StringBuilder)
	for _, ws := range schemas {
		if !matchCatalog(req.GetCatalog(), ws.Catalog) || !matchPattern(req.GetDBSchemaFilterPattern(), ws.Name) {
			continue
		}
		catalogs.Append(ws.Catalog)
		names.Append(ws.Name)
	}
	return streamSingleRecord(ctx, schema_ref.DBSchemas, b.NewRecord())
}

func (s *queryServer) GetFlightInfoTables(_ context.Context, req arrowflightsql.GetTables, desc *arrowflight.FlightDescriptor) (*arrowflight.FlightInfo, error) {
	return s.flightInfo(tablesSchema(req.GetIncludeSchema()), desc, desc.Cmd), nil
}

func (s *queryServer) GetSchemaTables(_ context.Context, req arrowflightsql.GetTables, _ *arrowflight.FlightDescriptor) (*arrowflight.SchemaResult, error) {
	return &arrowflight.SchemaResult{Schema: arrowflight.SerializeSchema(tablesSchema(req.GetIncludeSchema()), s.mem)}, nil
}

func (s *queryServer) DoGetTables(ctx context.Context, req arrowflightsql.GetTables) (*arrow.Schema, <-chan arrowflight.StreamChunk, error) {
	schemas, err := s.catalogs.Walk(ctx)
	if err != nil {
		return nil, nil, grpcError(err)
	}

	schema := tablesSchema(req.GetIncludeSchema())
	b := array.NewRecordBuilder(s.mem, schema)
	defer b.Release()

	if matchTableTypes(req.GetTableTypes()) {
		for _, ws := range schemas {
			if !matchCatalog(req.GetCatalog(), ws.Catalog) || !matchPattern(req.GetDBSchemaFilterPattern(), ws.Name) {
				continue
			}
			for _, table := range ws.Tables {
				if !matchPattern(req.GetTableNameFilterPattern(), table.Name) {
					continue
				}
				b.Field(0).(*array.StringBuilder).Append(ws.Catalog)
				b.Field(1).(*array.StringBuilder).Append(ws.Name)
				b.Field(2).(*array.StringBuilder).Append(table.Name)
				b.Field(3).(*array.StringBuilder).Append(tableTypeTable)
				if req.GetIncludeSchema() {
					serialized := arrowflight.SerializeSchema(tableSchema(ws.Catalog, ws.Name, table), s.mem)
					b.Field(4).(*array.BinaryBuilder).Append(serialized)
				}
			}
		}
	}
	return streamSingleRecord(ctx, schema, b.NewRecord())
}

func (s *queryServer) GetFlightInfoTableTypes(_ context.Context, desc *arrowflight.FlightDescriptor) (*arrowflight.FlightInfo, error) {
	return s.flightInfo(schema_ref.TableTypes, desc, desc.Cmd), nil
}

func (s *queryServer) DoGetTableTypes(ctx context.Context) (*arrow.Schema, <-chan arrowflight.StreamChunk, error) {
	b := array.NewRecordBuilder(s.mem, schema_ref.TableTypes)
	defer b.Release()
	b.Field(0).(*array.StringBuilder).Append(tableTypeTable)
	return streamSingleRecord(ctx, schema_ref.TableTypes, b.NewRecord())
}

func (s *queryServer) flightInfo(schema *arrow.Schema, desc *arrowflight.FlightDescriptor, ticket []byte) *arrowflight.FlightInfo {
	return &arrowflight.FlightInfo{
		Schema:           arrowflight.SerializeSchema(schema, s.mem),
		FlightDescriptor: desc,
		Endpoint: []*arrowflight.FlightEndpoint{{
			Ticket: &arrowflight.Ticket{Ticket: ticket},
			Location: []*arrowflight.Location{{
				Uri: arrowflight.LocationReuseConnection,
			}},
		}},
		TotalRecords: -1,
		TotalBytes:   -1,
		Ordered:      true,
	}
}

func tablesSchema(includeSchema bool) *arrow.Schema {
	if includeSchema {
		return schema_ref.TablesWithIncludedSchema
	}
	return schema_ref.Tables
}

func streamSingleRecord(ctx context.Context, schema *arrow.Schema, record arrow.Record) (*arrow.Schema, <-chan arrowflight.StreamChunk, error) {
	defer record.Release()
	rdr, err := array.NewRecordReader(schema, []arrow.Record{record})
	if err != nil {
		return nil, nil, status.Error(codes.Internal, err.Error())
	}
	ch := make(chan arrowflight.StreamChunk)
	go arrowflight.StreamChunksFromReader(ctx, rdr, ch)
	return schema, ch, nil
}

func matchCatalog(want *string, catalog string) bool {
	return want == nil || *want == catalog
}

func matchTableTypes(types []string) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		switch strings.ToUpper(strings.TrimSpace(t)) {
		case tableTypeTable, "BASE TABLE":
			return true
		}
	}
	return false
}

// matchPattern applies a Flight SQL filter pattern: % matches any run of
// characters and _ matches exactly one. A nil pattern matches everything.
func matchPattern(pattern *string, s string) bool {
	if pattern == nil {
		return true
	}
	return likeMatch([]rune(*pattern), []rune(s))
}

func likeMatch(p, s []rune) bool {
	for len(p) > 0 {
		switch p[0] {
		case '%':
			for len(p) > 0 && p[0] == '%' {
				p = p[1:]
			}
			if len(p) == 0 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if likeMatch(p, s[i:]) {
					return true
				}
			}
			return false
		case '_':
			if len(s) == 0 {
				return false
			}
		default:
			if len(s) == 0 || s[0] != p[0] {
				return false
			}
		}
		p, s = p[1:], s[1:]
	}
	return len(s) == 0
}

// grpcError maps domain errors to gRPC status codes.
func grpcError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	var notFound *domain.NotFoundError
	var lookup *domain.CatalogLookupError
	var validation *domain.ValidationError
	var syntax *domain.SyntaxError
	var accessDenied *domain.AccessDeniedError
	var notImplemented *domain.NotImplementedError
	var conflict *domain.ConflictError

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.As(err, &lookup), errors.As(err, &notFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &validation), errors.As(err, &syntax):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &accessDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.As(err, &notImplemented):
		return status.Error(codes.Unimplemented, err.Error())
	case errors.As(err, &conflict):
		return status.Error(codes.AlreadyExists, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func principalFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "anonymous"
	}
	for _, key := range []string{"x-principal", "user"} {
		values := md.Get(key)
		if len(values) > 0 && values[0] != "" {
			return values[0]
		}
	}
	return "anonymous"
}
