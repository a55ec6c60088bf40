// Package introspection exposes the pg_catalog relations and functions to
// the HTTP API, the UI, the CLI and the catalog probe.
package introspection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"

	"duck-pgcatalog/internal/domain"
	"duck-pgcatalog/internal/pgcatalog"
)

// RelationSource is implemented by *pgcatalog.Provider.
type RelationSource interface {
	TableNames() []string
	Relation(name string) (pgcatalog.Relation, bool)
	Functions() []pgcatalog.ScalarFunction
}

// Column describes one relation column with its wire type.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	TypeOid  uint32 `json:"type_oid"`
	Nullable bool   `json:"nullable"`
}

// RelationInfo is a relation name and its columns.
type RelationInfo struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// RelationData is one materialized snapshot of a relation.
type RelationData struct {
	Name      string        `json:"name"`
	Columns   []Column      `json:"columns"`
	Rows      [][]any       `json:"rows"`
	RowCount  int           `json:"row_count"`
	FetchedIn time.Duration `json:"-"`
}

// FunctionArg is one declared function input.
type FunctionArg struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	TypeOid uint32 `json:"type_oid"`
}

// FunctionInfo describes a registered introspection function.
type FunctionInfo struct {
	Oid        uint32        `json:"oid"`
	Name       string        `json:"name"`
	Args       []FunctionArg `json:"args"`
	ReturnType string        `json:"return_type"`
	ReturnOid  uint32        `json:"return_oid"`
	Volatility string        `json:"volatility"`
}

// RelationService reads relations from a RelationSource.
type RelationService struct {
	source RelationSource
	logger *slog.Logger
}

func NewRelationService(source RelationSource, logger *slog.Logger) *RelationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RelationService{source: source, logger: logger.With("component", "introspection")}
}

// List describes every relation in the provider's fixed order.
func (s *RelationService) List() []RelationInfo {
	names := s.source.TableNames()
	out := make([]RelationInfo, 0, len(names))
	for _, name := range names {
		rel, ok := s.source.Relation(name)
		if !ok {
			continue
		}
		out = append(out, RelationInfo{Name: rel.Name(), Columns: columns(rel.Schema())})
	}
	return out
}

// Describe returns the columns of one relation.
func (s *RelationService) Describe(name string) (RelationInfo, error) {
	rel, err := s.lookup(name)
	if err != nil {
		return RelationInfo{}, err
	}
	return RelationInfo{Name: rel.Name(), Columns: columns(rel.Schema())}, nil
}

// Fetch materializes one relation. Every call observes a fresh snapshot.
func (s *RelationService) Fetch(ctx context.Context, name string) (*RelationData, error) {
	rel, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rec, err := rel.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rel.Name(), err)
	}
	defer rec.Release()

	rows := make([][]any, rec.NumRows())
	for r := range rows {
		row := make([]any, rec.NumCols())
		for c := range row {
			row[c] = rec.Column(c).GetOneForMarshal(r)
		}
		rows[r] = row
	}

	data := &RelationData{
		Name:      rel.Name(),
		Columns:   columns(rec.Schema()),
		Rows:      rows,
		RowCount:  len(rows),
		FetchedIn: time.Since(start),
	}
	s.logger.Debug("relation fetched", "relation", data.Name, "rows", data.RowCount, "duration", data.FetchedIn)
	return data, nil
}

// Functions describes the registered introspection functions.
func (s *RelationService) Functions() []FunctionInfo {
	fns := s.source.Functions()
	out := make([]FunctionInfo, 0, len(fns))
	for _, fn := range fns {
		args := make([]FunctionArg, len(fn.Args))
		for i, a := range fn.Args {
			oid := pgcatalog.MapType(a.Type).Oid
			args[i] = FunctionArg{Name: a.Name, Type: typeName(oid), TypeOid: oid}
		}
		out = append(out, FunctionInfo{
			Oid:        fn.Oid,
			Name:       fn.Name,
			Args:       args,
			ReturnType: typeName(fn.ReturnOid()),
			ReturnOid:  fn.ReturnOid(),
			Volatility: string(fn.Volatility),
		})
	}
	return out
}

func (s *RelationService) lookup(name string) (pgcatalog.Relation, error) {
	name = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), pgcatalog.IntrospectionSchema+".")
	rel, ok := s.source.Relation(name)
	if !ok {
		return nil, domain.ErrNotFound("relation %q not found", name)
	}
	return rel, nil
}

func columns(schema *arrow.Schema) []Column {
	out := make([]Column, schema.NumFields())
	for i, f := range schema.Fields() {
		oid := pgcatalog.MapType(f.Type).Oid
		out[i] = Column{Name: f.Name, Type: typeName(oid), TypeOid: oid, Nullable: f.Nullable}
	}
	return out
}

func typeName(oid uint32) string {
	if t, ok := pgcatalog.LookupType(oid); ok {
		return t.Name
	}
	return "unknown"
}

// FormatCell renders a fetched or queried value as display text. NULL is
// the empty string.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.RawMessage:
		return string(x)
	case []byte:
		return fmt.Sprintf(`\x%x`, x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			if item == nil {
				parts[i] = "NULL"
				continue
			}
			parts[i] = FormatCell(item)
		}
		return "{" + strings.Join(parts, ",") + "}"
	case []string:
		return "{" + strings.Join(x, ",") + "}"
	}
	return fmt.Sprint(v)
}
