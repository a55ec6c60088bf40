package pgcatalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"duck-pgcatalog/internal/domain"
)

// tableNames is the order in which the provider lists its relations.
var tableNames = []string{PgType, PgClass, PgAttribute, PgNamespace, PgProc, PgDatabase, PgAm}

// Option configures a Provider.
type Option func(*options)

type options struct {
	mem    memory.Allocator
	logger *slog.Logger
	fn     FunctionOptions
}

// WithAllocator sets the allocator used for every relation record.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) { o.mem = mem }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDatabaseName sets what current_database() reports.
func WithDatabaseName(name string) Option {
	return func(o *options) { o.fn.DatabaseName = name }
}

// WithUserName sets what current_user() and friends report.
func WithUserName(name string) Option {
	return func(o *options) { o.fn.UserName = name }
}

// Provider serves the pg_catalog relations for one catalog list.
type Provider struct {
	walker    *CatalogWalker
	relations map[string]Relation
	statics   []*staticRelation
	functions []ScalarFunction
	logger    *slog.Logger
}

// NewProvider builds the relations over catalogs. The static relations are
// materialized here, once.
func NewProvider(catalogs domain.CatalogList, opts ...Option) (*Provider, error) {
	o := options{mem: memory.DefaultAllocator, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With("component", "pgcatalog")

	p := &Provider{
		walker:    NewCatalogWalker(catalogs),
		relations: make(map[string]Relation, len(tableNames)),
		functions: Functions(o.fn),
		logger:    logger,
	}

	types, err := newStaticRelation(PgType, typeSchema, o.mem, typeRows())
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", PgType, err)
	}
	am, err := newStaticRelation(PgAm, accessMethodSchema, o.mem, accessMethodRows)
	if err != nil {
		types.release()
		return nil, fmt.Errorf("build %s: %w", PgAm, err)
	}
	p.statics = []*staticRelation{types, am}

	for _, rel := range []Relation{
		types,
		newClassRelation(p.walker, o.mem),
		newAttributeRelation(p.walker, o.mem, logger),
		newNamespaceRelation(p.walker, o.mem),
		newProcRelation(p.functions, o.mem),
		newDatabaseRelation(p.walker, o.mem),
		am,
	} {
		p.relations[rel.Name()] = rel
	}
	return p, nil
}

// TableNames lists the relation names in their fixed order.
func (p *Provider) TableNames() []string {
	return append([]string(nil), tableNames...)
}

// Relation looks up a relation by name, ignoring case.
func (p *Provider) Relation(name string) (Relation, bool) {
	rel, ok := p.relations[strings.ToLower(name)]
	return rel, ok
}

// TableExists reports whether name is one of the provider's relations.
func (p *Provider) TableExists(name string) bool {
	_, ok := p.Relation(name)
	return ok
}

// Functions returns the introspection functions in registration order.
func (p *Provider) Functions() []ScalarFunction {
	return append([]ScalarFunction(nil), p.functions...)
}

// Walker exposes the walker the relations use.
func (p *Provider) Walker() *CatalogWalker { return p.walker }

// Close releases the static relation records.
func (p *Provider) Close() {
	for _, s := range p.statics {
		s.release()
	}
	p.statics = nil
}

// Schema adapts the provider to the catalog schema interface so it can be
// registered inside a catalog.
func (p *Provider) Schema() domain.Schema { return introspectionSchema{p: p} }

type introspectionSchema struct {
	p *Provider
}

func (s introspectionSchema) TableNames(context.Context) ([]string, error) {
	return s.p.TableNames(), nil
}

func (s introspectionSchema) Table(_ context.Context, name string) (domain.Table, error) {
	rel, ok := s.p.Relation(name)
	if !ok {
		return nil, domain.ErrNotFound("relation %s.%s not found", IntrospectionSchema, name)
	}
	return relationTable{rel: rel}, nil
}

type relationTable struct {
	rel Relation
}

func (t relationTable) Schema() *arrow.Schema { return t.rel.Schema() }

// Setup installs pg_catalog into the named catalog and registers the
// introspection functions with registry. current_database() defaults to
// catalogName.
func Setup(ctx context.Context, catalogs domain.CatalogList, catalogName string, registry FunctionRegistry, opts ...Option) (*Provider, error) {
	cat, err := catalogs.Catalog(ctx, catalogName)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, domain.ErrConfiguration("catalog not found when registering pg_catalog: %s", catalogName)
		}
		return nil, fmt.Errorf("resolve catalog %s: %w", catalogName, err)
	}
	if cat == nil {
		return nil, domain.ErrConfiguration("catalog not found when registering pg_catalog: %s", catalogName)
	}

	opts = append([]Option{WithDatabaseName(catalogName)}, opts...)
	p, err := NewProvider(catalogs, opts...)
	if err != nil {
		return nil, err
	}

	if registrar, ok := cat.(domain.SchemaRegistrar); ok {
		if err := registrar.RegisterSchema(IntrospectionSchema, p.Schema()); err != nil {
			p.Close()
			return nil, fmt.Errorf("register %s schema: %w", IntrospectionSchema, err)
		}
	}

	if registry != nil {
		for _, fn := range p.functions {
			if err := registry.RegisterFunction(fn); err != nil {
				p.Close()
				return nil, fmt.Errorf("register function %s: %w", fn.Name, err)
			}
		}
	}

	p.logger.Info("pg_catalog installed", "catalog", catalogName, "relations", len(p.relations), "functions", len(p.functions))
	return p, nil
}
