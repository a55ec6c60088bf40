// Package app wires the catalogs, the pg_catalog provider, the engine and
// the services shared by every listener.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"duck-pgcatalog/internal/catalog"
	"duck-pgcatalog/internal/catalog/duckdbcat"
	memcat "duck-pgcatalog/internal/catalog/memory"
	"duck-pgcatalog/internal/catalog/sqlitecat"
	"duck-pgcatalog/internal/config"
	"duck-pgcatalog/internal/domain"
	"duck-pgcatalog/internal/engine"
	"duck-pgcatalog/internal/pgcatalog"
	"duck-pgcatalog/internal/service/introspection"
	"duck-pgcatalog/internal/service/query"
)

// Deps holds the external dependencies that main() must provide.
type Deps struct {
	Cfg    *config.Config
	DuckDB *sql.DB
	Logger *slog.Logger
}

// Services groups the services the HTTP handlers, the wire listeners and
// the probe share.
type Services struct {
	Relations *introspection.RelationService
	Query     *query.QueryService
}

// App holds the fully-wired application.
type App struct {
	Services Services
	Engine   *engine.Engine
	Provider *pgcatalog.Provider
	Catalogs domain.CatalogList
	Memory   *memcat.CatalogList

	sqlite *sqlitecat.CatalogList
}

// New builds the catalog chain (memory, DuckDB, SQLite, in that order),
// installs pg_catalog into cfg.DefaultCatalog and wires the services.
func New(ctx context.Context, deps Deps) (*App, error) {
	if deps.DuckDB == nil {
		return nil, domain.ErrConfiguration("duckdb connection is required")
	}
	cfg := deps.Cfg
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// === Catalogs ===
	mem := memcat.NewCatalogList()
	if _, err := mem.EnsureCatalog(cfg.DefaultCatalog); err != nil {
		return nil, fmt.Errorf("default catalog: %w", err)
	}
	if cfg.CatalogSeedFile != "" {
		if err := memcat.LoadSeedFile(cfg.CatalogSeedFile, mem); err != nil {
			return nil, fmt.Errorf("catalog seed: %w", err)
		}
		logger.Info("catalog seed loaded", "path", cfg.CatalogSeedFile)
	}

	lists := []domain.CatalogList{mem, duckdbcat.New(deps.DuckDB)}
	sqlite, err := sqlitecat.Open(cfg.SQLiteCatalogs)
	if err != nil {
		return nil, err
	}
	if len(cfg.SQLiteCatalogs) > 0 {
		lists = append(lists, sqlite)
		logger.Info("sqlite catalogs attached", "count", len(cfg.SQLiteCatalogs))
	}
	catalogs := catalog.Chain(lists...)

	// === Engine + pg_catalog ===
	eng := engine.New(deps.DuckDB, logger)
	provider, err := pgcatalog.Setup(ctx, catalogs, cfg.DefaultCatalog, eng,
		pgcatalog.WithDatabaseName(cfg.DatabaseName()),
		pgcatalog.WithUserName(cfg.PGUserName),
		pgcatalog.WithLogger(logger),
	)
	if err != nil {
		_ = sqlite.Close()
		return nil, fmt.Errorf("install pg_catalog: %w", err)
	}
	eng.SetProvider(provider)

	return &App{
		Services: Services{
			Relations: introspection.NewRelationService(provider, logger),
			Query:     query.NewQueryService(eng, logger, 0),
		},
		Engine:   eng,
		Provider: provider,
		Catalogs: catalogs,
		Memory:   mem,
		sqlite:   sqlite,
	}, nil
}

// Execute runs sqlQuery through the query service. Its signature matches
// the executors the pgwire and Flight SQL servers take.
func (a *App) Execute(ctx context.Context, principal, sqlQuery string) ([]*engine.Result, error) {
	return a.Services.Query.Execute(ctx, principal, sqlQuery)
}

// Close releases the provider and the SQLite connections.
func (a *App) Close() error {
	a.Provider.Close()
	return a.sqlite.Close()
}
