package cli

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/duckdb/duckdb-go/v2" // duckdb driver
	"github.com/spf13/cobra"

	"duck-pgcatalog/internal/app"
	"duck-pgcatalog/internal/config"
)

// sessionOptions points at the root command's persistent flag values.
type sessionOptions struct {
	seed     *string
	duckPath *string
	catalog  *string
	user     *string
}

// session is one in-process application built for a single command.
type session struct {
	app *app.App
	db  *sql.DB
}

func openSession(cmd *cobra.Command, opts *sessionOptions) (*session, error) {
	db, err := sql.Open("duckdb", *opts.duckPath)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	cfg := &config.Config{
		DuckDBPath:      *opts.duckPath,
		CatalogSeedFile: *opts.seed,
		DefaultCatalog:  *opts.catalog,
		PGUserName:      *opts.user,
	}
	a, err := app.New(cmd.Context(), app.Deps{
		Cfg:    cfg,
		DuckDB: db,
		Logger: slog.New(slog.DiscardHandler),
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &session{app: a, db: db}, nil
}

func (s *session) Close() {
	_ = s.app.Close()
	_ = s.db.Close()
}
