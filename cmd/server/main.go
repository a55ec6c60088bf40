package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"duck-pgcatalog/internal/app"
	"duck-pgcatalog/internal/config"
	"duck-pgcatalog/internal/flightsql"
	"duck-pgcatalog/internal/pgwire"
	"duck-pgcatalog/internal/probe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file (if present)
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("could not load .env", "error", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	duckDB, err := sql.Open("duckdb", cfg.DuckDBPath)
	if err != nil {
		return fmt.Errorf("open duckdb: %w", err)
	}
	defer duckDB.Close() //nolint:errcheck

	application, err := app.New(ctx, app.Deps{Cfg: cfg, DuckDB: duckDB, Logger: logger})
	if err != nil {
		return err
	}
	defer application.Close() //nolint:errcheck

	router, err := application.NewRouter(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("http router: %w", err)
	}
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	pgServer := pgwire.NewServer(cfg.PGListenAddr, logger, application.Execute)

	var flightServer *flightsql.Server
	if cfg.FlightSQLListenAddr != "" {
		flightServer = flightsql.NewServer(cfg.FlightSQLListenAddr, logger, application.Execute, application.Provider.Walker())
	}

	var catalogProbe *probe.Probe
	if cfg.CatalogProbeSchedule != "" {
		catalogProbe, err = probe.New(application.Services.Relations, cfg.CatalogProbeSchedule, logger)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP API listening", "addr", cfg.ListenAddr)
		logger.Info("try: curl http://" + curlHostForListenAddr(cfg.ListenAddr) + "/v1/relations/pg_namespace")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Shutdown once a signal arrives or any listener fails.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := pgServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if flightServer != nil {
			if err := flightServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	if err := pgServer.Start(); err != nil {
		stop()
		return errors.Join(err, g.Wait())
	}
	if flightServer != nil {
		if err := flightServer.Start(); err != nil {
			stop()
			return errors.Join(err, g.Wait())
		}
	}
	if catalogProbe != nil {
		g.Go(func() error { return catalogProbe.Run(gctx) })
	}

	return g.Wait()
}

// curlHostForListenAddr turns a listen address into a host:port a local curl
// can reach. Wildcard and empty hosts become localhost.
func curlHostForListenAddr(listenAddr string) string {
	addr := strings.TrimSpace(listenAddr)
	if addr == "" {
		return "localhost:8080"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
