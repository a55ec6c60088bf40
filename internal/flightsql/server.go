// Package flightsql serves the engine and the catalog walker over Arrow
// Flight SQL.
package flightsql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	arrowflight "github.com/apache/arrow-go/v18/arrow/flight"
	arrowflightsql "github.com/apache/arrow-go/v18/arrow/flight/flightsql"
	"google.golang.org/grpc"
	grpcHealth "google.golang.org/grpc/health"
	grpcHealthV1 "google.golang.org/grpc/health/grpc_health_v1"

	"duck-pgcatalog/internal/engine"
)

// gracefulStopTimeout bounds how long Shutdown waits for in-flight streams
// before forcing the gRPC server closed.
const gracefulStopTimeout = 5 * time.Second

// QueryExecutor runs every statement of sqlQuery on behalf of principal.
type QueryExecutor func(ctx context.Context, principal string, sqlQuery string) ([]*engine.Result, error)

// Server is a Flight SQL listener with a gRPC health service.
type Server struct {
	addr     string
	logger   *slog.Logger
	query    QueryExecutor
	catalogs CatalogSource

	mu      sync.Mutex
	ln      net.Listener
	grpc    *grpc.Server
	health  *grpcHealth.Server
	serving chan struct{} // closed when Serve returns
}

// NewServer builds a listener for addr. Nothing is bound until Start.
func NewServer(addr string, logger *slog.Logger, query QueryExecutor, catalogs CatalogSource) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if query == nil {
		query = func(context.Context, string, string) ([]*engine.Result, error) {
			return nil, errors.New("flight sql: no query executor configured")
		}
	}
	if catalogs == nil {
		catalogs = emptyCatalogs{}
	}
	return &Server{addr: addr, logger: logger.With("component", "flightsql"), query: query, catalogs: catalogs}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return errors.New("flight sql: already started")
	}

	ln, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("flight sql listen %s: %w", s.addr, err)
	}

	srv := grpc.NewServer()
	arrowflight.RegisterFlightServiceServer(srv, arrowflightsql.NewFlightServer(newQueryServer(s.logger, s.query, s.catalogs)))
	health := grpcHealth.NewServer()
	health.SetServingStatus("", grpcHealthV1.HealthCheckResponse_SERVING)
	grpcHealthV1.RegisterHealthServer(srv, health)

	serving := make(chan struct{})
	go func() {
		defer close(serving)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.logger.Warn("flight sql server stopped", "error", err)
		}
	}()

	s.ln, s.grpc, s.health, s.serving = ln, srv, health, serving
	s.logger.Info("Flight SQL listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Shutdown drains in-flight calls and stops the listener. It is a no-op on a
// server that never started.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, health, serving := s.grpc, s.health, s.serving
	s.ln, s.grpc, s.health, s.serving = nil, nil, nil, nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(gracefulStopTimeout):
		srv.Stop()
	case <-ctx.Done():
		srv.Stop()
		return fmt.Errorf("flight sql shutdown: %w", ctx.Err())
	}

	select {
	case <-serving:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flight sql shutdown: %w", ctx.Err())
	}
}
