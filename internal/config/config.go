// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"

	"duck-pgcatalog/internal/catalog/sqlitecat"
)

const devJWTSecret = "dev-secret-change-in-production"

// Config holds the configuration for the HTTP API, the wire listeners and the
// catalog backends.
type Config struct {
	ListenAddr          string // HTTP listen address (default ":8080")
	PGListenAddr        string // PostgreSQL wire listen address (default ":5433")
	FlightSQLListenAddr string // Flight SQL listen address; empty disables the listener

	DuckDBPath      string           // DuckDB database file; empty opens an in-memory database
	SQLiteCatalogs  []sqlitecat.Spec // extra read-only catalogs from SQLite files
	CatalogSeedFile string           // YAML file declaring in-memory catalogs (optional)
	DefaultCatalog  string           // catalog that hosts pg_catalog (default "duckdb")

	PGDatabaseName string // reported by current_database(); empty uses DefaultCatalog
	PGUserName     string // reported by current_user (default "postgres")

	LogLevel string // log level: debug, info, warn, error (default "info")
	Env      string // environment: "development" (default) or "production"

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	JWTSecret string // HS256 shared secret

	// OIDC / JWKS bearer tokens, accepted next to JWTSecret tokens
	AuthIssuerURL      string   // issuer URL used for discovery and the iss check
	AuthJWKSURL        string   // JWKS URL; skips discovery when set
	AuthAudience       string   // required aud claim
	AuthAllowedIssuers []string // accepted issuers (defaults to AuthIssuerURL)

	// CatalogProbeSchedule is a cron spec for the catalog probe; empty disables it.
	CatalogProbeSchedule string

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// OIDCEnabled reports whether an external identity provider is configured.
func (c *Config) OIDCEnabled() bool {
	return c.AuthIssuerURL != "" || c.AuthJWKSURL != ""
}

// AuthEnabled reports whether HTTP requests must carry a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != "" || c.OIDCEnabled()
}

// DatabaseName is the name current_database() and pg_database report.
func (c *Config) DatabaseName() string {
	if c.PGDatabaseName != "" {
		return c.PGDatabaseName
	}
	return c.DefaultCatalog
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr:           os.Getenv("LISTEN_ADDR"),
		PGListenAddr:         os.Getenv("PG_LISTEN_ADDR"),
		FlightSQLListenAddr:  strings.TrimSpace(os.Getenv("FLIGHT_SQL_LISTEN_ADDR")),
		DuckDBPath:           os.Getenv("DUCKDB_PATH"),
		CatalogSeedFile:      os.Getenv("CATALOG_SEED_FILE"),
		DefaultCatalog:       os.Getenv("DEFAULT_CATALOG"),
		PGDatabaseName:       os.Getenv("PG_DATABASE_NAME"),
		PGUserName:           os.Getenv("PG_USER_NAME"),
		LogLevel:             os.Getenv("LOG_LEVEL"),
		Env:                  os.Getenv("ENV"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		AuthIssuerURL:        strings.TrimSpace(os.Getenv("AUTH_ISSUER_URL")),
		AuthJWKSURL:          strings.TrimSpace(os.Getenv("AUTH_JWKS_URL")),
		AuthAudience:         strings.TrimSpace(os.Getenv("AUTH_AUDIENCE")),
		CatalogProbeSchedule: strings.TrimSpace(os.Getenv("CATALOG_PROBE_SCHEDULE")),
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("RATE_LIMIT_RPS must be a non-negative number, got %q", v)
		}
		cfg.RateLimitRPS = f
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("RATE_LIMIT_BURST must be a non-negative integer, got %q", v)
		}
		cfg.RateLimitBurst = n
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}

	if v := os.Getenv("AUTH_ALLOWED_ISSUERS"); v != "" {
		cfg.AuthAllowedIssuers = splitList(v)
	}
	if cfg.OIDCEnabled() && cfg.AuthAudience == "" {
		return nil, fmt.Errorf("AUTH_AUDIENCE is required when AUTH_ISSUER_URL or AUTH_JWKS_URL is set")
	}

	if v := os.Getenv("SQLITE_CATALOGS"); v != "" {
		specs, err := sqlitecat.ParseSpecs(v)
		if err != nil {
			return nil, fmt.Errorf("SQLITE_CATALOGS: %w", err)
		}
		cfg.SQLiteCatalogs = specs
	}

	if cfg.CatalogProbeSchedule != "" {
		if _, err := cron.ParseStandard(cfg.CatalogProbeSchedule); err != nil {
			return nil, fmt.Errorf("CATALOG_PROBE_SCHEDULE: %w", err)
		}
	}

	// Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.PGListenAddr == "" {
		cfg.PGListenAddr = ":5433"
	}
	if cfg.DefaultCatalog == "" {
		cfg.DefaultCatalog = "duckdb"
	}
	if cfg.PGUserName == "" {
		cfg.PGUserName = "postgres"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.DuckDBPath == "" {
		cfg.Warnings = append(cfg.Warnings, "DUCKDB_PATH not set, using an in-memory DuckDB database")
	}
	if !cfg.AuthEnabled() {
		cfg.Warnings = append(cfg.Warnings, "neither JWT_SECRET nor AUTH_ISSUER_URL/AUTH_JWKS_URL set, HTTP API is unauthenticated")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.JWTSecret == devJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must not be the development default in production (ENV=production)")
		}
		if !cfg.AuthEnabled() {
			return nil, fmt.Errorf("JWT_SECRET or AUTH_ISSUER_URL/AUTH_JWKS_URL must be set in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
