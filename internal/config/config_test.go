package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-pgcatalog/internal/catalog/sqlitecat"
)

// clearEnv blanks every variable LoadFromEnv reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LISTEN_ADDR", "PG_LISTEN_ADDR", "FLIGHT_SQL_LISTEN_ADDR", "DUCKDB_PATH",
		"SQLITE_CATALOGS", "CATALOG_SEED_FILE", "DEFAULT_CATALOG", "PG_DATABASE_NAME",
		"PG_USER_NAME", "LOG_LEVEL", "ENV", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"CORS_ALLOWED_ORIGINS", "JWT_SECRET", "CATALOG_PROBE_SCHEDULE",
		"AUTH_ISSUER_URL", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_ALLOWED_ISSUERS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, ":5433", cfg.PGListenAddr)
	assert.Empty(t, cfg.FlightSQLListenAddr)
	assert.Empty(t, cfg.DuckDBPath)
	assert.Equal(t, "duckdb", cfg.DefaultCatalog)
	assert.Equal(t, "duckdb", cfg.DatabaseName())
	assert.Equal(t, "postgres", cfg.PGUserName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.InDelta(t, 100, cfg.RateLimitRPS, 0.001)
	assert.Equal(t, 200, cfg.RateLimitBurst)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.AuthEnabled())
	assert.Empty(t, cfg.CatalogProbeSchedule)
	assert.Len(t, cfg.Warnings, 2)
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("PG_LISTEN_ADDR", "127.0.0.1:6432")
	t.Setenv("FLIGHT_SQL_LISTEN_ADDR", " :31337 ")
	t.Setenv("DUCKDB_PATH", "/tmp/warehouse.duckdb")
	t.Setenv("SQLITE_CATALOGS", "crm=/data/crm.db, billing=/data/billing.db")
	t.Setenv("CATALOG_SEED_FILE", "seed.yaml")
	t.Setenv("DEFAULT_CATALOG", "warehouse")
	t.Setenv("PG_DATABASE_NAME", "analytics")
	t.Setenv("PG_USER_NAME", "duck")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CATALOG_PROBE_SCHEDULE", "*/5 * * * *")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, "127.0.0.1:6432", cfg.PGListenAddr)
	assert.Equal(t, ":31337", cfg.FlightSQLListenAddr)
	assert.Equal(t, "/tmp/warehouse.duckdb", cfg.DuckDBPath)
	assert.Equal(t, []sqlitecat.Spec{
		{Name: "crm", Path: "/data/crm.db"},
		{Name: "billing", Path: "/data/billing.db"},
	}, cfg.SQLiteCatalogs)
	assert.Equal(t, "seed.yaml", cfg.CatalogSeedFile)
	assert.Equal(t, "warehouse", cfg.DefaultCatalog)
	assert.Equal(t, "analytics", cfg.DatabaseName())
	assert.Equal(t, "duck", cfg.PGUserName)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.InDelta(t, 2.5, cfg.RateLimitRPS, 0.001)
	assert.Equal(t, 5, cfg.RateLimitBurst)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.AuthEnabled())
	assert.Equal(t, "*/5 * * * *", cfg.CatalogProbeSchedule)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"rate", "RATE_LIMIT_RPS", "fast", "RATE_LIMIT_RPS"},
		{"negative burst", "RATE_LIMIT_BURST", "-1", "RATE_LIMIT_BURST"},
		{"sqlite spec", "SQLITE_CATALOGS", "crm", "SQLITE_CATALOGS"},
		{"duplicate sqlite", "SQLITE_CATALOGS", "a=x.db,a=y.db", "duplicate sqlite catalog"},
		{"probe schedule", "CATALOG_PROBE_SCHEDULE", "every tuesday", "CATALOG_PROBE_SCHEDULE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFromEnv_Production(t *testing.T) {
	t.Run("requires jwt secret", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV", "production")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example")

		_, err := LoadFromEnv()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})

	t.Run("rejects dev secret", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV", "production")
		t.Setenv("JWT_SECRET", devJWTSecret)
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example")

		_, err := LoadFromEnv()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})

	t.Run("rejects cors wildcard", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV", "Production")
		t.Setenv("JWT_SECRET", "s3cret")

		_, err := LoadFromEnv()
		assert.ErrorContains(t, err, "CORS wildcard")
	})

	t.Run("valid", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV", "production")
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example")

		cfg, err := LoadFromEnv()
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
	})

	t.Run("oidc without shared secret", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV", "production")
		t.Setenv("AUTH_ISSUER_URL", "https://idp.example.com")
		t.Setenv("AUTH_AUDIENCE", "pgcat")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example")

		cfg, err := LoadFromEnv()
		require.NoError(t, err)
		assert.True(t, cfg.AuthEnabled())
	})
}

func TestLoadFromEnv_OIDC(t *testing.T) {
	t.Run("jwks with allowed issuers", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AUTH_JWKS_URL", " https://idp.example.com/keys ")
		t.Setenv("AUTH_AUDIENCE", "pgcat")
		t.Setenv("AUTH_ALLOWED_ISSUERS", "https://a.example, https://b.example")

		cfg, err := LoadFromEnv()
		require.NoError(t, err)
		assert.True(t, cfg.OIDCEnabled())
		assert.True(t, cfg.AuthEnabled())
		assert.Equal(t, "https://idp.example.com/keys", cfg.AuthJWKSURL)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AuthAllowedIssuers)
		assert.Len(t, cfg.Warnings, 1, "only the in-memory DuckDB warning")
	})

	t.Run("requires audience", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AUTH_ISSUER_URL", "https://idp.example.com")

		_, err := LoadFromEnv()
		assert.ErrorContains(t, err, "AUTH_AUDIENCE")
	})
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		assert.Equal(t, tt.want, cfg.SlogLevel(), "level %q", tt.level)
	}
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	assert.NoError(t, LoadDotEnv("/nonexistent/.env"))
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"# comment\n\nPGCAT_TEST_KEY=test_value\nexport PGCAT_TEST_QUOTED=\"quoted value\"\nnot a pair\n",
	), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("PGCAT_TEST_KEY")
		_ = os.Unsetenv("PGCAT_TEST_QUOTED")
	})

	require.NoError(t, LoadDotEnv(envFile))

	assert.Equal(t, "test_value", os.Getenv("PGCAT_TEST_KEY"))
	assert.Equal(t, "quoted value", os.Getenv("PGCAT_TEST_QUOTED"))
}

func TestLoadDotEnv_EnvVarPrecedence(t *testing.T) {
	t.Setenv("PGCAT_TEST_PRECEDENCE", "from_env")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PGCAT_TEST_PRECEDENCE=from_file\n"), 0o600))

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "from_env", os.Getenv("PGCAT_TEST_PRECEDENCE"))
}

func TestStripQuotes(t *testing.T) {
	assert.Equal(t, "a b", stripQuotes(`"a b"`))
	assert.Equal(t, "a b", stripQuotes(`'a b'`))
	assert.Equal(t, `"a b'`, stripQuotes(`"a b'`))
	assert.Equal(t, `"`, stripQuotes(`"`))
}
