package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duck-pgcatalog/internal/config"
	"duck-pgcatalog/internal/middleware"
	"duck-pgcatalog/internal/service/introspection"
)

const testSeed = `catalogs:
  - name: shop
    schemas:
      - name: inventory
        tables:
          - name: widgets
            columns:
              - {name: sku, type: text, nullable: false}
              - {name: qty, type: int4}
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	seed := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(testSeed), 0o600))
	return &config.Config{
		CatalogSeedFile:    seed,
		DefaultCatalog:     "duckdb",
		PGUserName:         "postgres",
		RateLimitRPS:       1000,
		RateLimitBurst:     1000,
		CORSAllowedOrigins: []string{"*"},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec("CREATE TABLE orders (id INTEGER NOT NULL, note VARCHAR)")
	require.NoError(t, err)

	a, err := New(context.Background(), Deps{Cfg: cfg, DuckDB: db})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func newTestRouter(t *testing.T, a *App, cfg *config.Config) http.Handler {
	t.Helper()
	h, err := a.NewRouter(t.Context(), cfg, nil)
	require.NoError(t, err)
	return h
}

func fetchColumn(t *testing.T, a *App, relation, column string) []string {
	t.Helper()
	data, err := a.Services.Relations.Fetch(t.Context(), relation)
	require.NoError(t, err)
	idx := -1
	for i, c := range data.Columns {
		if c.Name == column {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0, "column %s", column)
	out := make([]string, len(data.Rows))
	for i, row := range data.Rows {
		out[i] = introspection.FormatCell(row[idx])
	}
	return out
}

func TestNew_ChainsCatalogs(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	names, err := a.Catalogs.CatalogNames(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"duckdb", "shop", "memory"}, names)

	relnames := fetchColumn(t, a, "pg_class", "relname")
	assert.Contains(t, relnames, "widgets")
	assert.Contains(t, relnames, "orders")

	nspnames := fetchColumn(t, a, "pg_namespace", "nspname")
	assert.Contains(t, nspnames, "inventory")
	assert.Contains(t, nspnames, "main")
	assert.Contains(t, nspnames, "pg_catalog")
}

func TestNew_MissingDuckDB(t *testing.T) {
	_, err := New(context.Background(), Deps{Cfg: testConfig(t)})
	require.Error(t, err)
}

func TestNew_BadSeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.CatalogSeedFile = filepath.Join(t.TempDir(), "missing.yaml")

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = New(context.Background(), Deps{Cfg: cfg, DuckDB: db})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog seed")
}

func TestApp_Execute(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	results, err := a.Execute(t.Context(), "postgres", "SELECT current_database(), current_user")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Rows, 1)
	assert.Equal(t, "duckdb", results[0].Rows[0][0])
	assert.Equal(t, "postgres", results[0].Rows[0][1])

	history := a.Services.Query.History(1)
	require.Len(t, history, 1)
	assert.Equal(t, "postgres", history[0].Principal)
}

func TestRouter_Anonymous(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)
	srv := httptest.NewServer(newTestRouter(t, a, cfg))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/healthz") //nolint:gosec,noctx // test server URL
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = http.Post(srv.URL+"/v1/query", "application/json", //nolint:gosec,noctx // test server URL
		strings.NewReader(`{"sql":"SELECT relname FROM pg_catalog.pg_class WHERE relname = 'widgets'"}`))
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Results []struct {
			Rows [][]any `json:"rows"`
		} `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, [][]any{{"widgets"}}, body.Results[0].Rows)

	history := a.Services.Query.History(1)
	require.Len(t, history, 1)
	assert.Equal(t, "postgres", history[0].Principal)
}

func TestRouter_RequiresJWTWhenConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTSecret = "s3cret"
	a := newTestApp(t, cfg)
	srv := httptest.NewServer(newTestRouter(t, a, cfg))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/v1/relations") //nolint:gosec,noctx // test server URL
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/healthz") //nolint:gosec,noctx // test server URL
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthValidator(t *testing.T) {
	t.Run("shared secret only", func(t *testing.T) {
		v, err := authValidator(t.Context(), &config.Config{JWTSecret: "s3cret"})
		require.NoError(t, err)
		assert.IsType(t, &middleware.SharedSecretValidator{}, v)
	})

	t.Run("jwks only", func(t *testing.T) {
		v, err := authValidator(t.Context(), &config.Config{
			AuthJWKSURL:  "https://idp.example.com/keys",
			AuthAudience: "pgcat",
		})
		require.NoError(t, err)
		assert.IsType(t, &middleware.OIDCValidator{}, v)
	})

	t.Run("jwks and shared secret", func(t *testing.T) {
		v, err := authValidator(t.Context(), &config.Config{
			JWTSecret:    "s3cret",
			AuthJWKSURL:  "https://idp.example.com/keys",
			AuthAudience: "pgcat",
		})
		require.NoError(t, err)
		require.IsType(t, middleware.AnyValidator{}, v)
		assert.Len(t, v.(middleware.AnyValidator), 2)
	})

	t.Run("issuer discovery failure", func(t *testing.T) {
		idp := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(idp.Close)

		_, err := authValidator(t.Context(), &config.Config{AuthIssuerURL: idp.URL, AuthAudience: "pgcat"})
		assert.ErrorContains(t, err, "oidc provider discovery")

		cfg := testConfig(t)
		cfg.AuthIssuerURL, cfg.AuthAudience = idp.URL, "pgcat"
		_, err = newTestApp(t, cfg).NewRouter(t.Context(), cfg, nil)
		assert.Error(t, err)
	})
}
