package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"duck-pgcatalog/internal/api"
	"duck-pgcatalog/internal/config"
	"duck-pgcatalog/internal/middleware"
	"duck-pgcatalog/internal/ui"
)

// NewRouter builds the HTTP handler: /healthz is public, /v1 and /ui sit
// behind JWT auth when a secret or an identity provider is configured and
// run as cfg.PGUserName otherwise. ctx bounds the rate limiter's background
// sweep and the JWKS key fetches.
func (a *App) NewRouter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (http.Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	auth := middleware.Anonymous(cfg.PGUserName)
	if cfg.AuthEnabled() {
		validator, err := authValidator(ctx, cfg)
		if err != nil {
			return nil, err
		}
		auth = middleware.NewAuthenticator(validator, logger).Middleware()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-CSRF-Token"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RateLimiter(ctx, middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
		IdleTimeout:       10 * time.Minute,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui", http.StatusFound)
	})

	handler := api.NewHandler(a.Services.Relations, a.Services.Query, logger)
	r.Route("/v1", func(r chi.Router) {
		r.Use(auth)
		handler.Routes(r)
	})

	uiHandler := ui.NewHandler(a.Services.Relations, a.Services.Query, cfg.IsProduction())
	r.Route("/ui", func(r chi.Router) {
		r.Use(auth)
		ui.MountRoutes(r, uiHandler)
	})

	return r, nil
}

// authValidator accepts identity provider tokens first, then shared-secret
// tokens.
func authValidator(ctx context.Context, cfg *config.Config) (middleware.JWTValidator, error) {
	var validators middleware.AnyValidator
	switch {
	case cfg.AuthJWKSURL != "":
		validators = append(validators, middleware.NewOIDCValidatorFromJWKS(ctx,
			cfg.AuthJWKSURL, cfg.AuthIssuerURL, cfg.AuthAudience, cfg.AuthAllowedIssuers))
	case cfg.AuthIssuerURL != "":
		v, err := middleware.NewOIDCValidator(ctx, cfg.AuthIssuerURL, cfg.AuthAudience, cfg.AuthAllowedIssuers)
		if err != nil {
			return nil, err
		}
		validators = append(validators, v)
	}
	if cfg.JWTSecret != "" {
		validators = append(validators, middleware.NewSharedSecretValidator(cfg.JWTSecret))
	}
	if len(validators) == 1 {
		return validators[0], nil
	}
	return validators, nil
}
