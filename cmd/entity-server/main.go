package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/simple-entity/pkg/simpleentity/api"
	"github.com/tendant/simple-entity/pkg/simpleentity/config"
)

// Auth modes
const (
	AuthNone   = "none"
	AuthAPIKey = "apikey"
	AuthJWT    = "jwt"
)

// Config holds the settings only the server binary needs. Repository,
// storage and event settings are read by config.WithEnv.
type Config struct {
	AuthMode     string `env:"AUTH_MODE" env-default:"none"`
	ApiKeySHA256 string `env:"API_KEY_SHA256"`
	JWTSecret    string `env:"JWT_SECRET"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "err", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	serverConfig, err := config.Load(config.WithEnv(""))
	if err != nil {
		slog.Error("Failed to load server configuration", "err", err)
		os.Exit(1)
	}

	components, err := serverConfig.BuildComponents(context.Background())
	if err != nil {
		slog.Error("Failed to build service", "err", err)
		os.Exit(1)
	}
	defer components.Close()

	auth, err := authMiddleware(cfg)
	if err != nil {
		slog.Error("Failed to initialize auth middleware", "err", err)
		os.Exit(1)
	}

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)
	mountRoutes(server.R, components, auth)

	slog.Info("Simple Entity Server starting",
		"environment", serverConfig.Environment,
		"database", serverConfig.DatabaseType,
		"storage", serverConfig.DefaultStorageBackend,
		"auth", cfg.AuthMode,
		"metrics", serverConfig.EnableMetrics,
	)
	server.Run()
}

// authMiddleware returns the middleware selected by AUTH_MODE, or nil for "none".
func authMiddleware(cfg Config) (api.Middleware, error) {
	switch cfg.AuthMode {
	case "", AuthNone:
		return nil, nil
	case AuthAPIKey:
		return api.APIKeyAuth(map[string]string{"key1": cfg.ApiKeySHA256})
	case AuthJWT:
		return api.JWTAuth(cfg.JWTSecret)
	default:
		return nil, fmt.Errorf("unsupported AUTH_MODE %q (use none, apikey or jwt)", cfg.AuthMode)
	}
}

// mountRoutes registers /metrics and the entity API under /api/v1.
func mountRoutes(r chi.Router, components *config.Components, auth api.Middleware) {
	if components.Metrics != nil {
		r.Handle("/metrics", components.Metrics.Handler())
	}

	var middlewares []api.Middleware
	if auth != nil {
		middlewares = append(middlewares, auth)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if components.Metrics != nil {
			r.Use(components.Metrics.Middleware)
		}
		r.Mount("/", api.Routes(components.Service, middlewares...))
	})
}
