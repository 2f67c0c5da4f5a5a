package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-entity/pkg/simpleentity"
	"github.com/tendant/simple-entity/pkg/simpleentity/formdisplay"
	"github.com/tendant/simple-entity/pkg/simpleentity/metrics"
	"github.com/tendant/simple-entity/pkg/simpleentity/repo/memory"
	repopg "github.com/tendant/simple-entity/pkg/simpleentity/repo/postgres"
	reposqlite "github.com/tendant/simple-entity/pkg/simpleentity/repo/sqlite"
	fsstorage "github.com/tendant/simple-entity/pkg/simpleentity/storage/fs"
	memorystorage "github.com/tendant/simple-entity/pkg/simpleentity/storage/memory"
	s3storage "github.com/tendant/simple-entity/pkg/simpleentity/storage/s3"
)

// Database types
const (
	DatabaseMemory   = "memory"
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:                  "8080",
		Environment:           "development",
		DatabaseType:          DatabaseMemory,
		DefaultStorageBackend: "memory",
		StorageBackends: []StorageBackendConfig{
			{
				Name:   "memory",
				Type:   "memory",
				Config: map[string]interface{}{},
			},
		},
		FormDisplayPrefix:  "config/",
		EnableEventLogging: true,
		MetricsNamespace:   "simple_entity",
	}
}

// ServerConfig represents configuration for the simple-entity service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres", "sqlite"
	DBSchema     string // Postgres schema to use (optional)
	AutoMigrate  bool   // Apply the Postgres schema on startup

	// Configuration document storage. Form displays are kept in the
	// default backend under FormDisplayPrefix.
	DefaultStorageBackend string
	StorageBackends       []StorageBackendConfig
	FormDisplayPrefix     string

	// Event sinks
	EnableEventLogging bool
	EnableMetrics      bool
	MetricsNamespace   string
}

// StorageBackendConfig represents configuration for a storage backend
type StorageBackendConfig struct {
	Name   string
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.DatabaseType {
	case DatabaseMemory:
	case DatabasePostgres, DatabaseSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required when using %s", c.DatabaseType)
		}
	default:
		return errors.New("database_type must be 'memory', 'postgres' or 'sqlite'")
	}

	found := false
	for _, backend := range c.StorageBackends {
		if backend.Name == c.DefaultStorageBackend {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("default storage backend '%s' not found in configured backends", c.DefaultStorageBackend)
	}

	if c.EnableMetrics && c.MetricsNamespace == "" {
		return errors.New("metrics namespace is required when metrics are enabled")
	}

	return nil
}

// Components holds everything BuildComponents wired together.
type Components struct {
	Service    simpleentity.Service
	Repository simpleentity.Repository
	BlobStores map[string]simpleentity.BlobStore
	Displays   *formdisplay.Store
	Metrics    *metrics.Collector // nil unless metrics are enabled

	closers []func()
}

// Close releases database connections.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService(extra ...simpleentity.Option) (simpleentity.Service, error) {
	components, err := c.BuildComponents(context.Background(), extra...)
	if err != nil {
		return nil, err
	}
	return components.Service, nil
}

// BuildComponents creates the repository, storage backends, form display
// store and event sinks, and the Service on top of them. Options in
// extra are applied last.
func (c *ServerConfig) BuildComponents(ctx context.Context, extra ...simpleentity.Option) (*Components, error) {
	components := &Components{BlobStores: make(map[string]simpleentity.BlobStore)}

	repo, closer, err := c.buildRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	if closer != nil {
		components.closers = append(components.closers, closer)
	}
	components.Repository = repo

	for _, backendConfig := range c.StorageBackends {
		store, err := c.buildStorageBackend(backendConfig)
		if err != nil {
			components.Close()
			return nil, fmt.Errorf("failed to build storage backend %s: %w", backendConfig.Name, err)
		}
		components.BlobStores[backendConfig.Name] = store
	}
	components.Displays = formdisplay.New(components.BlobStores[c.DefaultStorageBackend], formdisplay.WithPrefix(c.FormDisplayPrefix))

	var sinks simpleentity.MultiEventSink
	if c.EnableEventLogging {
		sinks = append(sinks, simpleentity.NewLoggingEventSink(slog.Default()))
	}
	if c.EnableMetrics {
		components.Metrics = metrics.NewCollector(c.MetricsNamespace)
		sinks = append(sinks, components.Metrics)
	}

	options := []simpleentity.Option{
		simpleentity.WithRepository(repo),
		simpleentity.WithFormDisplayStore(components.Displays),
	}
	switch len(sinks) {
	case 0:
		options = append(options, simpleentity.WithEventSink(simpleentity.NewNoopEventSink()))
	case 1:
		options = append(options, simpleentity.WithEventSink(sinks[0]))
	default:
		options = append(options, simpleentity.WithEventSink(sinks))
	}
	options = append(options, extra...)

	svc, err := simpleentity.New(options...)
	if err != nil {
		components.Close()
		return nil, err
	}
	components.Service = svc
	return components, nil
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository(ctx context.Context) (simpleentity.Repository, func(), error) {
	switch c.DatabaseType {
	case DatabaseMemory:
		return memory.New(), nil, nil

	case DatabasePostgres:
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		schema := c.DBSchema
		if schema != "" {
			cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
				_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
				return err
			}
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		if c.AutoMigrate {
			if err := repopg.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return repopg.NewWithPool(pool), pool.Close, nil

	case DatabaseSQLite:
		db, err := reposqlite.Open(ctx, SQLitePath(c.DatabaseURL))
		if err != nil {
			return nil, nil, err
		}
		return reposqlite.New(db), func() { db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// SQLitePath turns "sqlite:///var/lib/entity.db" or "sqlite://:memory:"
// into the file name the driver expects. Other values are returned as is.
func SQLitePath(databaseURL string) string {
	return strings.TrimPrefix(databaseURL, "sqlite://")
}

// buildStorageBackend creates a BlobStore based on the backend configuration
func (c *ServerConfig) buildStorageBackend(config StorageBackendConfig) (simpleentity.BlobStore, error) {
	switch config.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir: getString(config.Config, "base_dir", "./data/config"),
		})

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 getString(config.Config, "region", "us-east-1"),
			Bucket:                 getString(config.Config, "bucket", ""),
			Prefix:                 getString(config.Config, "prefix", ""),
			AccessKeyID:            getString(config.Config, "access_key_id", ""),
			SecretAccessKey:        getString(config.Config, "secret_access_key", ""),
			Endpoint:               getString(config.Config, "endpoint", ""),
			UsePathStyle:           getBool(config.Config, "use_path_style", false),
			EnableSSE:              getBool(config.Config, "enable_sse", false),
			SSEAlgorithm:           getString(config.Config, "sse_algorithm", "AES256"),
			SSEKMSKeyID:            getString(config.Config, "sse_kms_key_id", ""),
			CreateBucketIfNotExist: getBool(config.Config, "create_bucket_if_not_exist", false),
			BreakerMinRequests:     uint32(getInt(config.Config, "breaker_min_requests", 0)),
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", config.Type)
	}
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}

func getInt(config map[string]interface{}, key string, defaultValue int) int {
	if value, exists := config[key]; exists {
		if i, ok := value.(int); ok {
			return i
		}
		if str, ok := value.(string); ok {
			if i, err := strconv.Atoi(str); err == nil {
				return i
			}
		}
		if f, ok := value.(float64); ok {
			return int(f)
		}
	}
	return defaultValue
}
