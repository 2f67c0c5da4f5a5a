package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// WithEnv applies environment variable overrides using the provided prefix.
//
// Server:
//
//	PORT        - Server port (default: "8080")
//	ENVIRONMENT - Runtime environment (default: "development")
//
// Database:
//
//	DATABASE_URL    - One of:
//	                  - empty or "memory" for the in-memory repository
//	                  - "postgres://..." or "postgresql://..."
//	                  - "sqlite:///path/to/entity.db" or "sqlite://:memory:"
//	DB_SCHEMA       - Postgres search_path schema
//	DB_AUTO_MIGRATE - Apply the Postgres schema on startup
//
// Configuration storage:
//
//	STORAGE_URL         - "memory://" (default), "file:///path/to/config" or
//	                      "s3://bucket?region=us-east-1&endpoint=http://localhost:9000"
//	FORM_DISPLAY_PREFIX - Key prefix for form display documents
//
// Events:
//
//	ENABLE_EVENT_LOGGING - Log every entity event (default: true)
//	ENABLE_METRICS       - Count entity events in Prometheus collectors
//	METRICS_NAMESPACE    - Prometheus namespace (default: "simple_entity")
func WithEnv(prefix string) Option {
	return func(c *ServerConfig) error {
		if v, ok := lookupEnv(prefix, "PORT"); ok && v != "" {
			c.Port = v
		}
		if v, ok := lookupEnv(prefix, "ENVIRONMENT"); ok && v != "" {
			c.Environment = v
		}

		if err := applyDatabaseEnv(prefix, c); err != nil {
			return err
		}

		if err := applyStorageEnv(prefix, c); err != nil {
			return err
		}
		if v, ok := lookupEnv(prefix, "FORM_DISPLAY_PREFIX"); ok {
			c.FormDisplayPrefix = v
		}

		if v, ok, err := parseBoolEnv(prefix, "ENABLE_EVENT_LOGGING"); err != nil {
			return err
		} else if ok {
			c.EnableEventLogging = v
		}
		if v, ok, err := parseBoolEnv(prefix, "ENABLE_METRICS"); err != nil {
			return err
		} else if ok {
			c.EnableMetrics = v
		}
		if v, ok := lookupEnv(prefix, "METRICS_NAMESPACE"); ok && v != "" {
			c.MetricsNamespace = v
		}

		return nil
	}
}

// applyDatabaseEnv applies database configuration from environment
func applyDatabaseEnv(prefix string, c *ServerConfig) error {
	if v, ok := lookupEnv(prefix, "DB_SCHEMA"); ok {
		c.DBSchema = v
	}
	if v, ok, err := parseBoolEnv(prefix, "DB_AUTO_MIGRATE"); err != nil {
		return err
	} else if ok {
		c.AutoMigrate = v
	}

	dbURL, _ := lookupEnv(prefix, "DATABASE_URL")
	return applyDatabaseURL(dbURL, c)
}

// WithDatabaseURL selects the repository from a connection string, the
// same way DATABASE_URL does.
func WithDatabaseURL(dbURL string) Option {
	return func(c *ServerConfig) error {
		return applyDatabaseURL(dbURL, c)
	}
}

func applyDatabaseURL(dbURL string, c *ServerConfig) error {
	if dbURL == "" || dbURL == "memory" {
		c.DatabaseType = DatabaseMemory
		c.DatabaseURL = ""
		return nil
	}

	switch {
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = DatabasePostgres
	case strings.HasPrefix(dbURL, "sqlite://"):
		if SQLitePath(dbURL) == "" {
			return fmt.Errorf("sqlite path cannot be empty in DATABASE_URL")
		}
		c.DatabaseType = DatabaseSQLite
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory', 'postgresql://...' or 'sqlite://...')", dbURL)
	}
	c.DatabaseURL = dbURL
	return nil
}

// applyStorageEnv applies storage configuration from environment
func applyStorageEnv(prefix string, c *ServerConfig) error {
	storageURL, _ := lookupEnv(prefix, "STORAGE_URL")
	return applyStorageURL(storageURL, c)
}

// WithStorageURL selects the default configuration storage backend the
// same way STORAGE_URL does.
func WithStorageURL(storageURL string) Option {
	return func(c *ServerConfig) error {
		return applyStorageURL(storageURL, c)
	}
}

func applyStorageURL(storageURL string, c *ServerConfig) error {
	if storageURL == "" || storageURL == "memory" || storageURL == "memory://" {
		c.DefaultStorageBackend = "memory"
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{
			Name: "memory",
			Type: "memory",
		})
		return nil
	}

	switch {
	case strings.HasPrefix(storageURL, "file://"):
		return applyFilesystemStorage(storageURL, c)
	case strings.HasPrefix(storageURL, "s3://"):
		return applyS3Storage(storageURL, c)
	}

	return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", storageURL)
}

// applyFilesystemStorage configures filesystem storage from URL
// Format: file:///path/to/config
func applyFilesystemStorage(storageURL string, c *ServerConfig) error {
	path := strings.TrimPrefix(storageURL, "file://")
	if path == "" {
		return fmt.Errorf("filesystem path cannot be empty in STORAGE_URL")
	}

	c.DefaultStorageBackend = "fs"
	c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{
		Name: "fs",
		Type: "fs",
		Config: map[string]interface{}{
			"base_dir": path,
		},
	})
	return nil
}

// applyS3Storage configures S3 storage from URL
// Format: s3://bucket/prefix?region=us-east-1&endpoint=http://localhost:9000&path_style=true
func applyS3Storage(storageURL string, c *ServerConfig) error {
	u, err := url.Parse(storageURL)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
	}

	backend := StorageBackendConfig{
		Name: "s3",
		Type: "s3",
		Config: map[string]interface{}{
			"bucket": u.Host,
			"region": "us-east-1",
		},
	}
	if p := strings.Trim(u.Path, "/"); p != "" {
		backend.Config["prefix"] = p + "/"
	}

	if accessKey, ok := os.LookupEnv("AWS_ACCESS_KEY_ID"); ok && accessKey != "" {
		backend.Config["access_key_id"] = accessKey
	}
	if secretKey, ok := os.LookupEnv("AWS_SECRET_ACCESS_KEY"); ok && secretKey != "" {
		backend.Config["secret_access_key"] = secretKey
	}
	if region, ok := os.LookupEnv("AWS_REGION"); ok && region != "" {
		backend.Config["region"] = region
	}

	query := u.Query()
	if region := query.Get("region"); region != "" {
		backend.Config["region"] = region
	}
	if endpoint := query.Get("endpoint"); endpoint != "" {
		backend.Config["endpoint"] = endpoint
		backend.Config["use_path_style"] = true
	}
	if v := query.Get("path_style"); v != "" {
		pathStyle, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid path_style in STORAGE_URL: %w", err)
		}
		backend.Config["use_path_style"] = pathStyle
	}
	if v := query.Get("create_bucket"); v != "" {
		create, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid create_bucket in STORAGE_URL: %w", err)
		}
		backend.Config["create_bucket_if_not_exist"] = create
	}

	c.DefaultStorageBackend = "s3"
	c.StorageBackends = upsertStorageBackend(c.StorageBackends, backend)
	return nil
}

func lookupEnv(prefix, key string) (string, bool) {
	return os.LookupEnv(prefix + key)
}

func parseBoolEnv(prefix, key string) (bool, bool, error) {
	raw, ok := lookupEnv(prefix, key)
	if !ok || raw == "" {
		return false, false, nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("invalid boolean for %s%s: %w", prefix, key, err)
	}
	return parsed, true, nil
}

func upsertStorageBackend(backends []StorageBackendConfig, backend StorageBackendConfig) []StorageBackendConfig {
	if backend.Config == nil {
		backend.Config = map[string]interface{}{}
	}
	for i := range backends {
		if backends[i].Name == backend.Name {
			backends[i] = backend
			return backends
		}
	}
	return append(backends, backend)
}
