package config

import (
	"fmt"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures the database backend
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		switch dbType {
		case DatabaseMemory:
		case DatabasePostgres, DatabaseSQLite:
			if url == "" {
				return fmt.Errorf("database URL is required for %s", dbType)
			}
		default:
			return fmt.Errorf("database type must be 'memory', 'postgres' or 'sqlite', got: %s", dbType)
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithSQLite stores entities in the SQLite database at path.
// Use ":memory:" for a throwaway database.
func WithSQLite(path string) Option {
	return func(c *ServerConfig) error {
		if path == "" {
			return fmt.Errorf("sqlite path cannot be empty")
		}
		c.DatabaseType = DatabaseSQLite
		c.DatabaseURL = "sqlite://" + path
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithAutoMigrate applies the Postgres schema when the repository is built
func WithAutoMigrate(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.AutoMigrate = enabled
		return nil
	}
}

// WithDefaultStorage sets the default storage backend name
func WithDefaultStorage(name string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			return fmt.Errorf("default storage backend name cannot be empty")
		}
		c.DefaultStorageBackend = name
		return nil
	}
}

// WithMemoryStorage adds an in-memory storage backend
// If name is empty, defaults to "memory"
func WithMemoryStorage(name string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "memory"
		}
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{
			Name: name,
			Type: "memory",
		})
		return nil
	}
}

// WithFilesystemStorage adds a filesystem storage backend
// If name is empty, defaults to "fs"
func WithFilesystemStorage(name, baseDir string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "fs"
		}
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{
			Name: name,
			Type: "fs",
			Config: map[string]interface{}{
				"base_dir": baseDir,
			},
		})
		return nil
	}
}

// WithS3Storage adds an S3 storage backend
// If name is empty, defaults to "s3"
func WithS3Storage(name, bucket, region string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "s3"
		}
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		if region == "" {
			region = "us-east-1"
		}
		c.StorageBackends = upsertStorageBackend(c.StorageBackends, StorageBackendConfig{
			Name: name,
			Type: "s3",
			Config: map[string]interface{}{
				"bucket": bucket,
				"region": region,
			},
		})
		return nil
	}
}

// s3Backend returns the named S3 backend config, creating an empty one if needed.
func s3Backend(c *ServerConfig, name string) *StorageBackendConfig {
	for i := range c.StorageBackends {
		if c.StorageBackends[i].Name == name && c.StorageBackends[i].Type == "s3" {
			if c.StorageBackends[i].Config == nil {
				c.StorageBackends[i].Config = map[string]interface{}{}
			}
			return &c.StorageBackends[i]
		}
	}
	c.StorageBackends = append(c.StorageBackends, StorageBackendConfig{
		Name:   name,
		Type:   "s3",
		Config: map[string]interface{}{},
	})
	return &c.StorageBackends[len(c.StorageBackends)-1]
}

// WithS3Credentials sets AWS credentials for S3 storage
func WithS3Credentials(name, accessKeyID, secretAccessKey string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "s3"
		}
		backend := s3Backend(c, name)
		backend.Config["access_key_id"] = accessKeyID
		backend.Config["secret_access_key"] = secretAccessKey
		return nil
	}
}

// WithS3Endpoint sets a custom S3 endpoint (for MinIO, LocalStack, etc.)
func WithS3Endpoint(name, endpoint string, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "s3"
		}
		if endpoint == "" {
			return fmt.Errorf("S3 endpoint cannot be empty")
		}
		backend := s3Backend(c, name)
		backend.Config["endpoint"] = endpoint
		backend.Config["use_path_style"] = usePathStyle
		return nil
	}
}

// WithS3Prefix stores every object of the backend under prefix
func WithS3Prefix(name, prefix string) Option {
	return func(c *ServerConfig) error {
		if name == "" {
			name = "s3"
		}
		s3Backend(c, name).Config["prefix"] = prefix
		return nil
	}
}

// WithFormDisplayPrefix sets the key prefix for form display documents
func WithFormDisplayPrefix(prefix string) Option {
	return func(c *ServerConfig) error {
		c.FormDisplayPrefix = prefix
		return nil
	}
}

// WithEventLogging toggles the logging event sink
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}

// WithMetrics toggles Prometheus collectors. An empty namespace keeps the current one.
func WithMetrics(enabled bool, namespace string) Option {
	return func(c *ServerConfig) error {
		c.EnableMetrics = enabled
		if namespace != "" {
			c.MetricsNamespace = namespace
		}
		return nil
	}
}
