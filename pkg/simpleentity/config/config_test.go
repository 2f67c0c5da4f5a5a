package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-entity/pkg/simpleentity"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DatabaseMemory, cfg.DatabaseType)
	assert.Equal(t, "memory", cfg.DefaultStorageBackend)
	assert.Equal(t, "config/", cfg.FormDisplayPrefix)
	assert.True(t, cfg.EnableEventLogging)
	assert.False(t, cfg.EnableMetrics)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr string
	}{
		{"unknown database", []Option{func(c *ServerConfig) error { c.DatabaseType = "mysql"; return nil }}, "database_type"},
		{"postgres without url", []Option{func(c *ServerConfig) error { c.DatabaseType = DatabasePostgres; return nil }}, "database_url"},
		{"missing default backend", []Option{WithDefaultStorage("s3")}, "not found"},
		{"metrics without namespace", []Option{func(c *ServerConfig) error {
			c.EnableMetrics = true
			c.MetricsNamespace = ""
			return nil
		}}, "namespace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOptions(t *testing.T) {
	cfg, err := Load(
		WithPort("9000"),
		WithEnvironment("testing"),
		WithSQLite(":memory:"),
		WithFilesystemStorage("", t.TempDir()),
		WithS3Storage("archive", "entity-config", ""),
		WithS3Credentials("archive", "key", "secret"),
		WithS3Endpoint("archive", "http://localhost:9000", true),
		WithS3Prefix("archive", "displays/"),
		WithDefaultStorage("fs"),
		WithMetrics(true, "cms"),
		WithEventLogging(false),
	)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "testing", cfg.Environment)
	assert.Equal(t, DatabaseSQLite, cfg.DatabaseType)
	assert.Equal(t, ":memory:", SQLitePath(cfg.DatabaseURL))
	assert.Equal(t, "fs", cfg.DefaultStorageBackend)
	assert.True(t, cfg.EnableMetrics)
	assert.Equal(t, "cms", cfg.MetricsNamespace)
	assert.False(t, cfg.EnableEventLogging)

	archive := findBackend(cfg, "archive")
	require.NotNil(t, archive)
	assert.Equal(t, "s3", archive.Type)
	assert.Equal(t, "us-east-1", archive.Config["region"])
	assert.Equal(t, "key", archive.Config["access_key_id"])
	assert.Equal(t, "http://localhost:9000", archive.Config["endpoint"])
	assert.Equal(t, true, archive.Config["use_path_style"])
	assert.Equal(t, "displays/", archive.Config["prefix"])
}

func TestOptionErrors(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"empty port", WithPort("")},
		{"empty environment", WithEnvironment("")},
		{"unknown database", WithDatabase("mysql", "mysql://localhost")},
		{"postgres without url", WithDatabase(DatabasePostgres, "")},
		{"sqlite without path", WithSQLite("")},
		{"empty default storage", WithDefaultStorage("")},
		{"fs without dir", WithFilesystemStorage("fs", "")},
		{"s3 without bucket", WithS3Storage("s3", "", "us-east-1")},
		{"s3 without endpoint", WithS3Endpoint("s3", "", true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.opt)
			assert.Error(t, err)
		})
	}
}

func TestBuildComponents(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		opts []Option
	}{
		{"memory", nil},
		{"sqlite", []Option{WithSQLite(":memory:")}},
		{"filesystem storage", []Option{WithFilesystemStorage("fs", t.TempDir()), WithDefaultStorage("fs")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(append(tt.opts, WithMetrics(true, ""))...)
			require.NoError(t, err)

			components, err := cfg.BuildComponents(ctx)
			require.NoError(t, err)
			t.Cleanup(components.Close)

			require.NotNil(t, components.Service)
			require.NotNil(t, components.Metrics)
			require.Contains(t, components.BlobStores, cfg.DefaultStorageBackend)

			svc := components.Service
			_, err = svc.CreateVocabulary(ctx, simpleentity.CreateVocabularyRequest{ID: "tags", Name: "Tags"})
			require.NoError(t, err)
			_, err = svc.AddField(ctx, simpleentity.AddFieldRequest{
				Bundle:    "article",
				FieldName: "field_subtitle",
				Label:     "Subtitle",
				Type:      simpleentity.FieldTypeString,
			})
			require.NoError(t, err)

			display, err := components.Displays.Load(ctx, simpleentity.EntityTypeNode, "article", simpleentity.DefaultFormMode)
			require.NoError(t, err)
			assert.Contains(t, display.Components, "field_subtitle")

			id, err := svc.ResolveTerm(ctx, "tags", "go")
			require.NoError(t, err)
			name, err := svc.GetTermName(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "go", name)
		})
	}
}

func TestBuildService_UnsupportedBackend(t *testing.T) {
	cfg, err := Load(func(c *ServerConfig) error {
		c.StorageBackends = append(c.StorageBackends, StorageBackendConfig{Name: "gcs", Type: "gcs"})
		return nil
	})
	require.NoError(t, err)

	_, err = cfg.BuildService()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage backend type")
}

func TestGetHelpers(t *testing.T) {
	config := map[string]interface{}{
		"s":      "value",
		"b":      true,
		"bs":     "true",
		"i":      7,
		"is":     "8",
		"f":      float64(9),
		"broken": []string{"x"},
	}

	assert.Equal(t, "value", getString(config, "s", "d"))
	assert.Equal(t, "d", getString(config, "missing", "d"))
	assert.True(t, getBool(config, "b", false))
	assert.True(t, getBool(config, "bs", false))
	assert.False(t, getBool(config, "broken", false))
	assert.Equal(t, 7, getInt(config, "i", 0))
	assert.Equal(t, 8, getInt(config, "is", 0))
	assert.Equal(t, 9, getInt(config, "f", 0))
	assert.Equal(t, 3, getInt(config, "broken", 3))
}

func TestURLOptions(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(WithDatabaseURL("sqlite://"+dir+"/entity.db"), WithStorageURL("file://"+dir+"/config"))
	require.NoError(t, err)

	assert.Equal(t, DatabaseSQLite, cfg.DatabaseType)
	assert.Equal(t, dir+"/entity.db", SQLitePath(cfg.DatabaseURL))
	assert.Equal(t, "fs", cfg.DefaultStorageBackend)

	components, err := cfg.BuildComponents(context.Background())
	require.NoError(t, err)
	defer components.Close()
	assert.Contains(t, components.BlobStores, "fs")

	_, err = Load(WithDatabaseURL("mysql://localhost"))
	assert.Error(t, err)
	_, err = Load(WithStorageURL("gs://bucket"))
	assert.Error(t, err)
}
