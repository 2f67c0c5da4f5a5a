// Package presets builds ready-to-use services for common setups.
package presets

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/tendant/simple-entity/pkg/simpleentity"
	"github.com/tendant/simple-entity/pkg/simpleentity/config"
	"github.com/tendant/simple-entity/pkg/simpleentity/formdisplay"
	memoryrepo "github.com/tendant/simple-entity/pkg/simpleentity/repo/memory"
	fsstorage "github.com/tendant/simple-entity/pkg/simpleentity/storage/fs"
	memorystorage "github.com/tendant/simple-entity/pkg/simpleentity/storage/memory"
)

// Fixture names created by WithTestFixtures.
const (
	FixtureVocabulary = "tags"
	FixtureBundle     = "article"
)

// NewDevelopment creates a service for local development: an in-memory
// repository with form displays written under ./dev-data.
//
// The returned cleanup function removes the storage directory.
//
//	svc, cleanup, err := presets.NewDevelopment()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
func NewDevelopment(opts ...DevelopmentOption) (simpleentity.Service, func(), error) {
	cfg := &devConfig{
		storageDir: "./dev-data",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	backend, err := fsstorage.New(fsstorage.Config{BaseDir: cfg.storageDir})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create filesystem storage: %w", err)
	}

	svc, err := simpleentity.New(
		simpleentity.WithRepository(memoryrepo.New()),
		simpleentity.WithFormDisplayStore(formdisplay.New(backend)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create service: %w", err)
	}

	cleanup := func() {
		os.RemoveAll(cfg.storageDir)
	}
	return svc, cleanup, nil
}

// NewTesting creates an isolated in-memory service for tests. Event
// delivery is disabled to keep test output quiet.
func NewTesting(t testing.TB, opts ...TestingOption) simpleentity.Service {
	t.Helper()

	cfg := &testConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	svc, err := simpleentity.New(
		simpleentity.WithRepository(memoryrepo.New()),
		simpleentity.WithFormDisplayStore(formdisplay.New(memorystorage.New())),
		simpleentity.WithEventSink(simpleentity.NewNoopEventSink()),
	)
	if err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}

	if cfg.fixtures {
		if err := loadFixtures(context.Background(), svc); err != nil {
			t.Fatalf("failed to load fixtures: %v", err)
		}
	}
	return svc
}

// NewProduction creates a service from the environment. It refuses the
// in-memory database and storage backends.
//
// The caller owns the returned components and must Close them.
func NewProduction(ctx context.Context, opts ...config.Option) (*config.Components, error) {
	all := append([]config.Option{config.WithEnv("")}, opts...)
	cfg, err := config.Load(all...)
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseType == config.DatabaseMemory {
		return nil, fmt.Errorf("production preset requires a persistent database (postgres or sqlite, not memory)")
	}
	for _, backend := range cfg.StorageBackends {
		if backend.Name == cfg.DefaultStorageBackend && backend.Type == "memory" {
			return nil, fmt.Errorf("production preset requires persistent storage (s3 or fs, not memory)")
		}
	}

	return cfg.BuildComponents(ctx)
}

type devConfig struct {
	storageDir string
}

type testConfig struct {
	fixtures bool
}

// DevelopmentOption is a functional option for NewDevelopment
type DevelopmentOption func(*devConfig)

// WithDevStorage sets the development storage directory
func WithDevStorage(dir string) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.storageDir = dir
	}
}

// TestingOption is a functional option for NewTesting
type TestingOption func(*testConfig)

// WithTestFixtures creates the "tags" vocabulary and an "article" node
// bundle with body and tags fields.
func WithTestFixtures() TestingOption {
	return func(cfg *testConfig) {
		cfg.fixtures = true
	}
}

func loadFixtures(ctx context.Context, svc simpleentity.Service) error {
	if _, err := svc.CreateVocabulary(ctx, simpleentity.CreateVocabularyRequest{
		ID:   FixtureVocabulary,
		Name: "Tags",
	}); err != nil {
		return err
	}

	fields := []simpleentity.AddFieldRequest{
		{Bundle: FixtureBundle, FieldName: "field_body", Label: "Body", Type: simpleentity.FieldTypeTextLong},
		{
			Bundle:      FixtureBundle,
			FieldName:   "field_tags",
			Label:       "Tags",
			Type:        simpleentity.FieldTypeEntityReference,
			Cardinality: -1,
			Settings:    map[string]interface{}{"target_type": simpleentity.EntityTypeTerm},
		},
	}
	for _, req := range fields {
		if _, err := svc.AddField(ctx, req); err != nil {
			return err
		}
	}
	return nil
}
