// Package formdisplay persists form displays as YAML configuration
// documents in a simpleentity.BlobStore.
package formdisplay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
	"github.com/tendant/simple-entity/pkg/simpleentity"
)

// MimeType is recorded on every uploaded display document.
const MimeType = "application/yaml"

// ConfigName returns the document name of a display, for example
// "core.entity_form_display.node.article.default".
func ConfigName(entityType, bundle, mode string) string {
	return fmt.Sprintf("core.entity_form_display.%s.%s.%s", entityType, bundle, mode)
}

// Store implements simpleentity.FormDisplayStore on top of a BlobStore.
type Store struct {
	blobs  simpleentity.BlobStore
	prefix string
}

// Option configures a Store
type Option func(*Store)

// WithPrefix places documents under a key prefix such as "config/".
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a display store backed by blobs.
func New(blobs simpleentity.BlobStore, opts ...Option) *Store {
	s := &Store{blobs: blobs}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) objectKey(entityType, bundle, mode string) string {
	return s.prefix + ConfigName(entityType, bundle, mode) + ".yml"
}

// Load returns the stored display, or a new empty display when the
// document does not exist yet.
func (s *Store) Load(ctx context.Context, entityType, bundle, mode string) (*simpleentity.FormDisplay, error) {
	reader, err := s.blobs.Download(ctx, s.objectKey(entityType, bundle, mode))
	if errors.Is(err, simpleentity.ErrObjectNotFound) {
		return simpleentity.NewFormDisplay(entityType, bundle, mode), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load form display %s: %w", ConfigName(entityType, bundle, mode), err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read form display %s: %w", ConfigName(entityType, bundle, mode), err)
	}

	display, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode form display %s: %w", ConfigName(entityType, bundle, mode), err)
	}
	// The key is authoritative for the target
	display.EntityType = entityType
	display.Bundle = bundle
	display.Mode = mode
	return display, nil
}

// Save writes the display document.
func (s *Store) Save(ctx context.Context, display *simpleentity.FormDisplay) error {
	data, err := Encode(display)
	if err != nil {
		return fmt.Errorf("encode form display %s: %w", ConfigName(display.EntityType, display.Bundle, display.Mode), err)
	}

	return s.blobs.UploadWithParams(ctx, bytes.NewReader(data), simpleentity.UploadParams{
		ObjectKey: s.objectKey(display.EntityType, display.Bundle, display.Mode),
		MimeType:  MimeType,
	})
}

// Delete removes the display document. A missing document is not an error.
func (s *Store) Delete(ctx context.Context, entityType, bundle, mode string) error {
	err := s.blobs.Delete(ctx, s.objectKey(entityType, bundle, mode))
	if err != nil && !errors.Is(err, simpleentity.ErrObjectNotFound) {
		return err
	}
	return nil
}

// Encode renders a display as YAML.
func Encode(display *simpleentity.FormDisplay) ([]byte, error) {
	return yaml.Marshal(display)
}

// Decode parses a YAML display document.
func Decode(data []byte) (*simpleentity.FormDisplay, error) {
	var display simpleentity.FormDisplay
	if err := yaml.Unmarshal(data, &display); err != nil {
		return nil, err
	}
	if display.Components == nil {
		display.Components = make(map[string]simpleentity.FormComponent)
	}
	return &display, nil
}
