package postgres

import (
	"context"
	"fmt"
)

// Schema creates the tables used by Repository. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS entity_vocabulary (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS entity_term (
	id            UUID PRIMARY KEY,
	vocabulary_id TEXT NOT NULL,
	name          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	weight        INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT entity_term_vocabulary_fkey FOREIGN KEY (vocabulary_id)
		REFERENCES entity_vocabulary (id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS entity_term_vocabulary_name_idx ON entity_term (vocabulary_id, name);

CREATE TABLE IF NOT EXISTS entity_node (
	id         UUID PRIMARY KEY,
	bundle     TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	published  BOOLEAN NOT NULL DEFAULT false,
	fields     JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS entity_node_bundle_idx ON entity_node (bundle);

CREATE TABLE IF NOT EXISTS entity_paragraph (
	id           UUID PRIMARY KEY,
	type         TEXT NOT NULL,
	parent_id    UUID,
	parent_field TEXT NOT NULL DEFAULT '',
	fields       JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS entity_field_storage (
	entity_type TEXT NOT NULL,
	field_name  TEXT NOT NULL,
	type        TEXT NOT NULL,
	cardinality INTEGER NOT NULL DEFAULT 1,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT entity_field_storage_pkey PRIMARY KEY (entity_type, field_name)
);

CREATE TABLE IF NOT EXISTS entity_field_definition (
	entity_type TEXT NOT NULL,
	bundle      TEXT NOT NULL,
	field_name  TEXT NOT NULL,
	label       TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL,
	required    BOOLEAN NOT NULL DEFAULT false,
	settings    JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT entity_field_definition_pkey PRIMARY KEY (entity_type, bundle, field_name),
	CONSTRAINT entity_field_definition_storage_fkey FOREIGN KEY (entity_type, field_name)
		REFERENCES entity_field_storage (entity_type, field_name)
);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
