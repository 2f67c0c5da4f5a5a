// Package sqlite implements simpleentity.Repository on an embedded
// SQLite database, for single-node deployments and the CLI.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Schema creates the tables used by Repository. Timestamps are stored as
// Unix nanoseconds so that ordering is exact.
const Schema = `
CREATE TABLE IF NOT EXISTS entity_vocabulary (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS entity_term (
	id            TEXT PRIMARY KEY,
	vocabulary_id TEXT NOT NULL REFERENCES entity_vocabulary (id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	weight        INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS entity_term_vocabulary_name_idx ON entity_term (vocabulary_id, name);

CREATE TABLE IF NOT EXISTS entity_node (
	id         TEXT PRIMARY KEY,
	bundle     TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	published  INTEGER NOT NULL DEFAULT 0,
	fields     TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS entity_node_bundle_idx ON entity_node (bundle);

CREATE TABLE IF NOT EXISTS entity_paragraph (
	id           TEXT PRIMARY KEY,
	type         TEXT NOT NULL,
	parent_id    TEXT,
	parent_field TEXT NOT NULL DEFAULT '',
	fields       TEXT NOT NULL DEFAULT '{}',
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS entity_field_storage (
	entity_type TEXT NOT NULL,
	field_name  TEXT NOT NULL,
	type        TEXT NOT NULL,
	cardinality INTEGER NOT NULL DEFAULT 1,
	created_at  INTEGER NOT NULL,
	PRIMARY KEY (entity_type, field_name)
);

CREATE TABLE IF NOT EXISTS entity_field_definition (
	entity_type TEXT NOT NULL,
	bundle      TEXT NOT NULL,
	field_name  TEXT NOT NULL,
	label       TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL,
	required    INTEGER NOT NULL DEFAULT 0,
	settings    TEXT,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL,
	PRIMARY KEY (entity_type, bundle, field_name),
	FOREIGN KEY (entity_type, field_name) REFERENCES entity_field_storage (entity_type, field_name)
);
`

// Open opens (creating if needed) the database at dsn, enables foreign
// keys and applies Schema. ":memory:" opens a private in-memory database.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	inMemory := dsn == ":memory:" || strings.Contains(dsn, "mode=memory")

	if !inMemory {
		path := strings.TrimPrefix(strings.SplitN(dsn, "?", 2)[0], "file:")
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory '%s': %w", dir, err)
			}
		}
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	params := "_foreign_keys=on"
	if !inMemory {
		params += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn+sep+params)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if inMemory {
		// every connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set SQLite synchronous pragma: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify database connection: %w", err)
	}

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return db, nil
}
