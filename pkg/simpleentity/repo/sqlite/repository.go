package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/tendant/simple-entity/pkg/simpleentity"
)

// Repository implements simpleentity.Repository using SQLite
type Repository struct {
	db *sql.DB
}

// New creates a repository on a database opened with Open
func New(db *sql.DB) simpleentity.Repository {
	return &Repository{db: db}
}

// handleSQLiteError maps constraint failures to sentinel errors.
// SQLite does not name the violated constraint, so each call site
// passes the errors that apply to its statement.
func handleSQLiteError(operation string, err error, duplicate, missingRef error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			if duplicate != nil {
				return fmt.Errorf("%s: %w", operation, duplicate)
			}
			return fmt.Errorf("%s: duplicate entry", operation)
		case sqlite3.ErrConstraintForeignKey:
			if missingRef != nil {
				return fmt.Errorf("%s: %w", operation, missingRef)
			}
			return fmt.Errorf("%s: referenced record not found", operation)
		case sqlite3.ErrConstraintNotNull:
			return fmt.Errorf("%s: required field is missing: %v", operation, err)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

func notFound(operation string, err error, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return handleSQLiteError(operation, err, nil, nil)
}

func (r *Repository) execOne(ctx context.Context, operation string, missing error, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return handleSQLiteError(operation, err, nil, nil)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return handleSQLiteError(operation, err, nil, nil)
	}
	if n == 0 {
		return missing
	}
	return nil
}

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func encodeFields(fields map[string]interface{}) (string, error) {
	if fields == nil {
		return "{}", nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeFields(data sql.NullString) (map[string]interface{}, error) {
	fields := make(map[string]interface{})
	if !data.Valid || data.String == "" {
		return fields, nil
	}
	if err := json.Unmarshal([]byte(data.String), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// Vocabulary operations

func (r *Repository) CreateVocabulary(ctx context.Context, v *simpleentity.Vocabulary) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entity_vocabulary (id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		v.ID, v.Name, v.Description, toNanos(v.CreatedAt), toNanos(v.UpdatedAt))
	if err != nil {
		return handleSQLiteError("create vocabulary", err, simpleentity.ErrVocabularyExists, nil)
	}
	return nil
}

func scanVocabulary(row interface{ Scan(...interface{}) error }) (*simpleentity.Vocabulary, error) {
	var v simpleentity.Vocabulary
	var created, updated int64
	if err := row.Scan(&v.ID, &v.Name, &v.Description, &created, &updated); err != nil {
		return nil, err
	}
	v.CreatedAt, v.UpdatedAt = fromNanos(created), fromNanos(updated)
	return &v, nil
}

func (r *Repository) GetVocabulary(ctx context.Context, id string) (*simpleentity.Vocabulary, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM entity_vocabulary WHERE id = ?`, id)
	v, err := scanVocabulary(row)
	if err != nil {
		return nil, notFound("get vocabulary", err, simpleentity.ErrVocabularyNotFound)
	}
	return v, nil
}

func (r *Repository) ListVocabularies(ctx context.Context) ([]*simpleentity.Vocabulary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM entity_vocabulary ORDER BY id`)
	if err != nil {
		return nil, handleSQLiteError("list vocabularies", err, nil, nil)
	}
	defer rows.Close()

	var result []*simpleentity.Vocabulary
	for rows.Next() {
		v, err := scanVocabulary(rows)
		if err != nil {
			return nil, handleSQLiteError("scan vocabulary", err, nil, nil)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

// Term operations

const termColumns = `id, vocabulary_id, name, description, weight, created_at, updated_at`

func scanTerm(row interface{ Scan(...interface{}) error }) (*simpleentity.Term, error) {
	var t simpleentity.Term
	var created, updated int64
	if err := row.Scan(&t.ID, &t.VocabularyID, &t.Name, &t.Description, &t.Weight, &created, &updated); err != nil {
		return nil, err
	}
	t.CreatedAt, t.UpdatedAt = fromNanos(created), fromNanos(updated)
	return &t, nil
}

func (r *Repository) CreateTerm(ctx context.Context, t *simpleentity.Term) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entity_term (`+termColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.VocabularyID, t.Name, t.Description, t.Weight, toNanos(t.CreatedAt), toNanos(t.UpdatedAt))
	if err != nil {
		return handleSQLiteError("create term", err, simpleentity.ErrTermExists, simpleentity.ErrVocabularyNotFound)
	}
	return nil
}

func (r *Repository) GetTerm(ctx context.Context, id uuid.UUID) (*simpleentity.Term, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+termColumns+` FROM entity_term WHERE id = ?`, id.String())
	t, err := scanTerm(row)
	if err != nil {
		return nil, notFound("get term", err, simpleentity.ErrTermNotFound)
	}
	return t, nil
}

func (r *Repository) FindTerms(ctx context.Context, q simpleentity.TermQuery) ([]*simpleentity.Term, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.VocabularyID != "" {
		where = append(where, "vocabulary_id = ?")
		args = append(args, q.VocabularyID)
	}
	if q.Name != "" {
		where = append(where, "name = ?")
		args = append(args, q.Name)
	}

	query := `SELECT ` + termColumns + ` FROM entity_term`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, handleSQLiteError("find terms", err, nil, nil)
	}
	defer rows.Close()

	var result []*simpleentity.Term
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, handleSQLiteError("scan term", err, nil, nil)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *Repository) DeleteTerm(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, "delete term", simpleentity.ErrTermNotFound,
		`DELETE FROM entity_term WHERE id = ?`, id.String())
}

// Node operations

const nodeColumns = `id, bundle, title, published, fields, created_at, updated_at`

func scanNode(row interface{ Scan(...interface{}) error }) (*simpleentity.Node, error) {
	var n simpleentity.Node
	var fields sql.NullString
	var created, updated int64
	if err := row.Scan(&n.ID, &n.Bundle, &n.Title, &n.Published, &fields, &created, &updated); err != nil {
		return nil, err
	}
	decoded, err := decodeFields(fields)
	if err != nil {
		return nil, fmt.Errorf("decode fields of node %s: %w", n.ID, err)
	}
	n.Fields = decoded
	n.CreatedAt, n.UpdatedAt = fromNanos(created), fromNanos(updated)
	return &n, nil
}

func (r *Repository) validateNodeFields(ctx context.Context, node *simpleentity.Node) error {
	if len(node.Fields) == 0 {
		return nil
	}
	defs, err := r.ListFieldDefinitions(ctx, simpleentity.EntityTypeNode, node.Bundle)
	if err != nil {
		return err
	}
	return simpleentity.ValidateNodeFields(defs, node.Fields)
}

func (r *Repository) CreateNode(ctx context.Context, n *simpleentity.Node) error {
	if err := r.validateNodeFields(ctx, n); err != nil {
		return err
	}
	fields, err := encodeFields(n.Fields)
	if err != nil {
		return fmt.Errorf("encode node fields: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO entity_node (`+nodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID.String(), n.Bundle, n.Title, n.Published, fields, toNanos(n.CreatedAt), toNanos(n.UpdatedAt))
	if err != nil {
		return handleSQLiteError("create node", err, nil, nil)
	}
	return nil
}

func (r *Repository) GetNode(ctx context.Context, id uuid.UUID) (*simpleentity.Node, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM entity_node WHERE id = ?`, id.String())
	n, err := scanNode(row)
	if err != nil {
		return nil, notFound("get node", err, simpleentity.ErrNodeNotFound)
	}
	return n, nil
}

func (r *Repository) GetNodes(ctx context.Context, ids []uuid.UUID) ([]*simpleentity.Node, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id.String()
	}

	query := `SELECT ` + nodeColumns + ` FROM entity_node WHERE id IN (` +
		strings.Join(placeholders, ", ") + `) ORDER BY created_at, id`
	return r.queryNodes(ctx, "get nodes", query, args...)
}

func (r *Repository) UpdateNode(ctx context.Context, n *simpleentity.Node) error {
	if err := r.validateNodeFields(ctx, n); err != nil {
		return err
	}
	fields, err := encodeFields(n.Fields)
	if err != nil {
		return fmt.Errorf("encode node fields: %w", err)
	}

	return r.execOne(ctx, "update node", simpleentity.ErrNodeNotFound, `
		UPDATE entity_node SET bundle = ?, title = ?, published = ?, fields = ?, updated_at = ?
		WHERE id = ?`,
		n.Bundle, n.Title, n.Published, fields, toNanos(n.UpdatedAt), n.ID.String())
}

func (r *Repository) DeleteNode(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, "delete node", simpleentity.ErrNodeNotFound,
		`DELETE FROM entity_node WHERE id = ?`, id.String())
}

func (r *Repository) ListNodes(ctx context.Context, bundle string) ([]*simpleentity.Node, error) {
	if bundle == "" {
		return r.queryNodes(ctx, "list nodes", `SELECT `+nodeColumns+` FROM entity_node ORDER BY created_at, id`)
	}
	return r.queryNodes(ctx, "list nodes",
		`SELECT `+nodeColumns+` FROM entity_node WHERE bundle = ? ORDER BY created_at, id`, bundle)
}

func (r *Repository) queryNodes(ctx context.Context, operation, query string, args ...interface{}) ([]*simpleentity.Node, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, handleSQLiteError(operation, err, nil, nil)
	}
	defer rows.Close()

	var result []*simpleentity.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, handleSQLiteError("scan node", err, nil, nil)
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

// Paragraph operations

func (r *Repository) CreateParagraph(ctx context.Context, p *simpleentity.Paragraph) error {
	fields, err := encodeFields(p.Fields)
	if err != nil {
		return fmt.Errorf("encode paragraph fields: %w", err)
	}
	var parentID sql.NullString
	if p.ParentID != nil {
		parentID = sql.NullString{String: p.ParentID.String(), Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO entity_paragraph (id, type, parent_id, parent_field, fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.Type, parentID, p.ParentField, fields, toNanos(p.CreatedAt), toNanos(p.UpdatedAt))
	if err != nil {
		return handleSQLiteError("create paragraph", err, nil, nil)
	}
	return nil
}

func (r *Repository) GetParagraph(ctx context.Context, id uuid.UUID) (*simpleentity.Paragraph, error) {
	var p simpleentity.Paragraph
	var parentID, fields sql.NullString
	var created, updated int64

	err := r.db.QueryRowContext(ctx, `
		SELECT id, type, parent_id, parent_field, fields, created_at, updated_at
		FROM entity_paragraph WHERE id = ?`, id.String()).Scan(
		&p.ID, &p.Type, &parentID, &p.ParentField, &fields, &created, &updated)
	if err != nil {
		return nil, notFound("get paragraph", err, simpleentity.ErrParagraphNotFound)
	}

	if parentID.Valid {
		pid, err := uuid.Parse(parentID.String)
		if err != nil {
			return nil, fmt.Errorf("parse parent id of paragraph %s: %w", id, err)
		}
		p.ParentID = &pid
	}
	if p.Fields, err = decodeFields(fields); err != nil {
		return nil, fmt.Errorf("decode fields of paragraph %s: %w", id, err)
	}
	p.CreatedAt, p.UpdatedAt = fromNanos(created), fromNanos(updated)
	return &p, nil
}

func (r *Repository) DeleteParagraph(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, "delete paragraph", simpleentity.ErrParagraphNotFound,
		`DELETE FROM entity_paragraph WHERE id = ?`, id.String())
}

// Field operations

func (r *Repository) CreateFieldStorage(ctx context.Context, s *simpleentity.FieldStorage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entity_field_storage (entity_type, field_name, type, cardinality, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.EntityType, s.FieldName, string(s.Type), s.Cardinality, toNanos(s.CreatedAt))
	if err != nil {
		return handleSQLiteError("create field storage", err, simpleentity.ErrFieldExists, nil)
	}
	return nil
}

func (r *Repository) GetFieldStorage(ctx context.Context, entityType, fieldName string) (*simpleentity.FieldStorage, error) {
	var s simpleentity.FieldStorage
	var fieldType string
	var created int64
	err := r.db.QueryRowContext(ctx, `
		SELECT entity_type, field_name, type, cardinality, created_at
		FROM entity_field_storage WHERE entity_type = ? AND field_name = ?`, entityType, fieldName).Scan(
		&s.EntityType, &s.FieldName, &fieldType, &s.Cardinality, &created)
	if err != nil {
		return nil, notFound("get field storage", err, simpleentity.ErrFieldNotFound)
	}
	s.Type = simpleentity.FieldType(fieldType)
	s.CreatedAt = fromNanos(created)
	return &s, nil
}

const definitionColumns = `entity_type, bundle, field_name, label, type, required, settings, created_at, updated_at`

func scanDefinition(row interface{ Scan(...interface{}) error }) (*simpleentity.FieldDefinition, error) {
	var d simpleentity.FieldDefinition
	var fieldType string
	var settings sql.NullString
	var created, updated int64
	if err := row.Scan(&d.EntityType, &d.Bundle, &d.FieldName, &d.Label, &fieldType, &d.Required, &settings, &created, &updated); err != nil {
		return nil, err
	}
	if settings.Valid && settings.String != "" {
		if err := json.Unmarshal([]byte(settings.String), &d.Settings); err != nil {
			return nil, fmt.Errorf("decode settings of field %s: %w", d.FieldName, err)
		}
	}
	d.Type = simpleentity.FieldType(fieldType)
	d.CreatedAt, d.UpdatedAt = fromNanos(created), fromNanos(updated)
	return &d, nil
}

func encodeSettings(settings map[string]interface{}) (sql.NullString, error) {
	if settings == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func (r *Repository) CreateFieldDefinition(ctx context.Context, d *simpleentity.FieldDefinition) error {
	settings, err := encodeSettings(d.Settings)
	if err != nil {
		return fmt.Errorf("encode field settings: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO entity_field_definition (`+definitionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.EntityType, d.Bundle, d.FieldName, d.Label, string(d.Type), d.Required, settings,
		toNanos(d.CreatedAt), toNanos(d.UpdatedAt))
	if err != nil {
		return handleSQLiteError("create field definition", err, simpleentity.ErrFieldExists, simpleentity.ErrFieldNotFound)
	}
	return nil
}

func (r *Repository) GetFieldDefinition(ctx context.Context, entityType, bundle, fieldName string) (*simpleentity.FieldDefinition, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+definitionColumns+` FROM entity_field_definition
		WHERE entity_type = ? AND bundle = ? AND field_name = ?`, entityType, bundle, fieldName)
	d, err := scanDefinition(row)
	if err != nil {
		return nil, notFound("get field definition", err, simpleentity.ErrFieldNotFound)
	}
	return d, nil
}

func (r *Repository) UpdateFieldDefinition(ctx context.Context, d *simpleentity.FieldDefinition) error {
	settings, err := encodeSettings(d.Settings)
	if err != nil {
		return fmt.Errorf("encode field settings: %w", err)
	}

	return r.execOne(ctx, "update field definition", simpleentity.ErrFieldNotFound, `
		UPDATE entity_field_definition SET label = ?, required = ?, settings = ?, updated_at = ?
		WHERE entity_type = ? AND bundle = ? AND field_name = ?`,
		d.Label, d.Required, settings, toNanos(d.UpdatedAt), d.EntityType, d.Bundle, d.FieldName)
}

func (r *Repository) DeleteFieldDefinition(ctx context.Context, entityType, bundle, fieldName string) error {
	return r.execOne(ctx, "delete field definition", simpleentity.ErrFieldNotFound,
		`DELETE FROM entity_field_definition WHERE entity_type = ? AND bundle = ? AND field_name = ?`,
		entityType, bundle, fieldName)
}

func (r *Repository) ListFieldDefinitions(ctx context.Context, entityType, bundle string) ([]*simpleentity.FieldDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+definitionColumns+` FROM entity_field_definition
		WHERE entity_type = ? AND bundle = ? ORDER BY field_name`, entityType, bundle)
	if err != nil {
		return nil, handleSQLiteError("list field definitions", err, nil, nil)
	}
	defer rows.Close()

	var result []*simpleentity.FieldDefinition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, handleSQLiteError("scan field definition", err, nil, nil)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}
