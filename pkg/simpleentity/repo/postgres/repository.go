package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-entity/pkg/simpleentity"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simpleentity.Repository using PostgreSQL.
// Node and paragraph field values are stored as JSONB.
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) simpleentity.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) simpleentity.Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			switch {
			case strings.Contains(pgErr.ConstraintName, "vocabulary"):
				return fmt.Errorf("%s: %w", operation, simpleentity.ErrVocabularyExists)
			case strings.Contains(pgErr.ConstraintName, "term"):
				return fmt.Errorf("%s: %w", operation, simpleentity.ErrTermExists)
			case strings.Contains(pgErr.ConstraintName, "field"):
				return fmt.Errorf("%s: %w", operation, simpleentity.ErrFieldExists)
			}
			return fmt.Errorf("%s: duplicate entry", operation)
		case "23503": // foreign_key_violation
			switch {
			case strings.Contains(pgErr.ConstraintName, "vocabulary"):
				return fmt.Errorf("%s: %w", operation, simpleentity.ErrVocabularyNotFound)
			case strings.Contains(pgErr.ConstraintName, "storage"):
				return fmt.Errorf("%s: %w", operation, simpleentity.ErrFieldNotFound)
			}
			return fmt.Errorf("%s: referenced record not found", operation)
		case "23502": // not_null_violation
			return fmt.Errorf("%s: required field %s is missing", operation, pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("%s: table does not exist - database migration required", operation)
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// notFound maps pgx.ErrNoRows to sentinel.
func (r *Repository) notFound(operation string, err error, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return r.handlePostgresError(operation, err)
}

// execOne runs a statement that must affect exactly one row.
func (r *Repository) execOne(ctx context.Context, operation string, missing error, query string, args ...interface{}) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return r.handlePostgresError(operation, err)
	}
	if tag.RowsAffected() == 0 {
		return missing
	}
	return nil
}

// Vocabulary operations

func (r *Repository) CreateVocabulary(ctx context.Context, vocabulary *simpleentity.Vocabulary) error {
	query := `
		INSERT INTO entity_vocabulary (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		vocabulary.ID, vocabulary.Name, vocabulary.Description, vocabulary.CreatedAt, vocabulary.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create vocabulary", err)
	}
	return nil
}

func (r *Repository) GetVocabulary(ctx context.Context, id string) (*simpleentity.Vocabulary, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM entity_vocabulary WHERE id = $1`

	var v simpleentity.Vocabulary
	err := r.db.QueryRow(ctx, query, id).Scan(&v.ID, &v.Name, &v.Description, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, r.notFound("get vocabulary", err, simpleentity.ErrVocabularyNotFound)
	}
	return &v, nil
}

func (r *Repository) ListVocabularies(ctx context.Context) ([]*simpleentity.Vocabulary, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM entity_vocabulary ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, r.handlePostgresError("list vocabularies", err)
	}
	defer rows.Close()

	var result []*simpleentity.Vocabulary
	for rows.Next() {
		var v simpleentity.Vocabulary
		if err := rows.Scan(&v.ID, &v.Name, &v.Description, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, r.handlePostgresError("scan vocabulary", err)
		}
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate vocabulary rows", err)
	}
	return result, nil
}

// Term operations

const termColumns = `id, vocabulary_id, name, description, weight, created_at, updated_at`

func scanTerm(row pgx.Row) (*simpleentity.Term, error) {
	var t simpleentity.Term
	err := row.Scan(&t.ID, &t.VocabularyID, &t.Name, &t.Description, &t.Weight, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) CreateTerm(ctx context.Context, term *simpleentity.Term) error {
	query := `
		INSERT INTO entity_term (` + termColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		term.ID, term.VocabularyID, term.Name, term.Description, term.Weight, term.CreatedAt, term.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create term", err)
	}
	return nil
}

func (r *Repository) GetTerm(ctx context.Context, id uuid.UUID) (*simpleentity.Term, error) {
	query := `SELECT ` + termColumns + ` FROM entity_term WHERE id = $1`

	term, err := scanTerm(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, r.notFound("get term", err, simpleentity.ErrTermNotFound)
	}
	return term, nil
}

func (r *Repository) FindTerms(ctx context.Context, q simpleentity.TermQuery) ([]*simpleentity.Term, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.VocabularyID != "" {
		args = append(args, q.VocabularyID)
		where = append(where, fmt.Sprintf("vocabulary_id = $%d", len(args)))
	}
	if q.Name != "" {
		args = append(args, q.Name)
		where = append(where, fmt.Sprintf("name = $%d", len(args)))
	}

	query := `SELECT ` + termColumns + ` FROM entity_term`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("find terms", err)
	}
	defer rows.Close()

	var result []*simpleentity.Term
	for rows.Next() {
		term, err := scanTerm(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan term", err)
		}
		result = append(result, term)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate term rows", err)
	}
	return result, nil
}

func (r *Repository) DeleteTerm(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, "delete term", simpleentity.ErrTermNotFound,
		`DELETE FROM entity_term WHERE id = $1`, id)
}

// Node operations

const nodeColumns = `id, bundle, title, published, fields, created_at, updated_at`

func scanNode(row pgx.Row) (*simpleentity.Node, error) {
	var n simpleentity.Node
	err := row.Scan(&n.ID, &n.Bundle, &n.Title, &n.Published, &n.Fields, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if n.Fields == nil {
		n.Fields = make(map[string]interface{})
	}
	return &n, nil
}

func jsonFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return map[string]interface{}{}
	}
	return fields
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

func (r *Repository) CreateNode(ctx context.Context, node *simpleentity.Node) error {
	if err := r.validateNodeFields(ctx, node); err != nil {
		return err
	}

	query := `
		INSERT INTO entity_node (` + nodeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		node.ID, node.Bundle, node.Title, node.Published, jsonFields(node.Fields), node.CreatedAt, node.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create node", err)
	}
	return nil
}

func (r *Repository) GetNode(ctx context.Context, id uuid.UUID) (*simpleentity.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM entity_node WHERE id = $1`

	node, err := scanNode(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, r.notFound("get node", err, simpleentity.ErrNodeNotFound)
	}
	return node, nil
}

func (r *Repository) GetNodes(ctx context.Context, ids []uuid.UUID) ([]*simpleentity.Node, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	query := `SELECT ` + nodeColumns + ` FROM entity_node WHERE id = ANY($1::uuid[]) ORDER BY created_at, id`
	return r.queryNodes(ctx, "get nodes", query, strIDs)
}

func (r *Repository) UpdateNode(ctx context.Context, node *simpleentity.Node) error {
	if err := r.validateNodeFields(ctx, node); err != nil {
		return err
	}

	query := `
		UPDATE entity_node SET
			bundle = $2, title = $3, published = $4, fields = $5, updated_at = $6
		WHERE id = $1`

	return r.execOne(ctx, "update node", simpleentity.ErrNodeNotFound, query,
		node.ID, node.Bundle, node.Title, node.Published, jsonFields(node.Fields), node.UpdatedAt)
}

func (r *Repository) DeleteNode(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, "delete node", simpleentity.ErrNodeNotFound,
		`DELETE FROM entity_node WHERE id = $1`, id)
}

func (r *Repository) ListNodes(ctx context.Context, bundle string) ([]*simpleentity.Node, error) {
	if bundle == "" {
		return r.queryNodes(ctx, "list nodes", `SELECT `+nodeColumns+` FROM entity_node ORDER BY created_at, id`)
	}
	return r.queryNodes(ctx, "list nodes",
		`SELECT `+nodeColumns+` FROM entity_node WHERE bundle = $1 ORDER BY created_at, id`, bundle)
}

func (r *Repository) queryNodes(ctx context.Context, operation, query string, args ...interface{}) ([]*simpleentity.Node, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	defer rows.Close()

	var result []*simpleentity.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan node", err)
		}
		result = append(result, node)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate node rows", err)
	}
	return result, nil
}

// Paragraph operations

func (r *Repository) CreateParagraph(ctx context.Context, p *simpleentity.Paragraph) error {
	query := `
		INSERT INTO entity_paragraph (id, type, parent_id, parent_field, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		p.ID, p.Type, p.ParentID, p.ParentField, jsonFields(p.Fields), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create paragraph", err)
	}
	return nil
}

func (r *Repository) GetParagraph(ctx context.Context, id uuid.UUID) (*simpleentity.Paragraph, error) {
	query := `
		SELECT id, type, parent_id, parent_field, fields, created_at, updated_at
		FROM entity_paragraph WHERE id = $1`

	var p simpleentity.Paragraph
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Type, &p.ParentID, &p.ParentField, &p.Fields, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, r.notFound("get paragraph", err, simpleentity.ErrParagraphNotFound)
	}
	return &p, nil
}

func (r *Repository) DeleteParagraph(ctx context.Context, id uuid.UUID) error {
	return r.execOne(ctx, "delete paragraph", simpleentity.ErrParagraphNotFound,
		`DELETE FROM entity_paragraph WHERE id = $1`, id)
}

// Field operations

func (r *Repository) CreateFieldStorage(ctx context.Context, s *simpleentity.FieldStorage) error {
	query := `
		INSERT INTO entity_field_storage (entity_type, field_name, type, cardinality, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, s.EntityType, s.FieldName, string(s.Type), s.Cardinality, s.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create field storage", err)
	}
	return nil
}

func (r *Repository) GetFieldStorage(ctx context.Context, entityType, fieldName string) (*simpleentity.FieldStorage, error) {
	query := `
		SELECT entity_type, field_name, type, cardinality, created_at
		FROM entity_field_storage WHERE entity_type = $1 AND field_name = $2`

	var s simpleentity.FieldStorage
	var fieldType string
	err := r.db.QueryRow(ctx, query, entityType, fieldName).Scan(
		&s.EntityType, &s.FieldName, &fieldType, &s.Cardinality, &s.CreatedAt)
	if err != nil {
		return nil, r.notFound("get field storage", err, simpleentity.ErrFieldNotFound)
	}
	s.Type = simpleentity.FieldType(fieldType)
	return &s, nil
}

const definitionColumns = `entity_type, bundle, field_name, label, type, required, settings, created_at, updated_at`

func scanDefinition(row pgx.Row) (*simpleentity.FieldDefinition, error) {
	var d simpleentity.FieldDefinition
	var fieldType string
	err := row.Scan(&d.EntityType, &d.Bundle, &d.FieldName, &d.Label, &fieldType, &d.Required, &d.Settings, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Type = simpleentity.FieldType(fieldType)
	return &d, nil
}

func (r *Repository) CreateFieldDefinition(ctx context.Context, d *simpleentity.FieldDefinition) error {
	query := `
		INSERT INTO entity_field_definition (` + definitionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		d.EntityType, d.Bundle, d.FieldName, d.Label, string(d.Type), d.Required, d.Settings, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create field definition", err)
	}
	return nil
}

func (r *Repository) GetFieldDefinition(ctx context.Context, entityType, bundle, fieldName string) (*simpleentity.FieldDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM entity_field_definition
		WHERE entity_type = $1 AND bundle = $2 AND field_name = $3`

	def, err := scanDefinition(r.db.QueryRow(ctx, query, entityType, bundle, fieldName))
	if err != nil {
		return nil, r.notFound("get field definition", err, simpleentity.ErrFieldNotFound)
	}
	return def, nil
}

func (r *Repository) UpdateFieldDefinition(ctx context.Context, d *simpleentity.FieldDefinition) error {
	query := `
		UPDATE entity_field_definition SET
			label = $4, required = $5, settings = $6, updated_at = $7
		WHERE entity_type = $1 AND bundle = $2 AND field_name = $3`

	return r.execOne(ctx, "update field definition", simpleentity.ErrFieldNotFound, query,
		d.EntityType, d.Bundle, d.FieldName, d.Label, d.Required, d.Settings, d.UpdatedAt)
}

func (r *Repository) DeleteFieldDefinition(ctx context.Context, entityType, bundle, fieldName string) error {
	return r.execOne(ctx, "delete field definition", simpleentity.ErrFieldNotFound,
		`DELETE FROM entity_field_definition WHERE entity_type = $1 AND bundle = $2 AND field_name = $3`,
		entityType, bundle, fieldName)
}

func (r *Repository) ListFieldDefinitions(ctx context.Context, entityType, bundle string) ([]*simpleentity.FieldDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM entity_field_definition
		WHERE entity_type = $1 AND bundle = $2 ORDER BY field_name`

	rows, err := r.db.Query(ctx, query, entityType, bundle)
	if err != nil {
		return nil, r.handlePostgresError("list field definitions", err)
	}
	defer rows.Close()

	var result []*simpleentity.FieldDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan field definition", err)
		}
		result = append(result, def)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate field definition rows", err)
	}
	return result, nil
}
