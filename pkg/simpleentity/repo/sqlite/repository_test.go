package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-entity/pkg/simpleentity"
	"github.com/tendant/simple-entity/pkg/simpleentity/formdisplay"
	"github.com/tendant/simple-entity/pkg/simpleentity/repo/sqlite"
	memorystorage "github.com/tendant/simple-entity/pkg/simpleentity/storage/memory"
)

func setupSQLiteRepo(t *testing.T) simpleentity.Repository {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlite.New(db)
}

func TestSQLiteRepository_Terms(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.CreateVocabulary(ctx, &simpleentity.Vocabulary{ID: "tags", Name: "Tags", CreatedAt: now, UpdatedAt: now}))
	err := repo.CreateVocabulary(ctx, &simpleentity.Vocabulary{ID: "tags", Name: "Again", CreatedAt: now, UpdatedAt: now})
	assert.ErrorIs(t, err, simpleentity.ErrVocabularyExists)

	err = repo.CreateTerm(ctx, &simpleentity.Term{ID: uuid.New(), VocabularyID: "missing", Name: "x", CreatedAt: now, UpdatedAt: now})
	assert.ErrorIs(t, err, simpleentity.ErrVocabularyNotFound)

	older := &simpleentity.Term{ID: uuid.New(), VocabularyID: "tags", Name: "go", CreatedAt: now, UpdatedAt: now}
	newer := &simpleentity.Term{ID: uuid.New(), VocabularyID: "tags", Name: "go", CreatedAt: now.Add(time.Nanosecond), UpdatedAt: now}
	require.NoError(t, repo.CreateTerm(ctx, newer))
	require.NoError(t, repo.CreateTerm(ctx, older))
	assert.ErrorIs(t, repo.CreateTerm(ctx, older), simpleentity.ErrTermExists)

	terms, err := repo.FindTerms(ctx, simpleentity.TermQuery{VocabularyID: "tags", Name: "go"})
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, older.ID, terms[0].ID)
	assert.True(t, older.CreatedAt.Equal(terms[0].CreatedAt))

	vocabularies, err := repo.ListVocabularies(ctx)
	require.NoError(t, err)
	require.Len(t, vocabularies, 1)
	assert.Equal(t, "Tags", vocabularies[0].Name)

	require.NoError(t, repo.DeleteTerm(ctx, older.ID))
	assert.ErrorIs(t, repo.DeleteTerm(ctx, older.ID), simpleentity.ErrTermNotFound)
}

func TestSQLiteRepository_Fields(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	orphan := &simpleentity.FieldDefinition{EntityType: "node", Bundle: "article", FieldName: "field_x", Type: simpleentity.FieldTypeString, CreatedAt: now, UpdatedAt: now}
	assert.ErrorIs(t, repo.CreateFieldDefinition(ctx, orphan), simpleentity.ErrFieldNotFound)

	storage := &simpleentity.FieldStorage{EntityType: "node", FieldName: "field_x", Type: simpleentity.FieldTypeString, Cardinality: 1, CreatedAt: now}
	require.NoError(t, repo.CreateFieldStorage(ctx, storage))
	assert.ErrorIs(t, repo.CreateFieldStorage(ctx, storage), simpleentity.ErrFieldExists)

	orphan.Settings = map[string]interface{}{"max_length": 255}
	require.NoError(t, repo.CreateFieldDefinition(ctx, orphan))

	def, err := repo.GetFieldDefinition(ctx, "node", "article", "field_x")
	require.NoError(t, err)
	assert.Equal(t, simpleentity.FieldTypeString, def.Type)
	assert.Equal(t, float64(255), def.Settings["max_length"])

	def.Required = true
	require.NoError(t, repo.UpdateFieldDefinition(ctx, def))
	def, err = repo.GetFieldDefinition(ctx, "node", "article", "field_x")
	require.NoError(t, err)
	assert.True(t, def.Required)

	require.NoError(t, repo.DeleteFieldDefinition(ctx, "node", "article", "field_x"))
	assert.ErrorIs(t, repo.DeleteFieldDefinition(ctx, "node", "article", "field_x"), simpleentity.ErrFieldNotFound)
}

func TestSQLiteRepository_Paragraphs(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	parent := uuid.New()
	p := &simpleentity.Paragraph{ID: uuid.New(), Type: "text", ParentID: &parent, ParentField: "field_sections",
		Fields: map[string]interface{}{"body": "hi"}, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.CreateParagraph(ctx, p))

	loaded, err := repo.GetParagraph(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.ParentID)
	assert.Equal(t, parent, *loaded.ParentID)
	assert.Equal(t, "hi", loaded.Fields["body"])

	orphan := &simpleentity.Paragraph{ID: uuid.New(), Type: "text", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.CreateParagraph(ctx, orphan))
	loaded, err = repo.GetParagraph(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.ParentID)

	require.NoError(t, repo.DeleteParagraph(ctx, p.ID))
	_, err = repo.GetParagraph(ctx, p.ID)
	assert.ErrorIs(t, err, simpleentity.ErrParagraphNotFound)
}

// Paragraph references come back from JSON as []interface{}; the
// cascade must still find them.
func TestSQLiteRepository_ServiceCascade(t *testing.T) {
	ctx := context.Background()
	repo := setupSQLiteRepo(t)
	svc, err := simpleentity.New(
		simpleentity.WithRepository(repo),
		simpleentity.WithFormDisplayStore(formdisplay.New(memorystorage.New())),
	)
	require.NoError(t, err)

	_, err = svc.AddField(ctx, simpleentity.AddFieldRequest{Bundle: "article", FieldName: "field_sections", Type: simpleentity.FieldTypeEntityReferenceRevisions})
	require.NoError(t, err)

	c1, err := svc.CreateParagraph(ctx, simpleentity.CreateParagraphRequest{Type: "text"})
	require.NoError(t, err)
	c2, err := svc.CreateParagraph(ctx, simpleentity.CreateParagraphRequest{Type: "text"})
	require.NoError(t, err)

	node, err := svc.CreateNode(ctx, simpleentity.CreateNodeRequest{
		Bundle: "article", Title: "A",
		Fields: map[string]interface{}{"field_sections": []uuid.UUID{c1.ID}},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateNode(ctx, node.ID, map[string]interface{}{"field_sections": []uuid.UUID{c2.ID}})
	require.NoError(t, err)
	assert.True(t, updated)

	_, err = svc.GetParagraph(ctx, c1.ID)
	assert.ErrorIs(t, err, simpleentity.ErrParagraphNotFound)

	got, err := svc.GetNode(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c2.ID}, simpleentity.ParagraphIDs(got.Fields["field_sections"]))
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "entity.db")
	db, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM entity_vocabulary`).Scan(&count))
	assert.Equal(t, 0, count)
}
