package simpleentity_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-entity/pkg/simpleentity"
	"github.com/tendant/simple-entity/pkg/simpleentity/repo/memory"
)

// countingRepository counts node loads and saves.
type countingRepository struct {
	simpleentity.Repository
	loads int32
	saves int32
}

func (r *countingRepository) GetNodes(ctx context.Context, ids []uuid.UUID) ([]*simpleentity.Node, error) {
	atomic.AddInt32(&r.loads, 1)
	return r.Repository.GetNodes(ctx, ids)
}

func (r *countingRepository) UpdateNode(ctx context.Context, node *simpleentity.Node) error {
	atomic.AddInt32(&r.saves, 1)
	return r.Repository.UpdateNode(ctx, node)
}

// failingRepository rejects saves of selected nodes.
type failingRepository struct {
	simpleentity.Repository
	failSave map[uuid.UUID]bool
}

func (r *failingRepository) UpdateNode(ctx context.Context, node *simpleentity.Node) error {
	if r.failSave[node.ID] {
		return errors.New("storage rejected node")
	}
	return r.Repository.UpdateNode(ctx, node)
}

func createArticle(t *testing.T, env *testEnv, fields map[string]interface{}) *simpleentity.Node {
	t.Helper()
	node, err := env.svc.CreateNode(context.Background(), simpleentity.CreateNodeRequest{
		Bundle: "article",
		Title:  "Article",
		Fields: fields,
	})
	require.NoError(t, err)
	return node
}

func TestUpdateNodes_EmptyIDs(t *testing.T) {
	repo := &countingRepository{Repository: memory.New()}
	env := setupTestServiceWithRepo(t, repo)

	n, err := env.svc.UpdateNodes(context.Background(), nil, map[string]interface{}{"title": "x"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, int32(0), atomic.LoadInt32(&repo.loads))
	assert.Equal(t, int32(0), atomic.LoadInt32(&repo.saves))
}

func TestUpdateNodes_AppliesValues(t *testing.T) {
	ctx := context.Background()
	env := setupTestService(t)
	env.field(t, "article", "field_subtitle", simpleentity.FieldTypeString)
	env.field(t, "article", "field_body", simpleentity.FieldTypeTextLong)
	env.field(t, "article", "field_note", simpleentity.FieldTypeStringLong)

	a := createArticle(t, env, map[string]interface{}{"field_subtitle": "old"})
	b := createArticle(t, env, nil)

	n, err := env.svc.UpdateNodes(ctx, []uuid.UUID{a.ID, b.ID, uuid.New()}, map[string]interface{}{
		"title":          "Renamed",
		"field_subtitle": "new",
		"field_body":     "<p>Hello</p>",
		"field_note":     "plain",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		node, err := env.svc.GetNode(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", node.Title)
		assert.Equal(t, "new", node.Fields["field_subtitle"])
		assert.Equal(t, simpleentity.TextValue{Value: "<p>Hello</p>", Format: simpleentity.DefaultTextFormat}, node.Fields["field_body"])
		assert.Equal(t, "plain", node.Fields["field_note"])
	}
}

func TestUpdateNodes_EmptyValueLeavesField(t *testing.T) {
	ctx := context.Background()
	env := setupTestService(t)
	env.field(t, "article", "field_subtitle", simpleentity.FieldTypeString)
	env.field(t, "article", "field_count", simpleentity.FieldTypeInteger)

	node := createArticle(t, env, map[string]interface{}{"field_subtitle": "keep", "field_count": 4})

	tests := []struct {
		name  string
		field string
		value interface{}
	}{
		{"nil", "field_subtitle", nil},
		{"empty string", "field_subtitle", ""},
		{"zero", "field_count", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated, err := env.svc.UpdateNode(ctx, node.ID, map[string]interface{}{tt.field: tt.value})
			require.NoError(t, err)
			assert.True(t, updated)

			got, err := env.svc.GetNode(ctx, node.ID)
			require.NoError(t, err)
			assert.Equal(t, "keep", got.Fields["field_subtitle"])
			assert.Equal(t, 4, got.Fields["field_count"])
		})
	}
}

func TestUpdateNodes_PartialFailure(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepository{Repository: memory.New(), failSave: map[uuid.UUID]bool{}}

	sink := &mockEventSink{}
	sink.On("FieldAdded", mock.Anything, mock.Anything).Return(nil)
	sink.On("NodeCreated", mock.Anything, mock.Anything).Return(nil)

	env := setupTestServiceWithRepo(t, repo, simpleentity.WithEventSink(sink))
	env.field(t, "article", "field_subtitle", simpleentity.FieldTypeString)

	broken := createArticle(t, env, nil)
	healthy := createArticle(t, env, nil)
	repo.failSave[broken.ID] = true

	sink.On("NodeUpdated", mock.Anything, mock.MatchedBy(func(n *simpleentity.Node) bool { return n.ID == healthy.ID })).Return(nil).Once()
	sink.On("NodeUpdateFailed", mock.Anything, broken.ID, mock.Anything).Return(nil).Once()

	msgCtx, msgs := simpleentity.WithMessages(ctx)
	n, err := env.svc.UpdateNodes(msgCtx, []uuid.UUID{broken.ID, healthy.ID}, map[string]interface{}{"field_subtitle": "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{fmt.Sprintf("Failed to update node %s.", broken.ID)}, msgs.Errors())

	got, err := env.svc.GetNode(ctx, healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Fields["field_subtitle"])
	sink.AssertExpectations(t)
}

func TestUpdateNodes_UnknownFieldFailsNode(t *testing.T) {
	ctx := context.Background()
	env := setupTestService(t)
	node := createArticle(t, env, nil)

	msgCtx, msgs := simpleentity.WithMessages(ctx)
	updated, err := env.svc.UpdateNode(msgCtx, node.ID, map[string]interface{}{"field_missing": "x"})
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Len(t, msgs.Errors(), 1)
}

func TestUpdateNodes_ReplacesChildParagraphs(t *testing.T) {
	ctx := context.Background()
	env := setupTestService(t)
	env.field(t, "article", "field_sections", simpleentity.FieldTypeEntityReferenceRevisions)

	paragraph := func() uuid.UUID {
		p, err := env.svc.CreateParagraph(ctx, simpleentity.CreateParagraphRequest{Type: "text"})
		require.NoError(t, err)
		return p.ID
	}
	c1, c2, c3 := paragraph(), paragraph(), paragraph()
	node := createArticle(t, env, map[string]interface{}{"field_sections": []uuid.UUID{c1, c2}})

	t.Run("EmptyValueKeepsChildren", func(t *testing.T) {
		updated, err := env.svc.UpdateNode(ctx, node.ID, map[string]interface{}{"field_sections": []uuid.UUID{}})
		require.NoError(t, err)
		assert.True(t, updated)

		for _, id := range []uuid.UUID{c1, c2} {
			_, err := env.svc.GetParagraph(ctx, id)
			assert.NoError(t, err)
		}
		got, err := env.svc.GetNode(ctx, node.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{c1, c2}, got.Fields["field_sections"])
	})

	t.Run("NewValueDeletesOldChildren", func(t *testing.T) {
		updated, err := env.svc.UpdateNode(ctx, node.ID, map[string]interface{}{"field_sections": []uuid.UUID{c3}})
		require.NoError(t, err)
		assert.True(t, updated)

		for _, id := range []uuid.UUID{c1, c2} {
			_, err := env.svc.GetParagraph(ctx, id)
			assert.ErrorIs(t, err, simpleentity.ErrParagraphNotFound)
		}
		_, err = env.svc.GetParagraph(ctx, c3)
		assert.NoError(t, err)

		got, err := env.svc.GetNode(ctx, node.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{c3}, got.Fields["field_sections"])
	})

	t.Run("MissingChildIsReportedNotFatal", func(t *testing.T) {
		ghost := uuid.New()
		require.NoError(t, env.repo.UpdateNode(ctx, &simpleentity.Node{
			ID: node.ID, Bundle: "article", Title: "Article",
			Fields: map[string]interface{}{"field_sections": []string{ghost.String()}},
		}))

		msgCtx, msgs := simpleentity.WithMessages(ctx)
		updated, err := env.svc.UpdateNode(msgCtx, node.ID, map[string]interface{}{"field_sections": []uuid.UUID{c3}})
		require.NoError(t, err)
		assert.True(t, updated)
		assert.Equal(t, []string{fmt.Sprintf("Failed to delete paragraph %s.", ghost)}, msgs.Errors())
	})
}

func TestDeleteNodes_CascadesParagraphs(t *testing.T) {
	ctx := context.Background()
	env := setupTestService(t)
	env.field(t, "article", "field_sections", simpleentity.FieldTypeEntityReferenceRevisions)

	p, err := env.svc.CreateParagraph(ctx, simpleentity.CreateParagraphRequest{Type: "text"})
	require.NoError(t, err)
	node := createArticle(t, env, map[string]interface{}{"field_sections": []uuid.UUID{p.ID}})
	other := createArticle(t, env, nil)

	n, err := env.svc.DeleteNodes(ctx, []uuid.UUID{node.ID, other.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = env.svc.GetNode(ctx, node.ID)
	assert.ErrorIs(t, err, simpleentity.ErrNodeNotFound)
	_, err = env.svc.GetParagraph(ctx, p.ID)
	assert.ErrorIs(t, err, simpleentity.ErrParagraphNotFound)
}

func TestDeleteNodes_CascadesValuesOfRemovedField(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepository{Repository: memory.New(), failSave: map[uuid.UUID]bool{}}
	env := setupTestServiceWithRepo(t, repo)
	env.field(t, "article", "field_sections", simpleentity.FieldTypeEntityReferenceRevisions)

	p, err := env.svc.CreateParagraph(ctx, simpleentity.CreateParagraphRequest{Type: "text"})
	require.NoError(t, err)
	node := createArticle(t, env, map[string]interface{}{"field_sections": []uuid.UUID{p.ID}})

	// The purge cannot save this node, so it keeps the stale value.
	repo.failSave[node.ID] = true
	msgCtx, msgs := simpleentity.WithMessages(ctx)
	require.NoError(t, env.svc.RemoveField(msgCtx, "node", "article", "field_sections"))
	assert.Equal(t, []string{fmt.Sprintf("Failed to update node %s.", node.ID)}, msgs.Errors())

	_, err = env.svc.GetParagraph(ctx, p.ID)
	require.NoError(t, err)

	n, err := env.svc.DeleteNodes(ctx, []uuid.UUID{node.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = env.svc.GetParagraph(ctx, p.ID)
	assert.ErrorIs(t, err, simpleentity.ErrParagraphNotFound)
}

func TestCreateNode(t *testing.T) {
	ctx := context.Background()
	env := setupTestService(t)

	_, err := env.svc.CreateNode(ctx, simpleentity.CreateNodeRequest{Title: "No bundle"})
	assert.ErrorIs(t, err, simpleentity.ErrInvalidArgument)

	_, err = env.svc.CreateNode(ctx, simpleentity.CreateNodeRequest{Bundle: "page", Fields: map[string]interface{}{"field_x": 1}})
	assert.ErrorIs(t, err, simpleentity.ErrUnknownField)

	node, err := env.svc.CreateNode(ctx, simpleentity.CreateNodeRequest{Bundle: "page", Title: "About", Published: true})
	require.NoError(t, err)

	pages, err := env.svc.ListNodes(ctx, "page")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, node.ID, pages[0].ID)
	assert.True(t, pages[0].Published)
}
