package simpleentity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-entity/pkg/simpleentity"
	"github.com/tendant/simple-entity/pkg/simpleentity/formdisplay"
	"github.com/tendant/simple-entity/pkg/simpleentity/repo/memory"
	memorystorage "github.com/tendant/simple-entity/pkg/simpleentity/storage/memory"
)

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []simpleentity.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []simpleentity.Option{},
			expectError: true,
		},
		{
			name: "with repository should succeed",
			options: []simpleentity.Option{
				simpleentity.WithRepository(memory.New()),
			},
		},
		{
			name: "with repository and form display store should succeed",
			options: []simpleentity.Option{
				simpleentity.WithRepository(memory.New()),
				simpleentity.WithFormDisplayStore(formdisplay.New(memorystorage.New())),
				simpleentity.WithEventSink(simpleentity.NewNoopEventSink()),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := simpleentity.New(tt.options...)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

// testEnv bundles a service with the stores behind it.
type testEnv struct {
	svc   simpleentity.Service
	repo  simpleentity.Repository
	blobs *memorystorage.Backend
}

func setupTestService(t *testing.T, opts ...simpleentity.Option) *testEnv {
	t.Helper()
	return setupTestServiceWithRepo(t, memory.New(), opts...)
}

func setupTestServiceWithRepo(t *testing.T, repo simpleentity.Repository, opts ...simpleentity.Option) *testEnv {
	t.Helper()
	blobs := memorystorage.New()
	options := append([]simpleentity.Option{
		simpleentity.WithRepository(repo),
		simpleentity.WithFormDisplayStore(formdisplay.New(blobs)),
		simpleentity.WithEventSink(simpleentity.NewNoopEventSink()),
	}, opts...)

	svc, err := simpleentity.New(options...)
	require.NoError(t, err)
	return &testEnv{svc: svc, repo: repo, blobs: blobs}
}

func (e *testEnv) vocabulary(t *testing.T, id string) {
	t.Helper()
	_, err := e.svc.CreateVocabulary(context.Background(), simpleentity.CreateVocabularyRequest{ID: id})
	require.NoError(t, err)
}

func (e *testEnv) field(t *testing.T, bundle, name string, fieldType simpleentity.FieldType) {
	t.Helper()
	_, err := e.svc.AddField(context.Background(), simpleentity.AddFieldRequest{
		Bundle:    bundle,
		FieldName: name,
		Type:      fieldType,
	})
	require.NoError(t, err)
}

func TestResolveTerm(t *testing.T) {
	ctx := context.Background()
	env := setupTestService(t)
	env.vocabulary(t, "tags")

	t.Run("CreatesOnceAndReuses", func(t *testing.T) {
		first, err := env.svc.ResolveTerm(ctx, "tags", "Go")
		require.NoError(t, err)
		second, err := env.svc.ResolveTerm(ctx, "tags", "Go")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		terms, err := env.svc.ListTerms(ctx, "tags")
		require.NoError(t, err)
		assert.Len(t, terms, 1)
	})

	t.Run("ReportsCreation", func(t *testing.T) {
		msgCtx, msgs := simpleentity.WithMessages(ctx)
		_, err := env.svc.ResolveTerm(msgCtx, "tags", "Rust")
		require.NoError(t, err)
		assert.Equal(t, []string{"Created new term Rust."}, msgs.Status())

		_, err = env.svc.ResolveTerm(msgCtx, "tags", "Rust")
		require.NoError(t, err)
		assert.Len(t, msgs.Status(), 1)
	})

	t.Run("MissingVocabulary", func(t *testing.T) {
		_, err := env.svc.ResolveTerm(ctx, "nope", "Go")
		assert.ErrorIs(t, err, simpleentity.ErrVocabularyNotFound)

		var termErr *simpleentity.TermError
		require.True(t, errors.As(err, &termErr))
		assert.Equal(t, "resolve", termErr.Op)
	})

	t.Run("EmptyArguments", func(t *testing.T) {
		_, err := env.svc.ResolveTerm(ctx, "tags", "")
		assert.ErrorIs(t, err, simpleentity.ErrInvalidArgument)
		_, err = env.svc.ResolveTerm(ctx, "", "Go")
		assert.ErrorIs(t, err, simpleentity.ErrInvalidArgument)
	})
}

func TestCreateTerm(t *testing.T) {
	ctx := context.Background()
	env := setupTestService(t)
	env.vocabulary(t, "tags")

	term, err := env.svc.CreateTerm(ctx, simpleentity.CreateTermRequest{VocabularyID: "tags", Name: "Go", Weight: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, term.Weight)

	_, err = env.svc.CreateTerm(ctx, simpleentity.CreateTermRequest{VocabularyID: "tags", Name: "Go"})
	assert.ErrorIs(t, err, simpleentity.ErrTermExists)

	id, err := env.svc.GetTermID(ctx, "tags", "Go")
	require.NoError(t, err)
	assert.Equal(t, term.ID, id)

	name, err := env.svc.GetTermName(ctx, term.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go", name)

	_, err = env.svc.GetTermID(ctx, "tags", "Missing")
	assert.ErrorIs(t, err, simpleentity.ErrTermNotFound)
}

func TestDeleteTerm(t *testing.T) {
	ctx := context.Background()
	env := setupTestService(t)
	env.vocabulary(t, "tags")

	deleted, err := env.svc.DeleteTerm(ctx, "tags", "Nonexistent")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = env.svc.ResolveTerm(ctx, "tags", "Go")
	require.NoError(t, err)

	deleted, err = env.svc.DeleteTerm(ctx, "tags", "Go")
	require.NoError(t, err)
	assert.True(t, deleted)

	terms, err := env.svc.ListTerms(ctx, "tags")
	require.NoError(t, err)
	assert.Empty(t, terms)
}

func TestDeleteTerm_FiresEvent(t *testing.T) {
	ctx := context.Background()
	sink := &mockEventSink{}
	sink.On("TermCreated", mock.Anything, mock.Anything).Return(nil)
	sink.On("TermDeleted", mock.Anything, mock.MatchedBy(func(term *simpleentity.Term) bool {
		return term.Name == "Go"
	})).Return(errors.New("sink unavailable")).Once()

	env := setupTestService(t, simpleentity.WithEventSink(sink))
	env.vocabulary(t, "tags")

	_, err := env.svc.ResolveTerm(ctx, "tags", "Go")
	require.NoError(t, err)

	// Sink failures are logged, not returned
	deleted, err := env.svc.DeleteTerm(ctx, "tags", "Go")
	require.NoError(t, err)
	assert.True(t, deleted)
	sink.AssertExpectations(t)
}

func TestMultiEventSink(t *testing.T) {
	ctx := context.Background()
	first := &mockEventSink{}
	second := &mockEventSink{}
	first.On("NodeDeleted", ctx, mock.Anything).Return(errors.New("first failed"))
	second.On("NodeDeleted", ctx, mock.Anything).Return(nil)

	sink := simpleentity.MultiEventSink{first, nil, second}
	err := sink.NodeDeleted(ctx, uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first failed")
	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

// mockEventSink records event sink calls
type mockEventSink struct {
	mock.Mock
}

func (m *mockEventSink) TermCreated(ctx context.Context, term *simpleentity.Term) error {
	return m.Called(ctx, term).Error(0)
}

func (m *mockEventSink) TermDeleted(ctx context.Context, term *simpleentity.Term) error {
	return m.Called(ctx, term).Error(0)
}

func (m *mockEventSink) NodeCreated(ctx context.Context, node *simpleentity.Node) error {
	return m.Called(ctx, node).Error(0)
}

func (m *mockEventSink) NodeUpdated(ctx context.Context, node *simpleentity.Node) error {
	return m.Called(ctx, node).Error(0)
}

func (m *mockEventSink) NodeUpdateFailed(ctx context.Context, nodeID uuid.UUID, cause error) error {
	return m.Called(ctx, nodeID, cause).Error(0)
}

func (m *mockEventSink) NodeDeleted(ctx context.Context, nodeID uuid.UUID) error {
	return m.Called(ctx, nodeID).Error(0)
}

func (m *mockEventSink) ParagraphDeleted(ctx context.Context, paragraphID uuid.UUID) error {
	return m.Called(ctx, paragraphID).Error(0)
}

func (m *mockEventSink) FieldAdded(ctx context.Context, def *simpleentity.FieldDefinition) error {
	return m.Called(ctx, def).Error(0)
}
