package simpleentity

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface for the simple-entity library
type Service interface {
	// Vocabulary operations
	CreateVocabulary(ctx context.Context, req CreateVocabularyRequest) (*Vocabulary, error)
	GetVocabulary(ctx context.Context, id string) (*Vocabulary, error)
	ListVocabularies(ctx context.Context) ([]*Vocabulary, error)

	// Term operations
	ResolveTerm(ctx context.Context, vocabularyID, name string) (uuid.UUID, error)
	CreateTerm(ctx context.Context, req CreateTermRequest) (*Term, error)
	DeleteTerm(ctx context.Context, vocabularyID, name string) (bool, error)
	ListTerms(ctx context.Context, vocabularyID string) ([]*Term, error)
	GetTermID(ctx context.Context, vocabularyID, name string) (uuid.UUID, error)
	GetTermName(ctx context.Context, id uuid.UUID) (string, error)

	// Node operations
	CreateNode(ctx context.Context, req CreateNodeRequest) (*Node, error)
	GetNode(ctx context.Context, id uuid.UUID) (*Node, error)
	ListNodes(ctx context.Context, bundle string) ([]*Node, error)
	UpdateNode(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (bool, error)
	UpdateNodes(ctx context.Context, ids []uuid.UUID, fields map[string]interface{}) (int, error)
	DeleteNodes(ctx context.Context, ids []uuid.UUID) (int, error)

	// Paragraph operations
	CreateParagraph(ctx context.Context, req CreateParagraphRequest) (*Paragraph, error)
	GetParagraph(ctx context.Context, id uuid.UUID) (*Paragraph, error)
	DeleteParagraph(ctx context.Context, id uuid.UUID) error

	// Field operations
	AddField(ctx context.Context, req AddFieldRequest) (*FieldDefinition, error)
	RequireField(ctx context.Context, entityType, bundle, fieldName string, required bool) error
	RemoveField(ctx context.Context, entityType, bundle, fieldName string) error
	ListFields(ctx context.Context, entityType, bundle string) ([]*FieldDefinition, error)
	GetFormDisplay(ctx context.Context, entityType, bundle string) (*FormDisplay, error)
}
