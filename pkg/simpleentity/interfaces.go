package simpleentity

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Repository defines the interface for entity persistence
type Repository interface {
	// Vocabulary operations
	CreateVocabulary(ctx context.Context, vocabulary *Vocabulary) error
	GetVocabulary(ctx context.Context, id string) (*Vocabulary, error)
	ListVocabularies(ctx context.Context) ([]*Vocabulary, error)

	// Term operations
	//
	// CreateTerm must fail with ErrTermExists when the id is already taken
	// and with ErrVocabularyNotFound when the vocabulary does not exist.
	// FindTerms returns matches ordered by creation time, oldest first.
	CreateTerm(ctx context.Context, term *Term) error
	GetTerm(ctx context.Context, id uuid.UUID) (*Term, error)
	FindTerms(ctx context.Context, query TermQuery) ([]*Term, error)
	DeleteTerm(ctx context.Context, id uuid.UUID) error

	// Node operations
	//
	// CreateNode and UpdateNode reject field names that are not defined
	// for the node's bundle with ErrUnknownField. GetNodes skips ids that
	// do not exist.
	CreateNode(ctx context.Context, node *Node) error
	GetNode(ctx context.Context, id uuid.UUID) (*Node, error)
	GetNodes(ctx context.Context, ids []uuid.UUID) ([]*Node, error)
	UpdateNode(ctx context.Context, node *Node) error
	DeleteNode(ctx context.Context, id uuid.UUID) error
	ListNodes(ctx context.Context, bundle string) ([]*Node, error)

	// Paragraph operations
	CreateParagraph(ctx context.Context, paragraph *Paragraph) error
	GetParagraph(ctx context.Context, id uuid.UUID) (*Paragraph, error)
	DeleteParagraph(ctx context.Context, id uuid.UUID) error

	// Field operations
	CreateFieldStorage(ctx context.Context, storage *FieldStorage) error
	GetFieldStorage(ctx context.Context, entityType, fieldName string) (*FieldStorage, error)
	CreateFieldDefinition(ctx context.Context, def *FieldDefinition) error
	GetFieldDefinition(ctx context.Context, entityType, bundle, fieldName string) (*FieldDefinition, error)
	UpdateFieldDefinition(ctx context.Context, def *FieldDefinition) error
	DeleteFieldDefinition(ctx context.Context, entityType, bundle, fieldName string) error
	ListFieldDefinitions(ctx context.Context, entityType, bundle string) ([]*FieldDefinition, error)
}

// TermQuery selects terms by exact property match. Empty fields match anything.
type TermQuery struct {
	VocabularyID string
	Name         string
}

// Matches reports whether term satisfies the query.
func (q TermQuery) Matches(term *Term) bool {
	if q.VocabularyID != "" && term.VocabularyID != q.VocabularyID {
		return false
	}
	if q.Name != "" && term.Name != q.Name {
		return false
	}
	return true
}

// BlobStore defines the interface for configuration document backends
type BlobStore interface {
	// Upload uploads content directly
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams uploads content with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download downloads content directly. Missing keys return ErrObjectNotFound.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete deletes content. Missing keys return ErrObjectNotFound.
	Delete(ctx context.Context, objectKey string) error
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}

// FormDisplayStore loads and saves form displays keyed by
// (entity type, bundle, mode).
type FormDisplayStore interface {
	// Load returns the stored display, or a new empty display when none
	// has been saved yet.
	Load(ctx context.Context, entityType, bundle, mode string) (*FormDisplay, error)
	Save(ctx context.Context, display *FormDisplay) error
	Delete(ctx context.Context, entityType, bundle, mode string) error
}

// EventSink defines the interface for event handling
type EventSink interface {
	TermCreated(ctx context.Context, term *Term) error
	TermDeleted(ctx context.Context, term *Term) error
	NodeCreated(ctx context.Context, node *Node) error
	NodeUpdated(ctx context.Context, node *Node) error
	NodeUpdateFailed(ctx context.Context, nodeID uuid.UUID, cause error) error
	NodeDeleted(ctx context.Context, nodeID uuid.UUID) error
	ParagraphDeleted(ctx context.Context, paragraphID uuid.UUID) error
	FieldAdded(ctx context.Context, def *FieldDefinition) error
}
