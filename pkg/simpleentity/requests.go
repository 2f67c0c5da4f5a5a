package simpleentity

import "github.com/google/uuid"

// Request DTOs

// CreateVocabularyRequest contains parameters for creating a vocabulary
type CreateVocabularyRequest struct {
	ID          string
	Name        string
	Description string
}

// CreateTermRequest contains parameters for creating a term
type CreateTermRequest struct {
	VocabularyID string
	Name         string
	Description  string
	Weight       int
}

// CreateNodeRequest contains parameters for creating a node
type CreateNodeRequest struct {
	Bundle    string
	Title     string
	Published bool
	Fields    map[string]interface{}
}

// CreateParagraphRequest contains parameters for creating a paragraph.
// ParentID and ParentField are optional.
type CreateParagraphRequest struct {
	Type        string
	ParentID    *uuid.UUID
	ParentField string
	Fields      map[string]interface{}
}

// AddFieldRequest contains parameters for attaching a field to a bundle.
//
// EntityType defaults to "node". Widget defaults to DefaultWidget(Type)
// and Cardinality to 1 (-1 means unlimited).
type AddFieldRequest struct {
	EntityType  string
	Bundle      string
	FieldName   string
	Label       string
	Type        FieldType
	Required    bool
	Cardinality int
	Widget      string
	Settings    map[string]interface{}
}
