package simpleentity

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrVocabularyNotFound indicates a vocabulary was not found
	ErrVocabularyNotFound = errors.New("vocabulary not found")

	// ErrVocabularyExists indicates a vocabulary id is already taken
	ErrVocabularyExists = errors.New("vocabulary already exists")

	// ErrTermNotFound indicates a term was not found
	ErrTermNotFound = errors.New("term not found")

	// ErrTermExists indicates a term with the same id, or the same
	// vocabulary and name, already exists
	ErrTermExists = errors.New("term already exists")

	// ErrNodeNotFound indicates a node was not found
	ErrNodeNotFound = errors.New("node not found")

	// ErrParagraphNotFound indicates a paragraph was not found
	ErrParagraphNotFound = errors.New("paragraph not found")

	// ErrFieldNotFound indicates a field definition or storage was not found
	ErrFieldNotFound = errors.New("field not found")

	// ErrFieldExists indicates a field is already attached to the bundle
	ErrFieldExists = errors.New("field already exists")

	// ErrFieldTypeMismatch indicates the field storage already exists with another type
	ErrFieldTypeMismatch = errors.New("field type does not match existing storage")

	// ErrInvalidFieldType indicates an unknown field type
	ErrInvalidFieldType = errors.New("invalid field type")

	// ErrUnknownField indicates a value was given for a field the bundle does not define
	ErrUnknownField = errors.New("unknown field")

	// ErrObjectNotFound indicates a blob store object was not found
	ErrObjectNotFound = errors.New("object not found")

	// ErrInvalidArgument indicates a required identifier was empty
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoFormDisplayStore indicates field operations were called on a
	// service built without a form display store
	ErrNoFormDisplayStore = errors.New("form display store not configured")
)

// TermError represents an error related to term operations
type TermError struct {
	VocabularyID string
	Name         string
	Op           string
	Err          error
}

func (e *TermError) Error() string {
	return fmt.Sprintf("term operation %s failed for %q in vocabulary %s: %v", e.Op, e.Name, e.VocabularyID, e.Err)
}

func (e *TermError) Unwrap() error {
	return e.Err
}

// NodeError represents an error related to node operations
type NodeError struct {
	NodeID string
	Op     string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node operation %s failed for node %s: %v", e.Op, e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// FieldError represents an error related to field operations
type FieldError struct {
	EntityType string
	Bundle     string
	FieldName  string
	Op         string
	Err        error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field operation %s failed for %s.%s.%s: %v", e.Op, e.EntityType, e.Bundle, e.FieldName, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
