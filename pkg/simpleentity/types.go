package simpleentity

import (
	"time"

	"github.com/google/uuid"
)

// Entity type identifiers.
const (
	EntityTypeNode      = "node"
	EntityTypeParagraph = "paragraph"
	EntityTypeTerm      = "taxonomy_term"
)

// FieldType is the declared storage type of a field.
type FieldType string

// Field type constants (typed).
const (
	FieldTypeString                   FieldType = "string"
	FieldTypeStringLong               FieldType = "string_long"
	FieldTypeTextLong                 FieldType = "text_long"
	FieldTypeInteger                  FieldType = "integer"
	FieldTypeBoolean                  FieldType = "boolean"
	FieldTypeEntityReference          FieldType = "entity_reference"
	FieldTypeEntityReferenceRevisions FieldType = "entity_reference_revisions"
)

// DefaultFormMode is the only form mode managed by this package.
const DefaultFormMode = "default"

// DefaultTextFormat is applied to text_long values given as plain strings.
const DefaultTextFormat = "basic_html"

// Vocabulary groups taxonomy terms.
type Vocabulary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Term is a taxonomy vocabulary entry.
//
// Names are expected to be unique within a vocabulary but this is not
// enforced. Lookups by name return the oldest match first.
type Term struct {
	ID           uuid.UUID `json:"id"`
	VocabularyID string    `json:"vocabulary_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Weight       int       `json:"weight"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Node is a content record whose fields are defined by its bundle.
type Node struct {
	ID        uuid.UUID              `json:"id"`
	Bundle    string                 `json:"bundle"`
	Title     string                 `json:"title"`
	Published bool                   `json:"published"`
	Fields    map[string]interface{} `json:"fields"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Paragraph is a child record owned by a single node field.
type Paragraph struct {
	ID          uuid.UUID              `json:"id"`
	Type        string                 `json:"type"`
	ParentID    *uuid.UUID             `json:"parent_id,omitempty"`
	ParentField string                 `json:"parent_field,omitempty"`
	Fields      map[string]interface{} `json:"fields"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// TextValue is a formatted long text value.
type TextValue struct {
	Value  string `json:"value"`
	Format string `json:"format"`
}

// FieldStorage holds the type of a field name on an entity type.
// Every bundle using the field shares it.
type FieldStorage struct {
	EntityType  string    `json:"entity_type"`
	FieldName   string    `json:"field_name"`
	Type        FieldType `json:"type"`
	Cardinality int       `json:"cardinality"`
	CreatedAt   time.Time `json:"created_at"`
}

// FieldDefinition attaches a field storage to a bundle.
type FieldDefinition struct {
	EntityType string                 `json:"entity_type"`
	Bundle     string                 `json:"bundle"`
	FieldName  string                 `json:"field_name"`
	Label      string                 `json:"label"`
	Type       FieldType              `json:"type"`
	Required   bool                   `json:"required"`
	Settings   map[string]interface{} `json:"settings,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// FormComponent is a single widget placement on a form display.
type FormComponent struct {
	Type     string                 `json:"type" yaml:"type"`
	Weight   int                    `json:"weight" yaml:"weight"`
	Region   string                 `json:"region" yaml:"region"`
	Settings map[string]interface{} `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// FormDisplay is the form configuration of a bundle for one form mode.
type FormDisplay struct {
	EntityType string                   `json:"entity_type" yaml:"target_entity_type"`
	Bundle     string                   `json:"bundle" yaml:"bundle"`
	Mode       string                   `json:"mode" yaml:"mode"`
	Status     bool                     `json:"status" yaml:"status"`
	Components map[string]FormComponent `json:"content" yaml:"content"`
	Hidden     []string                 `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

// NewFormDisplay returns an empty, enabled display for the given target.
func NewFormDisplay(entityType, bundle, mode string) *FormDisplay {
	return &FormDisplay{
		EntityType: entityType,
		Bundle:     bundle,
		Mode:       mode,
		Status:     true,
		Components: make(map[string]FormComponent),
	}
}

// NextWeight returns a weight placing a new component after all others.
func (d *FormDisplay) NextWeight() int {
	next := 0
	for _, c := range d.Components {
		if c.Weight >= next {
			next = c.Weight + 1
		}
	}
	return next
}

// DefaultWidget returns the form widget used for a field type.
func DefaultWidget(t FieldType) string {
	switch t {
	case FieldTypeString:
		return "string_textfield"
	case FieldTypeStringLong:
		return "string_textarea"
	case FieldTypeTextLong:
		return "text_textarea"
	case FieldTypeInteger:
		return "number"
	case FieldTypeBoolean:
		return "boolean_checkbox"
	case FieldTypeEntityReference:
		return "entity_reference_autocomplete"
	case FieldTypeEntityReferenceRevisions:
		return "paragraphs"
	default:
		return "string_textfield"
	}
}

// IsValidFieldType reports whether t is a known field type.
func IsValidFieldType(t FieldType) bool {
	switch t {
	case FieldTypeString, FieldTypeStringLong, FieldTypeTextLong, FieldTypeInteger,
		FieldTypeBoolean, FieldTypeEntityReference, FieldTypeEntityReferenceRevisions:
		return true
	}
	return false
}
