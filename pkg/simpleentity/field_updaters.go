package simpleentity

import (
	"context"

	"github.com/google/uuid"
)

// FieldUpdater applies one field of a bulk update to a loaded node.
// Implementations only mutate the node; the caller saves it.
type FieldUpdater interface {
	ApplyUpdate(ctx context.Context, node *Node, field string, value interface{})
}

// PlainField sets the value when it is not empty.
type PlainField struct{}

// ApplyUpdate implements FieldUpdater
func (PlainField) ApplyUpdate(_ context.Context, node *Node, field string, value interface{}) {
	setIfNotEmpty(node, field, value)
}

// LongTextField sets long text values. When Format is set, plain
// strings are stored as TextValue with that format.
type LongTextField struct {
	Format string
}

// ApplyUpdate implements FieldUpdater
func (f LongTextField) ApplyUpdate(_ context.Context, node *Node, field string, value interface{}) {
	if str, ok := value.(string); ok && f.Format != "" && str != "" {
		value = TextValue{Value: str, Format: f.Format}
	}
	setIfNotEmpty(node, field, value)
}

// ChildReferenceField handles paragraph reference fields. Before a new
// value is assigned, every paragraph the field currently references is
// passed to Remove, which deletes it and reports its own failures.
// An empty value assigns nothing, so the current paragraphs are kept.
type ChildReferenceField struct {
	Remove func(ctx context.Context, paragraphID uuid.UUID)
}

// ApplyUpdate implements FieldUpdater
func (f ChildReferenceField) ApplyUpdate(ctx context.Context, node *Node, field string, value interface{}) {
	if IsEmptyValue(value) {
		return
	}
	if f.Remove != nil {
		for _, id := range ParagraphIDs(node.Get(field)) {
			f.Remove(ctx, id)
		}
	}
	setIfNotEmpty(node, field, value)
}

func setIfNotEmpty(node *Node, field string, value interface{}) {
	if IsEmptyValue(value) {
		return
	}
	node.Set(field, value)
}

// registerDefaultUpdaters fills in the built-in policies for types that
// have no WithFieldUpdater override.
func (s *service) registerDefaultUpdaters() {
	defaults := map[FieldType]FieldUpdater{
		FieldTypeString:                   PlainField{},
		FieldTypeInteger:                  PlainField{},
		FieldTypeBoolean:                  PlainField{},
		FieldTypeEntityReference:          PlainField{},
		FieldTypeStringLong:               LongTextField{},
		FieldTypeTextLong:                 LongTextField{Format: DefaultTextFormat},
		FieldTypeEntityReferenceRevisions: ChildReferenceField{Remove: s.removeChildParagraph},
	}
	for t, u := range defaults {
		if _, ok := s.updaters[t]; !ok {
			s.updaters[t] = u
		}
	}
}

// updaterFor returns the policy for a declared type. Base fields and
// fields without a definition use PlainField.
func (s *service) updaterFor(t FieldType) FieldUpdater {
	if u, ok := s.updaters[t]; ok {
		return u
	}
	return PlainField{}
}
