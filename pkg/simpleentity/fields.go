package simpleentity

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Field operations

// AddField attaches a field to a bundle. The field storage is created on
// first use; a later bundle reusing the name must ask for the same type.
// The field is then placed on the bundle's default form display.
func (s *service) AddField(ctx context.Context, req AddFieldRequest) (*FieldDefinition, error) {
	if req.EntityType == "" {
		req.EntityType = EntityTypeNode
	}
	fieldErr := func(op string, err error) error {
		return &FieldError{EntityType: req.EntityType, Bundle: req.Bundle, FieldName: req.FieldName, Op: op, Err: err}
	}

	if req.Bundle == "" || req.FieldName == "" {
		return nil, fieldErr("add", fmt.Errorf("%w: bundle and field name are required", ErrInvalidArgument))
	}
	if !IsValidFieldType(req.Type) {
		return nil, fieldErr("add", fmt.Errorf("%w: %q", ErrInvalidFieldType, req.Type))
	}
	if s.displays == nil {
		return nil, fieldErr("add", ErrNoFormDisplayStore)
	}

	now := time.Now().UTC()

	storage, err := s.repository.GetFieldStorage(ctx, req.EntityType, req.FieldName)
	switch {
	case errors.Is(err, ErrFieldNotFound):
		cardinality := req.Cardinality
		if cardinality == 0 {
			cardinality = 1
		}
		storage = &FieldStorage{
			EntityType:  req.EntityType,
			FieldName:   req.FieldName,
			Type:        req.Type,
			Cardinality: cardinality,
			CreatedAt:   now,
		}
		if err := s.repository.CreateFieldStorage(ctx, storage); err != nil {
			return nil, fieldErr("create_storage", err)
		}
	case err != nil:
		return nil, fieldErr("load_storage", err)
	case storage.Type != req.Type:
		return nil, fieldErr("add", fmt.Errorf("%w: storage is %s, requested %s", ErrFieldTypeMismatch, storage.Type, req.Type))
	}

	label := req.Label
	if label == "" {
		label = req.FieldName
	}
	def := &FieldDefinition{
		EntityType: req.EntityType,
		Bundle:     req.Bundle,
		FieldName:  req.FieldName,
		Label:      label,
		Type:       storage.Type,
		Required:   req.Required,
		Settings:   req.Settings,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repository.CreateFieldDefinition(ctx, def); err != nil {
		return nil, fieldErr("create", err)
	}

	display, err := s.displays.Load(ctx, req.EntityType, req.Bundle, DefaultFormMode)
	if err != nil {
		return nil, fieldErr("load_form_display", err)
	}
	widget := req.Widget
	if widget == "" {
		widget = DefaultWidget(def.Type)
	}
	display.Components[def.FieldName] = FormComponent{
		Type:   widget,
		Weight: display.NextWeight(),
		Region: "content",
	}
	display.Hidden = removeString(display.Hidden, def.FieldName)
	if err := s.displays.Save(ctx, display); err != nil {
		return nil, fieldErr("save_form_display", err)
	}

	s.reportStatus(ctx, fmt.Sprintf("Added field %s to %s.", def.Label, def.Bundle),
		"entity_type", def.EntityType, "bundle", def.Bundle, "field", def.FieldName, "type", def.Type)
	s.fire(ctx, "field_added", func(sink EventSink) error { return sink.FieldAdded(ctx, def) })
	return def, nil
}

// RequireField sets whether a field must have a value.
func (s *service) RequireField(ctx context.Context, entityType, bundle, fieldName string, required bool) error {
	def, err := s.repository.GetFieldDefinition(ctx, entityType, bundle, fieldName)
	if err != nil {
		return &FieldError{EntityType: entityType, Bundle: bundle, FieldName: fieldName, Op: "require", Err: err}
	}
	if def.Required == required {
		return nil
	}

	def.Required = required
	def.UpdatedAt = time.Now().UTC()
	if err := s.repository.UpdateFieldDefinition(ctx, def); err != nil {
		return &FieldError{EntityType: entityType, Bundle: bundle, FieldName: fieldName, Op: "require", Err: err}
	}

	s.logger.InfoContext(ctx, "Updated field requirement", "entity_type", entityType, "bundle", bundle, "field", fieldName, "required", required)
	return nil
}

// RemoveField detaches a field from a bundle and drops it from the form
// display. The shared field storage is kept. For node bundles the
// field's values are purged from every node of the bundle, and
// paragraphs owned by a child-reference field are deleted.
func (s *service) RemoveField(ctx context.Context, entityType, bundle, fieldName string) error {
	fieldErr := func(op string, err error) error {
		return &FieldError{EntityType: entityType, Bundle: bundle, FieldName: fieldName, Op: op, Err: err}
	}
	if s.displays == nil {
		return fieldErr("remove", ErrNoFormDisplayStore)
	}

	if err := s.repository.DeleteFieldDefinition(ctx, entityType, bundle, fieldName); err != nil {
		return fieldErr("remove", err)
	}
	if entityType == EntityTypeNode {
		if err := s.purgeFieldValues(ctx, bundle, fieldName); err != nil {
			return fieldErr("purge_values", err)
		}
	}

	display, err := s.displays.Load(ctx, entityType, bundle, DefaultFormMode)
	if err != nil {
		return fieldErr("load_form_display", err)
	}
	delete(display.Components, fieldName)
	display.Hidden = removeString(display.Hidden, fieldName)
	if err := s.displays.Save(ctx, display); err != nil {
		return fieldErr("save_form_display", err)
	}

	s.reportStatus(ctx, fmt.Sprintf("Removed field %s from %s.", fieldName, bundle),
		"entity_type", entityType, "bundle", bundle, "field", fieldName)
	return nil
}

// purgeFieldValues drops fieldName from every node of the bundle. Owned
// paragraphs are deleted once the node is saved. Nodes that fail to save
// are reported and skipped with their paragraphs kept.
func (s *service) purgeFieldValues(ctx context.Context, bundle, fieldName string) error {
	nodes, err := s.repository.ListNodes(ctx, bundle)
	if err != nil {
		return err
	}
	childReference := s.storageType(ctx, EntityTypeNode, fieldName) == FieldTypeEntityReferenceRevisions

	for _, node := range nodes {
		value, ok := node.Fields[fieldName]
		if !ok {
			continue
		}
		delete(node.Fields, fieldName)
		node.UpdatedAt = time.Now().UTC()
		if err := s.repository.UpdateNode(ctx, node); err != nil {
			s.failNodeUpdate(ctx, node.ID, err)
			continue
		}
		s.fire(ctx, "node_updated", func(sink EventSink) error { return sink.NodeUpdated(ctx, node) })

		if childReference {
			for _, id := range ParagraphIDs(value) {
				s.removeChildParagraph(ctx, id)
			}
		}
	}
	return nil
}

// storageType returns the declared type of a field storage, or "" when
// there is none.
func (s *service) storageType(ctx context.Context, entityType, fieldName string) FieldType {
	storage, err := s.repository.GetFieldStorage(ctx, entityType, fieldName)
	if err != nil {
		return ""
	}
	return storage.Type
}

func (s *service) ListFields(ctx context.Context, entityType, bundle string) ([]*FieldDefinition, error) {
	return s.repository.ListFieldDefinitions(ctx, entityType, bundle)
}

func (s *service) GetFormDisplay(ctx context.Context, entityType, bundle string) (*FormDisplay, error) {
	if s.displays == nil {
		return nil, ErrNoFormDisplayStore
	}
	return s.displays.Load(ctx, entityType, bundle, DefaultFormMode)
}

func removeString(list []string, value string) []string {
	out := list[:0]
	for _, v := range list {
		if v != value {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
