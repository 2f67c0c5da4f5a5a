package simpleentity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Node operations

func (s *service) CreateNode(ctx context.Context, req CreateNodeRequest) (*Node, error) {
	if req.Bundle == "" {
		return nil, fmt.Errorf("%w: bundle is required", ErrInvalidArgument)
	}

	now := time.Now().UTC()
	node := &Node{
		ID:        uuid.New(),
		Bundle:    req.Bundle,
		Title:     req.Title,
		Published: req.Published,
		Fields:    make(map[string]interface{}, len(req.Fields)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for k, v := range req.Fields {
		node.Fields[k] = v
	}

	if err := s.repository.CreateNode(ctx, node); err != nil {
		return nil, &NodeError{NodeID: node.ID.String(), Op: "create", Err: err}
	}

	s.logger.InfoContext(ctx, "Created node", "node_id", node.ID, "bundle", node.Bundle)
	s.fire(ctx, "node_created", func(sink EventSink) error { return sink.NodeCreated(ctx, node) })
	return node, nil
}

func (s *service) GetNode(ctx context.Context, id uuid.UUID) (*Node, error) {
	return s.repository.GetNode(ctx, id)
}

func (s *service) ListNodes(ctx context.Context, bundle string) ([]*Node, error) {
	return s.repository.ListNodes(ctx, bundle)
}

// UpdateNode updates a single node and reports whether it was saved.
func (s *service) UpdateNode(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (bool, error) {
	n, err := s.UpdateNodes(ctx, []uuid.UUID{id}, fields)
	return n == 1, err
}

// UpdateNodes applies fields to every node in ids and returns how many
// nodes were saved. Empty values leave a field unchanged. A node that
// fails to save is reported and skipped; the remaining nodes are still
// processed. The only returned error is a failure to load the nodes.
func (s *service) UpdateNodes(ctx context.Context, ids []uuid.UUID, fields map[string]interface{}) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	nodes, err := s.repository.GetNodes(ctx, ids)
	if err != nil {
		return 0, &NodeError{NodeID: fmt.Sprintf("%d ids", len(ids)), Op: "load_multiple", Err: err}
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	updated := 0
	for _, node := range nodes {
		types, err := s.fieldTypes(ctx, EntityTypeNode, node.Bundle)
		if err != nil {
			s.failNodeUpdate(ctx, node.ID, err)
			continue
		}

		for _, name := range names {
			s.updaterFor(types[name]).ApplyUpdate(ctx, node, name, fields[name])
		}

		node.UpdatedAt = time.Now().UTC()
		if err := s.repository.UpdateNode(ctx, node); err != nil {
			s.failNodeUpdate(ctx, node.ID, err)
			continue
		}

		updated++
		s.fire(ctx, "node_updated", func(sink EventSink) error { return sink.NodeUpdated(ctx, node) })
	}

	s.logger.InfoContext(ctx, "Bulk node update finished", "requested", len(ids), "loaded", len(nodes), "updated", updated)
	return updated, nil
}

// DeleteNodes deletes every node in ids together with the paragraphs
// referenced from its paragraph fields, including values left by a field
// whose definition is gone, and returns how many nodes were deleted.
// Failures are reported and skipped.
func (s *service) DeleteNodes(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	nodes, err := s.repository.GetNodes(ctx, ids)
	if err != nil {
		return 0, &NodeError{NodeID: fmt.Sprintf("%d ids", len(ids)), Op: "load_multiple", Err: err}
	}

	deleted := 0
	for _, node := range nodes {
		types, err := s.fieldTypes(ctx, EntityTypeNode, node.Bundle)
		if err != nil {
			s.reportError(ctx, fmt.Sprintf("Failed to delete node %s.", node.ID), "node_id", node.ID, "err", err)
			continue
		}

		if err := s.repository.DeleteNode(ctx, node.ID); err != nil {
			s.reportError(ctx, fmt.Sprintf("Failed to delete node %s.", node.ID), "node_id", node.ID, "err", err)
			continue
		}

		for name, value := range node.Fields {
			t, ok := types[name]
			if !ok {
				t = s.storageType(ctx, EntityTypeNode, name)
			}
			if t != FieldTypeEntityReferenceRevisions {
				continue
			}
			for _, pid := range ParagraphIDs(value) {
				s.removeChildParagraph(ctx, pid)
			}
		}

		deleted++
		nodeID := node.ID
		s.fire(ctx, "node_deleted", func(sink EventSink) error { return sink.NodeDeleted(ctx, nodeID) })
	}

	return deleted, nil
}

// fieldTypes maps the bundle's field names to their declared types.
func (s *service) fieldTypes(ctx context.Context, entityType, bundle string) (map[string]FieldType, error) {
	defs, err := s.repository.ListFieldDefinitions(ctx, entityType, bundle)
	if err != nil {
		return nil, err
	}
	types := make(map[string]FieldType, len(defs))
	for _, def := range defs {
		types[def.FieldName] = def.Type
	}
	return types, nil
}

func (s *service) failNodeUpdate(ctx context.Context, id uuid.UUID, err error) {
	s.reportError(ctx, fmt.Sprintf("Failed to update node %s.", id), "node_id", id, "err", err)
	s.fire(ctx, "node_update_failed", func(sink EventSink) error { return sink.NodeUpdateFailed(ctx, id, err) })
}

// removeChildParagraph deletes a paragraph owned by a field being
// reassigned. Failures are reported and swallowed.
func (s *service) removeChildParagraph(ctx context.Context, id uuid.UUID) {
	if err := s.repository.DeleteParagraph(ctx, id); err != nil {
		s.reportError(ctx, fmt.Sprintf("Failed to delete paragraph %s.", id), "paragraph_id", id, "err", err)
		return
	}
	s.fire(ctx, "paragraph_deleted", func(sink EventSink) error { return sink.ParagraphDeleted(ctx, id) })
}

// Paragraph operations

func (s *service) CreateParagraph(ctx context.Context, req CreateParagraphRequest) (*Paragraph, error) {
	if req.Type == "" {
		return nil, fmt.Errorf("%w: paragraph type is required", ErrInvalidArgument)
	}

	now := time.Now().UTC()
	paragraph := &Paragraph{
		ID:          uuid.New(),
		Type:        req.Type,
		ParentID:    req.ParentID,
		ParentField: req.ParentField,
		Fields:      make(map[string]interface{}, len(req.Fields)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for k, v := range req.Fields {
		paragraph.Fields[k] = v
	}

	if err := s.repository.CreateParagraph(ctx, paragraph); err != nil {
		return nil, fmt.Errorf("create paragraph: %w", err)
	}
	return paragraph, nil
}

func (s *service) GetParagraph(ctx context.Context, id uuid.UUID) (*Paragraph, error) {
	return s.repository.GetParagraph(ctx, id)
}

func (s *service) DeleteParagraph(ctx context.Context, id uuid.UUID) error {
	if err := s.repository.DeleteParagraph(ctx, id); err != nil {
		return fmt.Errorf("delete paragraph %s: %w", id, err)
	}
	s.fire(ctx, "paragraph_deleted", func(sink EventSink) error { return sink.ParagraphDeleted(ctx, id) })
	return nil
}
