package simpleentity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink is a no-operation implementation of EventSink
// Useful for production when you don't need event handling or for testing
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) TermCreated(ctx context.Context, term *Term) error { return nil }
func (n *NoopEventSink) TermDeleted(ctx context.Context, term *Term) error { return nil }
func (n *NoopEventSink) NodeCreated(ctx context.Context, node *Node) error { return nil }
func (n *NoopEventSink) NodeUpdated(ctx context.Context, node *Node) error { return nil }
func (n *NoopEventSink) NodeUpdateFailed(ctx context.Context, nodeID uuid.UUID, cause error) error {
	return nil
}
func (n *NoopEventSink) NodeDeleted(ctx context.Context, nodeID uuid.UUID) error { return nil }
func (n *NoopEventSink) ParagraphDeleted(ctx context.Context, paragraphID uuid.UUID) error {
	return nil
}
func (n *NoopEventSink) FieldAdded(ctx context.Context, def *FieldDefinition) error { return nil }

// LoggingEventSink is an event sink that logs events but takes no other action
// Useful for development and debugging
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink. A nil logger
// uses slog.Default().
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

// TermCreated logs the term creation event
func (l *LoggingEventSink) TermCreated(ctx context.Context, term *Term) error {
	l.logger.InfoContext(ctx, "Term created", "term_id", term.ID, "vocabulary_id", term.VocabularyID, "name", term.Name)
	return nil
}

// TermDeleted logs the term deletion event
func (l *LoggingEventSink) TermDeleted(ctx context.Context, term *Term) error {
	l.logger.InfoContext(ctx, "Term deleted", "term_id", term.ID, "vocabulary_id", term.VocabularyID)
	return nil
}

// NodeCreated logs the node creation event
func (l *LoggingEventSink) NodeCreated(ctx context.Context, node *Node) error {
	l.logger.InfoContext(ctx, "Node created", "node_id", node.ID, "bundle", node.Bundle)
	return nil
}

// NodeUpdated logs the node update event
func (l *LoggingEventSink) NodeUpdated(ctx context.Context, node *Node) error {
	l.logger.InfoContext(ctx, "Node updated", "node_id", node.ID, "bundle", node.Bundle)
	return nil
}

// NodeUpdateFailed logs a node that could not be saved
func (l *LoggingEventSink) NodeUpdateFailed(ctx context.Context, nodeID uuid.UUID, cause error) error {
	l.logger.WarnContext(ctx, "Node update failed", "node_id", nodeID, "err", cause)
	return nil
}

// NodeDeleted logs the node deletion event
func (l *LoggingEventSink) NodeDeleted(ctx context.Context, nodeID uuid.UUID) error {
	l.logger.InfoContext(ctx, "Node deleted", "node_id", nodeID)
	return nil
}

// ParagraphDeleted logs the paragraph deletion event
func (l *LoggingEventSink) ParagraphDeleted(ctx context.Context, paragraphID uuid.UUID) error {
	l.logger.InfoContext(ctx, "Paragraph deleted", "paragraph_id", paragraphID)
	return nil
}

// FieldAdded logs the field creation event
func (l *LoggingEventSink) FieldAdded(ctx context.Context, def *FieldDefinition) error {
	l.logger.InfoContext(ctx, "Field added", "entity_type", def.EntityType, "bundle", def.Bundle, "field", def.FieldName, "type", def.Type)
	return nil
}

// MultiEventSink fans events out to several sinks. Every sink is called;
// their errors are joined.
type MultiEventSink []EventSink

func (m MultiEventSink) each(fn func(EventSink) error) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := fn(sink); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiEventSink) TermCreated(ctx context.Context, term *Term) error {
	return m.each(func(s EventSink) error { return s.TermCreated(ctx, term) })
}

func (m MultiEventSink) TermDeleted(ctx context.Context, term *Term) error {
	return m.each(func(s EventSink) error { return s.TermDeleted(ctx, term) })
}

func (m MultiEventSink) NodeCreated(ctx context.Context, node *Node) error {
	return m.each(func(s EventSink) error { return s.NodeCreated(ctx, node) })
}

func (m MultiEventSink) NodeUpdated(ctx context.Context, node *Node) error {
	return m.each(func(s EventSink) error { return s.NodeUpdated(ctx, node) })
}

func (m MultiEventSink) NodeUpdateFailed(ctx context.Context, nodeID uuid.UUID, cause error) error {
	return m.each(func(s EventSink) error { return s.NodeUpdateFailed(ctx, nodeID, cause) })
}

func (m MultiEventSink) NodeDeleted(ctx context.Context, nodeID uuid.UUID) error {
	return m.each(func(s EventSink) error { return s.NodeDeleted(ctx, nodeID) })
}

func (m MultiEventSink) ParagraphDeleted(ctx context.Context, paragraphID uuid.UUID) error {
	return m.each(func(s EventSink) error { return s.ParagraphDeleted(ctx, paragraphID) })
}

func (m MultiEventSink) FieldAdded(ctx context.Context, def *FieldDefinition) error {
	return m.each(func(s EventSink) error { return s.FieldAdded(ctx, def) })
}
