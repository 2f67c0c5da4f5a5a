package simpleentity

import (
	"context"
	"fmt"
	"log/slog"
)

// service implements the Service interface
type service struct {
	repository Repository
	displays   FormDisplayStore
	eventSink  EventSink
	messenger  Messenger
	logger     *slog.Logger
	updaters   map[FieldType]FieldUpdater
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithFormDisplayStore sets the store used by field operations
func WithFormDisplayStore(store FormDisplayStore) Option {
	return func(s *service) {
		s.displays = store
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithMessenger sets the messenger used when the request context carries
// no Messages collector
func WithMessenger(m Messenger) Option {
	return func(s *service) {
		s.messenger = m
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithFieldUpdater registers the update policy for a field type,
// replacing the built-in one
func WithFieldUpdater(t FieldType, u FieldUpdater) Option {
	return func(s *service) {
		s.updaters[t] = u
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		messenger: NoopMessenger{},
		logger:    slog.Default(),
		updaters:  make(map[FieldType]FieldUpdater),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}

	s.registerDefaultUpdaters()

	return s, nil
}

// messengerFor returns the request collector if ctx carries one.
func (s *service) messengerFor(ctx context.Context) Messenger {
	if m, ok := MessagesFromContext(ctx); ok {
		return m
	}
	return s.messenger
}

// reportStatus sends a notice to the messenger and the log.
func (s *service) reportStatus(ctx context.Context, msg string, args ...any) {
	s.messengerFor(ctx).AddStatus(msg)
	s.logger.InfoContext(ctx, msg, args...)
}

// reportError sends an error notice to the messenger and the log.
func (s *service) reportError(ctx context.Context, msg string, args ...any) {
	s.messengerFor(ctx).AddError(msg)
	s.logger.ErrorContext(ctx, msg, args...)
}

// fire runs an event sink callback. Sink failures are logged and never
// fail the calling operation.
func (s *service) fire(ctx context.Context, event string, fn func(EventSink) error) {
	if s.eventSink == nil {
		return
	}
	if err := fn(s.eventSink); err != nil {
		s.logger.WarnContext(ctx, "Event sink failed", "event", event, "err", err)
	}
}
