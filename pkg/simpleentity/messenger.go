package simpleentity

import (
	"context"
	"sync"
)

// Messenger receives user-facing notices.
type Messenger interface {
	AddStatus(message string)
	AddError(message string)
}

// Messages collects notices for one request.
type Messages struct {
	mu     sync.Mutex
	status []string
	errors []string
}

// AddStatus records a status notice
func (m *Messages) AddStatus(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = append(m.status, message)
}

// AddError records an error notice
func (m *Messages) AddError(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, message)
}

// Status returns a copy of the collected status notices
func (m *Messages) Status() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.status...)
}

// Errors returns a copy of the collected error notices
func (m *Messages) Errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.errors...)
}

type messagesKey struct{}

// WithMessages attaches a fresh collector to ctx. Service calls made
// with the returned context report their notices to it.
func WithMessages(ctx context.Context) (context.Context, *Messages) {
	m := &Messages{}
	return context.WithValue(ctx, messagesKey{}, m), m
}

// MessagesFromContext returns the collector attached by WithMessages.
func MessagesFromContext(ctx context.Context) (*Messages, bool) {
	m, ok := ctx.Value(messagesKey{}).(*Messages)
	return m, ok
}

// NoopMessenger discards all notices
type NoopMessenger struct{}

// AddStatus does nothing
func (NoopMessenger) AddStatus(string) {}

// AddError does nothing
func (NoopMessenger) AddError(string) {}
