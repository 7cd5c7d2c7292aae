package mocks

import (
	"context"
	"sync"

	"github.com/example/ec-storefront/internal/infrastructure/store"
)

// MockPublisher is a call-recording event publisher for tests
type MockPublisher struct {
	mu sync.Mutex

	PublishCalls    []PublishCall
	PublishErr      error
	PublishCallback func(ctx context.Context, key string, event any) error
}

// PublishCall records parameters passed to Publish
type PublishCall struct {
	Key   string
	Event any
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{PublishCalls: make([]PublishCall, 0)}
}

func (m *MockPublisher) Publish(ctx context.Context, key string, event any) error {
	m.mu.Lock()
	m.PublishCalls = append(m.PublishCalls, PublishCall{Key: key, Event: event})
	cb := m.PublishCallback
	err := m.PublishErr
	m.mu.Unlock()

	if cb != nil {
		return cb(ctx, key, event)
	}
	return err
}

// EventTypes lists the event types of recorded store.Event publications in order.
func (m *MockPublisher) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make([]string, 0, len(m.PublishCalls))
	for _, c := range m.PublishCalls {
		if e, ok := c.Event.(store.Event); ok {
			types = append(types, e.EventType)
		}
	}
	return types
}

// Reset clears recorded calls
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishCalls = make([]PublishCall, 0)
	m.PublishErr = nil
	m.PublishCallback = nil
}
