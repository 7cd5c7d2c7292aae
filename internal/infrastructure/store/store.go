package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/domain/discount"
	"github.com/example/ec-storefront/internal/domain/inventory"
	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/domain/user"
	"github.com/google/uuid"
)

// Repositories are the stores that take part in checkout and lifecycle
// transactions.
type Repositories interface {
	inventory.Repository
	discount.Repository
	order.Repository
}

// Store is the persistence collaborator of the service.
type Store interface {
	Repositories
	cart.Store
	user.Repository

	// WithinTx runs fn against a transactional view of the repositories.
	// Every write made through tx is committed if fn returns nil and
	// discarded otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Event is the envelope published for domain events.
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
}

// NewEvent wraps data in an envelope.
func NewEvent(aggregateID, aggregateType, eventType string, version int, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          raw,
		Timestamp:     time.Now().UTC(),
		Version:       version,
	}, nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
