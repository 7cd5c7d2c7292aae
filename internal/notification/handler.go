package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/email"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	log "github.com/sirupsen/logrus"
)

// Mailer sends customer notifications.
type Mailer interface {
	SendOrderConfirmation(c email.OrderConfirmation) error
	SendStatusUpdate(u email.StatusUpdate) error
}

// notifiedStatuses are the fulfilment states customers hear about.
var notifiedStatuses = map[order.Status]bool{
	order.StatusShipped:   true,
	order.StatusDelivered: true,
	order.StatusCancelled: true,
}

// Handler turns order events into customer emails. Events carry everything the
// mails need, so no store lookup is made.
type Handler struct {
	mailer Mailer
	logger *log.Entry
}

func NewHandler(mailer Mailer) *Handler {
	return &Handler{
		mailer: mailer,
		logger: log.WithField("component", "notifier"),
	}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		h.logger.WithError(err).Error("failed to unmarshal event")
		return err
	}
	return h.Handle(ctx, event)
}

// Handle dispatches a decoded event. Unknown event types are ignored.
func (h *Handler) Handle(ctx context.Context, event store.Event) error {
	switch event.EventType {
	case order.EventOrderPlaced:
		return h.handleOrderPlaced(event)
	case order.EventOrderStatusChanged:
		return h.handleStatusChanged(event)
	default:
		return nil
	}
}

func (h *Handler) handleOrderPlaced(event store.Event) error {
	var e order.OrderPlaced
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return fmt.Errorf("decode %s: %w", event.EventType, err)
	}

	items := make([]email.OrderItem, len(e.Items))
	for i, item := range e.Items {
		items[i] = email.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	err := h.mailer.SendOrderConfirmation(email.OrderConfirmation{
		To:             e.Email,
		CustomerName:   e.CustomerName,
		OrderNumber:    e.OrderNumber,
		TrackingNumber: e.TrackingNumber,
		Items:          items,
		Total:          e.Total,
	})
	if err != nil {
		return fmt.Errorf("send confirmation for %s: %w", e.OrderNumber, err)
	}
	h.logger.WithField("order_number", e.OrderNumber).Info("order confirmation sent")
	return nil
}

func (h *Handler) handleStatusChanged(event store.Event) error {
	var e order.OrderStatusChanged
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return fmt.Errorf("decode %s: %w", event.EventType, err)
	}
	if e.FromStatus == e.ToStatus || !notifiedStatuses[e.ToStatus] {
		return nil
	}

	err := h.mailer.SendStatusUpdate(email.StatusUpdate{
		To:             e.Email,
		CustomerName:   e.CustomerName,
		OrderNumber:    e.OrderNumber,
		TrackingNumber: e.TrackingNumber,
		Status:         string(e.ToStatus),
		DeliveryDate:   e.DeliveryDate,
	})
	if err != nil {
		return fmt.Errorf("send status update for %s: %w", e.OrderNumber, err)
	}
	h.logger.WithFields(log.Fields{"order_number": e.OrderNumber, "status": e.ToStatus}).Info("status update sent")
	return nil
}
