package command

import (
	"context"
	"errors"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/domain/discount"
	"github.com/example/ec-storefront/internal/domain/inventory"
	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/domain/pricing"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/metrics"
	log "github.com/sirupsen/logrus"
)

const maxPlaceAttempts = 3

var (
	ErrCartChanged = apperr.New(apperr.Conflict, "cart changed during checkout, review it and try again")
	ErrNotOwner    = apperr.New(apperr.Forbidden, "order belongs to another customer")
)

// EventPublisher delivers order events to the configured sink.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Handler struct {
	store     store.Store
	ledger    *inventory.Ledger
	carts     *cart.Service
	evaluator *discount.Evaluator
	discounts *discount.Service
	calc      *pricing.Calculator
	factory   *order.Factory
	lifecycle *order.Lifecycle
	publisher EventPublisher
	metrics   *metrics.StorefrontMetrics
	logger    *log.Entry
}

// NewHandler wires the write side over st. publisher may be nil when no event
// sink is configured.
func NewHandler(st store.Store, calc *pricing.Calculator, publisher EventPublisher, m *metrics.StorefrontMetrics) *Handler {
	ledger := inventory.NewLedger(st)
	return &Handler{
		store:     st,
		ledger:    ledger,
		carts:     cart.NewService(st, ledger, calc),
		evaluator: discount.NewEvaluator(st, ledger),
		discounts: discount.NewService(st),
		calc:      calc,
		factory:   order.NewFactory(),
		lifecycle: order.NewLifecycle(),
		publisher: publisher,
		metrics:   m,
		logger:    log.WithField("component", "command"),
	}
}

// Cart

func (h *Handler) AddToCart(ctx context.Context, cmd AddToCart) (*cart.Cart, error) {
	c, err := h.carts.AddItem(ctx, cmd.SessionID, cmd.ProductID, cmd.Quantity)
	if err != nil {
		return nil, err
	}
	h.recordAdjustments(c)
	return c, nil
}

func (h *Handler) UpdateCartItem(ctx context.Context, cmd UpdateCartItem) (*cart.Cart, error) {
	return h.carts.UpdateQuantity(ctx, cmd.SessionID, cmd.ProductID, cmd.Quantity)
}

func (h *Handler) RemoveFromCart(ctx context.Context, cmd RemoveFromCart) (*cart.Cart, error) {
	return h.carts.RemoveItem(ctx, cmd.SessionID, cmd.ProductID)
}

func (h *Handler) ClearCart(ctx context.Context, sessionID string) (*cart.Cart, error) {
	return h.carts.Clear(ctx, sessionID)
}

func (h *Handler) RefreshCart(ctx context.Context, sessionID string) (*cart.Cart, error) {
	c, err := h.carts.Refresh(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	h.recordAdjustments(c)
	return c, nil
}

func (h *Handler) recordAdjustments(c *cart.Cart) {
	if h.metrics == nil {
		return
	}
	for _, adj := range c.Adjustments {
		h.metrics.RecordCartAdjustment(adj.Reason)
	}
}

// Orders

// UpdateOrderStatus applies an admin status change. Enum values are checked
// before the order is loaded; the write is a compare-and-swap on the loaded
// version and statuses. Entering cancelled returns every line to stock in the
// same transaction.
func (h *Handler) UpdateOrderStatus(ctx context.Context, cmd UpdateOrderStatus) (*order.Order, error) {
	change, err := order.ParseChange(cmd.OrderStatus, cmd.PaymentStatus)
	if err != nil {
		return nil, err
	}

	var (
		updated    *order.Order
		transition order.Transition
	)
	err = h.store.WithinTx(ctx, func(ctx context.Context, tx store.Repositories) error {
		o, err := tx.GetOrder(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		t, err := h.lifecycle.Apply(o, change)
		if err != nil {
			return err
		}
		updated, transition = o, t
		if !t.Changed() {
			return nil
		}

		if t.Entered(order.StatusCancelled) {
			for _, item := range o.Items {
				if err := tx.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
					if errors.Is(err, inventory.ErrProductNotFound) {
						h.logger.WithField("product_id", item.ProductID).Warn("cancelled line refers to a missing product")
						continue
					}
					return err
				}
			}
		}
		return tx.UpdateOrderStatus(ctx, t.Update(o))
	})
	if err != nil {
		return nil, err
	}

	if transition.Changed() {
		h.logger.WithFields(log.Fields{
			"order_number": updated.OrderNumber,
			"from":         transition.FromStatus,
			"to":           transition.ToStatus,
			"payment":      transition.ToPayment,
		}).Info("order status changed")
		if h.metrics != nil && transition.StatusChanged() {
			h.metrics.RecordStatusTransition(string(transition.FromStatus), string(transition.ToStatus))
		}
		h.publish(ctx, updated, order.EventOrderStatusChanged, order.NewOrderStatusChanged(updated, transition))
	}
	return updated, nil
}

// CancelOrder cancels an order on behalf of its owner or an admin.
func (h *Handler) CancelOrder(ctx context.Context, cmd CancelOrder) (*order.Order, error) {
	o, err := h.store.GetOrder(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if !cmd.IsAdmin && !o.OwnedBy(cmd.RequesterID) {
		return nil, ErrNotOwner
	}
	return h.UpdateOrderStatus(ctx, UpdateOrderStatus{
		OrderID:     o.ID,
		OrderStatus: string(order.StatusCancelled),
	})
}

func (h *Handler) DeleteOrder(ctx context.Context, orderID string) error {
	o, err := h.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	return h.store.DeleteOrder(ctx, o.ID)
}

// Catalog administration

func (h *Handler) CreateProduct(ctx context.Context, in inventory.NewProduct) (*inventory.Product, error) {
	return h.ledger.Create(ctx, in)
}

func (h *Handler) SetStock(ctx context.Context, productID string, stock int) (*inventory.Product, error) {
	if err := h.ledger.SetStock(ctx, productID, stock); err != nil {
		return nil, err
	}
	return h.ledger.Get(ctx, productID)
}

// Discount administration

func (h *Handler) CreateDiscount(ctx context.Context, in discount.NewDiscount) (*discount.Discount, error) {
	return h.discounts.Create(ctx, in)
}

func (h *Handler) UpdateDiscount(ctx context.Context, code string, patch discount.Patch) (*discount.Discount, error) {
	return h.discounts.Update(ctx, code, patch)
}

// publish wraps data in an event envelope and hands it to the publisher.
// Failures are logged and counted; the state change has already committed.
func (h *Handler) publish(ctx context.Context, o *order.Order, eventType string, data any) {
	if h.publisher == nil {
		return
	}
	entry := h.logger.WithFields(log.Fields{"order_id": o.ID, "event_type": eventType})

	event, err := store.NewEvent(o.ID, "order", eventType, o.Version, data)
	if err == nil {
		err = h.publisher.Publish(ctx, o.ID, event)
	}
	if err != nil {
		entry.WithError(err).Error("failed to publish event")
		if h.metrics != nil {
			h.metrics.RecordEventPublishError()
		}
	}
}
