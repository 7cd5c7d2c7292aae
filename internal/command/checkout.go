package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/domain/pricing"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Checkout turns the session cart into an order. The cart is refreshed first;
// if that changes anything the checkout stops with ErrCartChanged so the
// customer sees the new cart. On success the cart is emptied.
func (h *Handler) Checkout(ctx context.Context, cmd Checkout) (*order.Order, error) {
	started := time.Now()
	o, err := h.checkout(ctx, cmd)
	h.recordCheckout(started, err)
	return o, err
}

func (h *Handler) checkout(ctx context.Context, cmd Checkout) (*order.Order, error) {
	c, err := h.carts.Refresh(ctx, cmd.SessionID)
	if err != nil {
		return nil, err
	}
	h.recordAdjustments(c)
	if len(c.Adjustments) > 0 {
		return nil, ErrCartChanged
	}
	if c.IsEmpty() {
		return nil, order.ErrEmptyOrder
	}

	items := make([]order.LineItem, len(c.Items))
	for i, item := range c.Items {
		items[i] = order.LineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.UnitPrice,
			Quantity:  item.Quantity,
			Image:     item.Image,
		}
	}

	code, amount, err := h.discountFor(ctx, cmd.DiscountCode, c.ItemsPrice, c.ProductIDs())
	if err != nil {
		return nil, err
	}
	totals, err := h.calc.CalculateWithDiscount(c.Lines(), amount)
	if err != nil {
		return nil, err
	}

	o, err := h.factory.Build(order.Request{
		Customer:        cmd.Customer,
		ShippingAddress: cmd.ShippingAddress,
		Items:           items,
		Totals:          &totals,
		PaymentMethod:   cmd.PaymentMethod,
		DiscountCode:    code,
		Identity:        cmd.Identity,
	})
	if err != nil {
		return nil, err
	}

	if err := h.place(ctx, o); err != nil {
		return nil, err
	}

	if _, err := h.carts.Clear(ctx, cmd.SessionID); err != nil {
		h.logger.WithError(err).WithField("order_number", o.OrderNumber).Warn("order placed but cart not cleared")
	}
	return o, nil
}

// PlaceOrder creates an order from client-supplied lines. Each unit price must
// equal the catalog price and the claimed totals must equal a fresh
// calculation, discount included.
func (h *Handler) PlaceOrder(ctx context.Context, cmd PlaceOrder) (*order.Order, error) {
	started := time.Now()
	o, err := h.placeOrder(ctx, cmd)
	h.recordCheckout(started, err)
	return o, err
}

func (h *Handler) placeOrder(ctx context.Context, cmd PlaceOrder) (*order.Order, error) {
	if len(cmd.Items) == 0 {
		return nil, order.ErrEmptyOrder
	}
	if cmd.Pricing == nil {
		return nil, order.ErrMissingPricing
	}

	items := make([]order.LineItem, len(cmd.Items))
	lines := make([]pricing.Line, len(cmd.Items))
	productIDs := make([]string, len(cmd.Items))
	for i, item := range cmd.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: %q", order.ErrInvalidItem, item.ProductID)
		}
		p, err := h.ledger.Get(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if !item.Price.Equal(p.Price) {
			return nil, fmt.Errorf("%w: price of %s is %s", order.ErrPricingMismatch, p.ID, p.Price.StringFixed(2))
		}
		if item.Name == "" {
			item.Name = p.Name
		}
		if item.Image == "" {
			item.Image = p.Image()
		}
		items[i] = item
		lines[i] = pricing.Line{UnitPrice: item.Price, Quantity: item.Quantity}
		productIDs[i] = item.ProductID
	}

	itemsTotal, err := h.calc.Calculate(lines)
	if err != nil {
		return nil, err
	}
	code, amount, err := h.discountFor(ctx, cmd.DiscountCode, itemsTotal.ItemsPrice, productIDs)
	if err != nil {
		return nil, err
	}
	if !amount.Equal(cmd.Pricing.DiscountPrice) {
		return nil, fmt.Errorf("%w: discount should be %s", order.ErrPricingMismatch, amount.StringFixed(2))
	}
	ok, actual, err := h.calc.Verify(lines, *cmd.Pricing)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: total should be %s", order.ErrPricingMismatch, actual.TotalPrice.StringFixed(2))
	}

	o, err := h.factory.Build(order.Request{
		Customer:        cmd.Customer,
		ShippingAddress: cmd.ShippingAddress,
		Items:           items,
		Totals:          &actual,
		PaymentMethod:   cmd.PaymentMethod,
		DiscountCode:    code,
		Identity:        cmd.Identity,
	})
	if err != nil {
		return nil, err
	}
	if err := h.place(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// discountFor evaluates a code. A blank code means no discount; a rejected
// code fails the order.
func (h *Handler) discountFor(ctx context.Context, code string, itemsPrice decimal.Decimal, productIDs []string) (string, decimal.Decimal, error) {
	if strings.TrimSpace(code) == "" {
		return "", decimal.Zero, nil
	}
	res, err := h.evaluator.Apply(ctx, code, itemsPrice, productIDs)
	if err != nil {
		return "", decimal.Zero, err
	}
	if err := res.Err(); err != nil {
		return "", decimal.Zero, err
	}
	return res.Code, res.DiscountAmount, nil
}

// place commits o: stock is decremented conditionally for every line, the
// discount redeemed and the order inserted, all in one transaction. A
// duplicate order or tracking number regenerates both and retries.
func (h *Handler) place(ctx context.Context, o *order.Order) error {
	var err error
	for attempt := 1; attempt <= maxPlaceAttempts; attempt++ {
		err = h.store.WithinTx(ctx, func(ctx context.Context, tx store.Repositories) error {
			for _, item := range o.Items {
				if err := tx.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
					return fmt.Errorf("reserve %s: %w", item.ProductID, err)
				}
			}
			if o.DiscountCode != "" {
				if err := tx.RedeemDiscount(ctx, o.DiscountCode); err != nil {
					return fmt.Errorf("redeem %s: %w", o.DiscountCode, err)
				}
			}
			return tx.CreateOrder(ctx, o)
		})
		if !errors.Is(err, order.ErrDuplicateIdentifier) {
			break
		}
		h.logger.WithFields(log.Fields{"attempt": attempt, "order_number": o.OrderNumber}).Warn("duplicate order identifier, regenerating")
		if h.metrics != nil {
			h.metrics.RecordIdentifierRetry()
		}
		h.factory.Regenerate(o)
	}
	if err != nil {
		return err
	}

	h.logger.WithFields(log.Fields{
		"order_number": o.OrderNumber,
		"total":        o.Total.StringFixed(2),
		"guest":        o.IsGuestOrder,
	}).Info("order placed")
	if h.metrics != nil && o.DiscountCode != "" {
		h.metrics.RecordDiscountRedeemed()
	}
	h.publish(ctx, o, order.EventOrderPlaced, order.NewOrderPlaced(o))
	return nil
}

func (h *Handler) recordCheckout(started time.Time, err error) {
	if h.metrics == nil {
		return
	}
	if err != nil {
		h.metrics.RecordCheckoutFailure(apperr.KindOf(err).String())
		return
	}
	h.metrics.RecordOrderPlaced(time.Since(started))
}
