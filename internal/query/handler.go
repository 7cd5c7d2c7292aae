package query

import (
	"context"
	"strings"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/domain/discount"
	"github.com/example/ec-storefront/internal/domain/inventory"
	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/domain/pricing"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderAccessDenied = apperr.New(apperr.Forbidden, "order belongs to another customer")
	ErrLoginRequired     = apperr.New(apperr.Unauthorized, "sign in or provide the order email")
)

type Handler struct {
	store     store.Store
	ledger    *inventory.Ledger
	carts     *cart.Service
	evaluator *discount.Evaluator
	discounts *discount.Service
	calc      *pricing.Calculator
}

func NewHandler(st store.Store, calc *pricing.Calculator) *Handler {
	ledger := inventory.NewLedger(st)
	return &Handler{
		store:     st,
		ledger:    ledger,
		carts:     cart.NewService(st, ledger, calc),
		evaluator: discount.NewEvaluator(st, ledger),
		discounts: discount.NewService(st),
		calc:      calc,
	}
}

// Products
func (h *Handler) GetProduct(ctx context.Context, id string) (*inventory.Product, error) {
	return h.ledger.Get(ctx, id)
}

// ListProducts returns the catalog, optionally limited to one category.
func (h *Handler) ListProducts(ctx context.Context, categoryID string) ([]*inventory.Product, error) {
	products, err := h.ledger.List(ctx)
	if err != nil {
		return nil, err
	}
	if categoryID == "" {
		return products, nil
	}
	filtered := make([]*inventory.Product, 0, len(products))
	for _, p := range products {
		if p.InCategory([]string{categoryID}) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// Cart
func (h *Handler) GetCart(ctx context.Context, sessionID string) (*cart.Cart, error) {
	return h.carts.Get(ctx, sessionID)
}

// Orders

// GetOrder returns an order to its owner, an admin, or, for guest orders,
// anyone who knows the customer email.
func (h *Handler) GetOrder(ctx context.Context, idOrNumber string, access OrderAccess) (*order.Order, error) {
	o, err := h.store.GetOrder(ctx, idOrNumber)
	if err != nil {
		return nil, err
	}
	switch {
	case access.IsAdmin, o.OwnedBy(access.UserID):
		return o, nil
	case o.IsGuestOrder && access.GuestEmail != "" && strings.EqualFold(access.GuestEmail, o.Customer.Email):
		return o, nil
	case access.UserID == "":
		return nil, ErrLoginRequired
	default:
		return nil, ErrOrderAccessDenied
	}
}

func (h *Handler) ListOrdersByUser(ctx context.Context, userID string) ([]*order.Order, error) {
	if userID == "" {
		return nil, ErrLoginRequired
	}
	return h.store.ListOrders(ctx, order.Filter{UserID: userID})
}

// ListAllOrders is the admin listing; status may be empty.
func (h *Handler) ListAllOrders(ctx context.Context, status string) ([]*order.Order, error) {
	var f order.Filter
	if status != "" {
		st, err := order.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		f.Status = st
	}
	return h.store.ListOrders(ctx, f)
}

func (h *Handler) TrackOrder(ctx context.Context, trackingNumber string) (*TrackingInfo, error) {
	o, err := h.store.GetOrderByTrackingNumber(ctx, strings.TrimSpace(trackingNumber))
	if err != nil {
		return nil, err
	}
	return &TrackingInfo{
		OrderNumber:       o.OrderNumber,
		TrackingNumber:    o.TrackingNumber,
		OrderStatus:       o.OrderStatus,
		PaymentStatus:     o.PaymentStatus,
		OrderDate:         o.OrderDate,
		EstimatedDelivery: o.EstimatedDelivery,
		DeliveryDate:      o.DeliveryDate,
	}, nil
}

func (h *Handler) SalesReport(ctx context.Context) (*SalesReport, error) {
	orders, err := h.store.ListOrders(ctx, order.Filter{})
	if err != nil {
		return nil, err
	}

	report := &SalesReport{
		Revenue:       decimal.Zero,
		DiscountTotal: decimal.Zero,
		AverageOrder:  decimal.Zero,
		ByStatus:      make(map[order.Status]StatusSummary),
	}
	counted := 0
	for _, o := range orders {
		report.OrderCount++
		if o.IsGuestOrder {
			report.GuestOrders++
		} else {
			report.RegisteredUser++
		}

		summary := report.ByStatus[o.OrderStatus]
		summary.Count++
		if o.OrderStatus != order.StatusCancelled {
			summary.Revenue = summary.Revenue.Add(o.Total)
			report.Revenue = report.Revenue.Add(o.Total)
			report.DiscountTotal = report.DiscountTotal.Add(o.Discount)
			counted++
		}
		report.ByStatus[o.OrderStatus] = summary
	}
	if counted > 0 {
		report.AverageOrder = report.Revenue.Div(decimal.NewFromInt(int64(counted))).Round(2)
	}
	return report, nil
}

// Discounts

func (h *Handler) ListDiscounts(ctx context.Context) ([]*discount.Discount, error) {
	return h.discounts.List(ctx)
}

func (h *Handler) GetDiscount(ctx context.Context, code string) (*discount.Discount, error) {
	return h.discounts.Get(ctx, code)
}

// ValidateDiscount previews code against lines without redeeming it. With no
// lines the session cart is used.
func (h *Handler) ValidateDiscount(ctx context.Context, code string, lines []ValidateLine, sessionID string) (discount.Result, error) {
	var (
		priced     []pricing.Line
		productIDs []string
	)
	if len(lines) > 0 {
		for _, l := range lines {
			priced = append(priced, pricing.Line{UnitPrice: l.Price, Quantity: l.Quantity})
			productIDs = append(productIDs, l.ProductID)
		}
	} else if sessionID != "" {
		c, err := h.carts.Get(ctx, sessionID)
		if err != nil {
			return discount.Result{}, err
		}
		priced = c.Lines()
		productIDs = c.ProductIDs()
	}

	totals, err := h.calc.Calculate(priced)
	if err != nil {
		return discount.Result{}, err
	}
	return h.evaluator.Apply(ctx, code, totals.ItemsPrice, productIDs)
}
