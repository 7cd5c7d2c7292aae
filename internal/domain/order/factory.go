package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/domain/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// RoleGuest is the customer role recorded on orders placed without a login.
	RoleGuest = "guest"

	DefaultDeliveryOffset = 3 * 24 * time.Hour
)

// Identity is the authenticated user placing an order.
type Identity struct {
	UserID   string
	Username string
	Role     string
}

type Request struct {
	Customer        Customer
	ShippingAddress Address
	Items           []LineItem
	Totals          *pricing.Totals
	PaymentMethod   string
	DiscountCode    string
	Identity        *Identity
}

// Factory builds new orders with generated identifiers.
type Factory struct {
	now            func() time.Time
	random         func(n int) string
	deliveryOffset time.Duration
}

func NewFactory() *Factory {
	return &Factory{
		now:            time.Now,
		random:         randomSuffix,
		deliveryOffset: DefaultDeliveryOffset,
	}
}

// Build validates req and snapshots it into a confirmed, payment-pending order.
// Stock is not checked here.
func (f *Factory) Build(req Request) (*Order, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	now := f.now().UTC()
	items := make([]LineItem, len(req.Items))
	for i, item := range req.Items {
		item.LineTotal = item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		items[i] = item
	}

	customer := req.Customer
	customer.Email = strings.TrimSpace(customer.Email)
	o := &Order{
		ID:                uuid.New().String(),
		OrderNumber:       f.OrderNumber(now),
		TrackingNumber:    f.TrackingNumber(now),
		ShippingAddress:   req.ShippingAddress,
		Items:             items,
		Subtotal:          req.Totals.ItemsPrice,
		Discount:          req.Totals.DiscountPrice,
		Shipping:          req.Totals.ShippingPrice,
		Tax:               req.Totals.TaxPrice,
		Total:             req.Totals.TotalPrice,
		PaymentMethod:     strings.TrimSpace(req.PaymentMethod),
		PaymentStatus:     PaymentPending,
		OrderStatus:       StatusConfirmed,
		OrderDate:         now,
		EstimatedDelivery: now.Add(f.deliveryOffset),
		UpdatedAt:         now,
		Version:           1,
	}
	if req.Totals.DiscountPrice.IsPositive() {
		o.DiscountCode = req.DiscountCode
	}

	if id := req.Identity; id != nil && id.UserID != "" {
		customer.UserID = id.UserID
		customer.Username = id.Username
		customer.UserRole = id.Role
		o.UserID = id.UserID
		o.IsRegisteredUser = true
	} else {
		customer.UserID = ""
		customer.UserRole = RoleGuest
		o.IsGuestOrder = true
	}
	o.Customer = customer

	return o, nil
}

// Regenerate replaces the order and tracking numbers after a collision.
func (f *Factory) Regenerate(o *Order) {
	now := f.now().UTC()
	o.OrderNumber = f.OrderNumber(now)
	o.TrackingNumber = f.TrackingNumber(now)
}

// OrderNumber formats ORD-YYMMDDhhmmss-XXXXXX.
func (f *Factory) OrderNumber(t time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", t.Format("060102150405"), f.random(6))
}

// TrackingNumber formats TRK followed by ten time digits and six random characters.
func (f *Factory) TrackingNumber(t time.Time) string {
	return fmt.Sprintf("TRK%010d%s", t.UnixMilli()%10_000_000_000, f.random(6))
}

func randomSuffix(n int) string {
	s := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return s[:n]
}

func validateRequest(req Request) error {
	if len(req.Items) == 0 {
		return ErrEmptyOrder
	}
	for _, item := range req.Items {
		if strings.TrimSpace(item.ProductID) == "" || item.Quantity < 1 || item.Price.IsNegative() {
			return fmt.Errorf("%w: %q", ErrInvalidItem, item.ProductID)
		}
	}

	c := req.Customer
	if strings.TrimSpace(c.FirstName) == "" || strings.TrimSpace(c.LastName) == "" || !strings.Contains(c.Email, "@") {
		return ErrMissingCustomer
	}

	a := req.ShippingAddress
	if strings.TrimSpace(a.Street) == "" || strings.TrimSpace(a.City) == "" ||
		strings.TrimSpace(a.PostalCode) == "" || strings.TrimSpace(a.Country) == "" {
		return ErrMissingAddress
	}

	if strings.TrimSpace(req.PaymentMethod) == "" {
		return ErrMissingPaymentMethod
	}
	if req.Totals == nil {
		return ErrMissingPricing
	}
	return nil
}
