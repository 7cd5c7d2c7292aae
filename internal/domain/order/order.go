package order

import (
	"context"
	"fmt"
	"time"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/example/ec-storefront/internal/domain/pricing"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

var (
	ErrOrderNotFound        = apperr.New(apperr.NotFound, "order not found")
	ErrEmptyOrder           = apperr.New(apperr.InvalidArgument, "order must have at least one item")
	ErrInvalidItem          = apperr.New(apperr.InvalidArgument, "order item needs a product id, a quantity of at least 1 and a non-negative price")
	ErrMissingCustomer      = apperr.New(apperr.InvalidArgument, "customer first name, last name and email are required")
	ErrMissingAddress       = apperr.New(apperr.InvalidArgument, "shipping address street, city, postal code and country are required")
	ErrMissingPaymentMethod = apperr.New(apperr.InvalidArgument, "payment method is required")
	ErrMissingPricing       = apperr.New(apperr.InvalidArgument, "order pricing is required")
	ErrPricingMismatch      = apperr.New(apperr.InvalidArgument, "order pricing does not match the items")
	ErrInvalidStatus        = apperr.New(apperr.InvalidArgument, "unknown order status")
	ErrInvalidPaymentStatus = apperr.New(apperr.InvalidArgument, "unknown payment status")
	ErrNoStatusChange       = apperr.New(apperr.InvalidArgument, "orderStatus or paymentStatus is required")
	ErrInvalidTransition    = apperr.New(apperr.Conflict, "invalid status transition")
	ErrStatusConflict       = apperr.New(apperr.Conflict, "order status was changed concurrently")
	ErrDuplicateIdentifier  = apperr.New(apperr.Conflict, "order number or tracking number already exists")
)

// validTransitions defines allowed fulfillment transitions. Forward skips are
// allowed and cancellation is reachable from every non-terminal state.
var validTransitions = map[Status][]Status{
	StatusConfirmed:  {StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusDelivered, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {}, // terminal state
	StatusCancelled:  {}, // terminal state
}

var validPaymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:  {PaymentPaid, PaymentFailed},
	PaymentPaid:     {PaymentRefunded},
	PaymentFailed:   {PaymentPending},
	PaymentRefunded: {},
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := validTransitions[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	ps := PaymentStatus(s)
	if _, ok := validPaymentTransitions[ps]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentStatus, s)
	}
	return ps, nil
}

// CanTransitionTo checks if the status can move to target
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

func (p PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, allowed := range validPaymentTransitions[p] {
		if allowed == target {
			return true
		}
	}
	return false
}

type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Username  string `json:"username,omitempty"`
	UserID    string `json:"userId,omitempty"`
	UserRole  string `json:"userRole"`
}

func (c Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type LineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type Order struct {
	ID                string          `json:"id"`
	OrderNumber       string          `json:"orderNumber"`
	TrackingNumber    string          `json:"trackingNumber"`
	Customer          Customer        `json:"customer"`
	ShippingAddress   Address         `json:"shippingAddress"`
	Items             []LineItem      `json:"items"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Discount          decimal.Decimal `json:"discount"`
	DiscountCode      string          `json:"discountCode,omitempty"`
	Shipping          decimal.Decimal `json:"shipping"`
	Tax               decimal.Decimal `json:"tax"`
	Total             decimal.Decimal `json:"total"`
	PaymentMethod     string          `json:"paymentMethod"`
	PaymentStatus     PaymentStatus   `json:"paymentStatus"`
	OrderStatus       Status          `json:"orderStatus"`
	IsRegisteredUser  bool            `json:"isRegisteredUser"`
	IsGuestOrder      bool            `json:"isGuestOrder"`
	UserID            string          `json:"userId,omitempty"`
	OrderDate         time.Time       `json:"orderDate"`
	EstimatedDelivery time.Time       `json:"estimatedDelivery"`
	DeliveryDate      *time.Time      `json:"deliveryDate"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	Version           int             `json:"version"`
}

// Lines returns the priced view of the order.
func (o *Order) Lines() []pricing.Line {
	lines := make([]pricing.Line, len(o.Items))
	for i, item := range o.Items {
		lines[i] = pricing.Line{UnitPrice: item.Price, Quantity: item.Quantity}
	}
	return lines
}

func (o *Order) Totals() pricing.Totals {
	return pricing.Totals{
		ItemsPrice:    o.Subtotal,
		DiscountPrice: o.Discount,
		TaxPrice:      o.Tax,
		ShippingPrice: o.Shipping,
		TotalPrice:    o.Total,
	}
}

// OwnedBy reports whether userID placed the order.
func (o *Order) OwnedBy(userID string) bool {
	return userID != "" && o.UserID == userID
}

type Filter struct {
	UserID string
	Status Status
}

// StatusUpdate is a compare-and-swap write: it applies only while the stored
// version and statuses still equal the From values.
type StatusUpdate struct {
	ID           string
	FromVersion  int
	ToVersion    int
	FromStatus   Status
	FromPayment  PaymentStatus
	ToStatus     Status
	ToPayment    PaymentStatus
	DeliveryDate *time.Time
	UpdatedAt    time.Time
}

// Repository persists orders. CreateOrder returns ErrDuplicateIdentifier when
// the order or tracking number is already taken.
type Repository interface {
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, idOrNumber string) (*Order, error)
	GetOrderByTrackingNumber(ctx context.Context, trackingNumber string) (*Order, error)
	ListOrders(ctx context.Context, f Filter) ([]*Order, error)
	UpdateOrderStatus(ctx context.Context, u StatusUpdate) error
	DeleteOrder(ctx context.Context, id string) error
}
