package query

import (
	"time"

	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/shopspring/decimal"
)

// TrackingInfo is the public view of an order looked up by tracking number.
type TrackingInfo struct {
	OrderNumber       string              `json:"orderNumber"`
	TrackingNumber    string              `json:"trackingNumber"`
	OrderStatus       order.Status        `json:"orderStatus"`
	PaymentStatus     order.PaymentStatus `json:"paymentStatus"`
	OrderDate         time.Time           `json:"orderDate"`
	EstimatedDelivery time.Time           `json:"estimatedDelivery"`
	DeliveryDate      *time.Time          `json:"deliveryDate"`
}

type StatusSummary struct {
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

// SalesReport aggregates orders. Cancelled orders are counted but contribute
// no revenue.
type SalesReport struct {
	OrderCount     int                            `json:"orderCount"`
	Revenue        decimal.Decimal                `json:"revenue"`
	DiscountTotal  decimal.Decimal                `json:"discountTotal"`
	AverageOrder   decimal.Decimal                `json:"averageOrderValue"`
	ByStatus       map[order.Status]StatusSummary `json:"byStatus"`
	GuestOrders    int                            `json:"guestOrders"`
	RegisteredUser int                            `json:"registeredUserOrders"`
}

// OrderAccess describes who is asking for an order.
type OrderAccess struct {
	UserID     string
	IsAdmin    bool
	GuestEmail string
}

// ValidateLine is one cart line submitted for discount validation.
type ValidateLine struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}
