package command

import (
	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/domain/pricing"
)

// Cart Commands
type AddToCart struct {
	SessionID string `json:"-"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type UpdateCartItem struct {
	SessionID string `json:"-"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type RemoveFromCart struct {
	SessionID string `json:"-"`
	ProductID string `json:"productId"`
}

// Order Commands

// Checkout places an order from the session cart.
type Checkout struct {
	SessionID       string          `json:"-"`
	Customer        order.Customer  `json:"customer"`
	ShippingAddress order.Address   `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	DiscountCode    string          `json:"discountCode"`
	Identity        *order.Identity `json:"-"`
}

// PlaceOrder creates an order from client-supplied items and totals. The
// totals are recomputed and must match.
type PlaceOrder struct {
	Customer        order.Customer   `json:"customer"`
	ShippingAddress order.Address    `json:"shippingAddress"`
	Items           []order.LineItem `json:"items"`
	Pricing         *pricing.Totals  `json:"pricing"`
	PaymentMethod   string           `json:"paymentMethod"`
	DiscountCode    string           `json:"discountCode"`
	Identity        *order.Identity  `json:"-"`
}

type UpdateOrderStatus struct {
	OrderID       string `json:"-"`
	OrderStatus   string `json:"orderStatus"`
	PaymentStatus string `json:"paymentStatus"`
}

type CancelOrder struct {
	OrderID     string `json:"-"`
	RequesterID string `json:"-"`
	IsAdmin     bool   `json:"-"`
}
