package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type OrderPlaced struct {
	OrderID        string          `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	TrackingNumber string          `json:"tracking_number"`
	UserID         string          `json:"user_id,omitempty"`
	Email          string          `json:"email"`
	CustomerName   string          `json:"customer_name"`
	Items          []LineItem      `json:"items"`
	Total          decimal.Decimal `json:"total"`
	PlacedAt       time.Time       `json:"placed_at"`
}

type OrderStatusChanged struct {
	OrderID        string        `json:"order_id"`
	OrderNumber    string        `json:"order_number"`
	TrackingNumber string        `json:"tracking_number"`
	Email          string        `json:"email"`
	CustomerName   string        `json:"customer_name"`
	FromStatus     Status        `json:"from_status"`
	ToStatus       Status        `json:"to_status"`
	FromPayment    PaymentStatus `json:"from_payment"`
	ToPayment      PaymentStatus `json:"to_payment"`
	DeliveryDate   *time.Time    `json:"delivery_date,omitempty"`
	ChangedAt      time.Time     `json:"changed_at"`
}

func NewOrderPlaced(o *Order) OrderPlaced {
	return OrderPlaced{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		TrackingNumber: o.TrackingNumber,
		UserID:         o.UserID,
		Email:          o.Customer.Email,
		CustomerName:   o.Customer.FullName(),
		Items:          o.Items,
		Total:          o.Total,
		PlacedAt:       o.OrderDate,
	}
}

func NewOrderStatusChanged(o *Order, t Transition) OrderStatusChanged {
	return OrderStatusChanged{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		TrackingNumber: o.TrackingNumber,
		Email:          o.Customer.Email,
		CustomerName:   o.Customer.FullName(),
		FromStatus:     t.FromStatus,
		ToStatus:       t.ToStatus,
		FromPayment:    t.FromPayment,
		ToPayment:      t.ToPayment,
		DeliveryDate:   o.DeliveryDate,
		ChangedAt:      t.At,
	}
}
