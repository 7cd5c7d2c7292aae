package order

import (
	"fmt"
	"time"
)

// Change is a requested status update. A nil field leaves that axis alone.
type Change struct {
	OrderStatus   *Status
	PaymentStatus *PaymentStatus
}

// ParseChange validates raw enum values before anything is loaded or written.
func ParseChange(orderStatus, paymentStatus string) (Change, error) {
	var ch Change
	if orderStatus == "" && paymentStatus == "" {
		return ch, ErrNoStatusChange
	}
	if orderStatus != "" {
		st, err := ParseStatus(orderStatus)
		if err != nil {
			return ch, err
		}
		ch.OrderStatus = &st
	}
	if paymentStatus != "" {
		ps, err := ParsePaymentStatus(paymentStatus)
		if err != nil {
			return ch, err
		}
		ch.PaymentStatus = &ps
	}
	return ch, nil
}

// Transition records what Apply did.
type Transition struct {
	FromVersion int
	ToVersion   int
	FromStatus  Status
	ToStatus    Status
	FromPayment PaymentStatus
	ToPayment   PaymentStatus
	At          time.Time
}

func (t Transition) Changed() bool {
	return t.FromStatus != t.ToStatus || t.FromPayment != t.ToPayment
}

func (t Transition) StatusChanged() bool {
	return t.FromStatus != t.ToStatus
}

// Entered reports whether the transition moved the order into s.
func (t Transition) Entered(s Status) bool {
	return t.StatusChanged() && t.ToStatus == s
}

// Update returns the compare-and-swap write for this transition.
func (t Transition) Update(o *Order) StatusUpdate {
	return StatusUpdate{
		ID:           o.ID,
		FromVersion:  t.FromVersion,
		ToVersion:    t.ToVersion,
		FromStatus:   t.FromStatus,
		FromPayment:  t.FromPayment,
		ToStatus:     t.ToStatus,
		ToPayment:    t.ToPayment,
		DeliveryDate: o.DeliveryDate,
		UpdatedAt:    o.UpdatedAt,
	}
}

// Lifecycle enforces the order and payment state machines.
type Lifecycle struct {
	now func() time.Time
}

func NewLifecycle() *Lifecycle {
	return &Lifecycle{now: time.Now}
}

// Apply moves o through ch. Both axes are checked before either is written;
// writing the current value is a no-op. Entering delivered stamps DeliveryDate
// with the transition time.
func (l *Lifecycle) Apply(o *Order, ch Change) (Transition, error) {
	t := Transition{
		FromVersion: o.Version,
		ToVersion:   o.Version,
		FromStatus:  o.OrderStatus,
		ToStatus:    o.OrderStatus,
		FromPayment: o.PaymentStatus,
		ToPayment:   o.PaymentStatus,
	}

	if ch.OrderStatus != nil && *ch.OrderStatus != o.OrderStatus {
		if !o.OrderStatus.CanTransitionTo(*ch.OrderStatus) {
			return t, fmt.Errorf("%w: order %s cannot go from %s to %s",
				ErrInvalidTransition, o.OrderNumber, o.OrderStatus, *ch.OrderStatus)
		}
		t.ToStatus = *ch.OrderStatus
	}
	if ch.PaymentStatus != nil && *ch.PaymentStatus != o.PaymentStatus {
		if !o.PaymentStatus.CanTransitionTo(*ch.PaymentStatus) {
			return t, fmt.Errorf("%w: payment of order %s cannot go from %s to %s",
				ErrInvalidTransition, o.OrderNumber, o.PaymentStatus, *ch.PaymentStatus)
		}
		t.ToPayment = *ch.PaymentStatus
	}
	if !t.Changed() {
		return t, nil
	}

	t.At = l.now().UTC()
	t.ToVersion = o.Version + 1
	o.Version = t.ToVersion
	o.OrderStatus = t.ToStatus
	o.PaymentStatus = t.ToPayment
	o.UpdatedAt = t.At
	if t.Entered(StatusDelivered) {
		at := t.At
		o.DeliveryDate = &at
	}
	return t, nil
}
