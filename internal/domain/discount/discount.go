package discount

import (
	"context"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypePercentage Type = "percentage"
	TypeFixed      Type = "fixed"
)

func (t Type) Valid() bool {
	return t == TypePercentage || t == TypeFixed
}

var (
	ErrDiscountNotFound  = apperr.New(apperr.NotFound, "discount code not found")
	ErrDiscountInactive  = apperr.New(apperr.InvalidArgument, "discount code is not active")
	ErrDiscountExpired   = apperr.New(apperr.InvalidArgument, "discount code is expired or not yet valid")
	ErrUsageLimitReached = apperr.New(apperr.Conflict, "discount code usage limit reached")
	ErrBelowMinimum      = apperr.New(apperr.InvalidArgument, "order does not meet the minimum purchase amount")
	ErrNotApplicable     = apperr.New(apperr.InvalidArgument, "discount code does not apply to any item")
	ErrDuplicateCode     = apperr.New(apperr.Conflict, "discount code already exists")

	ErrInvalidCode       = apperr.New(apperr.InvalidArgument, "discount code is required")
	ErrInvalidType       = apperr.New(apperr.InvalidArgument, "discount type must be percentage or fixed")
	ErrInvalidValue      = apperr.New(apperr.InvalidArgument, "discount value must be positive")
	ErrPercentageTooHigh = apperr.New(apperr.InvalidArgument, "percentage discount must not exceed 100")
	ErrInvalidWindow     = apperr.New(apperr.InvalidArgument, "end date must be after start date")
	ErrInvalidLimit      = apperr.New(apperr.InvalidArgument, "usage limit must be at least the current usage count and positive")
	ErrInvalidAmount     = apperr.New(apperr.InvalidArgument, "amounts must not be negative")
)

type Discount struct {
	Code                 string           `json:"code"`
	Type                 Type             `json:"discountType"`
	Value                decimal.Decimal  `json:"discountValue"`
	MinPurchaseAmount    decimal.Decimal  `json:"minPurchaseAmount"`
	MaxDiscountAmount    *decimal.Decimal `json:"maxDiscountAmount,omitempty"`
	StartDate            time.Time        `json:"startDate"`
	EndDate              time.Time        `json:"endDate"`
	IsActive             bool             `json:"isActive"`
	UsageLimit           *int             `json:"usageLimit,omitempty"`
	UsageCount           int              `json:"usageCount"`
	ApplicableProducts   []string         `json:"applicableProducts"`
	ApplicableCategories []string         `json:"applicableCategories"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
}

// NormalizeCode returns the canonical (trimmed, uppercase) form of a code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// InWindow reports whether t lies within [StartDate, EndDate].
func (d *Discount) InWindow(t time.Time) bool {
	return !t.Before(d.StartDate) && !t.After(d.EndDate)
}

func (d *Discount) Exhausted() bool {
	return d.UsageLimit != nil && d.UsageCount >= *d.UsageLimit
}

func (d *Discount) Restricted() bool {
	return len(d.ApplicableProducts) > 0 || len(d.ApplicableCategories) > 0
}

// Amount computes the reduction for itemsPrice, rounded to cents.
// Percentage discounts are capped at MaxDiscountAmount; fixed discounts never
// exceed itemsPrice.
func (d *Discount) Amount(itemsPrice decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch d.Type {
	case TypePercentage:
		amount = itemsPrice.Mul(d.Value).Div(decimal.NewFromInt(100))
		if d.MaxDiscountAmount != nil && amount.GreaterThan(*d.MaxDiscountAmount) {
			amount = *d.MaxDiscountAmount
		}
	case TypeFixed:
		amount = decimal.Min(d.Value, itemsPrice)
	default:
		return decimal.Zero
	}
	if amount.GreaterThan(itemsPrice) {
		amount = itemsPrice
	}
	return amount.Round(2)
}

// Repository persists discounts. RedeemDiscount must increment usage_count in
// one conditional update that fails with ErrUsageLimitReached once the limit is
// hit, and with ErrDiscountExpired outside the validity window. UpdateDiscount
// writes only the Patch fields, never usage_count: it refuses a usage limit below
// the live count with ErrInvalidLimit and copies the live count back into d.
type Repository interface {
	GetDiscount(ctx context.Context, code string) (*Discount, error)
	ListDiscounts(ctx context.Context) ([]*Discount, error)
	CreateDiscount(ctx context.Context, d *Discount) error
	UpdateDiscount(ctx context.Context, d *Discount) error
	RedeemDiscount(ctx context.Context, code string) error
}
