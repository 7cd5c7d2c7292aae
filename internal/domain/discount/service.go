package discount

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type NewDiscount struct {
	Code                 string           `json:"code"`
	Type                 Type             `json:"discountType"`
	Value                decimal.Decimal  `json:"discountValue"`
	MinPurchaseAmount    decimal.Decimal  `json:"minPurchaseAmount"`
	MaxDiscountAmount    *decimal.Decimal `json:"maxDiscountAmount"`
	StartDate            time.Time        `json:"startDate"`
	EndDate              time.Time        `json:"endDate"`
	IsActive             *bool            `json:"isActive"`
	UsageLimit           *int             `json:"usageLimit"`
	ApplicableProducts   []string         `json:"applicableProducts"`
	ApplicableCategories []string         `json:"applicableCategories"`
}

// Patch lists the only fields an update may touch. Nil fields are left alone.
type Patch struct {
	IsActive          *bool            `json:"isActive"`
	EndDate           *time.Time       `json:"endDate"`
	UsageLimit        *int             `json:"usageLimit"`
	MaxDiscountAmount *decimal.Decimal `json:"maxDiscountAmount"`
	MinPurchaseAmount *decimal.Decimal `json:"minPurchaseAmount"`
}

// Service administers discount codes.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Create(ctx context.Context, in NewDiscount) (*Discount, error) {
	now := s.now().UTC()
	d := &Discount{
		Code:                 NormalizeCode(in.Code),
		Type:                 in.Type,
		Value:                in.Value,
		MinPurchaseAmount:    in.MinPurchaseAmount,
		MaxDiscountAmount:    in.MaxDiscountAmount,
		StartDate:            in.StartDate.UTC(),
		EndDate:              in.EndDate.UTC(),
		IsActive:             true,
		UsageLimit:           in.UsageLimit,
		ApplicableProducts:   append([]string{}, in.ApplicableProducts...),
		ApplicableCategories: append([]string{}, in.ApplicableCategories...),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	}
	if d.StartDate.IsZero() {
		d.StartDate = now
	}
	if err := validate(d); err != nil {
		return nil, err
	}

	if err := s.repo.CreateDiscount(ctx, d); err != nil {
		return nil, fmt.Errorf("create discount %s: %w", d.Code, err)
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, code string) (*Discount, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrDiscountNotFound
	}
	return s.repo.GetDiscount(ctx, code)
}

func (s *Service) List(ctx context.Context) ([]*Discount, error) {
	return s.repo.ListDiscounts(ctx)
}

// Update applies an allow-listed patch and re-validates the result before
// writing. The write never touches the usage count, so redemptions that land
// between the read and the write are kept; the returned discount carries the
// live count.
func (s *Service) Update(ctx context.Context, code string, patch Patch) (*Discount, error) {
	d, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}

	if patch.IsActive != nil {
		d.IsActive = *patch.IsActive
	}
	if patch.EndDate != nil {
		d.EndDate = patch.EndDate.UTC()
	}
	if patch.UsageLimit != nil {
		d.UsageLimit = patch.UsageLimit
	}
	if patch.MaxDiscountAmount != nil {
		d.MaxDiscountAmount = patch.MaxDiscountAmount
	}
	if patch.MinPurchaseAmount != nil {
		d.MinPurchaseAmount = *patch.MinPurchaseAmount
	}
	if err := validate(d); err != nil {
		return nil, err
	}
	d.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateDiscount(ctx, d); err != nil {
		return nil, fmt.Errorf("update discount %s: %w", d.Code, err)
	}
	return d, nil
}

func validate(d *Discount) error {
	if d.Code == "" {
		return ErrInvalidCode
	}
	if !d.Type.Valid() {
		return ErrInvalidType
	}
	if !d.Value.IsPositive() {
		return ErrInvalidValue
	}
	if d.Type == TypePercentage && d.Value.GreaterThan(decimal.NewFromInt(100)) {
		return ErrPercentageTooHigh
	}
	if d.MinPurchaseAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if d.MaxDiscountAmount != nil && !d.MaxDiscountAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if d.EndDate.IsZero() || !d.EndDate.After(d.StartDate) {
		return ErrInvalidWindow
	}
	if d.UsageLimit != nil && (*d.UsageLimit < 1 || *d.UsageLimit < d.UsageCount) {
		return ErrInvalidLimit
	}
	return nil
}
