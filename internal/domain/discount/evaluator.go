package discount

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/example/ec-storefront/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// Reason explains why a code was rejected.
type Reason string

const (
	ReasonNotFound          Reason = "not_found"
	ReasonInactive          Reason = "inactive"
	ReasonExpired           Reason = "expired"
	ReasonUsageLimitReached Reason = "usage_limit_reached"
	ReasonBelowMinimum      Reason = "below_minimum"
	ReasonNotApplicable     Reason = "not_applicable"
)

var reasonErrors = map[Reason]error{
	ReasonNotFound:          ErrDiscountNotFound,
	ReasonInactive:          ErrDiscountInactive,
	ReasonExpired:           ErrDiscountExpired,
	ReasonUsageLimitReached: ErrUsageLimitReached,
	ReasonBelowMinimum:      ErrBelowMinimum,
	ReasonNotApplicable:     ErrNotApplicable,
}

type Result struct {
	Valid          bool            `json:"valid"`
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Reason         Reason          `json:"reason,omitempty"`
	Message        string          `json:"message,omitempty"`
}

// Err returns the classified error for a rejected result, nil when valid.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	if err, ok := reasonErrors[r.Reason]; ok {
		return err
	}
	return apperr.New(apperr.InvalidArgument, "discount code rejected")
}

func rejected(code string, reason Reason) Result {
	return Result{
		Code:           code,
		DiscountAmount: decimal.Zero,
		Reason:         reason,
		Message:        reasonErrors[reason].Error(),
	}
}

// Catalog resolves product categories for category-restricted codes.
type Catalog interface {
	Get(ctx context.Context, id string) (*inventory.Product, error)
}

// Evaluator validates a code against a cart without consuming it.
type Evaluator struct {
	repo    Repository
	catalog Catalog
	now     func() time.Time
}

func NewEvaluator(repo Repository, catalog Catalog) *Evaluator {
	return &Evaluator{repo: repo, catalog: catalog, now: time.Now}
}

// Apply checks code against a cart's items price and product ids. Checks run
// in a fixed order and stop at the first failure. The returned error is only
// set for lookup failures; a rejected code is reported through Result.
func (e *Evaluator) Apply(ctx context.Context, code string, itemsPrice decimal.Decimal, productIDs []string) (Result, error) {
	code = NormalizeCode(code)
	if code == "" {
		return rejected(code, ReasonNotFound), nil
	}

	d, err := e.repo.GetDiscount(ctx, code)
	if errors.Is(err, ErrDiscountNotFound) {
		return rejected(code, ReasonNotFound), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("load discount %s: %w", code, err)
	}

	switch {
	case !d.IsActive:
		return rejected(code, ReasonInactive), nil
	case !d.InWindow(e.now()):
		return rejected(code, ReasonExpired), nil
	case d.Exhausted():
		return rejected(code, ReasonUsageLimitReached), nil
	case itemsPrice.LessThan(d.MinPurchaseAmount):
		return rejected(code, ReasonBelowMinimum), nil
	}

	if d.Restricted() {
		ok, err := e.applies(ctx, d, productIDs)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return rejected(code, ReasonNotApplicable), nil
		}
	}

	return Result{
		Valid:          true,
		Code:           code,
		DiscountAmount: d.Amount(itemsPrice),
	}, nil
}

func (e *Evaluator) applies(ctx context.Context, d *Discount, productIDs []string) (bool, error) {
	for _, id := range productIDs {
		for _, allowed := range d.ApplicableProducts {
			if id == allowed {
				return true, nil
			}
		}
	}
	if len(d.ApplicableCategories) == 0 || e.catalog == nil {
		return false, nil
	}
	for _, id := range productIDs {
		p, err := e.catalog.Get(ctx, id)
		if apperr.Is(err, apperr.NotFound) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("resolve categories of %s: %w", id, err)
		}
		if p.InCategory(d.ApplicableCategories) {
			return true, nil
		}
	}
	return false, nil
}
