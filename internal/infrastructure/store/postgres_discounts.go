package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/ec-storefront/internal/domain/discount"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const discountColumns = `code, discount_type, discount_value, min_purchase_amount, max_discount_amount,
	start_date, end_date, is_active, usage_limit, usage_count,
	applicable_products, applicable_categories, created_at, updated_at`

func scanDiscount(row rowScanner) (*discount.Discount, error) {
	var (
		d        discount.Discount
		maxDisc  decimal.NullDecimal
		limit    sql.NullInt64
		typeName string
	)
	err := row.Scan(&d.Code, &typeName, &d.Value, &d.MinPurchaseAmount, &maxDisc,
		&d.StartDate, &d.EndDate, &d.IsActive, &limit, &d.UsageCount,
		pq.Array(&d.ApplicableProducts), pq.Array(&d.ApplicableCategories), &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Type = discount.Type(typeName)
	if maxDisc.Valid {
		v := maxDisc.Decimal
		d.MaxDiscountAmount = &v
	}
	if limit.Valid {
		v := int(limit.Int64)
		d.UsageLimit = &v
	}
	return &d, nil
}

func discountArgs(d *discount.Discount) []any {
	var maxDisc decimal.NullDecimal
	if d.MaxDiscountAmount != nil {
		maxDisc = decimal.NullDecimal{Decimal: *d.MaxDiscountAmount, Valid: true}
	}
	var limit sql.NullInt64
	if d.UsageLimit != nil {
		limit = sql.NullInt64{Int64: int64(*d.UsageLimit), Valid: true}
	}
	return []any{
		d.Code, string(d.Type), d.Value, d.MinPurchaseAmount, maxDisc,
		d.StartDate, d.EndDate, d.IsActive, limit, d.UsageCount,
		pq.Array(d.ApplicableProducts), pq.Array(d.ApplicableCategories), d.CreatedAt, d.UpdatedAt,
	}
}

func (r *pgRepos) GetDiscount(ctx context.Context, code string) (*discount.Discount, error) {
	d, err := scanDiscount(r.q.QueryRowContext(ctx,
		`SELECT `+discountColumns+` FROM discounts WHERE code = $1`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, discount.ErrDiscountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get discount: %w", err)
	}
	return d, nil
}

func (r *pgRepos) ListDiscounts(ctx context.Context) ([]*discount.Discount, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+discountColumns+` FROM discounts ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	defer rows.Close()

	discounts := make([]*discount.Discount, 0)
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discount: %w", err)
		}
		discounts = append(discounts, d)
	}
	return discounts, rows.Err()
}

func (r *pgRepos) CreateDiscount(ctx context.Context, d *discount.Discount) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO discounts (`+discountColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		discountArgs(d)...)
	if isUniqueViolation(err) {
		return discount.ErrDuplicateCode
	}
	if err != nil {
		return fmt.Errorf("insert discount: %w", err)
	}
	return nil
}

// UpdateDiscount writes the admin-patchable columns and reads back the live
// usage_count. usage_count itself is only moved by RedeemDiscount, and a
// usage_limit below it is refused in the same statement.
func (r *pgRepos) UpdateDiscount(ctx context.Context, d *discount.Discount) error {
	var maxDisc decimal.NullDecimal
	if d.MaxDiscountAmount != nil {
		maxDisc = decimal.NullDecimal{Decimal: *d.MaxDiscountAmount, Valid: true}
	}
	var limit sql.NullInt64
	if d.UsageLimit != nil {
		limit = sql.NullInt64{Int64: int64(*d.UsageLimit), Valid: true}
	}

	err := r.q.QueryRowContext(ctx,
		`UPDATE discounts SET is_active = $2, end_date = $3, usage_limit = $4,
			max_discount_amount = $5, min_purchase_amount = $6, updated_at = $7
		 WHERE code = $1 AND ($4::integer IS NULL OR usage_count <= $4::integer)
		 RETURNING usage_count`,
		d.Code, d.IsActive, d.EndDate, limit, maxDisc, d.MinPurchaseAmount, d.UpdatedAt,
	).Scan(&d.UsageCount)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := r.GetDiscount(ctx, d.Code); err != nil {
			return err
		}
		return discount.ErrInvalidLimit
	}
	if err != nil {
		return fmt.Errorf("update discount: %w", err)
	}
	return nil
}

// RedeemDiscount bumps usage_count only while the code is active, inside its
// window and below its limit.
func (r *pgRepos) RedeemDiscount(ctx context.Context, code string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE discounts SET usage_count = usage_count + 1
		 WHERE code = $1 AND is_active
		   AND now() BETWEEN start_date AND end_date
		   AND (usage_limit IS NULL OR usage_count < usage_limit)`,
		code)
	if err != nil {
		return fmt.Errorf("redeem discount: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("redeem discount: %w", err)
	}
	if n == 1 {
		return nil
	}

	d, err := r.GetDiscount(ctx, code)
	if err != nil {
		return err
	}
	if !d.IsActive {
		return discount.ErrDiscountInactive
	}
	if !d.InWindow(time.Now()) {
		return discount.ErrDiscountExpired
	}
	return discount.ErrUsageLimitReached
}
