package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/domain/pricing"
)

type pgCarts struct {
	q querier
}

func (r *pgCarts) LoadCart(ctx context.Context, sessionID string) (*cart.Cart, error) {
	var items, totals []byte
	c := cart.Cart{SessionID: sessionID}
	err := r.q.QueryRowContext(ctx,
		`SELECT items, totals, updated_at FROM carts WHERE session_id = $1`, sessionID,
	).Scan(&items, &totals, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cart.ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if err := json.Unmarshal(items, &c.Items); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	var t pricing.Totals
	if err := json.Unmarshal(totals, &t); err != nil {
		return nil, fmt.Errorf("decode cart totals: %w", err)
	}
	c.Totals = t
	return &c, nil
}

// SaveCart writes items and totals together.
func (r *pgCarts) SaveCart(ctx context.Context, c *cart.Cart) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return err
	}
	totals, err := json.Marshal(c.Totals)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx,
		`INSERT INTO carts (session_id, items, totals, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id)
		 DO UPDATE SET items = EXCLUDED.items, totals = EXCLUDED.totals, updated_at = EXCLUDED.updated_at`,
		c.SessionID, items, totals, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (r *pgCarts) DeleteCart(ctx context.Context, sessionID string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM carts WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
