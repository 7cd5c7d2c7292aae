package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/ec-storefront/internal/domain/inventory"
	"github.com/lib/pq"
)

const productColumns = `id, name, description, price, stock, images, category_ids, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*inventory.Product, error) {
	var p inventory.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
		pq.Array(&p.Images), pq.Array(&p.CategoryIDs), &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pgRepos) GetProduct(ctx context.Context, id string) (*inventory.Product, error) {
	p, err := scanProduct(r.q.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *pgRepos) ListProducts(ctx context.Context) ([]*inventory.Product, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]*inventory.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *pgRepos) CreateProduct(ctx context.Context, p *inventory.Product) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Name, p.Description, p.Price, p.Stock,
		pq.Array(p.Images), pq.Array(p.CategoryIDs), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *pgRepos) SetStock(ctx context.Context, id string, stock int) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE products SET stock = $2, updated_at = $3 WHERE id = $1`,
		id, stock, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	return requireRow(res, inventory.ErrProductNotFound)
}

// DecrementStock only succeeds while enough units remain.
func (r *pgRepos) DecrementStock(ctx context.Context, id string, qty int) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = $3
		 WHERE id = $1 AND stock >= $2`,
		id, qty, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if n == 1 {
		return nil
	}

	found, err := exists(ctx, r.q, `SELECT 1 FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if !found {
		return inventory.ErrProductNotFound
	}
	return inventory.ErrInsufficientStock
}

func (r *pgRepos) IncrementStock(ctx context.Context, id string, qty int) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = $3 WHERE id = $1`,
		id, qty, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	return requireRow(res, inventory.ErrProductNotFound)
}

// requireRow returns notFound when res touched no rows.
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
