package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/example/ec-storefront/internal/domain/order"
)

const orderColumns = `id, order_number, tracking_number, customer, shipping_address, items,
	subtotal, discount, discount_code, shipping, tax, total,
	payment_method, payment_status, order_status, is_registered_user, is_guest_order, user_id,
	order_date, estimated_delivery, delivery_date, updated_at, version`

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o                        order.Order
		customer, address, items []byte
		payment, status          string
		delivery                 sql.NullTime
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.TrackingNumber, &customer, &address, &items,
		&o.Subtotal, &o.Discount, &o.DiscountCode, &o.Shipping, &o.Tax, &o.Total,
		&o.PaymentMethod, &payment, &status, &o.IsRegisteredUser, &o.IsGuestOrder, &o.UserID,
		&o.OrderDate, &o.EstimatedDelivery, &delivery, &o.UpdatedAt, &o.Version)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(customer, &o.Customer); err != nil {
		return nil, fmt.Errorf("decode customer: %w", err)
	}
	if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	o.PaymentStatus = order.PaymentStatus(payment)
	o.OrderStatus = order.Status(status)
	if delivery.Valid {
		t := delivery.Time
		o.DeliveryDate = &t
	}
	return &o, nil
}

func (r *pgRepos) CreateOrder(ctx context.Context, o *order.Order) error {
	customer, err := json.Marshal(o.Customer)
	if err != nil {
		return err
	}
	address, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return err
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		         $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		o.ID, o.OrderNumber, o.TrackingNumber, customer, address, items,
		o.Subtotal, o.Discount, o.DiscountCode, o.Shipping, o.Tax, o.Total,
		o.PaymentMethod, string(o.PaymentStatus), string(o.OrderStatus),
		o.IsRegisteredUser, o.IsGuestOrder, o.UserID,
		o.OrderDate, o.EstimatedDelivery, nullTime(o.DeliveryDate), o.UpdatedAt, o.Version,
	)
	if isUniqueViolation(err) {
		return order.ErrDuplicateIdentifier
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *pgRepos) getOrderWhere(ctx context.Context, where string, arg string) (*order.Order, error) {
	o, err := scanOrder(r.q.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (r *pgRepos) GetOrder(ctx context.Context, idOrNumber string) (*order.Order, error) {
	return r.getOrderWhere(ctx, `id = $1 OR order_number = $1`, idOrNumber)
}

func (r *pgRepos) GetOrderByTrackingNumber(ctx context.Context, trackingNumber string) (*order.Order, error) {
	return r.getOrderWhere(ctx, `tracking_number = $1`, trackingNumber)
}

func (r *pgRepos) ListOrders(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != "" {
		args = append(args, f.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("order_status = $%d", len(args)))
	}
	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY order_date DESC, order_number DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*order.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *pgRepos) UpdateOrderStatus(ctx context.Context, u order.StatusUpdate) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE orders
		 SET order_status = $5, payment_status = $6, delivery_date = $7, updated_at = $8, version = $9
		 WHERE id = $1 AND version = $2 AND order_status = $3 AND payment_status = $4`,
		u.ID, u.FromVersion, string(u.FromStatus), string(u.FromPayment),
		string(u.ToStatus), string(u.ToPayment), nullTime(u.DeliveryDate), u.UpdatedAt, u.ToVersion,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n == 1 {
		return nil
	}

	found, err := exists(ctx, r.q, `SELECT 1 FROM orders WHERE id = $1`, u.ID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if !found {
		return order.ErrOrderNotFound
	}
	return order.ErrStatusConflict
}

func (r *pgRepos) DeleteOrder(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return requireRow(res, order.ErrOrderNotFound)
}
