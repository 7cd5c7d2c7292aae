package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound   = apperr.New(apperr.NotFound, "product not found")
	ErrInsufficientStock = apperr.New(apperr.InsufficientStock, "insufficient stock")
	ErrInvalidQuantity   = apperr.New(apperr.InvalidArgument, "quantity must be positive")
	ErrInvalidStock      = apperr.New(apperr.InvalidArgument, "stock must not be negative")
	ErrInvalidName       = apperr.New(apperr.InvalidArgument, "name is required")
	ErrInvalidPrice      = apperr.New(apperr.InvalidArgument, "price must be positive")
	ErrPricePrecision    = apperr.New(apperr.InvalidArgument, "price must not have more than 2 decimal places")
)

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Images      []string        `json:"images"`
	CategoryIDs []string        `json:"categoryIds"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Image returns the primary image, if any.
func (p *Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// InCategory reports whether the product is tagged with any of ids.
func (p *Product) InCategory(ids []string) bool {
	for _, want := range ids {
		for _, have := range p.CategoryIDs {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Repository is the persistence collaborator for products and their stock.
// DecrementStock must be a single conditional update: it succeeds only while
// stock >= qty and returns ErrInsufficientStock otherwise.
type Repository interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
	CreateProduct(ctx context.Context, p *Product) error
	SetStock(ctx context.Context, id string, stock int) error
	DecrementStock(ctx context.Context, id string, qty int) error
	IncrementStock(ctx context.Context, id string, qty int) error
}

type NewProduct struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Images      []string        `json:"images"`
	CategoryIDs []string        `json:"categoryIds"`
}

// Ledger reads and adjusts product stock.
type Ledger struct {
	repo Repository
	now  func() time.Time
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo, now: time.Now}
}

func (l *Ledger) Get(ctx context.Context, id string) (*Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrProductNotFound
	}
	return l.repo.GetProduct(ctx, id)
}

func (l *Ledger) List(ctx context.Context) ([]*Product, error) {
	return l.repo.ListProducts(ctx)
}

func (l *Ledger) Create(ctx context.Context, in NewProduct) (*Product, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrInvalidName
	}
	if !in.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if !in.Price.Equal(in.Price.Round(2)) {
		return nil, ErrPricePrecision
	}
	if in.Stock < 0 {
		return nil, ErrInvalidStock
	}

	now := l.now().UTC()
	p := &Product{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Images:      append([]string(nil), in.Images...),
		CategoryIDs: append([]string(nil), in.CategoryIDs...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := l.repo.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// SetStock overrides the stock count of a product.
func (l *Ledger) SetStock(ctx context.Context, id string, stock int) error {
	if stock < 0 {
		return ErrInvalidStock
	}
	return l.repo.SetStock(ctx, id, stock)
}

// Decrement takes qty units out of stock, failing without change when fewer remain.
func (l *Ledger) Decrement(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if err := l.repo.DecrementStock(ctx, id, qty); err != nil {
		return fmt.Errorf("decrement stock of %s: %w", id, err)
	}
	return nil
}

// Restock returns qty units to stock.
func (l *Ledger) Restock(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if err := l.repo.IncrementStock(ctx, id, qty); err != nil {
		return fmt.Errorf("restock %s: %w", id, err)
	}
	return nil
}
