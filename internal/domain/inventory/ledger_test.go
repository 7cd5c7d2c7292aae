package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu       sync.Mutex
	products map[string]*Product
}

func newFakeRepo(products ...*Product) *fakeRepo {
	r := &fakeRepo{products: map[string]*Product{}}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeRepo) GetProduct(_ context.Context, id string) (*Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) ListProducts(_ context.Context) ([]*Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Product, 0, len(r.products))
	for _, p := range r.products {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeRepo) CreateProduct(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *fakeRepo) SetStock(_ context.Context, id string, stock int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.Stock = stock
	return nil
}

func (r *fakeRepo) DecrementStock(_ context.Context, id string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return ErrProductNotFound
	}
	if p.Stock < qty {
		return ErrInsufficientStock
	}
	p.Stock -= qty
	return nil
}

func (r *fakeRepo) IncrementStock(_ context.Context, id string, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.Stock += qty
	return nil
}

// ============================================
// Create Tests
// ============================================

func TestLedger_Create(t *testing.T) {
	ledger := NewLedger(newFakeRepo())

	p, err := ledger.Create(context.Background(), NewProduct{
		Name:        "  Mug ",
		Price:       decimal.NewFromInt(500),
		Stock:       3,
		Images:      []string{"mug.png"},
		CategoryIDs: []string{"kitchen"},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Mug", p.Name)
	assert.Equal(t, "mug.png", p.Image())
	assert.True(t, p.InCategory([]string{"garden", "kitchen"}))

	stored, err := ledger.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Stock)
}

func TestLedger_Create_CentPrecisionPrice(t *testing.T) {
	ledger := NewLedger(newFakeRepo())

	p, err := ledger.Create(context.Background(), NewProduct{Name: "Pen", Price: decimal.RequireFromString("19.990"), Stock: 1})

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("19.99").Equal(p.Price))
}

func TestLedger_Create_Validation(t *testing.T) {
	ledger := NewLedger(newFakeRepo())

	tests := []struct {
		name string
		in   NewProduct
		want error
	}{
		{"empty name", NewProduct{Price: decimal.NewFromInt(1)}, ErrInvalidName},
		{"zero price", NewProduct{Name: "x"}, ErrInvalidPrice},
		{"negative stock", NewProduct{Name: "x", Price: decimal.NewFromInt(1), Stock: -1}, ErrInvalidStock},
		{"sub-cent price", NewProduct{Name: "x", Price: decimal.RequireFromString("19.995")}, ErrPricePrecision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Create(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
		})
	}
}

// ============================================
// Stock Tests
// ============================================

func TestLedger_Decrement(t *testing.T) {
	repo := newFakeRepo(&Product{ID: "p1", Stock: 3})
	ledger := NewLedger(repo)
	ctx := context.Background()

	require.NoError(t, ledger.Decrement(ctx, "p1", 2))

	err := ledger.Decrement(ctx, "p1", 2)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, apperr.InsufficientStock, apperr.KindOf(err))

	p, _ := ledger.Get(ctx, "p1")
	assert.Equal(t, 1, p.Stock)
}

func TestLedger_Decrement_InvalidQuantity(t *testing.T) {
	ledger := NewLedger(newFakeRepo(&Product{ID: "p1", Stock: 3}))

	assert.ErrorIs(t, ledger.Decrement(context.Background(), "p1", 0), ErrInvalidQuantity)
	assert.ErrorIs(t, ledger.Restock(context.Background(), "p1", -2), ErrInvalidQuantity)
}

func TestLedger_RestockAndSetStock(t *testing.T) {
	ledger := NewLedger(newFakeRepo(&Product{ID: "p1", Stock: 1}))
	ctx := context.Background()

	require.NoError(t, ledger.Restock(ctx, "p1", 4))
	p, _ := ledger.Get(ctx, "p1")
	assert.Equal(t, 5, p.Stock)

	require.NoError(t, ledger.SetStock(ctx, "p1", 0))
	p, _ = ledger.Get(ctx, "p1")
	assert.Equal(t, 0, p.Stock)

	assert.ErrorIs(t, ledger.SetStock(ctx, "p1", -1), ErrInvalidStock)
	assert.ErrorIs(t, ledger.SetStock(ctx, "missing", 1), ErrProductNotFound)
}

func TestLedger_Get_EmptyID(t *testing.T) {
	ledger := NewLedger(newFakeRepo())

	_, err := ledger.Get(context.Background(), " ")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}
