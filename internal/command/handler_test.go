package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/domain/discount"
	"github.com/example/ec-storefront/internal/domain/inventory"
	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/domain/pricing"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/infrastructure/store/mocks"
	"github.com/example/ec-storefront/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const session = "session-1"

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestHandlerWithStore(t *testing.T, st store.Store) (*Handler, *mocks.MockPublisher) {
	t.Helper()
	pub := mocks.NewMockPublisher()
	m := metrics.NewStorefrontMetricsWithRegisterer(prometheus.NewRegistry())
	return NewHandler(st, pricing.NewDefaultCalculator(), pub, m), pub
}

func newTestHandler(t *testing.T) (*Handler, *store.MemoryStore, *mocks.MockPublisher) {
	t.Helper()
	st := store.NewMemoryStore()
	seedCatalog(t, st)
	h, pub := newTestHandlerWithStore(t, st)
	return h, st, pub
}

func seedCatalog(t *testing.T, st *store.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	for _, p := range []*inventory.Product{
		{ID: "p-500", Name: "Desk Lamp", Price: money("500"), Stock: 10, CategoryIDs: []string{"lighting"}, CreatedAt: now},
		{ID: "p-300", Name: "Notebook", Price: money("300"), Stock: 5, CategoryIDs: []string{"stationery"}, CreatedAt: now.Add(time.Second)},
		{ID: "p-rare", Name: "Signed Print", Price: money("200"), Stock: 1, CreatedAt: now.Add(2 * time.Second)},
	} {
		require.NoError(t, st.CreateProduct(ctx, p))
	}
	require.NoError(t, st.CreateDiscount(ctx, &discount.Discount{
		Code:      "SAVE10",
		Type:      discount.TypePercentage,
		Value:     money("10"),
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(24 * time.Hour),
		IsActive:  true,
	}))
}

func fillCart(t *testing.T, h *Handler) {
	t.Helper()
	ctx := context.Background()
	_, err := h.AddToCart(ctx, AddToCart{SessionID: session, ProductID: "p-500", Quantity: 2})
	require.NoError(t, err)
	_, err = h.AddToCart(ctx, AddToCart{SessionID: session, ProductID: "p-300", Quantity: 1})
	require.NoError(t, err)
}

func checkoutCmd() Checkout {
	return Checkout{
		SessionID: session,
		Customer: order.Customer{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			Phone:     "+81-3-0000-0000",
		},
		ShippingAddress: order.Address{
			Street:     "1-2-3 Ginza",
			City:       "Chuo",
			State:      "Tokyo",
			PostalCode: "104-0061",
			Country:    "JP",
		},
		PaymentMethod: "card",
	}
}

func stockOf(t *testing.T, st store.Store, id string) int {
	t.Helper()
	p, err := st.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func placeOrder(t *testing.T, h *Handler, identity *order.Identity) *order.Order {
	t.Helper()
	fillCart(t, h)
	cmd := checkoutCmd()
	cmd.Identity = identity
	o, err := h.Checkout(context.Background(), cmd)
	require.NoError(t, err)
	return o
}

// ============================================
// Cart Tests
// ============================================

func TestHandler_AddToCart_ClampsToStock(t *testing.T) {
	h, _, _ := newTestHandler(t)

	c, err := h.AddToCart(context.Background(), AddToCart{SessionID: session, ProductID: "p-300", Quantity: 8})

	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
	require.Len(t, c.Adjustments, 1)
	assert.Equal(t, cart.ReasonClamped, c.Adjustments[0].Reason)
}

func TestHandler_UpdateCartItem_RejectsAboveStock(t *testing.T) {
	h, _, _ := newTestHandler(t)
	ctx := context.Background()
	fillCart(t, h)

	_, err := h.UpdateCartItem(ctx, UpdateCartItem{SessionID: session, ProductID: "p-300", Quantity: 6})
	assert.True(t, apperr.Is(err, apperr.InsufficientStock))

	c, err := h.carts.Get(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Items[1].Quantity)
	assert.True(t, money("1391").Equal(c.TotalPrice))
}

func TestHandler_RemoveAndClearCart(t *testing.T) {
	h, _, _ := newTestHandler(t)
	ctx := context.Background()
	fillCart(t, h)

	c, err := h.RemoveFromCart(ctx, RemoveFromCart{SessionID: session, ProductID: "p-500"})
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
	assert.True(t, money("300").Equal(c.ItemsPrice))

	c, err = h.ClearCart(ctx, session)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.True(t, c.TotalPrice.IsZero())
}

// ============================================
// Checkout Tests
// ============================================

func TestHandler_Checkout_PricesAndPlacesOrder(t *testing.T) {
	h, st, pub := newTestHandler(t)
	ctx := context.Background()

	o := placeOrder(t, h, nil)

	assert.True(t, money("1300").Equal(o.Subtotal))
	assert.True(t, money("0").Equal(o.Shipping))
	assert.True(t, money("91").Equal(o.Tax))
	assert.True(t, money("1391").Equal(o.Total))
	assert.Equal(t, order.StatusConfirmed, o.OrderStatus)
	assert.Equal(t, order.PaymentPending, o.PaymentStatus)
	assert.True(t, o.IsGuestOrder)
	assert.Equal(t, order.RoleGuest, o.Customer.UserRole)
	assert.Regexp(t, `^ORD-\d{12}-[0-9A-F]{6}$`, o.OrderNumber)
	assert.Regexp(t, `^TRK\d{10}[0-9A-F]{6}$`, o.TrackingNumber)

	assert.Equal(t, 8, stockOf(t, st, "p-500"))
	assert.Equal(t, 4, stockOf(t, st, "p-300"))

	c, err := h.carts.Get(ctx, session)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	stored, err := st.GetOrder(ctx, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, o.ID, stored.ID)

	assert.Equal(t, []string{order.EventOrderPlaced}, pub.EventTypes())
	assert.Equal(t, o.ID, pub.PublishCalls[0].Key)
}

func TestHandler_Checkout_RegisteredUser(t *testing.T) {
	h, _, _ := newTestHandler(t)

	o := placeOrder(t, h, &order.Identity{UserID: "user-1", Username: "ada", Role: "customer"})

	assert.True(t, o.IsRegisteredUser)
	assert.False(t, o.IsGuestOrder)
	assert.Equal(t, "user-1", o.UserID)
	assert.Equal(t, "ada", o.Customer.Username)
}

func TestHandler_Checkout_WithDiscount(t *testing.T) {
	h, st, _ := newTestHandler(t)
	ctx := context.Background()
	fillCart(t, h)

	cmd := checkoutCmd()
	cmd.DiscountCode = "save10"
	o, err := h.Checkout(ctx, cmd)

	require.NoError(t, err)
	assert.Equal(t, "SAVE10", o.DiscountCode)
	assert.True(t, money("130").Equal(o.Discount))
	assert.True(t, money("81.9").Equal(o.Tax))
	assert.True(t, money("0").Equal(o.Shipping))
	assert.True(t, money("1251.9").Equal(o.Total))

	d, err := st.GetDiscount(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 1, d.UsageCount)
}

func TestHandler_Checkout_RejectedDiscount(t *testing.T) {
	h, st, _ := newTestHandler(t)
	ctx := context.Background()
	fillCart(t, h)

	cmd := checkoutCmd()
	cmd.DiscountCode = "NOPE"
	_, err := h.Checkout(ctx, cmd)

	assert.ErrorIs(t, err, discount.ErrDiscountNotFound)
	assert.Equal(t, 10, stockOf(t, st, "p-500"))

	c, err := h.carts.Get(ctx, session)
	require.NoError(t, err)
	assert.Len(t, c.Items, 2)
}

func TestHandler_Checkout_EmptyCart(t *testing.T) {
	h, _, pub := newTestHandler(t)

	_, err := h.Checkout(context.Background(), checkoutCmd())

	assert.ErrorIs(t, err, order.ErrEmptyOrder)
	assert.Empty(t, pub.PublishCalls)
}

func TestHandler_Checkout_MissingCustomer(t *testing.T) {
	h, st, _ := newTestHandler(t)
	fillCart(t, h)

	cmd := checkoutCmd()
	cmd.Customer.Email = ""
	_, err := h.Checkout(context.Background(), cmd)

	assert.ErrorIs(t, err, order.ErrMissingCustomer)
	assert.Equal(t, 10, stockOf(t, st, "p-500"))
}

func TestHandler_Checkout_StockDroppedSinceAdd(t *testing.T) {
	h, st, _ := newTestHandler(t)
	ctx := context.Background()
	fillCart(t, h)
	require.NoError(t, st.SetStock(ctx, "p-500", 1))

	_, err := h.Checkout(ctx, checkoutCmd())

	assert.ErrorIs(t, err, ErrCartChanged)
	assert.True(t, apperr.Is(err, apperr.Conflict))

	c, err := h.carts.Get(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Items[0].Quantity)
	assert.Equal(t, 1, stockOf(t, st, "p-500"))
}

func TestHandler_Checkout_PublishFailureDoesNotFailOrder(t *testing.T) {
	h, st, pub := newTestHandler(t)
	pub.PublishErr = errors.New("sink down")

	o := placeOrder(t, h, nil)

	_, err := st.GetOrder(context.Background(), o.ID)
	assert.NoError(t, err)
}

func TestHandler_Place_RollsBackWhenAnyLineIsShort(t *testing.T) {
	h, st, pub := newTestHandler(t)
	ctx := context.Background()

	total := money("700")
	o := &order.Order{
		ID:             "order-short",
		OrderNumber:    "ORD-SHORT",
		TrackingNumber: "TRK-SHORT",
		DiscountCode:   "SAVE10",
		Items: []order.LineItem{
			{ProductID: "p-500", Price: money("500"), Quantity: 1},
			{ProductID: "p-rare", Price: money("200"), Quantity: 2},
		},
		Total: total,
	}

	err := h.place(ctx, o)

	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Equal(t, 10, stockOf(t, st, "p-500"))
	assert.Equal(t, 1, stockOf(t, st, "p-rare"))
	d, err := st.GetDiscount(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 0, d.UsageCount)
	assert.Empty(t, pub.PublishCalls)
}

func TestHandler_Place_UsageLimitRace(t *testing.T) {
	h, st, _ := newTestHandler(t)
	ctx := context.Background()
	limit := 1
	require.NoError(t, st.UpdateDiscount(ctx, &discount.Discount{
		Code: "SAVE10", Type: discount.TypePercentage, Value: money("10"),
		StartDate: time.Now().Add(-time.Hour), EndDate: time.Now().Add(time.Hour),
		IsActive: true, UsageLimit: &limit,
	}))
	require.NoError(t, st.RedeemDiscount(ctx, "SAVE10"))

	o := &order.Order{
		ID: "order-late", OrderNumber: "ORD-LATE", TrackingNumber: "TRK-LATE",
		DiscountCode: "SAVE10",
		Items:        []order.LineItem{{ProductID: "p-500", Price: money("500"), Quantity: 1}},
	}
	err := h.place(ctx, o)

	assert.ErrorIs(t, err, discount.ErrUsageLimitReached)
	assert.Equal(t, 10, stockOf(t, st, "p-500"))
}

// duplicatingStore reports a duplicate identifier for the first n order inserts.
type duplicatingStore struct {
	*store.MemoryStore
	n int
}

type duplicatingRepos struct {
	store.Repositories
	s *duplicatingStore
}

func (s *duplicatingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Repositories) error) error {
	return s.MemoryStore.WithinTx(ctx, func(ctx context.Context, tx store.Repositories) error {
		return fn(ctx, &duplicatingRepos{Repositories: tx, s: s})
	})
}

func (r *duplicatingRepos) CreateOrder(ctx context.Context, o *order.Order) error {
	if r.s.n > 0 {
		r.s.n--
		return order.ErrDuplicateIdentifier
	}
	return r.Repositories.CreateOrder(ctx, o)
}

func TestHandler_Checkout_RetriesDuplicateIdentifiers(t *testing.T) {
	mem := store.NewMemoryStore()
	seedCatalog(t, mem)
	h, _ := newTestHandlerWithStore(t, &duplicatingStore{MemoryStore: mem, n: 2})
	fillCart(t, h)

	o, err := h.Checkout(context.Background(), checkoutCmd())

	require.NoError(t, err)
	assert.NotEmpty(t, o.OrderNumber)
	// Stock is taken once; the failed attempts rolled back.
	assert.Equal(t, 8, stockOf(t, mem, "p-500"))
}

func TestHandler_Checkout_GivesUpAfterMaxAttempts(t *testing.T) {
	mem := store.NewMemoryStore()
	seedCatalog(t, mem)
	h, _ := newTestHandlerWithStore(t, &duplicatingStore{MemoryStore: mem, n: maxPlaceAttempts})
	fillCart(t, h)

	_, err := h.Checkout(context.Background(), checkoutCmd())

	assert.ErrorIs(t, err, order.ErrDuplicateIdentifier)
	assert.Equal(t, 10, stockOf(t, mem, "p-500"))
}

// ============================================
// Place Order Tests
// ============================================

func placeOrderCmd() PlaceOrder {
	co := checkoutCmd()
	return PlaceOrder{
		Customer:        co.Customer,
		ShippingAddress: co.ShippingAddress,
		Items: []order.LineItem{
			{ProductID: "p-500", Price: money("500"), Quantity: 2},
			{ProductID: "p-300", Price: money("300"), Quantity: 1},
		},
		Pricing: &pricing.Totals{
			ItemsPrice:    money("1300"),
			DiscountPrice: money("0"),
			TaxPrice:      money("91"),
			ShippingPrice: money("0"),
			TotalPrice:    money("1391"),
		},
		PaymentMethod: "card",
	}
}

func TestHandler_PlaceOrder_Success(t *testing.T) {
	h, st, _ := newTestHandler(t)

	o, err := h.PlaceOrder(context.Background(), placeOrderCmd())

	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", o.Items[0].Name)
	assert.True(t, money("1000").Equal(o.Items[0].LineTotal))
	assert.True(t, money("1391").Equal(o.Total))
	assert.Equal(t, 4, stockOf(t, st, "p-300"))
}

func TestHandler_PlaceOrder_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PlaceOrder)
		wantErr error
	}{
		{name: "total mismatch", mutate: func(c *PlaceOrder) { c.Pricing.TotalPrice = money("1000") }, wantErr: order.ErrPricingMismatch},
		{name: "stale unit price", mutate: func(c *PlaceOrder) { c.Items[0].Price = money("450") }, wantErr: order.ErrPricingMismatch},
		{name: "unearned discount", mutate: func(c *PlaceOrder) { c.Pricing.DiscountPrice = money("10") }, wantErr: order.ErrPricingMismatch},
		{name: "missing pricing", mutate: func(c *PlaceOrder) { c.Pricing = nil }, wantErr: order.ErrMissingPricing},
		{name: "no items", mutate: func(c *PlaceOrder) { c.Items = nil }, wantErr: order.ErrEmptyOrder},
		{name: "unknown product", mutate: func(c *PlaceOrder) { c.Items[0].ProductID = "ghost" }, wantErr: inventory.ErrProductNotFound},
		{name: "missing payment method", mutate: func(c *PlaceOrder) { c.PaymentMethod = "" }, wantErr: order.ErrMissingPaymentMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, st, _ := newTestHandler(t)
			cmd := placeOrderCmd()
			tt.mutate(&cmd)

			_, err := h.PlaceOrder(context.Background(), cmd)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 10, stockOf(t, st, "p-500"))
		})
	}
}

func TestHandler_PlaceOrder_WithDiscount(t *testing.T) {
	h, _, _ := newTestHandler(t)
	cmd := placeOrderCmd()
	cmd.DiscountCode = "SAVE10"
	cmd.Pricing = &pricing.Totals{
		ItemsPrice:    money("1300"),
		DiscountPrice: money("130"),
		TaxPrice:      money("81.9"),
		ShippingPrice: money("0"),
		TotalPrice:    money("1251.9"),
	}

	o, err := h.PlaceOrder(context.Background(), cmd)

	require.NoError(t, err)
	assert.Equal(t, "SAVE10", o.DiscountCode)
}

// ============================================
// Order Lifecycle Tests
// ============================================

func TestHandler_UpdateOrderStatus_Delivered(t *testing.T) {
	h, _, pub := newTestHandler(t)
	o := placeOrder(t, h, nil)

	updated, err := h.UpdateOrderStatus(context.Background(), UpdateOrderStatus{OrderID: o.ID, OrderStatus: "delivered"})

	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, updated.OrderStatus)
	require.NotNil(t, updated.DeliveryDate)
	assert.WithinDuration(t, time.Now(), *updated.DeliveryDate, 5*time.Second)
	assert.True(t, o.Subtotal.Equal(updated.Subtotal))
	assert.Equal(t, o.Items, updated.Items)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, []string{order.EventOrderPlaced, order.EventOrderStatusChanged}, pub.EventTypes())
}

func TestHandler_UpdateOrderStatus_PaymentOnly(t *testing.T) {
	h, _, _ := newTestHandler(t)
	o := placeOrder(t, h, nil)

	updated, err := h.UpdateOrderStatus(context.Background(), UpdateOrderStatus{OrderID: o.OrderNumber, PaymentStatus: "paid"})

	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, updated.PaymentStatus)
	assert.Equal(t, order.StatusConfirmed, updated.OrderStatus)
	assert.Nil(t, updated.DeliveryDate)
}

func TestHandler_UpdateOrderStatus_Rejections(t *testing.T) {
	h, st, _ := newTestHandler(t)
	ctx := context.Background()
	o := placeOrder(t, h, nil)
	_, err := h.UpdateOrderStatus(ctx, UpdateOrderStatus{OrderID: o.ID, OrderStatus: "shipped"})
	require.NoError(t, err)

	_, err = h.UpdateOrderStatus(ctx, UpdateOrderStatus{OrderID: o.ID, OrderStatus: "lost"})
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))

	_, err = h.UpdateOrderStatus(ctx, UpdateOrderStatus{OrderID: o.ID, OrderStatus: "delivered", PaymentStatus: "bogus"})
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))

	_, err = h.UpdateOrderStatus(ctx, UpdateOrderStatus{OrderID: o.ID, OrderStatus: "processing"})
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	_, err = h.UpdateOrderStatus(ctx, UpdateOrderStatus{OrderID: "missing", OrderStatus: "shipped"})
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	stored, err := st.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, stored.OrderStatus)
	assert.Nil(t, stored.DeliveryDate)
}

func TestHandler_UpdateOrderStatus_SameStateIsNoOp(t *testing.T) {
	h, _, pub := newTestHandler(t)
	o := placeOrder(t, h, nil)

	updated, err := h.UpdateOrderStatus(context.Background(), UpdateOrderStatus{OrderID: o.ID, OrderStatus: "confirmed"})

	require.NoError(t, err)
	assert.Equal(t, 1, updated.Version)
	assert.Len(t, pub.PublishCalls, 1)
}

func TestHandler_CancelOrder_ReturnsStock(t *testing.T) {
	h, st, _ := newTestHandler(t)
	o := placeOrder(t, h, &order.Identity{UserID: "user-1", Role: "customer"})
	require.Equal(t, 8, stockOf(t, st, "p-500"))

	_, err := h.CancelOrder(context.Background(), CancelOrder{OrderID: o.ID, RequesterID: "user-2"})
	assert.ErrorIs(t, err, ErrNotOwner)

	cancelled, err := h.CancelOrder(context.Background(), CancelOrder{OrderID: o.ID, RequesterID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, cancelled.OrderStatus)
	assert.Equal(t, 10, stockOf(t, st, "p-500"))
	assert.Equal(t, 5, stockOf(t, st, "p-300"))

	// Terminal: a second cancel is a no-op and does not restock twice.
	_, err = h.CancelOrder(context.Background(), CancelOrder{OrderID: o.ID, IsAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, 10, stockOf(t, st, "p-500"))
}

func TestHandler_DeleteOrder(t *testing.T) {
	h, st, _ := newTestHandler(t)
	ctx := context.Background()
	o := placeOrder(t, h, nil)

	require.NoError(t, h.DeleteOrder(ctx, o.OrderNumber))

	_, err := st.GetOrder(ctx, o.ID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
	assert.ErrorIs(t, h.DeleteOrder(ctx, o.ID), order.ErrOrderNotFound)
}

// ============================================
// Admin Tests
// ============================================

func TestHandler_CreateProductAndSetStock(t *testing.T) {
	h, _, _ := newTestHandler(t)
	ctx := context.Background()

	p, err := h.CreateProduct(ctx, inventory.NewProduct{Name: "Pen", Price: money("120"), Stock: 3})
	require.NoError(t, err)

	updated, err := h.SetStock(ctx, p.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Stock)

	_, err = h.SetStock(ctx, p.ID, -1)
	assert.ErrorIs(t, err, inventory.ErrInvalidStock)
}

func TestHandler_DiscountAdministration(t *testing.T) {
	h, _, _ := newTestHandler(t)
	ctx := context.Background()

	d, err := h.CreateDiscount(ctx, discount.NewDiscount{
		Code:    " flat50 ",
		Type:    discount.TypeFixed,
		Value:   money("50"),
		EndDate: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "FLAT50", d.Code)

	inactive := false
	d, err = h.UpdateDiscount(ctx, "FLAT50", discount.Patch{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, d.IsActive)
}
