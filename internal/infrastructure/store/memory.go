package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/domain/discount"
	"github.com/example/ec-storefront/internal/domain/inventory"
	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/domain/user"
)

// MemoryStore keeps everything in process. A single mutex serialises access,
// so conditional updates are atomic and WithinTx is serialisable; rollback
// replays an undo journal.
type MemoryStore struct {
	mu   sync.Mutex
	data *memData
}

type memData struct {
	products  map[string]*inventory.Product
	discounts map[string]*discount.Discount
	orders    map[string]*order.Order
	carts     map[string]*cart.Cart
	users     map[string]*user.User
	sessions  map[string]*user.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memData{
		products:  make(map[string]*inventory.Product),
		discounts: make(map[string]*discount.Discount),
		orders:    make(map[string]*order.Order),
		carts:     make(map[string]*cart.Cart),
		users:     make(map[string]*user.User),
		sessions:  make(map[string]*user.Session),
	}}
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memRepos{d: s.data, journal: true}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) repos() *memRepos {
	return &memRepos{d: s.data}
}

// Products

func (s *MemoryStore) GetProduct(ctx context.Context, id string) (*inventory.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().GetProduct(ctx, id)
}

func (s *MemoryStore) ListProducts(ctx context.Context) ([]*inventory.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().ListProducts(ctx)
}

func (s *MemoryStore) CreateProduct(ctx context.Context, p *inventory.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().CreateProduct(ctx, p)
}

func (s *MemoryStore) SetStock(ctx context.Context, id string, stock int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().SetStock(ctx, id, stock)
}

func (s *MemoryStore) DecrementStock(ctx context.Context, id string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().DecrementStock(ctx, id, qty)
}

func (s *MemoryStore) IncrementStock(ctx context.Context, id string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().IncrementStock(ctx, id, qty)
}

// Discounts

func (s *MemoryStore) GetDiscount(ctx context.Context, code string) (*discount.Discount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().GetDiscount(ctx, code)
}

func (s *MemoryStore) ListDiscounts(ctx context.Context) ([]*discount.Discount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().ListDiscounts(ctx)
}

func (s *MemoryStore) CreateDiscount(ctx context.Context, d *discount.Discount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().CreateDiscount(ctx, d)
}

func (s *MemoryStore) UpdateDiscount(ctx context.Context, d *discount.Discount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().UpdateDiscount(ctx, d)
}

func (s *MemoryStore) RedeemDiscount(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().RedeemDiscount(ctx, code)
}

// Orders

func (s *MemoryStore) CreateOrder(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().CreateOrder(ctx, o)
}

func (s *MemoryStore) GetOrder(ctx context.Context, idOrNumber string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().GetOrder(ctx, idOrNumber)
}

func (s *MemoryStore) GetOrderByTrackingNumber(ctx context.Context, trackingNumber string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().GetOrderByTrackingNumber(ctx, trackingNumber)
}

func (s *MemoryStore) ListOrders(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().ListOrders(ctx, f)
}

func (s *MemoryStore) UpdateOrderStatus(ctx context.Context, u order.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().UpdateOrderStatus(ctx, u)
}

func (s *MemoryStore) DeleteOrder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repos().DeleteOrder(ctx, id)
}

// Carts

func (s *MemoryStore) LoadCart(_ context.Context, sessionID string) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data.carts[sessionID]
	if !ok {
		return nil, cart.ErrCartNotFound
	}
	return copyCart(c), nil
}

func (s *MemoryStore) SaveCart(_ context.Context, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := copyCart(c)
	stored.Adjustments = nil
	s.data.carts[c.SessionID] = stored
	return nil
}

func (s *MemoryStore) DeleteCart(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.carts, sessionID)
	return nil
}

// Users

func (s *MemoryStore) CreateUser(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.data.users {
		if existing.Email == u.Email {
			return user.ErrEmailTaken
		}
	}
	cp := *u
	s.data.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.data.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (s *MemoryStore) CreateSession(_ context.Context, sess *user.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.data.sessions[sess.ID] = &cp
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (*user.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.data.sessions[id]
	if !ok {
		return nil, user.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.sessions, id)
	return nil
}

func (s *MemoryStore) DeleteSessionsByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.data.sessions {
		if sess.UserID == userID {
			delete(s.data.sessions, id)
		}
	}
	return nil
}

// memRepos operates on memData with the store mutex already held.
type memRepos struct {
	d       *memData
	journal bool
	undo    []func()
}

func (r *memRepos) record(fn func()) {
	if r.journal {
		r.undo = append(r.undo, fn)
	}
}

func (r *memRepos) rollback() {
	for i := len(r.undo) - 1; i >= 0; i-- {
		r.undo[i]()
	}
	r.undo = nil
}

func (r *memRepos) GetProduct(_ context.Context, id string) (*inventory.Product, error) {
	p, ok := r.d.products[id]
	if !ok {
		return nil, inventory.ErrProductNotFound
	}
	return copyProduct(p), nil
}

func (r *memRepos) ListProducts(_ context.Context) ([]*inventory.Product, error) {
	out := make([]*inventory.Product, 0, len(r.d.products))
	for _, p := range r.d.products {
		out = append(out, copyProduct(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memRepos) CreateProduct(_ context.Context, p *inventory.Product) error {
	id := p.ID
	r.d.products[id] = copyProduct(p)
	r.record(func() { delete(r.d.products, id) })
	return nil
}

func (r *memRepos) adjustStock(id string, fn func(stock int) (int, error)) error {
	p, ok := r.d.products[id]
	if !ok {
		return inventory.ErrProductNotFound
	}
	next, err := fn(p.Stock)
	if err != nil {
		return err
	}
	prev := p.Stock
	p.Stock = next
	r.record(func() { p.Stock = prev })
	return nil
}

func (r *memRepos) SetStock(_ context.Context, id string, stock int) error {
	return r.adjustStock(id, func(int) (int, error) { return stock, nil })
}

func (r *memRepos) DecrementStock(_ context.Context, id string, qty int) error {
	return r.adjustStock(id, func(stock int) (int, error) {
		if stock < qty {
			return 0, inventory.ErrInsufficientStock
		}
		return stock - qty, nil
	})
}

func (r *memRepos) IncrementStock(_ context.Context, id string, qty int) error {
	return r.adjustStock(id, func(stock int) (int, error) { return stock + qty, nil })
}

func (r *memRepos) GetDiscount(_ context.Context, code string) (*discount.Discount, error) {
	d, ok := r.d.discounts[code]
	if !ok {
		return nil, discount.ErrDiscountNotFound
	}
	return copyDiscount(d), nil
}

func (r *memRepos) ListDiscounts(_ context.Context) ([]*discount.Discount, error) {
	out := make([]*discount.Discount, 0, len(r.d.discounts))
	for _, d := range r.d.discounts {
		out = append(out, copyDiscount(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memRepos) CreateDiscount(_ context.Context, d *discount.Discount) error {
	if _, ok := r.d.discounts[d.Code]; ok {
		return discount.ErrDuplicateCode
	}
	code := d.Code
	r.d.discounts[code] = copyDiscount(d)
	r.record(func() { delete(r.d.discounts, code) })
	return nil
}

// UpdateDiscount writes the admin-patchable fields. UsageCount stays with the
// stored record; only RedeemDiscount moves it.
func (r *memRepos) UpdateDiscount(_ context.Context, d *discount.Discount) error {
	prev, ok := r.d.discounts[d.Code]
	if !ok {
		return discount.ErrDiscountNotFound
	}
	if d.UsageLimit != nil && prev.UsageCount > *d.UsageLimit {
		return discount.ErrInvalidLimit
	}

	patch := copyDiscount(d)
	next := copyDiscount(prev)
	next.IsActive = patch.IsActive
	next.EndDate = patch.EndDate
	next.UsageLimit = patch.UsageLimit
	next.MaxDiscountAmount = patch.MaxDiscountAmount
	next.MinPurchaseAmount = patch.MinPurchaseAmount
	next.UpdatedAt = patch.UpdatedAt

	code := d.Code
	r.d.discounts[code] = next
	r.record(func() { r.d.discounts[code] = prev })
	d.UsageCount = prev.UsageCount
	return nil
}

func (r *memRepos) RedeemDiscount(_ context.Context, code string) error {
	d, ok := r.d.discounts[code]
	if !ok {
		return discount.ErrDiscountNotFound
	}
	if !d.IsActive {
		return discount.ErrDiscountInactive
	}
	if !d.InWindow(time.Now()) {
		return discount.ErrDiscountExpired
	}
	if d.Exhausted() {
		return discount.ErrUsageLimitReached
	}
	d.UsageCount++
	r.record(func() { d.UsageCount-- })
	return nil
}

func (r *memRepos) CreateOrder(_ context.Context, o *order.Order) error {
	for _, existing := range r.d.orders {
		if existing.OrderNumber == o.OrderNumber || existing.TrackingNumber == o.TrackingNumber {
			return order.ErrDuplicateIdentifier
		}
	}
	if _, ok := r.d.orders[o.ID]; ok {
		return order.ErrDuplicateIdentifier
	}
	id := o.ID
	r.d.orders[id] = copyOrder(o)
	r.record(func() { delete(r.d.orders, id) })
	return nil
}

func (r *memRepos) GetOrder(_ context.Context, idOrNumber string) (*order.Order, error) {
	if o, ok := r.d.orders[idOrNumber]; ok {
		return copyOrder(o), nil
	}
	for _, o := range r.d.orders {
		if o.OrderNumber == idOrNumber {
			return copyOrder(o), nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (r *memRepos) GetOrderByTrackingNumber(_ context.Context, trackingNumber string) (*order.Order, error) {
	for _, o := range r.d.orders {
		if o.TrackingNumber == trackingNumber {
			return copyOrder(o), nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (r *memRepos) ListOrders(_ context.Context, f order.Filter) ([]*order.Order, error) {
	out := make([]*order.Order, 0)
	for _, o := range r.d.orders {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.OrderStatus != f.Status {
			continue
		}
		out = append(out, copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderDate.Equal(out[j].OrderDate) {
			return out[i].OrderNumber > out[j].OrderNumber
		}
		return out[i].OrderDate.After(out[j].OrderDate)
	})
	return out, nil
}

func (r *memRepos) UpdateOrderStatus(_ context.Context, u order.StatusUpdate) error {
	o, ok := r.d.orders[u.ID]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.Version != u.FromVersion || o.OrderStatus != u.FromStatus || o.PaymentStatus != u.FromPayment {
		return order.ErrStatusConflict
	}
	prev := copyOrder(o)
	o.Version = u.ToVersion
	o.OrderStatus = u.ToStatus
	o.PaymentStatus = u.ToPayment
	o.DeliveryDate = copyTime(u.DeliveryDate)
	o.UpdatedAt = u.UpdatedAt
	id := u.ID
	r.record(func() { r.d.orders[id] = prev })
	return nil
}

func (r *memRepos) DeleteOrder(_ context.Context, id string) error {
	o, ok := r.d.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	delete(r.d.orders, id)
	r.record(func() { r.d.orders[id] = o })
	return nil
}
