package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/example/ec-storefront/internal/domain/inventory"
	"github.com/example/ec-storefront/internal/domain/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrCartNotFound      = apperr.New(apperr.NotFound, "cart not found")
	ErrItemNotInCart     = apperr.New(apperr.NotFound, "item not in cart")
	ErrInvalidQuantity   = apperr.New(apperr.InvalidArgument, "quantity must be at least 1")
	ErrInvalidSession    = apperr.New(apperr.InvalidArgument, "cart session is required")
	ErrInvalidProductID  = apperr.New(apperr.InvalidArgument, "product id is required")
	ErrInsufficientStock = apperr.New(apperr.InsufficientStock, "requested quantity exceeds available stock")
)

// Adjustment reasons reported back to the client.
const (
	ReasonClamped    = "clamped_to_stock"
	ReasonOutOfStock = "out_of_stock"
	ReasonRemoved    = "product_removed"
	ReasonRepriced   = "price_changed"
)

type LineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

// Adjustment describes a change the engine made on the caller's behalf.
type Adjustment struct {
	ProductID string `json:"productId"`
	Requested int    `json:"requested"`
	Applied   int    `json:"applied"`
	Reason    string `json:"reason"`
}

type Cart struct {
	SessionID string     `json:"sessionId"`
	Items     []LineItem `json:"items"`
	pricing.Totals
	UpdatedAt   time.Time    `json:"updatedAt"`
	Adjustments []Adjustment `json:"adjustments,omitempty"`
}

func newCart(sessionID string) *Cart {
	return &Cart{SessionID: sessionID, Items: []LineItem{}}
}

// Lines returns the priced view of the cart.
func (c *Cart) Lines() []pricing.Line {
	lines := make([]pricing.Line, len(c.Items))
	for i, item := range c.Items {
		lines[i] = pricing.Line{UnitPrice: item.UnitPrice, Quantity: item.Quantity}
	}
	return lines
}

func (c *Cart) ProductIDs() []string {
	ids := make([]string, len(c.Items))
	for i, item := range c.Items {
		ids[i] = item.ProductID
	}
	return ids
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) find(productID string) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Catalog supplies live product data.
type Catalog interface {
	Get(ctx context.Context, id string) (*inventory.Product, error)
}

// Store persists carts keyed by session id. SaveCart writes items and totals together.
type Store interface {
	LoadCart(ctx context.Context, sessionID string) (*Cart, error)
	SaveCart(ctx context.Context, c *Cart) error
	DeleteCart(ctx context.Context, sessionID string) error
}

type Service struct {
	store   Store
	catalog Catalog
	calc    *pricing.Calculator
	now     func() time.Time
}

func NewService(store Store, catalog Catalog, calc *pricing.Calculator) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		calc:    calc,
		now:     time.Now,
	}
}

// NewSessionID returns a fresh opaque cart session id.
func NewSessionID() string {
	return uuid.New().String()
}

// Get returns the session's cart with freshly computed totals. A session with
// no stored cart gets an empty one.
func (s *Service) Get(ctx context.Context, sessionID string) (*Cart, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.price(c); err != nil {
		return nil, err
	}
	return c, nil
}

// AddItem merges qty units of a product into the cart. The resulting line is
// clamped to live stock; the call fails only when no unit at all can be added.
func (s *Service) AddItem(ctx context.Context, sessionID, productID string, qty int) (*Cart, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, ErrInvalidProductID
	}
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	p, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	idx := c.find(productID)
	existing := 0
	if idx >= 0 {
		existing = c.Items[idx].Quantity
	}

	requested := existing + qty
	applied := min(requested, p.Stock)
	if applied <= existing {
		return nil, fmt.Errorf("add %s (%d in cart, %d in stock): %w", productID, existing, p.Stock, ErrInsufficientStock)
	}

	if idx >= 0 {
		c.Items[idx].Quantity = applied
	} else {
		c.Items = append(c.Items, LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Image:     p.Image(),
			Quantity:  applied,
		})
	}
	if applied < requested {
		c.Adjustments = append(c.Adjustments, Adjustment{
			ProductID: productID,
			Requested: requested,
			Applied:   applied,
			Reason:    ReasonClamped,
		})
	}

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateQuantity sets a line's quantity. Requests above live stock are rejected
// and leave the cart unchanged.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID, productID string, qty int) (*Cart, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, ErrInvalidProductID
	}
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	p, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if qty > p.Stock {
		return nil, fmt.Errorf("set %s to %d (%d in stock): %w", productID, qty, p.Stock, ErrInsufficientStock)
	}

	idx := c.find(productID)
	if idx < 0 {
		return nil, ErrItemNotInCart
	}
	c.Items[idx].Quantity = qty

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveItem drops a line. Removing an absent product is not an error.
func (s *Service) RemoveItem(ctx context.Context, sessionID, productID string) (*Cart, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	idx := c.find(productID)
	if idx < 0 {
		if err := s.price(c); err != nil {
			return nil, err
		}
		return c, nil
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Refresh re-reads every line from the catalog: prices and names are updated,
// missing or sold-out products are dropped and quantities re-clamped.
func (s *Service) Refresh(ctx context.Context, sessionID string) (*Cart, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	kept := make([]LineItem, 0, len(c.Items))
	for _, item := range c.Items {
		p, err := s.catalog.Get(ctx, item.ProductID)
		if err != nil {
			if apperr.Is(err, apperr.NotFound) {
				c.Adjustments = append(c.Adjustments, Adjustment{
					ProductID: item.ProductID,
					Requested: item.Quantity,
					Reason:    ReasonRemoved,
				})
				continue
			}
			return nil, fmt.Errorf("refresh %s: %w", item.ProductID, err)
		}

		if p.Stock <= 0 {
			c.Adjustments = append(c.Adjustments, Adjustment{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Reason:    ReasonOutOfStock,
			})
			continue
		}
		if item.Quantity > p.Stock {
			c.Adjustments = append(c.Adjustments, Adjustment{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Applied:   p.Stock,
				Reason:    ReasonClamped,
			})
			item.Quantity = p.Stock
		}
		if !item.UnitPrice.Equal(p.Price) {
			c.Adjustments = append(c.Adjustments, Adjustment{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Applied:   item.Quantity,
				Reason:    ReasonRepriced,
			})
		}

		item.Name = p.Name
		item.UnitPrice = p.Price
		item.Image = p.Image()
		kept = append(kept, item)
	}
	c.Items = kept

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, sessionID string) (*Cart, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	c := newCart(sessionID)
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) load(ctx context.Context, sessionID string) (*Cart, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	c, err := s.store.LoadCart(ctx, sessionID)
	if errors.Is(err, ErrCartNotFound) {
		return newCart(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if c.Items == nil {
		c.Items = []LineItem{}
	}
	c.Adjustments = nil
	return c, nil
}

func (s *Service) price(c *Cart) error {
	totals, err := s.calc.Calculate(c.Lines())
	if err != nil {
		return fmt.Errorf("price cart: %w", err)
	}
	c.Totals = totals
	return nil
}

func (s *Service) save(ctx context.Context, c *Cart) error {
	if err := s.price(c); err != nil {
		return err
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.store.SaveCart(ctx, c); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
