package pricing

import (
	"github.com/example/ec-storefront/internal/apperr"
	"github.com/shopspring/decimal"
)

var (
	ErrNegativeQuantity = apperr.New(apperr.InvalidArgument, "line quantity must not be negative")
	ErrNegativePrice    = apperr.New(apperr.InvalidArgument, "line price must not be negative")
)

// Default storefront pricing parameters.
var (
	DefaultTaxRate               = decimal.RequireFromString("0.07")
	DefaultFreeShippingThreshold = decimal.NewFromInt(1000)
	DefaultFlatShippingFee       = decimal.NewFromInt(50)
)

// Line is the priced view of a cart or order line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Total returns unitPrice × quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals is the price breakdown stored alongside a cart or order.
type Totals struct {
	ItemsPrice    decimal.Decimal `json:"itemsPrice"`
	DiscountPrice decimal.Decimal `json:"discountPrice"`
	TaxPrice      decimal.Decimal `json:"taxPrice"`
	ShippingPrice decimal.Decimal `json:"shippingPrice"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
}

// Equal compares every component by value.
func (t Totals) Equal(other Totals) bool {
	return t.ItemsPrice.Equal(other.ItemsPrice) &&
		t.DiscountPrice.Equal(other.DiscountPrice) &&
		t.TaxPrice.Equal(other.TaxPrice) &&
		t.ShippingPrice.Equal(other.ShippingPrice) &&
		t.TotalPrice.Equal(other.TotalPrice)
}

// Calculator turns line lists into totals. It holds no state beyond its
// parameters and is safe for concurrent use.
type Calculator struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

// NewCalculator returns a calculator with the given parameters.
func NewCalculator(taxRate, freeShippingThreshold, flatShippingFee decimal.Decimal) *Calculator {
	return &Calculator{
		TaxRate:               taxRate,
		FreeShippingThreshold: freeShippingThreshold,
		FlatShippingFee:       flatShippingFee,
	}
}

// NewDefaultCalculator uses the default storefront parameters.
func NewDefaultCalculator() *Calculator {
	return NewCalculator(DefaultTaxRate, DefaultFreeShippingThreshold, DefaultFlatShippingFee)
}

// Calculate prices lines with no discount.
func (c *Calculator) Calculate(lines []Line) (Totals, error) {
	return c.CalculateWithDiscount(lines, decimal.Zero)
}

// CalculateWithDiscount prices lines after subtracting discount from the items price.
// Tax is charged on the discounted amount; the free shipping threshold is
// checked against the undiscounted items price. An empty list prices to zero.
func (c *Calculator) CalculateWithDiscount(lines []Line, discount decimal.Decimal) (Totals, error) {
	if len(lines) == 0 {
		return zeroTotals(), nil
	}

	items := decimal.Zero
	for _, l := range lines {
		if l.Quantity < 0 {
			return Totals{}, ErrNegativeQuantity
		}
		if l.UnitPrice.IsNegative() {
			return Totals{}, ErrNegativePrice
		}
		items = items.Add(l.Total())
	}

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(items) {
		discount = items
	}

	taxable := items.Sub(discount)
	tax := taxable.Mul(c.TaxRate).Round(2)

	shipping := c.FlatShippingFee
	if items.GreaterThan(c.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Totals{
		ItemsPrice:    items,
		DiscountPrice: discount,
		TaxPrice:      tax,
		ShippingPrice: shipping,
		TotalPrice:    taxable.Add(tax).Add(shipping),
	}, nil
}

// Verify reports whether claimed matches a fresh calculation over lines.
func (c *Calculator) Verify(lines []Line, claimed Totals) (bool, Totals, error) {
	actual, err := c.CalculateWithDiscount(lines, claimed.DiscountPrice)
	if err != nil {
		return false, Totals{}, err
	}
	return actual.Equal(claimed), actual, nil
}

func zeroTotals() Totals {
	return Totals{
		ItemsPrice:    decimal.Zero,
		DiscountPrice: decimal.Zero,
		TaxPrice:      decimal.Zero,
		ShippingPrice: decimal.Zero,
		TotalPrice:    decimal.Zero,
	}
}
