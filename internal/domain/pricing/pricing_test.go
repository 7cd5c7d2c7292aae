package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculate(t *testing.T) {
	calc := NewDefaultCalculator()

	tests := []struct {
		name     string
		lines    []Line
		items    string
		tax      string
		shipping string
		total    string
	}{
		{
			name:     "above free shipping threshold",
			lines:    []Line{{UnitPrice: d("500"), Quantity: 2}, {UnitPrice: d("300"), Quantity: 1}},
			items:    "1300",
			tax:      "91",
			shipping: "0",
			total:    "1391",
		},
		{
			name:     "below threshold pays flat fee",
			lines:    []Line{{UnitPrice: d("200"), Quantity: 1}},
			items:    "200",
			tax:      "14",
			shipping: "50",
			total:    "264",
		},
		{
			name:     "exactly at threshold still pays shipping",
			lines:    []Line{{UnitPrice: d("1000"), Quantity: 1}},
			items:    "1000",
			tax:      "70",
			shipping: "50",
			total:    "1120",
		},
		{
			name:     "tax rounded to cents",
			lines:    []Line{{UnitPrice: d("19.99"), Quantity: 3}},
			items:    "59.97",
			tax:      "4.2",
			shipping: "50",
			total:    "114.17",
		},
		{
			name:     "empty list is all zero",
			lines:    nil,
			items:    "0",
			tax:      "0",
			shipping: "0",
			total:    "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Calculate(tt.lines)
			require.NoError(t, err)
			assert.True(t, d(tt.items).Equal(got.ItemsPrice), "items: %s", got.ItemsPrice)
			assert.True(t, d(tt.tax).Equal(got.TaxPrice), "tax: %s", got.TaxPrice)
			assert.True(t, d(tt.shipping).Equal(got.ShippingPrice), "shipping: %s", got.ShippingPrice)
			assert.True(t, d(tt.total).Equal(got.TotalPrice), "total: %s", got.TotalPrice)
		})
	}
}

func TestCalculate_RejectsNegativeLines(t *testing.T) {
	calc := NewDefaultCalculator()

	_, err := calc.Calculate([]Line{{UnitPrice: d("10"), Quantity: -1}})
	assert.ErrorIs(t, err, ErrNegativeQuantity)

	_, err = calc.Calculate([]Line{{UnitPrice: d("-10"), Quantity: 1}})
	assert.ErrorIs(t, err, ErrNegativePrice)
}

func TestCalculateWithDiscount(t *testing.T) {
	calc := NewDefaultCalculator()
	lines := []Line{{UnitPrice: d("500"), Quantity: 2}, {UnitPrice: d("300"), Quantity: 1}}

	got, err := calc.CalculateWithDiscount(lines, d("130"))
	require.NoError(t, err)

	assert.True(t, d("1300").Equal(got.ItemsPrice))
	assert.True(t, d("130").Equal(got.DiscountPrice))
	assert.True(t, d("81.9").Equal(got.TaxPrice))
	// threshold uses the undiscounted items price
	assert.True(t, decimal.Zero.Equal(got.ShippingPrice))
	assert.True(t, d("1251.9").Equal(got.TotalPrice))
}

func TestCalculateWithDiscount_CapsAtItemsPrice(t *testing.T) {
	calc := NewDefaultCalculator()

	got, err := calc.CalculateWithDiscount([]Line{{UnitPrice: d("40"), Quantity: 1}}, d("100"))
	require.NoError(t, err)

	assert.True(t, d("40").Equal(got.DiscountPrice))
	assert.True(t, decimal.Zero.Equal(got.TaxPrice))
	assert.True(t, d("50").Equal(got.TotalPrice))
}

func TestCalculate_Idempotent(t *testing.T) {
	calc := NewCalculator(d("0.1"), d("100"), d("7.5"))
	lines := []Line{{UnitPrice: d("12.34"), Quantity: 4}, {UnitPrice: d("0.99"), Quantity: 11}}

	first, err := calc.Calculate(lines)
	require.NoError(t, err)
	second, err := calc.Calculate(lines)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
}

func TestVerify(t *testing.T) {
	calc := NewDefaultCalculator()
	lines := []Line{{UnitPrice: d("500"), Quantity: 2}, {UnitPrice: d("300"), Quantity: 1}}

	stored, err := calc.Calculate(lines)
	require.NoError(t, err)

	ok, _, err := calc.Verify(lines, stored)
	require.NoError(t, err)
	assert.True(t, ok)

	tampered := stored
	tampered.TotalPrice = d("1")
	ok, actual, err := calc.Verify(lines, tampered)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, d("1391").Equal(actual.TotalPrice))
}
