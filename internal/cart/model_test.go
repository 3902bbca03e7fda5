package cart_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/truong-nd12/canteen-backend/internal/cart"
)

func TestRecomputeTotals(t *testing.T) {
	tests := []struct {
		name           string
		lines          []cart.CartLine
		wantTotalItems int
		wantTotalPrice string
	}{
		{
			name:           "empty_cart",
			lines:          nil,
			wantTotalItems: 0,
			wantTotalPrice: "0",
		},
		{
			name: "single_line",
			lines: []cart.CartLine{
				{Quantity: 2, UnitPrice: decimal.NewFromInt(30000)},
			},
			wantTotalItems: 2,
			wantTotalPrice: "60000",
		},
		{
			name: "multiple_lines",
			lines: []cart.CartLine{
				{Quantity: 2, UnitPrice: decimal.NewFromInt(30000)},
				{Quantity: 1, UnitPrice: decimal.NewFromInt(45000)},
				{Quantity: 3, UnitPrice: decimal.NewFromInt(12500)},
			},
			wantTotalItems: 6,
			wantTotalPrice: "142500",
		},
		{
			name: "fractional_prices",
			lines: []cart.CartLine{
				{Quantity: 3, UnitPrice: decimal.RequireFromString("9.99")},
			},
			wantTotalItems: 3,
			wantTotalPrice: "29.97",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &cart.Cart{
				// Seed stale totals to prove they are derived, not trusted.
				TotalItems: 99,
				TotalPrice: decimal.NewFromInt(999999),
				Lines:      tt.lines,
			}

			cart.RecomputeTotals(c)

			assert.Equal(t, tt.wantTotalItems, c.TotalItems)
			assert.True(t, c.TotalPrice.Equal(decimal.RequireFromString(tt.wantTotalPrice)),
				"want total %s, got %s", tt.wantTotalPrice, c.TotalPrice)
		})
	}
}

func TestRecomputeTotals_Idempotent(t *testing.T) {
	c := &cart.Cart{
		Lines: []cart.CartLine{
			{Quantity: 2, UnitPrice: decimal.NewFromInt(30000)},
			{Quantity: 5, UnitPrice: decimal.NewFromInt(7000)},
		},
	}

	cart.RecomputeTotals(c)
	firstItems, firstPrice := c.TotalItems, c.TotalPrice

	cart.RecomputeTotals(c)

	assert.Equal(t, firstItems, c.TotalItems)
	assert.True(t, firstPrice.Equal(c.TotalPrice))
}
