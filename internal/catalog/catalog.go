package catalog

import (
	"context"
	"errors"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

// Product is the slice of catalog data the ordering core needs: the price to
// freeze onto a cart line and the category used for promotion scoping.
type Product struct {
	ID         uuid.UUID
	Name       string
	CategoryID uuid.UUID
	BasePrice  decimal.Decimal
	// SizePrices overrides BasePrice per size. A missing size falls back to
	// BasePrice.
	SizePrices map[string]decimal.Decimal
}

// PriceFor returns the unit price for the given size, or the base price when
// size is nil or has no override.
func (p *Product) PriceFor(size *string) decimal.Decimal {
	if size == nil {
		return p.BasePrice
	}
	if price, ok := p.SizePrices[*size]; ok {
		return price
	}
	return p.BasePrice
}

// Resolver resolves product references at add-to-cart time. Prices are never
// re-resolved after that point.
type Resolver interface {
	Resolve(ctx context.Context, productID uuid.UUID) (*Product, error)
}
