package cart

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Size string

const (
	SizeS Size = "S"
	SizeM Size = "M"
	SizeL Size = "L"
)

func (s Size) Valid() bool {
	switch s {
	case SizeS, SizeM, SizeL:
		return true
	}
	return false
}

type SugarLevel string

const (
	SugarNone SugarLevel = "0%"
	SugarHalf SugarLevel = "50%"
	SugarFull SugarLevel = "100%"
)

func (s SugarLevel) Valid() bool {
	switch s {
	case SugarNone, SugarHalf, SugarFull:
		return true
	}
	return false
}

type IceLevel string

const (
	IceNone   IceLevel = "No Ice"
	IceLess   IceLevel = "Less Ice"
	IceNormal IceLevel = "Normal Ice"
)

func (i IceLevel) Valid() bool {
	switch i {
	case IceNone, IceLess, IceNormal:
		return true
	}
	return false
}

// AddOn is an extra applied to a cart line. Its price is part of the frozen
// unit price of the line.
type AddOn struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Calories  int             `json:"calories"`
}

// CartLine is one ordered configuration of a product. UnitPrice is resolved
// from the catalog when the line is added and never re-resolved.
type CartLine struct {
	ID         uuid.UUID       `json:"id"`
	CartID     uuid.UUID       `json:"cart_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Quantity   int             `json:"quantity"`
	Size       *Size           `json:"size,omitempty"`
	SugarLevel *SugarLevel     `json:"sugar_level,omitempty"`
	IceLevel   *IceLevel       `json:"ice_level,omitempty"`
	AddOns     []AddOn         `json:"add_ons"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	AddedAt    time.Time       `json:"added_at"`
}

// Cart holds a user's pending lines. TotalItems and TotalPrice are derived
// from Lines by RecomputeTotals and are never set independently.
type Cart struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	Lines      []CartLine      `json:"lines"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// RecomputeTotals derives TotalItems and TotalPrice from the cart lines. It
// must run before every persistence of a cart; stored totals are a
// projection of the lines, not independent state.
func RecomputeTotals(c *Cart) {
	totalItems := 0
	totalPrice := decimal.Zero
	for i := range c.Lines {
		line := &c.Lines[i]
		totalItems += line.Quantity
		totalPrice = totalPrice.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	c.TotalItems = totalItems
	c.TotalPrice = totalPrice
}
