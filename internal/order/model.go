package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/truong-nd12/canteen-backend/internal/cart"
)

// OrderItem is a snapshot of a cart line at placement time. It keeps the
// configured unit price, so later catalog changes never affect a placed
// order.
type OrderItem struct {
	ID         uuid.UUID        `json:"id"`
	OrderID    uuid.UUID        `json:"order_id"`
	ProductID  uuid.UUID        `json:"product_id"`
	Quantity   int              `json:"quantity"`
	UnitPrice  decimal.Decimal  `json:"unit_price"`
	Size       *cart.Size       `json:"size,omitempty"`
	SugarLevel *cart.SugarLevel `json:"sugar_level,omitempty"`
	IceLevel   *cart.IceLevel   `json:"ice_level,omitempty"`
	AddOns     []cart.AddOn     `json:"add_ons"`
}

type Order struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Items       []OrderItem     `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
	PromotionID *uuid.UUID      `json:"promotion_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
