package promotion

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindPercentage Kind = "percentage"
	KindFixed      Kind = "fixed"
)

func (k Kind) Valid() bool {
	return k == KindPercentage || k == KindFixed
}

type Scope string

const (
	ScopeAll        Scope = "all"
	ScopeProducts   Scope = "products"
	ScopeCategories Scope = "categories"
	ScopeUsers      Scope = "users"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeAll, ScopeProducts, ScopeCategories, ScopeUsers:
		return true
	}
	return false
}

// Promotion is a reusable discount rule. UsedCount only ever grows; a
// cancelled order does not return its redemption.
type Promotion struct {
	ID                   uuid.UUID        `json:"id"`
	Code                 *string          `json:"code,omitempty"`
	Kind                 Kind             `json:"kind"`
	DiscountValue        decimal.Decimal  `json:"discount_value"`
	MinOrderAmount       decimal.Decimal  `json:"min_order_amount"`
	MaxDiscount          *decimal.Decimal `json:"max_discount,omitempty"`
	Scope                Scope            `json:"scope"`
	ApplicableProducts   []uuid.UUID      `json:"applicable_products"`
	ApplicableCategories []uuid.UUID      `json:"applicable_categories"`
	ApplicableUsers      []uuid.UUID      `json:"applicable_users"`
	StartDate            time.Time        `json:"start_date"`
	EndDate              time.Time        `json:"end_date"`
	UsageLimit           *int             `json:"usage_limit,omitempty"`
	UsedCount            int              `json:"used_count"`
	PerUserLimit         int              `json:"per_user_limit"`
	IsActive             bool             `json:"is_active"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// Redemption is one journal entry of a promotion applied to a placed order.
type Redemption struct {
	ID             uuid.UUID       `json:"id"`
	PromotionID    uuid.UUID       `json:"promotion_id"`
	UserID         uuid.UUID       `json:"user_id"`
	OrderID        uuid.UUID       `json:"order_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	UsedAt         time.Time       `json:"used_at"`
}
