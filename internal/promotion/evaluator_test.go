package promotion_test

import (
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/truong-nd12/canteen-backend/internal/promotion"
)

var (
	evalNow   = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	evalStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	evalEnd   = time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
)

func basePromotion() *promotion.Promotion {
	return &promotion.Promotion{
		ID:             uuid.Must(uuid.NewV4()),
		Kind:           promotion.KindPercentage,
		DiscountValue:  decimal.NewFromInt(10),
		MinOrderAmount: decimal.Zero,
		Scope:          promotion.ScopeAll,
		StartDate:      evalStart,
		EndDate:        evalEnd,
		PerUserLimit:   1,
		IsActive:       true,
	}
}

func baseContext() promotion.Context {
	return promotion.Context{
		UserID:   uuid.Must(uuid.NewV4()),
		Subtotal: decimal.NewFromInt(60000),
		Now:      evalNow,
	}
}

func intPtr(n int) *int { return &n }

func decPtr(d decimal.Decimal) *decimal.Decimal { return &d }

func TestEvaluate_EligibilityChecks(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	productID := uuid.Must(uuid.NewV4())
	categoryID := uuid.Must(uuid.NewV4())

	tests := []struct {
		name       string
		mutate     func(p *promotion.Promotion)
		ctxMutate  func(c *promotion.Context)
		wantReason promotion.Reason
	}{
		{
			name:       "inactive",
			mutate:     func(p *promotion.Promotion) { p.IsActive = false },
			wantReason: promotion.ReasonInactive,
		},
		{
			name:       "before_window",
			ctxMutate:  func(c *promotion.Context) { c.Now = evalStart.Add(-time.Second) },
			wantReason: promotion.ReasonOutOfDateWindow,
		},
		{
			name:       "after_window",
			ctxMutate:  func(c *promotion.Context) { c.Now = evalEnd.Add(time.Second) },
			wantReason: promotion.ReasonOutOfDateWindow,
		},
		{
			name: "global_limit_reached",
			mutate: func(p *promotion.Promotion) {
				p.UsageLimit = intPtr(100)
				p.UsedCount = 100
			},
			wantReason: promotion.ReasonGlobalLimitReached,
		},
		{
			name:       "per_user_limit_reached",
			ctxMutate:  func(c *promotion.Context) { c.UserRedemptions = 1 },
			wantReason: promotion.ReasonPerUserLimitReached,
		},
		{
			name: "below_minimum_order",
			mutate: func(p *promotion.Promotion) {
				p.MinOrderAmount = decimal.NewFromInt(100000)
			},
			wantReason: promotion.ReasonBelowMinimumOrder,
		},
		{
			name: "product_scope_miss",
			mutate: func(p *promotion.Promotion) {
				p.Scope = promotion.ScopeProducts
				p.ApplicableProducts = []uuid.UUID{uuid.Must(uuid.NewV4())}
			},
			ctxMutate: func(c *promotion.Context) {
				c.Lines = []promotion.LineRef{{ProductID: productID, CategoryID: categoryID}}
			},
			wantReason: promotion.ReasonOutOfScope,
		},
		{
			name: "category_scope_miss",
			mutate: func(p *promotion.Promotion) {
				p.Scope = promotion.ScopeCategories
				p.ApplicableCategories = []uuid.UUID{uuid.Must(uuid.NewV4())}
			},
			ctxMutate: func(c *promotion.Context) {
				c.Lines = []promotion.LineRef{{ProductID: productID, CategoryID: categoryID}}
			},
			wantReason: promotion.ReasonOutOfScope,
		},
		{
			name: "user_scope_miss",
			mutate: func(p *promotion.Promotion) {
				p.Scope = promotion.ScopeUsers
				p.ApplicableUsers = []uuid.UUID{uuid.Must(uuid.NewV4())}
			},
			ctxMutate:  func(c *promotion.Context) { c.UserID = userID },
			wantReason: promotion.ReasonOutOfScope,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := basePromotion()
			if tt.mutate != nil {
				tt.mutate(p)
			}
			evalCtx := baseContext()
			if tt.ctxMutate != nil {
				tt.ctxMutate(&evalCtx)
			}

			result := promotion.Evaluate(p, evalCtx)

			assert.False(t, result.Eligible)
			assert.Equal(t, tt.wantReason, result.Reason)
			assert.True(t, result.Discount.IsZero())
		})
	}
}

func TestEvaluate_ChecksShortCircuitInOrder(t *testing.T) {
	// Inactive comes before the window check even when both fail.
	p := basePromotion()
	p.IsActive = false
	evalCtx := baseContext()
	evalCtx.Now = evalEnd.Add(time.Hour)

	result := promotion.Evaluate(p, evalCtx)

	assert.Equal(t, promotion.ReasonInactive, result.Reason)
}

func TestEvaluate_WindowBoundariesInclusive(t *testing.T) {
	p := basePromotion()

	for _, now := range []time.Time{evalStart, evalEnd} {
		evalCtx := baseContext()
		evalCtx.Now = now

		result := promotion.Evaluate(p, evalCtx)
		assert.True(t, result.Eligible, "expected eligibility at window boundary %s", now)
	}
}

func TestEvaluate_ScopeHits(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	productID := uuid.Must(uuid.NewV4())
	categoryID := uuid.Must(uuid.NewV4())
	lines := []promotion.LineRef{
		{ProductID: uuid.Must(uuid.NewV4()), CategoryID: uuid.Must(uuid.NewV4())},
		{ProductID: productID, CategoryID: categoryID},
	}

	tests := []struct {
		name   string
		mutate func(p *promotion.Promotion)
	}{
		{
			name: "any_line_product_matches",
			mutate: func(p *promotion.Promotion) {
				p.Scope = promotion.ScopeProducts
				p.ApplicableProducts = []uuid.UUID{productID}
			},
		},
		{
			name: "any_line_category_matches",
			mutate: func(p *promotion.Promotion) {
				p.Scope = promotion.ScopeCategories
				p.ApplicableCategories = []uuid.UUID{categoryID}
			},
		},
		{
			name: "user_matches",
			mutate: func(p *promotion.Promotion) {
				p.Scope = promotion.ScopeUsers
				p.ApplicableUsers = []uuid.UUID{userID}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := basePromotion()
			tt.mutate(p)
			evalCtx := baseContext()
			evalCtx.UserID = userID
			evalCtx.Lines = lines

			result := promotion.Evaluate(p, evalCtx)
			assert.True(t, result.Eligible)
		})
	}
}

func TestDiscount_Percentage(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		maxDiscount  *decimal.Decimal
		subtotal     string
		wantDiscount string
	}{
		{
			name:         "uncapped",
			value:        "10",
			subtotal:     "60000",
			wantDiscount: "6000",
		},
		{
			name:         "capped_by_max_discount",
			value:        "15",
			maxDiscount:  decPtr(decimal.NewFromInt(5000)),
			subtotal:     "60000",
			wantDiscount: "5000",
		},
		{
			name:         "cap_not_hit",
			value:        "5",
			maxDiscount:  decPtr(decimal.NewFromInt(5000)),
			subtotal:     "60000",
			wantDiscount: "3000",
		},
		{
			name:         "full_percentage_never_exceeds_subtotal",
			value:        "100",
			subtotal:     "8000",
			wantDiscount: "8000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := basePromotion()
			p.Kind = promotion.KindPercentage
			p.DiscountValue = decimal.RequireFromString(tt.value)
			p.MaxDiscount = tt.maxDiscount

			got := promotion.Discount(p, decimal.RequireFromString(tt.subtotal))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.wantDiscount)),
				"want %s, got %s", tt.wantDiscount, got)
		})
	}
}

func TestDiscount_FixedNeverExceedsSubtotal(t *testing.T) {
	p := basePromotion()
	p.Kind = promotion.KindFixed
	p.DiscountValue = decimal.NewFromInt(10000)

	got := promotion.Discount(p, decimal.NewFromInt(8000))

	// Discounting below zero is never allowed: the final total is exactly 0.
	assert.True(t, got.Equal(decimal.NewFromInt(8000)), "want 8000, got %s", got)
}

func TestEvaluate_EligibleComputesDiscount(t *testing.T) {
	p := basePromotion()
	p.DiscountValue = decimal.NewFromInt(15)
	p.MaxDiscount = decPtr(decimal.NewFromInt(5000))

	result := promotion.Evaluate(p, baseContext())

	assert.True(t, result.Eligible)
	assert.True(t, result.Discount.Equal(decimal.NewFromInt(5000)),
		"want 5000, got %s", result.Discount)
}
