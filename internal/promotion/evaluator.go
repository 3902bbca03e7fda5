package promotion

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Reason identifies which eligibility check a promotion failed.
type Reason string

const (
	ReasonInactive            Reason = "Inactive"
	ReasonOutOfDateWindow     Reason = "OutOfDateWindow"
	ReasonGlobalLimitReached  Reason = "GlobalLimitReached"
	ReasonPerUserLimitReached Reason = "PerUserLimitReached"
	ReasonBelowMinimumOrder   Reason = "BelowMinimumOrder"
	ReasonOutOfScope          Reason = "OutOfScope"
)

// Message returns the user-facing explanation for a rejection reason.
func (r Reason) Message() string {
	switch r {
	case ReasonInactive:
		return "promotion is not active"
	case ReasonOutOfDateWindow:
		return "promotion is not valid at this time"
	case ReasonGlobalLimitReached:
		return "promotion has reached its usage limit"
	case ReasonPerUserLimitReached:
		return "you have already used this promotion"
	case ReasonBelowMinimumOrder:
		return "minimum order amount not met"
	case ReasonOutOfScope:
		return "promotion does not apply to these items"
	}
	return "promotion not applicable"
}

// LineRef carries the product and category references of a cart line for
// scope checks.
type LineRef struct {
	ProductID  uuid.UUID
	CategoryID uuid.UUID
}

// Context is the candidate order a promotion is evaluated against.
type Context struct {
	UserID          uuid.UUID
	Subtotal        decimal.Decimal
	Lines           []LineRef
	UserRedemptions int
	Now             time.Time
}

// Result is the outcome of an evaluation. Evaluate never fails: an
// ineligible promotion yields Eligible=false with a Reason.
type Result struct {
	Eligible bool
	Discount decimal.Decimal
	Reason   Reason
}

// Evaluate decides eligibility and computes the discount. Checks run in a
// fixed order and short-circuit on the first failure.
func Evaluate(p *Promotion, evalCtx Context) Result {
	if !p.IsActive {
		return ineligible(ReasonInactive)
	}
	if evalCtx.Now.Before(p.StartDate) || evalCtx.Now.After(p.EndDate) {
		return ineligible(ReasonOutOfDateWindow)
	}
	if p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit {
		return ineligible(ReasonGlobalLimitReached)
	}
	if evalCtx.UserRedemptions >= p.PerUserLimit {
		return ineligible(ReasonPerUserLimitReached)
	}
	if evalCtx.Subtotal.LessThan(p.MinOrderAmount) {
		return ineligible(ReasonBelowMinimumOrder)
	}
	if !inScope(p, evalCtx) {
		return ineligible(ReasonOutOfScope)
	}

	return Result{
		Eligible: true,
		Discount: Discount(p, evalCtx.Subtotal),
	}
}

// Discount computes the discount amount for an eligible promotion. The
// result never exceeds the subtotal.
func Discount(p *Promotion, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch p.Kind {
	case KindPercentage:
		discount = subtotal.Mul(p.DiscountValue).Div(decimal.NewFromInt(100))
		if p.MaxDiscount != nil && discount.GreaterThan(*p.MaxDiscount) {
			discount = *p.MaxDiscount
		}
	case KindFixed:
		discount = p.DiscountValue
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return discount
}

func inScope(p *Promotion, evalCtx Context) bool {
	switch p.Scope {
	case ScopeProducts:
		for _, line := range evalCtx.Lines {
			if containsID(p.ApplicableProducts, line.ProductID) {
				return true
			}
		}
		return false
	case ScopeCategories:
		for _, line := range evalCtx.Lines {
			if containsID(p.ApplicableCategories, line.CategoryID) {
				return true
			}
		}
		return false
	case ScopeUsers:
		return containsID(p.ApplicableUsers, evalCtx.UserID)
	}
	return true
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func ineligible(reason Reason) Result {
	return Result{Eligible: false, Discount: decimal.Zero, Reason: reason}
}
