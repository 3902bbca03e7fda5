package promotion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ErrNotApplicable is the target for errors.Is when an evaluation rejected a
// promotion. The concrete error is a NotApplicableError carrying the reason.
var ErrNotApplicable = errors.New("promotion not applicable")

// ErrInvalidPromotion marks a promotion definition rejected at creation.
var ErrInvalidPromotion = errors.New("invalid promotion")

// NotApplicableError reports why a promotion was rejected.
type NotApplicableError struct {
	Reason Reason
}

func (e *NotApplicableError) Error() string {
	return fmt.Sprintf("promotion not applicable: %s", e.Reason.Message())
}

func (e *NotApplicableError) Is(target error) bool {
	return target == ErrNotApplicable
}

type Service interface {
	Create(ctx context.Context, p *Promotion) (*Promotion, error)
	GetByCode(ctx context.Context, code string) (*Promotion, error)
	// Preview evaluates a promotion against a candidate order without
	// consuming a redemption.
	Preview(ctx context.Context, code string, userID uuid.UUID, subtotal decimal.Decimal, lines []LineRef) (*Promotion, Result, error)
	// Redeem consumes one redemption for an order being placed. A lost race
	// near a limit surfaces as a NotApplicableError with the matching
	// reason.
	Redeem(ctx context.Context, promotionID, userID, orderID uuid.UUID, discount decimal.Decimal) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, p *Promotion) (*Promotion, error) {
	if !p.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidPromotion, p.Kind)
	}
	if p.DiscountValue.IsNegative() {
		return nil, fmt.Errorf("%w: discount value cannot be negative", ErrInvalidPromotion)
	}
	if p.Kind == KindPercentage && p.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("%w: percentage discount cannot exceed 100", ErrInvalidPromotion)
	}
	if p.MinOrderAmount.IsNegative() {
		return nil, fmt.Errorf("%w: minimum order amount cannot be negative", ErrInvalidPromotion)
	}
	if p.EndDate.Before(p.StartDate) {
		return nil, fmt.Errorf("%w: end date must not precede start date", ErrInvalidPromotion)
	}
	if p.UsageLimit != nil && *p.UsageLimit < 1 {
		return nil, fmt.Errorf("%w: usage limit must be at least 1", ErrInvalidPromotion)
	}
	if p.PerUserLimit < 1 {
		p.PerUserLimit = 1
	}
	if p.Scope == "" {
		p.Scope = ScopeAll
	}
	if !p.Scope.Valid() {
		return nil, fmt.Errorf("%w: unknown scope %q", ErrInvalidPromotion, p.Scope)
	}
	if p.Code != nil {
		trimmed := strings.TrimSpace(*p.Code)
		if trimmed == "" {
			p.Code = nil
		} else {
			p.Code = &trimmed
		}
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate promotion ID: %w", err)
	}
	p.ID = id
	p.UsedCount = 0
	if p.ApplicableProducts == nil {
		p.ApplicableProducts = []uuid.UUID{}
	}
	if p.ApplicableCategories == nil {
		p.ApplicableCategories = []uuid.UUID{}
	}
	if p.ApplicableUsers == nil {
		p.ApplicableUsers = []uuid.UUID{}
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("service: failed to create promotion: %w", err)
	}

	log.Info().Stringer("promotion_id", p.ID).Str("kind", string(p.Kind)).Msg("service: promotion created")
	return p, nil
}

func (s *service) GetByCode(ctx context.Context, code string) (*Promotion, error) {
	p, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrPromotionNotFound) {
			return nil, ErrPromotionNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch promotion: %w", err)
	}
	return p, nil
}

func (s *service) Preview(ctx context.Context, code string, userID uuid.UUID, subtotal decimal.Decimal, lines []LineRef) (*Promotion, Result, error) {
	p, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, Result{}, err
	}

	userRedemptions, err := s.repo.CountRedemptions(ctx, p.ID, userID)
	if err != nil {
		return nil, Result{}, fmt.Errorf("service: failed to count user redemptions: %w", err)
	}

	result := Evaluate(p, Context{
		UserID:          userID,
		Subtotal:        subtotal,
		Lines:           lines,
		UserRedemptions: userRedemptions,
		Now:             time.Now().UTC(),
	})
	return p, result, nil
}

func (s *service) Redeem(ctx context.Context, promotionID, userID, orderID uuid.UUID, discount decimal.Decimal) error {
	err := s.repo.Redeem(ctx, promotionID, userID, orderID, discount)
	switch {
	case err == nil:
		log.Info().Stringer("promotion_id", promotionID).Stringer("order_id", orderID).Msg("service: promotion redeemed")
		return nil
	case errors.Is(err, ErrUsageLimitReached):
		log.Warn().Stringer("promotion_id", promotionID).Msg("service: redemption lost race on usage limit")
		return &NotApplicableError{Reason: ReasonGlobalLimitReached}
	case errors.Is(err, ErrPerUserLimitReached):
		log.Warn().Stringer("promotion_id", promotionID).Stringer("user_id", userID).Msg("service: redemption lost race on per-user limit")
		return &NotApplicableError{Reason: ReasonPerUserLimitReached}
	case errors.Is(err, ErrPromotionNotFound):
		return ErrPromotionNotFound
	default:
		return fmt.Errorf("service: failed to redeem promotion: %w", err)
	}
}
