package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/truong-nd12/canteen-backend/internal/cart"
	"github.com/truong-nd12/canteen-backend/internal/catalog"
	"github.com/truong-nd12/canteen-backend/internal/promotion"
	"github.com/truong-nd12/canteen-backend/internal/tracking"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrEmptyCart     = errors.New("cart is empty")
)

// PlaceOrderInput is the order-placement request: the cart snapshot comes
// from the user's current cart, the promotion is optional.
type PlaceOrderInput struct {
	UserID        uuid.UUID
	PromotionCode *string
}

type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*Order, error)
	// PreviewPromotion evaluates a promotion code against the user's
	// current cart without redeeming it or placing an order.
	PreviewPromotion(ctx context.Context, userID uuid.UUID, code string) (promotion.Result, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error)
}

type service struct {
	repo        Repository
	carts       cart.Service
	promotions  promotion.Service
	trackingSvc tracking.Service
	catalog     catalog.Resolver
}

func NewService(repo Repository, carts cart.Service, promotions promotion.Service, trackingSvc tracking.Service, resolver catalog.Resolver) Service {
	return &service{
		repo:        repo,
		carts:       carts,
		promotions:  promotions,
		trackingSvc: trackingSvc,
		catalog:     resolver,
	}
}

// PlaceOrder converts the user's cart into an order. The promotion, if any,
// is evaluated against the cart subtotal and redeemed atomically before the
// order is written; the cart is cleared once the order exists.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*Order, error) {
	c, err := s.carts.GetCart(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, cart.ErrCartNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, fmt.Errorf("service: failed to load cart: %w", err)
	}
	if len(c.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	cart.RecomputeTotals(c)
	subtotal := c.TotalPrice

	orderID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate order ID: %w", err)
	}

	discount := decimal.Zero
	var promotionID *uuid.UUID
	if input.PromotionCode != nil {
		lineRefs, err := s.lineRefs(ctx, c)
		if err != nil {
			return nil, err
		}

		promo, result, err := s.promotions.Preview(ctx, *input.PromotionCode, input.UserID, subtotal, lineRefs)
		if err != nil {
			return nil, err
		}
		if !result.Eligible {
			log.Warn().Stringer("user_id", input.UserID).Str("reason", string(result.Reason)).Msg("service: promotion rejected at placement")
			return nil, &promotion.NotApplicableError{Reason: result.Reason}
		}

		if err := s.promotions.Redeem(ctx, promo.ID, input.UserID, orderID, result.Discount); err != nil {
			return nil, err
		}
		discount = result.Discount
		promotionID = &promo.ID
	}

	ord := &Order{
		ID:          orderID,
		UserID:      input.UserID,
		Items:       itemsFromCart(orderID, c),
		Subtotal:    subtotal,
		Discount:    discount,
		Total:       subtotal.Sub(discount),
		PromotionID: promotionID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, ord); err != nil {
		// The redemption is not returned here: usage counters only grow.
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to persist order after redemption")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	if _, err := s.trackingSvc.Create(ctx, orderID, nil); err != nil {
		return nil, fmt.Errorf("service: failed to start tracking for order %s: %w", orderID, err)
	}

	// The order exists at this point; a cart that failed to clear is stale
	// state the user can recover from, not a placement failure.
	if err := s.carts.Clear(ctx, input.UserID); err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Stringer("user_id", input.UserID).Msg("service: failed to clear cart after placing order")
	}

	log.Info().Stringer("order_id", orderID).Stringer("user_id", input.UserID).Str("total", ord.Total.String()).Msg("service: order placed")
	return ord, nil
}

func (s *service) PreviewPromotion(ctx context.Context, userID uuid.UUID, code string) (promotion.Result, error) {
	c, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		if errors.Is(err, cart.ErrCartNotFound) {
			return promotion.Result{}, ErrEmptyCart
		}
		return promotion.Result{}, fmt.Errorf("service: failed to load cart: %w", err)
	}
	if len(c.Lines) == 0 {
		return promotion.Result{}, ErrEmptyCart
	}

	cart.RecomputeTotals(c)

	lineRefs, err := s.lineRefs(ctx, c)
	if err != nil {
		return promotion.Result{}, err
	}

	_, result, err := s.promotions.Preview(ctx, code, userID, c.TotalPrice, lineRefs)
	if err != nil {
		return promotion.Result{}, err
	}
	return result, nil
}

func (s *service) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	ord, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}
	return ord, nil
}

func (s *service) GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	orders, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}
	return orders, nil
}

// lineRefs resolves the category of each cart line for promotion scope
// checks. Prices stay frozen; only the category reference is read.
func (s *service) lineRefs(ctx context.Context, c *cart.Cart) ([]promotion.LineRef, error) {
	categories := make(map[uuid.UUID]uuid.UUID)
	refs := make([]promotion.LineRef, 0, len(c.Lines))
	for _, line := range c.Lines {
		categoryID, ok := categories[line.ProductID]
		if !ok {
			product, err := s.catalog.Resolve(ctx, line.ProductID)
			if err != nil {
				return nil, fmt.Errorf("service: failed to resolve product %s: %w", line.ProductID, err)
			}
			categoryID = product.CategoryID
			categories[line.ProductID] = categoryID
		}
		refs = append(refs, promotion.LineRef{ProductID: line.ProductID, CategoryID: categoryID})
	}
	return refs, nil
}

func itemsFromCart(orderID uuid.UUID, c *cart.Cart) []OrderItem {
	items := make([]OrderItem, 0, len(c.Lines))
	for _, line := range c.Lines {
		itemID, err := uuid.NewV4()
		if err != nil {
			// NewV4 only fails when the entropy source does; reuse the line
			// ID rather than aborting a priced order.
			itemID = line.ID
		}
		items = append(items, OrderItem{
			ID:         itemID,
			OrderID:    orderID,
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			Size:       line.Size,
			SugarLevel: line.SugarLevel,
			IceLevel:   line.IceLevel,
			AddOns:     line.AddOns,
		})
	}
	return items
}
