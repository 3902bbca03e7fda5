package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/truong-nd12/canteen-backend/internal/catalog"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrLineNotFound    = errors.New("cart line not found")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidConfig   = errors.New("invalid line configuration")
)

// LineInput describes a line being added to a cart.
type LineInput struct {
	ProductID  uuid.UUID
	Quantity   int
	Size       *Size
	SugarLevel *SugarLevel
	IceLevel   *IceLevel
	AddOns     []AddOn
}

// LinePatch describes a partial update of an existing line. Nil fields are
// left unchanged. Quantity 0 removes the line.
type LinePatch struct {
	Quantity   *int
	Size       *Size
	SugarLevel *SugarLevel
	IceLevel   *IceLevel
	AddOns     *[]AddOn
}

type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*Cart, error)
	AddLine(ctx context.Context, userID uuid.UUID, input LineInput) (*Cart, error)
	UpdateLine(ctx context.Context, userID, lineID uuid.UUID, patch LinePatch) (*Cart, error)
	RemoveLine(ctx context.Context, userID, lineID uuid.UUID) (*Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo    Repository
	catalog catalog.Resolver
}

func NewService(repo Repository, resolver catalog.Resolver) Service {
	return &service{repo: repo, catalog: resolver}
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	c, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrCartNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch cart: %w", err)
	}
	return c, nil
}

func (s *service) AddLine(ctx context.Context, userID uuid.UUID, input LineInput) (*Cart, error) {
	if input.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if err := validateConfig(input.Size, input.SugarLevel, input.IceLevel, input.AddOns); err != nil {
		return nil, err
	}

	product, err := s.catalog.Resolve(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("service: failed to resolve product: %w", err)
	}

	c, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get or create cart: %w", err)
	}

	lineID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate line ID: %w", err)
	}

	line := CartLine{
		ID:         lineID,
		CartID:     c.ID,
		ProductID:  input.ProductID,
		Quantity:   input.Quantity,
		Size:       input.Size,
		SugarLevel: input.SugarLevel,
		IceLevel:   input.IceLevel,
		AddOns:     input.AddOns,
		UnitPrice:  unitPrice(product, input.Size, input.AddOns),
		AddedAt:    time.Now().UTC(),
	}
	if line.AddOns == nil {
		line.AddOns = []AddOn{}
	}

	c.Lines = append(c.Lines, line)
	RecomputeTotals(c)

	if err := s.repo.AddLine(ctx, c, &line); err != nil {
		return nil, fmt.Errorf("service: failed to add cart line: %w", err)
	}

	log.Info().Stringer("user_id", userID).Stringer("line_id", line.ID).Stringer("product_id", input.ProductID).Msg("service: cart line added")
	return c, nil
}

func (s *service) UpdateLine(ctx context.Context, userID, lineID uuid.UUID, patch LinePatch) (*Cart, error) {
	if patch.Quantity != nil && *patch.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if err := validateConfig(patch.Size, patch.SugarLevel, patch.IceLevel, nil); err != nil {
		return nil, err
	}
	if patch.AddOns != nil {
		if err := validateAddOns(*patch.AddOns); err != nil {
			return nil, err
		}
	}

	// Quantity 0 is removal.
	if patch.Quantity != nil && *patch.Quantity == 0 {
		return s.RemoveLine(ctx, userID, lineID)
	}

	c, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	line := findLine(c, lineID)
	if line == nil {
		return nil, ErrLineNotFound
	}

	if patch.Quantity != nil {
		line.Quantity = *patch.Quantity
	}
	configChanged := false
	if patch.Size != nil {
		line.Size = patch.Size
		configChanged = true
	}
	if patch.SugarLevel != nil {
		line.SugarLevel = patch.SugarLevel
	}
	if patch.IceLevel != nil {
		line.IceLevel = patch.IceLevel
	}
	if patch.AddOns != nil {
		line.AddOns = *patch.AddOns
		configChanged = true
	}

	// A size or add-on change is a new configuration, so the unit price is
	// resolved again at current catalog prices.
	if configChanged {
		product, err := s.catalog.Resolve(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("service: failed to re-resolve product: %w", err)
		}
		line.UnitPrice = unitPrice(product, line.Size, line.AddOns)
	}

	RecomputeTotals(c)

	if err := s.repo.UpdateLine(ctx, c, line); err != nil {
		return nil, fmt.Errorf("service: failed to update cart line: %w", err)
	}

	log.Info().Stringer("user_id", userID).Stringer("line_id", lineID).Msg("service: cart line updated")
	return c, nil
}

func (s *service) RemoveLine(ctx context.Context, userID, lineID uuid.UUID) (*Cart, error) {
	c, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if findLine(c, lineID) == nil {
		return nil, ErrLineNotFound
	}

	lines := c.Lines[:0]
	for _, line := range c.Lines {
		if line.ID != lineID {
			lines = append(lines, line)
		}
	}
	c.Lines = lines
	RecomputeTotals(c)

	if err := s.repo.RemoveLine(ctx, c, lineID); err != nil {
		return nil, fmt.Errorf("service: failed to remove cart line: %w", err)
	}

	log.Info().Stringer("user_id", userID).Stringer("line_id", lineID).Msg("service: cart line removed")
	return c, nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	c, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}

	c.Lines = nil
	RecomputeTotals(c)

	if err := s.repo.Clear(ctx, c); err != nil {
		return fmt.Errorf("service: failed to clear cart: %w", err)
	}

	log.Info().Stringer("user_id", userID).Msg("service: cart cleared")
	return nil
}

func unitPrice(product *catalog.Product, size *Size, addOns []AddOn) decimal.Decimal {
	var sizeName *string
	if size != nil {
		s := string(*size)
		sizeName = &s
	}
	price := product.PriceFor(sizeName)
	for _, addOn := range addOns {
		price = price.Add(addOn.UnitPrice)
	}
	return price
}

func validateConfig(size *Size, sugar *SugarLevel, ice *IceLevel, addOns []AddOn) error {
	if size != nil && !size.Valid() {
		return fmt.Errorf("%w: unknown size %q", ErrInvalidConfig, *size)
	}
	if sugar != nil && !sugar.Valid() {
		return fmt.Errorf("%w: unknown sugar level %q", ErrInvalidConfig, *sugar)
	}
	if ice != nil && !ice.Valid() {
		return fmt.Errorf("%w: unknown ice level %q", ErrInvalidConfig, *ice)
	}
	return validateAddOns(addOns)
}

func validateAddOns(addOns []AddOn) error {
	for _, addOn := range addOns {
		if addOn.Name == "" {
			return fmt.Errorf("%w: add-on name is required", ErrInvalidConfig)
		}
		if addOn.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: add-on price cannot be negative", ErrInvalidConfig)
		}
		if addOn.Calories < 0 {
			return fmt.Errorf("%w: add-on calories cannot be negative", ErrInvalidConfig)
		}
	}
	return nil
}

func findLine(c *Cart, lineID uuid.UUID) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return &c.Lines[i]
		}
	}
	return nil
}
