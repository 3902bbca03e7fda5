package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type Repository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Cart, error)
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*Cart, error)
	AddLine(ctx context.Context, cart *Cart, line *CartLine) error
	UpdateLine(ctx context.Context, cart *Cart, line *CartLine) error
	RemoveLine(ctx context.Context, cart *Cart, lineID uuid.UUID) error
	Clear(ctx context.Context, cart *Cart) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	query := `
		SELECT id, user_id, total_items, total_price, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`

	var c Cart
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&c.ID,
		&c.UserID,
		&c.TotalItems,
		&c.TotalPrice,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("repository: failed to select cart for user %s: %w", userID, err)
	}

	lines, err := r.getLines(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Lines = lines

	return &c, nil
}

func (r *postgresRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	c, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrCartNotFound) {
		return nil, err
	}

	cartID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to generate cart ID: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO carts (id, user_id, total_items, total_price, created_at, updated_at)
		VALUES ($1, $2, 0, 0, $3, $3)
	`
	_, err = r.db.Exec(ctx, query, cartID, userID, now)
	if err != nil {
		// One cart per user: a concurrent first-add may have created it
		// between the select and the insert.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return r.GetByUserID(ctx, userID)
		}
		return nil, fmt.Errorf("repository: failed to create cart for user %s: %w", userID, err)
	}

	return &Cart{
		ID:        cartID,
		UserID:    userID,
		Lines:     []CartLine{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (r *postgresRepository) AddLine(ctx context.Context, cart *Cart, line *CartLine) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() { err = finishTx(ctx, tx, err) }()

	addOns, err := json.Marshal(line.AddOns)
	if err != nil {
		return fmt.Errorf("repository: failed to encode add-ons: %w", err)
	}

	queryLine := `
		INSERT INTO cart_lines (id, cart_id, product_id, quantity, size, sugar_level, ice_level, add_ons, unit_price, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = tx.Exec(ctx, queryLine,
		line.ID,
		cart.ID,
		line.ProductID,
		line.Quantity,
		line.Size,
		line.SugarLevel,
		line.IceLevel,
		addOns,
		line.UnitPrice,
		line.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert cart line: %w", err)
	}

	return r.updateTotals(ctx, tx, cart)
}

func (r *postgresRepository) UpdateLine(ctx context.Context, cart *Cart, line *CartLine) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() { err = finishTx(ctx, tx, err) }()

	addOns, err := json.Marshal(line.AddOns)
	if err != nil {
		return fmt.Errorf("repository: failed to encode add-ons: %w", err)
	}

	query := `
		UPDATE cart_lines
		SET quantity = $1, size = $2, sugar_level = $3, ice_level = $4, add_ons = $5, unit_price = $6
		WHERE id = $7 AND cart_id = $8
	`
	cmdTag, err := tx.Exec(ctx, query,
		line.Quantity,
		line.Size,
		line.SugarLevel,
		line.IceLevel,
		addOns,
		line.UnitPrice,
		line.ID,
		cart.ID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update cart line %s: %w", line.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrLineNotFound
	}

	return r.updateTotals(ctx, tx, cart)
}

func (r *postgresRepository) RemoveLine(ctx context.Context, cart *Cart, lineID uuid.UUID) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() { err = finishTx(ctx, tx, err) }()

	cmdTag, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE id = $1 AND cart_id = $2`, lineID, cart.ID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart line %s: %w", lineID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrLineNotFound
	}

	return r.updateTotals(ctx, tx, cart)
}

func (r *postgresRepository) Clear(ctx context.Context, cart *Cart) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() { err = finishTx(ctx, tx, err) }()

	_, err = tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cart.ID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart lines for cart %s: %w", cart.ID, err)
	}

	return r.updateTotals(ctx, tx, cart)
}

// updateTotals persists the totals recomputed by the service in the same
// transaction as the line mutation, so a cart row never reflects stale
// totals.
func (r *postgresRepository) updateTotals(ctx context.Context, tx pgx.Tx, cart *Cart) error {
	query := `
		UPDATE carts
		SET total_items = $1, total_price = $2, updated_at = $3
		WHERE id = $4
	`
	cmdTag, err := tx.Exec(ctx, query, cart.TotalItems, cart.TotalPrice, time.Now().UTC(), cart.ID)
	if err != nil {
		return fmt.Errorf("repository: failed to update cart totals for cart %s: %w", cart.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (r *postgresRepository) getLines(ctx context.Context, cartID uuid.UUID) ([]CartLine, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, size, sugar_level, ice_level, add_ons, unit_price, added_at
		FROM cart_lines
		WHERE cart_id = $1
		ORDER BY added_at, id
	`

	rows, err := r.db.Query(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart lines for cart %s: %w", cartID, err)
	}
	defer rows.Close()

	lines := make([]CartLine, 0)
	for rows.Next() {
		var (
			line   CartLine
			addOns []byte
		)
		err := rows.Scan(
			&line.ID,
			&line.CartID,
			&line.ProductID,
			&line.Quantity,
			&line.Size,
			&line.SugarLevel,
			&line.IceLevel,
			&addOns,
			&line.UnitPrice,
			&line.AddedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart line for cart %s: %w", cartID, err)
		}
		line.AddOns = []AddOn{}
		if len(addOns) > 0 {
			if err := json.Unmarshal(addOns, &line.AddOns); err != nil {
				return nil, fmt.Errorf("repository: failed to decode add-ons for line %s: %w", line.ID, err)
			}
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart lines for cart %s: %w", cartID, err)
	}

	return lines, nil
}

func finishTx(ctx context.Context, tx pgx.Tx, err error) error {
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			log.Error().Err(rbErr).Msg("repository: failed to rollback transaction")
		}
		return err
	}
	if commitErr := tx.Commit(ctx); commitErr != nil {
		return fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
	}
	return nil
}
