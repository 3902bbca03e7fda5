package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/truong-nd12/canteen-backend/internal/cart"
)

type Repository interface {
	Create(ctx context.Context, ord *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, ord *Order) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", ord.ID).Msg("repository: failed to rollback order insert")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit order insert: %w", commitErr)
		}
	}()

	queryOrder := `
		INSERT INTO orders (id, user_id, subtotal, discount, total, promotion_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.Exec(ctx, queryOrder,
		ord.ID,
		ord.UserID,
		ord.Subtotal,
		ord.Discount,
		ord.Total,
		ord.PromotionID,
		ord.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	queryItem := `
		INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, size, sugar_level, ice_level, add_ons)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for i := range ord.Items {
		item := &ord.Items[i]

		addOns, marshalErr := json.Marshal(item.AddOns)
		if marshalErr != nil {
			err = fmt.Errorf("repository: failed to encode add-ons for item %s: %w", item.ID, marshalErr)
			return err
		}

		_, err = tx.Exec(ctx, queryItem,
			item.ID,
			ord.ID,
			item.ProductID,
			item.Quantity,
			item.UnitPrice,
			item.Size,
			item.SugarLevel,
			item.IceLevel,
			addOns,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", ord.ID, err)
		}
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	query := `
		SELECT id, user_id, subtotal, discount, total, promotion_id, created_at
		FROM orders
		WHERE id = $1
	`

	var ord Order
	err := r.db.QueryRow(ctx, query, id).Scan(
		&ord.ID,
		&ord.UserID,
		&ord.Subtotal,
		&ord.Discount,
		&ord.Total,
		&ord.PromotionID,
		&ord.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order %s: %w", id, err)
	}

	items, err := r.getItems(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	ord.Items = items[id]
	if ord.Items == nil {
		ord.Items = []OrderItem{}
	}

	return &ord, nil
}

func (r *postgresRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	query := `
		SELECT id, user_id, subtotal, discount, total, promotion_id, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for user %s: %w", userID, err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	var orderIDs []uuid.UUID
	for rows.Next() {
		var ord Order
		err := rows.Scan(
			&ord.ID,
			&ord.UserID,
			&ord.Subtotal,
			&ord.Discount,
			&ord.Total,
			&ord.PromotionID,
			&ord.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order for user %s: %w", userID, err)
		}
		ord.Items = []OrderItem{}
		orders = append(orders, ord)
		orderIDs = append(orderIDs, ord.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders for user %s: %w", userID, err)
	}

	if len(orderIDs) == 0 {
		return orders, nil
	}

	itemsByOrder, err := r.getItems(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if items, ok := itemsByOrder[orders[i].ID]; ok {
			orders[i].Items = items
		}
	}

	return orders, nil
}

func (r *postgresRepository) getItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, unit_price, size, sugar_level, ice_level, add_ons
		FROM order_items
		WHERE order_id = ANY($1)
	`

	rows, err := r.db.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	itemsByOrder := make(map[uuid.UUID][]OrderItem)
	for rows.Next() {
		var (
			item   OrderItem
			addOns []byte
		)
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
			&item.Size,
			&item.SugarLevel,
			&item.IceLevel,
			&addOns,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		item.AddOns = []cart.AddOn{}
		if len(addOns) > 0 {
			if err := json.Unmarshal(addOns, &item.AddOns); err != nil {
				return nil, fmt.Errorf("repository: failed to decode add-ons for item %s: %w", item.ID, err)
			}
		}
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items: %w", err)
	}

	return itemsByOrder, nil
}
