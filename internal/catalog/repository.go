package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type postgresResolver struct {
	db *pgxpool.Pool
}

func NewResolver(db *pgxpool.Pool) Resolver {
	return &postgresResolver{db: db}
}

func (r *postgresResolver) Resolve(ctx context.Context, productID uuid.UUID) (*Product, error) {
	query := `
		SELECT id, name, category_id, base_price, size_prices
		FROM products
		WHERE id = $1
	`

	var (
		product       Product
		sizePricesRaw []byte
	)
	err := r.db.QueryRow(ctx, query, productID).Scan(
		&product.ID,
		&product.Name,
		&product.CategoryID,
		&product.BasePrice,
		&sizePricesRaw,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("catalog: failed to select product %s: %w", productID, err)
	}

	product.SizePrices = make(map[string]decimal.Decimal)
	if len(sizePricesRaw) > 0 {
		if err := json.Unmarshal(sizePricesRaw, &product.SizePrices); err != nil {
			return nil, fmt.Errorf("catalog: failed to decode size prices for product %s: %w", productID, err)
		}
	}

	return &product, nil
}
