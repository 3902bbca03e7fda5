package promotion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrPromotionNotFound   = errors.New("promotion not found")
	ErrDuplicateCode       = errors.New("promotion code already exists")
	ErrUsageLimitReached   = errors.New("promotion usage limit reached")
	ErrPerUserLimitReached = errors.New("promotion per-user limit reached")
)

type Repository interface {
	Create(ctx context.Context, p *Promotion) error
	GetByID(ctx context.Context, id uuid.UUID) (*Promotion, error)
	GetByCode(ctx context.Context, code string) (*Promotion, error)
	CountRedemptions(ctx context.Context, promotionID, userID uuid.UUID) (int, error)
	Redeem(ctx context.Context, promotionID, userID, orderID uuid.UUID, discount decimal.Decimal) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const promotionColumns = `id, code, kind, discount_value, min_order_amount, max_discount, scope,
	applicable_products, applicable_categories, applicable_users,
	start_date, end_date, usage_limit, used_count, per_user_limit, is_active, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, p *Promotion) error {
	query := `
		INSERT INTO promotions (` + promotionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.Code,
		string(p.Kind),
		p.DiscountValue,
		p.MinOrderAmount,
		p.MaxDiscount,
		string(p.Scope),
		p.ApplicableProducts,
		p.ApplicableCategories,
		p.ApplicableUsers,
		p.StartDate,
		p.EndDate,
		p.UsageLimit,
		p.UsedCount,
		p.PerUserLimit,
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateCode
		}
		return fmt.Errorf("repository: failed to insert promotion: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *postgresRepository) GetByCode(ctx context.Context, code string) (*Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE code = $1`
	return r.getOne(ctx, query, strings.TrimSpace(code))
}

func (r *postgresRepository) getOne(ctx context.Context, query string, arg any) (*Promotion, error) {
	var p Promotion
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&p.ID,
		&p.Code,
		&p.Kind,
		&p.DiscountValue,
		&p.MinOrderAmount,
		&p.MaxDiscount,
		&p.Scope,
		&p.ApplicableProducts,
		&p.ApplicableCategories,
		&p.ApplicableUsers,
		&p.StartDate,
		&p.EndDate,
		&p.UsageLimit,
		&p.UsedCount,
		&p.PerUserLimit,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPromotionNotFound
		}
		return nil, fmt.Errorf("repository: failed to select promotion: %w", err)
	}
	return &p, nil
}

func (r *postgresRepository) CountRedemptions(ctx context.Context, promotionID, userID uuid.UUID) (int, error) {
	query := `
		SELECT count(*)
		FROM promotion_redemptions
		WHERE promotion_id = $1 AND user_id = $2
	`

	var count int
	if err := r.db.QueryRow(ctx, query, promotionID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("repository: failed to count redemptions for promotion %s: %w", promotionID, err)
	}
	return count, nil
}

// Redeem increments used_count and records the redemption in one
// transaction. Both writes are conditional, so two concurrent redemptions
// near a limit cannot both succeed: the increment only matches while
// used_count is below usage_limit, and the journal insert only matches while
// the user's redemption count is below per_user_limit.
func (r *postgresRepository) Redeem(ctx context.Context, promotionID, userID, orderID uuid.UUID, discount decimal.Decimal) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("promotion_id", promotionID).Msg("repository: failed to rollback redemption")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit redemption: %w", commitErr)
		}
	}()

	incrementQuery := `
		UPDATE promotions
		SET used_count = used_count + 1, updated_at = $1
		WHERE id = $2 AND (usage_limit IS NULL OR used_count < usage_limit)
	`
	cmdTag, err := tx.Exec(ctx, incrementQuery, time.Now().UTC(), promotionID)
	if err != nil {
		return fmt.Errorf("repository: failed to increment used count for promotion %s: %w", promotionID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if checkErr := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM promotions WHERE id = $1)`, promotionID).Scan(&exists); checkErr != nil {
			return fmt.Errorf("repository: failed to check promotion %s: %w", promotionID, checkErr)
		}
		if !exists {
			return ErrPromotionNotFound
		}
		return ErrUsageLimitReached
	}

	redemptionID, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate redemption ID: %w", err)
	}

	insertQuery := `
		INSERT INTO promotion_redemptions (id, promotion_id, user_id, order_id, discount_amount, used_at)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE (
			SELECT count(*) FROM promotion_redemptions WHERE promotion_id = $2 AND user_id = $3
		) < (
			SELECT per_user_limit FROM promotions WHERE id = $2
		)
	`
	cmdTag, err = tx.Exec(ctx, insertQuery, redemptionID, promotionID, userID, orderID, discount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("repository: failed to insert redemption for promotion %s: %w", promotionID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrPerUserLimitReached
	}

	return nil
}
