package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type Repository interface {
	Create(ctx context.Context, t *OrderTracking) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*OrderTracking, error)
	// AppendStatus moves the tracking record from the expected current
	// status to the entry's status and appends the audit entry, as one
	// atomic unit. ErrConcurrentModification means the expected status no
	// longer held.
	AppendStatus(ctx context.Context, trackingID uuid.UUID, from Status, entry StatusLog, startedAt, completedAt *time.Time) error
	UpdateLocation(ctx context.Context, orderID uuid.UUID, loc Location) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, t *OrderTracking) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() { err = finishTx(ctx, tx, err) }()

	queryTracking := `
		INSERT INTO order_tracking (id, order_id, current_status, started_at, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.Exec(ctx, queryTracking,
		t.ID,
		t.OrderID,
		string(t.CurrentStatus),
		t.StartedAt,
		t.CompletedAt,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert tracking for order %s: %w", t.OrderID, err)
	}

	for i := range t.StatusLogs {
		if err = r.insertLog(ctx, tx, &t.StatusLogs[i]); err != nil {
			return err
		}
	}

	return nil
}

func (r *postgresRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*OrderTracking, error) {
	query := `
		SELECT id, order_id, current_status, location_lat, location_lng, location_updated_at,
		       started_at, completed_at, created_at, updated_at
		FROM order_tracking
		WHERE order_id = $1
	`

	var (
		t                 OrderTracking
		lat, lng          *float64
		locationUpdatedAt *time.Time
	)
	err := r.db.QueryRow(ctx, query, orderID).Scan(
		&t.ID,
		&t.OrderID,
		&t.CurrentStatus,
		&lat,
		&lng,
		&locationUpdatedAt,
		&t.StartedAt,
		&t.CompletedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTrackingNotFound
		}
		return nil, fmt.Errorf("repository: failed to select tracking for order %s: %w", orderID, err)
	}

	if lat != nil && lng != nil && locationUpdatedAt != nil {
		t.CurrentLocation = &Location{Lat: *lat, Lng: *lng, UpdatedAt: *locationUpdatedAt}
	}

	logs, err := r.getLogs(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.StatusLogs = logs

	return &t, nil
}

func (r *postgresRepository) AppendStatus(ctx context.Context, trackingID uuid.UUID, from Status, entry StatusLog, startedAt, completedAt *time.Time) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() { err = finishTx(ctx, tx, err) }()

	// Compare-and-swap on the current status: if another transition got in
	// first, zero rows match and nothing is written.
	query := `
		UPDATE order_tracking
		SET current_status = $1,
		    started_at = COALESCE(started_at, $2),
		    completed_at = COALESCE(completed_at, $3),
		    updated_at = $4
		WHERE id = $5 AND current_status = $6
	`
	cmdTag, err := tx.Exec(ctx, query,
		string(entry.Status),
		startedAt,
		completedAt,
		entry.Timestamp,
		trackingID,
		string(from),
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update status for tracking %s: %w", trackingID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if checkErr := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM order_tracking WHERE id = $1)`, trackingID).Scan(&exists); checkErr != nil {
			return fmt.Errorf("repository: failed to check tracking %s: %w", trackingID, checkErr)
		}
		if !exists {
			return ErrTrackingNotFound
		}
		return ErrConcurrentModification
	}

	return r.insertLog(ctx, tx, &entry)
}

func (r *postgresRepository) UpdateLocation(ctx context.Context, orderID uuid.UUID, loc Location) error {
	query := `
		UPDATE order_tracking
		SET location_lat = $1, location_lng = $2, location_updated_at = $3, updated_at = $3
		WHERE order_id = $4
	`
	cmdTag, err := r.db.Exec(ctx, query, loc.Lat, loc.Lng, loc.UpdatedAt, orderID)
	if err != nil {
		return fmt.Errorf("repository: failed to update location for order %s: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrTrackingNotFound
	}
	return nil
}

func (r *postgresRepository) insertLog(ctx context.Context, tx pgx.Tx, entry *StatusLog) error {
	query := `
		INSERT INTO order_status_logs (id, tracking_id, status, note, updated_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.Exec(ctx, query,
		entry.ID,
		entry.TrackingID,
		string(entry.Status),
		entry.Note,
		entry.UpdatedBy,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert status log for tracking %s: %w", entry.TrackingID, err)
	}
	return nil
}

func (r *postgresRepository) getLogs(ctx context.Context, trackingID uuid.UUID) ([]StatusLog, error) {
	query := `
		SELECT id, tracking_id, status, note, updated_by, created_at
		FROM order_status_logs
		WHERE tracking_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.Query(ctx, query, trackingID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query status logs for tracking %s: %w", trackingID, err)
	}
	defer rows.Close()

	logs := make([]StatusLog, 0)
	for rows.Next() {
		var entry StatusLog
		err := rows.Scan(
			&entry.ID,
			&entry.TrackingID,
			&entry.Status,
			&entry.Note,
			&entry.UpdatedBy,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan status log for tracking %s: %w", trackingID, err)
		}
		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating status logs for tracking %s: %w", trackingID, err)
	}

	return logs, nil
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
