package tracking_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truong-nd12/canteen-backend/internal/tracking"
)

var testDB *pgxpool.Pool

func TestMain(m *testing.M) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		envOr("DB_HOST", "localhost"),
		envOr("DB_PORT", "5432"),
		envOr("DB_USER", "postgres"),
		envOr("DB_PASSWORD", "postgres"),
		envOr("DB_NAME", "canteen_test"),
		envOr("DB_SSLMODE", "disable"),
	)

	var err error
	testDB, err = pgxpool.New(context.Background(), connStr)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	exitCode := m.Run()

	testDB.Close()

	os.Exit(exitCode)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupRepo(t *testing.T) tracking.Repository {
	truncate := func() {
		_, err := testDB.Exec(context.Background(), "TRUNCATE TABLE order_status_logs, order_tracking, orders CASCADE")
		if err != nil {
			t.Fatalf("Failed to truncate tracking tables: %v", err)
		}
	}

	truncate()
	t.Cleanup(truncate)

	return tracking.NewRepository(testDB)
}

// seedOrder satisfies the order_tracking foreign key.
func seedOrder(t *testing.T) uuid.UUID {
	t.Helper()

	orderID := uuid.Must(uuid.NewV4())
	_, err := testDB.Exec(context.Background(), `
		INSERT INTO orders (id, user_id, subtotal, discount, total, created_at)
		VALUES ($1, $2, 60000, 0, 60000, $3)
	`, orderID, uuid.Must(uuid.NewV4()), time.Now().UTC())
	require.NoError(t, err)
	return orderID
}

func seedTracking(t *testing.T, repo tracking.Repository, orderID uuid.UUID) *tracking.OrderTracking {
	t.Helper()

	trackingID := uuid.Must(uuid.NewV4())
	now := time.Now().UTC()
	tr := &tracking.OrderTracking{
		ID:            trackingID,
		OrderID:       orderID,
		CurrentStatus: tracking.StatusPending,
		StatusLogs: []tracking.StatusLog{{
			ID:         uuid.Must(uuid.NewV4()),
			TrackingID: trackingID,
			Status:     tracking.StatusPending,
			Timestamp:  now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(context.Background(), tr))
	return tr
}

func TestPostgresRepository_CreateAndGet(t *testing.T) {
	repo := setupRepo(t)
	orderID := seedOrder(t)
	seedTracking(t, repo, orderID)

	got, err := repo.GetByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, tracking.StatusPending, got.CurrentStatus)
	require.Len(t, got.StatusLogs, 1)
	assert.Equal(t, tracking.StatusPending, got.StatusLogs[0].Status)
	assert.Nil(t, got.CurrentLocation)
}

// Two transitions race from the same current status. The compare-and-swap on
// current_status must admit exactly one, and the audit log must record only
// the winner.
func TestPostgresRepository_AppendStatus_SingleWinner(t *testing.T) {
	repo := setupRepo(t)
	orderID := seedOrder(t)
	tr := seedTracking(t, repo, orderID)

	targets := []tracking.Status{tracking.StatusConfirmed, tracking.StatusCancelled}

	start := make(chan struct{})
	type attempt struct {
		target tracking.Status
		err    error
	}
	results := make(chan attempt, len(targets))
	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func(target tracking.Status) {
			defer wg.Done()
			<-start
			entry := tracking.StatusLog{
				ID:         uuid.Must(uuid.NewV4()),
				TrackingID: tr.ID,
				Status:     target,
				Timestamp:  time.Now().UTC(),
			}
			results <- attempt{target: target, err: repo.AppendStatus(context.Background(), tr.ID, tracking.StatusPending, entry, nil, nil)}
		}(target)
	}
	close(start)
	wg.Wait()
	close(results)

	var winner *tracking.Status
	losers := 0
	for res := range results {
		if res.err == nil {
			require.Nil(t, winner, "only one transition may win")
			target := res.target
			winner = &target
		} else {
			assert.ErrorIs(t, res.err, tracking.ErrConcurrentModification)
			losers++
		}
	}
	require.NotNil(t, winner, "one transition must win")
	assert.Equal(t, 1, losers)

	got, err := repo.GetByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, *winner, got.CurrentStatus)
	require.Len(t, got.StatusLogs, 2, "only the winning transition may append a log entry")
	assert.Equal(t, *winner, got.StatusLogs[1].Status)
}

func TestPostgresRepository_AppendStatus_SetsTimestampsOnce(t *testing.T) {
	repo := setupRepo(t)
	orderID := seedOrder(t)
	tr := seedTracking(t, repo, orderID)

	started := time.Now().UTC()
	entry := tracking.StatusLog{
		ID:         uuid.Must(uuid.NewV4()),
		TrackingID: tr.ID,
		Status:     tracking.StatusConfirmed,
		Timestamp:  started,
	}
	require.NoError(t, repo.AppendStatus(context.Background(), tr.ID, tracking.StatusPending, entry, &started, nil))

	// A later transition passes a new startedAt; COALESCE must keep the first.
	later := started.Add(time.Minute)
	entry = tracking.StatusLog{
		ID:         uuid.Must(uuid.NewV4()),
		TrackingID: tr.ID,
		Status:     tracking.StatusProcessing,
		Timestamp:  later,
	}
	require.NoError(t, repo.AppendStatus(context.Background(), tr.ID, tracking.StatusConfirmed, entry, &later, nil))

	got, err := repo.GetByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	require.NotNil(t, got.StartedAt)
	assert.WithinDuration(t, started, *got.StartedAt, time.Second)
	assert.Nil(t, got.CompletedAt)
}

func TestPostgresRepository_AppendStatus_UnknownTracking(t *testing.T) {
	repo := setupRepo(t)

	entry := tracking.StatusLog{
		ID:         uuid.Must(uuid.NewV4()),
		TrackingID: uuid.Must(uuid.NewV4()),
		Status:     tracking.StatusConfirmed,
		Timestamp:  time.Now().UTC(),
	}
	err := repo.AppendStatus(context.Background(), entry.TrackingID, tracking.StatusPending, entry, nil, nil)
	assert.ErrorIs(t, err, tracking.ErrTrackingNotFound)
}

func TestPostgresRepository_UpdateLocation(t *testing.T) {
	repo := setupRepo(t)
	orderID := seedOrder(t)
	seedTracking(t, repo, orderID)

	loc := tracking.Location{Lat: 10.776, Lng: 106.7, UpdatedAt: time.Now().UTC()}
	require.NoError(t, repo.UpdateLocation(context.Background(), orderID, loc))

	got, err := repo.GetByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentLocation)
	assert.Equal(t, loc.Lat, got.CurrentLocation.Lat)
	assert.Equal(t, loc.Lng, got.CurrentLocation.Lng)
	require.Len(t, got.StatusLogs, 1, "location updates must not touch the status log")
}
