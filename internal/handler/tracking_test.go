package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truong-nd12/canteen-backend/internal/tracking"
)

type mockTrackingService struct {
	createFunc         func(ctx context.Context, orderID uuid.UUID, actor *uuid.UUID) (*tracking.OrderTracking, error)
	getByOrderIDFunc   func(ctx context.Context, orderID uuid.UUID) (*tracking.OrderTracking, error)
	transitionFunc     func(ctx context.Context, orderID uuid.UUID, newStatus tracking.Status, actor *uuid.UUID, note *string) (*tracking.OrderTracking, error)
	updateLocationFunc func(ctx context.Context, orderID uuid.UUID, lat, lng float64) (*tracking.OrderTracking, error)
}

func (m *mockTrackingService) Create(ctx context.Context, orderID uuid.UUID, actor *uuid.UUID) (*tracking.OrderTracking, error) {
	return m.createFunc(ctx, orderID, actor)
}

func (m *mockTrackingService) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*tracking.OrderTracking, error) {
	return m.getByOrderIDFunc(ctx, orderID)
}

func (m *mockTrackingService) Transition(ctx context.Context, orderID uuid.UUID, newStatus tracking.Status, actor *uuid.UUID, note *string) (*tracking.OrderTracking, error) {
	return m.transitionFunc(ctx, orderID, newStatus, actor, note)
}

func (m *mockTrackingService) UpdateLocation(ctx context.Context, orderID uuid.UUID, lat, lng float64) (*tracking.OrderTracking, error) {
	return m.updateLocationFunc(ctx, orderID, lat, lng)
}

func trackingRouter(svc tracking.Service) *chi.Mux {
	r := chi.NewRouter()
	NewTrackingHandler(svc).RegisterRoutes(r)
	return r
}

func TestTrackingHandler_GetTracking(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())

	t.Run("success", func(t *testing.T) {
		svc := &mockTrackingService{
			getByOrderIDFunc: func(ctx context.Context, id uuid.UUID) (*tracking.OrderTracking, error) {
				assert.Equal(t, orderID, id)
				return &tracking.OrderTracking{
					ID:            uuid.Must(uuid.NewV4()),
					OrderID:       id,
					CurrentStatus: tracking.StatusConfirmed,
					CreatedAt:     time.Now().UTC(),
				}, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/orders/%s/tracking", orderID), nil)
		rr := httptest.NewRecorder()
		trackingRouter(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.Contains(t, rr.Body.String(), `"current_status":"confirmed"`)
	})

	t.Run("not_found", func(t *testing.T) {
		svc := &mockTrackingService{
			getByOrderIDFunc: func(ctx context.Context, id uuid.UUID) (*tracking.OrderTracking, error) {
				return nil, tracking.ErrTrackingNotFound
			},
		}

		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/orders/%s/tracking", orderID), nil)
		rr := httptest.NewRecorder()
		trackingRouter(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("malformed_order_id", func(t *testing.T) {
		svc := &mockTrackingService{
			getByOrderIDFunc: func(ctx context.Context, id uuid.UUID) (*tracking.OrderTracking, error) {
				t.Fatal("service must not be called for a malformed id")
				return nil, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/orders/not-a-uuid/tracking", nil)
		rr := httptest.NewRecorder()
		trackingRouter(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestTrackingHandler_TransitionStatus(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())

	t.Run("success", func(t *testing.T) {
		var gotStatus tracking.Status
		var gotNote *string
		svc := &mockTrackingService{
			transitionFunc: func(ctx context.Context, id uuid.UUID, newStatus tracking.Status, actor *uuid.UUID, note *string) (*tracking.OrderTracking, error) {
				gotStatus = newStatus
				gotNote = note
				return &tracking.OrderTracking{OrderID: id, CurrentStatus: newStatus}, nil
			},
		}

		body := `{"status":"confirmed","note":"kitchen accepted"}`
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/orders/%s/tracking/status", orderID), strings.NewReader(body))
		rr := httptest.NewRecorder()
		trackingRouter(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, tracking.StatusConfirmed, gotStatus)
		require.NotNil(t, gotNote)
		assert.Equal(t, "kitchen accepted", *gotNote)
	})

	t.Run("invalid_transition_conflicts", func(t *testing.T) {
		svc := &mockTrackingService{
			transitionFunc: func(ctx context.Context, id uuid.UUID, newStatus tracking.Status, actor *uuid.UUID, note *string) (*tracking.OrderTracking, error) {
				return nil, fmt.Errorf("%w: cannot move from shipped to pending", tracking.ErrInvalidTransition)
			},
		}

		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/orders/%s/tracking/status", orderID), strings.NewReader(`{"status":"pending"}`))
		rr := httptest.NewRecorder()
		trackingRouter(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.Contains(t, rr.Body.String(), "cannot move from shipped to pending")
	})

	t.Run("lost_race_conflicts", func(t *testing.T) {
		svc := &mockTrackingService{
			transitionFunc: func(ctx context.Context, id uuid.UUID, newStatus tracking.Status, actor *uuid.UUID, note *string) (*tracking.OrderTracking, error) {
				return nil, tracking.ErrConcurrentModification
			},
		}

		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/orders/%s/tracking/status", orderID), strings.NewReader(`{"status":"confirmed"}`))
		rr := httptest.NewRecorder()
		trackingRouter(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("missing_status_rejected", func(t *testing.T) {
		svc := &mockTrackingService{
			transitionFunc: func(ctx context.Context, id uuid.UUID, newStatus tracking.Status, actor *uuid.UUID, note *string) (*tracking.OrderTracking, error) {
				t.Fatal("service must not be called without a status")
				return nil, nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/orders/%s/tracking/status", orderID), strings.NewReader(`{}`))
		rr := httptest.NewRecorder()
		trackingRouter(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("malformed_actor_id_rejected", func(t *testing.T) {
		svc := &mockTrackingService{
			transitionFunc: func(ctx context.Context, id uuid.UUID, newStatus tracking.Status, actor *uuid.UUID, note *string) (*tracking.OrderTracking, error) {
				t.Fatal("service must not be called with a malformed actor id")
				return nil, nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/orders/%s/tracking/status", orderID), strings.NewReader(`{"status":"confirmed","actor_id":"nope"}`))
		rr := httptest.NewRecorder()
		trackingRouter(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestTrackingHandler_UpdateLocation(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())

	t.Run("success", func(t *testing.T) {
		var gotLat, gotLng float64
		svc := &mockTrackingService{
			updateLocationFunc: func(ctx context.Context, id uuid.UUID, lat, lng float64) (*tracking.OrderTracking, error) {
				gotLat, gotLng = lat, lng
				return &tracking.OrderTracking{OrderID: id, CurrentStatus: tracking.StatusShipped}, nil
			},
		}

		req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/orders/%s/tracking/location", orderID), strings.NewReader(`{"lat":10.776,"lng":106.7}`))
		rr := httptest.NewRecorder()
		trackingRouter(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 10.776, gotLat)
		assert.Equal(t, 106.7, gotLng)
	})

	t.Run("latitude_out_of_range", func(t *testing.T) {
		svc := &mockTrackingService{
			updateLocationFunc: func(ctx context.Context, id uuid.UUID, lat, lng float64) (*tracking.OrderTracking, error) {
				t.Fatal("service must not be called with out-of-range coordinates")
				return nil, nil
			},
		}

		req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/orders/%s/tracking/location", orderID), strings.NewReader(`{"lat":95,"lng":0}`))
		rr := httptest.NewRecorder()
		trackingRouter(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
