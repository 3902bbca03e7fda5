package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrTrackingNotFound       = errors.New("order tracking not found")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrConcurrentModification = errors.New("concurrent modification, please retry")
)

type Service interface {
	// Create starts fulfillment tracking for an order in the pending state
	// with an initial audit entry.
	Create(ctx context.Context, orderID uuid.UUID, actor *uuid.UUID) (*OrderTracking, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*OrderTracking, error)
	Transition(ctx context.Context, orderID uuid.UUID, newStatus Status, actor *uuid.UUID, note *string) (*OrderTracking, error)
	UpdateLocation(ctx context.Context, orderID uuid.UUID, lat, lng float64) (*OrderTracking, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, orderID uuid.UUID, actor *uuid.UUID) (*OrderTracking, error) {
	trackingID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate tracking ID: %w", err)
	}
	logID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate status log ID: %w", err)
	}

	now := time.Now().UTC()
	t := &OrderTracking{
		ID:            trackingID,
		OrderID:       orderID,
		CurrentStatus: StatusPending,
		StatusLogs: []StatusLog{{
			ID:         logID,
			TrackingID: trackingID,
			Status:     StatusPending,
			Timestamp:  now,
			UpdatedBy:  actor,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("service: failed to create tracking: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Stringer("tracking_id", trackingID).Msg("service: order tracking created")
	return t, nil
}

func (s *service) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*OrderTracking, error) {
	t, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrTrackingNotFound) {
			return nil, ErrTrackingNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch tracking: %w", err)
	}
	return t, nil
}

func (s *service) Transition(ctx context.Context, orderID uuid.UUID, newStatus Status, actor *uuid.UUID, note *string) (*OrderTracking, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, newStatus)
	}

	t, err := s.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	from := t.CurrentStatus
	if from.Terminal() {
		log.Warn().Stringer("order_id", orderID).Str("current_status", from.String()).Str("new_status", newStatus.String()).Msg("service: transition attempted on terminal order")
		return nil, fmt.Errorf("%w: order is already %s", ErrInvalidTransition, from)
	}
	if !CanTransition(from, newStatus) {
		log.Warn().Stringer("order_id", orderID).Str("current_status", from.String()).Str("new_status", newStatus.String()).Msg("service: invalid status transition attempt")
		return nil, fmt.Errorf("%w: cannot move from %s to %s, next can be %v", ErrInvalidTransition, from, newStatus, SuccessorsOf(from))
	}

	logID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate status log ID: %w", err)
	}

	now := time.Now().UTC()
	entry := StatusLog{
		ID:         logID,
		TrackingID: t.ID,
		Status:     newStatus,
		Timestamp:  now,
		Note:       note,
		UpdatedBy:  actor,
	}

	var startedAt, completedAt *time.Time
	if t.StartedAt == nil && newStatus != StatusPending && !newStatus.Terminal() {
		startedAt = &now
	}
	if newStatus.Terminal() {
		completedAt = &now
	}

	if err := s.repo.AppendStatus(ctx, t.ID, from, entry, startedAt, completedAt); err != nil {
		if errors.Is(err, ErrConcurrentModification) {
			log.Warn().Stringer("order_id", orderID).Str("new_status", newStatus.String()).Msg("service: status transition lost race")
			return nil, ErrConcurrentModification
		}
		return nil, fmt.Errorf("service: failed to append status: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Str("old_status", from.String()).Str("new_status", newStatus.String()).Msg("service: order status updated")

	t.CurrentStatus = newStatus
	t.StatusLogs = append(t.StatusLogs, entry)
	if startedAt != nil {
		t.StartedAt = startedAt
	}
	if completedAt != nil {
		t.CompletedAt = completedAt
	}
	t.UpdatedAt = now
	return t, nil
}

func (s *service) UpdateLocation(ctx context.Context, orderID uuid.UUID, lat, lng float64) (*OrderTracking, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("service: coordinates out of range")
	}

	loc := Location{Lat: lat, Lng: lng, UpdatedAt: time.Now().UTC()}
	if err := s.repo.UpdateLocation(ctx, orderID, loc); err != nil {
		if errors.Is(err, ErrTrackingNotFound) {
			return nil, ErrTrackingNotFound
		}
		return nil, fmt.Errorf("service: failed to update location: %w", err)
	}

	return s.GetByOrderID(ctx, orderID)
}
