package tracking

import (
	"time"

	"github.com/gofrs/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Location is the last known position of an order in delivery. It is not a
// history; each update overwrites the previous one.
type Location struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusLog is one append-only audit entry. Entries are never rewritten.
type StatusLog struct {
	ID         uuid.UUID  `json:"id"`
	TrackingID uuid.UUID  `json:"tracking_id"`
	Status     Status     `json:"status"`
	Timestamp  time.Time  `json:"timestamp"`
	Note       *string    `json:"note,omitempty"`
	UpdatedBy  *uuid.UUID `json:"updated_by,omitempty"`
}

// OrderTracking owns the fulfillment status of a single order and its audit
// trail.
type OrderTracking struct {
	ID              uuid.UUID   `json:"id"`
	OrderID         uuid.UUID   `json:"order_id"`
	CurrentStatus   Status      `json:"current_status"`
	CurrentLocation *Location   `json:"current_location,omitempty"`
	StatusLogs      []StatusLog `json:"status_logs"`
	StartedAt       *time.Time  `json:"started_at,omitempty"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
