package order

import (
	"errors"
	"strings"
	"time"

	"ride-coordinator/internal/domain/geo"
)

// Order is the domain entity corresponding to the `orders` table.
type Order struct {
	ID          string  `json:"id"`
	PassengerID string  `json:"passenger_id"`
	DriverID    *string `json:"driver_id,omitempty"` // nil until accepted

	Pickup          geo.Place `json:"pickup"`
	Dropoff         geo.Place `json:"dropoff"`
	DistanceKM      float64   `json:"distance_km"`
	DurationMinutes int       `json:"duration_minutes"`
	Fare            Fare      `json:"fare"`

	Status Status `json:"status"`

	RequestedAt        time.Time  `json:"requested_at"`
	AcceptedAt         *time.Time `json:"accepted_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

var (
	ErrPassengerRequired  = errors.New("passenger id is required")
	ErrDriverRequired     = errors.New("driver id is required")
	ErrAlreadyAssigned    = errors.New("order already has a driver")
	ErrNotAssignedDriver  = errors.New("order is assigned to another driver")
	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrStaleStatus        = errors.New("order status changed since it was read")
	ErrNotCancellable     = errors.New("order can no longer be cancelled")
	ErrSamePickupDropoff  = errors.New("pickup and dropoff must differ")
	ErrNegativeFareInputs = errors.New("distance and duration cannot be negative")
)

// NewOrder creates a pending order with distance, duration and fare computed
// from the two places. The ID is left empty for the backend to assign.
func NewOrder(passengerID string, pickup, dropoff geo.Place) (*Order, error) {
	if passengerID = strings.TrimSpace(passengerID); passengerID == "" {
		return nil, ErrPassengerRequired
	}
	if err := pickup.Validate(); err != nil {
		return nil, err
	}
	if err := dropoff.Validate(); err != nil {
		return nil, err
	}
	if pickup.Point == dropoff.Point {
		return nil, ErrSamePickupDropoff
	}

	distance := pickup.DistanceKM(dropoff.Point)
	duration := EstimateDurationMinutes(distance)
	fare, err := ComputeFare(distance, duration)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Order{
		PassengerID:     passengerID,
		Pickup:          pickup,
		Dropoff:         dropoff,
		DistanceKM:      roundKM(distance),
		DurationMinutes: duration,
		Fare:            fare,
		Status:          StatusPending,
		RequestedAt:     now,
		UpdatedAt:       now,
	}, nil
}

// Accept claims a pending order for driverID and moves it to accepted.
func (order *Order) Accept(driverID string) error {
	if driverID = strings.TrimSpace(driverID); driverID == "" {
		return ErrDriverRequired
	}
	if order.DriverID != nil && *order.DriverID != "" {
		return ErrAlreadyAssigned
	}
	if order.Status != StatusPending {
		return ErrInvalidTransition
	}

	order.DriverID = &driverID
	now := time.Now().UTC()
	order.AcceptedAt = &now
	order.setStatus(StatusAccepted)
	return nil
}

// Advance moves the order one step forward from the status the caller last
// observed. A mismatch with the current status yields ErrStaleStatus.
func (order *Order) Advance(from Status) (Status, error) {
	if order.Status != from {
		return order.Status, ErrStaleStatus
	}
	next, err := from.Next()
	if err != nil {
		return order.Status, ErrInvalidTransition
	}
	order.moveTo(next)
	return next, nil
}

// AdvanceTo applies a requested target status on behalf of driverID. Only the
// single successor of the current status is accepted.
func (order *Order) AdvanceTo(next Status, driverID string) error {
	if !order.AssignedTo(driverID) {
		return ErrNotAssignedDriver
	}
	want, err := order.Status.Next()
	if err != nil || want != next {
		return ErrInvalidTransition
	}
	order.moveTo(next)
	return nil
}

// Cancel moves the order to cancelled while the passenger has not been picked up.
func (order *Order) Cancel(reason string) error {
	if !order.Status.Cancellable() {
		return ErrNotCancellable
	}
	now := time.Now().UTC()
	order.CancelledAt = &now
	if rs := strings.TrimSpace(reason); rs != "" {
		order.CancellationReason = &rs
	}
	order.setStatus(StatusCancelled)
	return nil
}

// StampAt rewrites the times of the last transition to now, for stores that
// keep their own clock.
func (order *Order) StampAt(now time.Time) {
	now = now.UTC()
	order.UpdatedAt = now
	switch order.Status {
	case StatusAccepted:
		order.AcceptedAt = &now
	case StatusCompleted:
		order.CompletedAt = &now
	case StatusCancelled:
		order.CancelledAt = &now
	}
}

// AssignedTo reports whether driverID holds the order.
func (order *Order) AssignedTo(driverID string) bool {
	return order.DriverID != nil && driverID != "" && *order.DriverID == driverID
}

// Clone returns a deep copy so cached orders never alias backend records.
func (order *Order) Clone() *Order {
	if order == nil {
		return nil
	}
	cp := *order
	cp.DriverID = cloneString(order.DriverID)
	cp.CancellationReason = cloneString(order.CancellationReason)
	cp.AcceptedAt = cloneTime(order.AcceptedAt)
	cp.CompletedAt = cloneTime(order.CompletedAt)
	cp.CancelledAt = cloneTime(order.CancelledAt)
	return &cp
}

// ----- internal helpers -----

func (order *Order) moveTo(next Status) {
	if next == StatusCompleted {
		now := time.Now().UTC()
		order.CompletedAt = &now
	}
	order.setStatus(next)
}

func (order *Order) setStatus(status Status) {
	order.Status = status
	order.touch()
}

func (order *Order) touch() {
	order.UpdatedAt = time.Now().UTC()
}

func cloneString(in *string) *string {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}

func cloneTime(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}
