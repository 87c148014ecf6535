package order

import (
	"errors"
	"strings"
)

// Status is an order status as stored in the `orders.status` column.
type Status string

const (
	StatusPending           Status = "pending"
	StatusAccepted          Status = "accepted"
	StatusPickupGoing       Status = "pickup_going"
	StatusPickupArrived     Status = "pickup_arrived"
	StatusPickupCompleted   Status = "pickup_completed"
	StatusDeliveryGoing     Status = "delivery_going"
	StatusDeliveryArrived   Status = "delivery_arrived"
	StatusDeliveryCompleted Status = "delivery_completed"
	StatusCompleted         Status = "completed"
	StatusCancelled         Status = "cancelled"
)

var (
	ErrInvalidStatus = errors.New("invalid order status")
	ErrNoNextStatus  = errors.New("order status has no successor")
)

// sequence is the forward-only chain an order walks from creation to completion.
// Cancelled sits outside of it.
var sequence = []Status{
	StatusPending,
	StatusAccepted,
	StatusPickupGoing,
	StatusPickupArrived,
	StatusPickupCompleted,
	StatusDeliveryGoing,
	StatusDeliveryArrived,
	StatusDeliveryCompleted,
	StatusCompleted,
}

var labels = map[Status]string{
	StatusPending:           "等待接單",
	StatusAccepted:          "已接單",
	StatusPickupGoing:       "前往上車點",
	StatusPickupArrived:     "已抵達上車點",
	StatusPickupCompleted:   "乘客已上車",
	StatusDeliveryGoing:     "前往目的地",
	StatusDeliveryArrived:   "已抵達目的地",
	StatusDeliveryCompleted: "已送達",
	StatusCompleted:         "已完成",
	StatusCancelled:         "已取消",
}

// ParseStatus normalizes (lowercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed status constants.
func (status Status) Valid() bool {
	_, ok := labels[status]
	return ok
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// Label returns the display label shown to riders and drivers.
func (status Status) Label() string {
	if label, ok := labels[status]; ok {
		return label
	}
	return string(status)
}

// Terminal indicates if the status is completed or cancelled.
func (status Status) Terminal() bool {
	return status == StatusCompleted || status == StatusCancelled
}

// Rank is the position of status in the forward sequence, or -1 for
// cancelled and unknown values.
func (status Status) Rank() int {
	for i, s := range sequence {
		if s == status {
			return i
		}
	}
	return -1
}

// Before reports whether status comes strictly earlier in the sequence than other.
func (status Status) Before(other Status) bool {
	a, b := status.Rank(), other.Rank()
	return a >= 0 && b >= 0 && a < b
}

// Next returns the single step a driver can advance to from status.
// Pending orders are claimed through acceptance, not advanced.
func (status Status) Next() (Status, error) {
	switch status {
	case StatusPending, StatusCompleted, StatusCancelled:
		return "", ErrNoNextStatus
	}
	rank := status.Rank()
	if rank < 0 {
		return "", ErrInvalidStatus
	}
	if rank+1 >= len(sequence) {
		return StatusCompleted, nil
	}
	return sequence[rank+1], nil
}

// Cancellable reports whether a passenger may still cancel the order.
// Once the passenger is picked up the ride can only be completed.
func (status Status) Cancellable() bool {
	return status == StatusPending || status == StatusAccepted ||
		status == StatusPickupGoing || status == StatusPickupArrived
}

// Active reports whether the order is assigned and still in progress.
func (status Status) Active() bool {
	return status != StatusPending && !status.Terminal() && status.Valid()
}

// Statuses returns every status in sequence order followed by cancelled.
func Statuses() []Status {
	out := make([]Status, 0, len(sequence)+1)
	out = append(out, sequence...)
	return append(out, StatusCancelled)
}
