package driver

import (
	"errors"

	"ride-coordinator/internal/domain/geo"
	"ride-coordinator/internal/domain/order"
)

// Session is a signed-in driver's operational state. Busy holds exactly when
// CurrentOrder is set.
type Session struct {
	Status       Status       `json:"status"`
	Location     *geo.Point   `json:"location,omitempty"`
	CurrentOrder *order.Order `json:"current_order,omitempty"`
}

var (
	ErrBusyWithoutOrder  = errors.New("busy requires a current order")
	ErrOrderWhileIdle    = errors.New("current order requires busy status")
	ErrOrderInProgress   = errors.New("driver has an order in progress")
	ErrNotOnline         = errors.New("driver is not online")
	ErrBusyNotSelectable = errors.New("busy is only entered by accepting an order")
)

// NewSession returns the initial session: offline, no order, no location.
func NewSession() Session {
	return Session{Status: StatusOffline}
}

// Validate checks the busy/current-order invariant.
func (session Session) Validate() error {
	if !session.Status.Valid() {
		return ErrInvalidStatus
	}
	if session.Status == StatusBusy && session.CurrentOrder == nil {
		return ErrBusyWithoutOrder
	}
	if session.Status != StatusBusy && session.CurrentOrder != nil {
		return ErrOrderWhileIdle
	}
	return nil
}

// CanSwitchTo checks whether the driver may request next directly.
func (session Session) CanSwitchTo(next Status) error {
	if !next.Valid() {
		return ErrInvalidStatus
	}
	if next == StatusBusy {
		return ErrBusyNotSelectable
	}
	if session.CurrentOrder != nil {
		return ErrOrderInProgress
	}
	return nil
}

// CanAccept checks whether the driver may claim a new order.
func (session Session) CanAccept() error {
	if session.CurrentOrder != nil {
		return ErrOrderInProgress
	}
	if session.Status != StatusOnline {
		return ErrNotOnline
	}
	return nil
}

// Clone returns a deep copy.
func (session Session) Clone() Session {
	cp := session
	if session.Location != nil {
		loc := *session.Location
		cp.Location = &loc
	}
	cp.CurrentOrder = session.CurrentOrder.Clone()
	return cp
}
