package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ride-coordinator/internal/domain/geo"
	"ride-coordinator/internal/domain/order"
)

func TestSessionInvariant(t *testing.T) {
	assert.NoError(t, NewSession().Validate())

	busy := Session{Status: StatusBusy}
	assert.ErrorIs(t, busy.Validate(), ErrBusyWithoutOrder)

	idle := Session{Status: StatusOnline, CurrentOrder: &order.Order{ID: "RD001"}}
	assert.ErrorIs(t, idle.Validate(), ErrOrderWhileIdle)

	assert.ErrorIs(t, Session{Status: "away"}.Validate(), ErrInvalidStatus)
}

func TestCanSwitchTo(t *testing.T) {
	s := NewSession()
	assert.NoError(t, s.CanSwitchTo(StatusOnline))
	assert.ErrorIs(t, s.CanSwitchTo(StatusBusy), ErrBusyNotSelectable)
	assert.ErrorIs(t, s.CanSwitchTo("away"), ErrInvalidStatus)

	s = Session{Status: StatusBusy, CurrentOrder: &order.Order{ID: "RD001"}}
	assert.ErrorIs(t, s.CanSwitchTo(StatusOffline), ErrOrderInProgress)
}

func TestCanAccept(t *testing.T) {
	assert.ErrorIs(t, NewSession().CanAccept(), ErrNotOnline)
	assert.NoError(t, Session{Status: StatusOnline}.CanAccept())

	s := Session{Status: StatusBusy, CurrentOrder: &order.Order{ID: "RD001"}}
	assert.ErrorIs(t, s.CanAccept(), ErrOrderInProgress)
}

func TestSessionClone(t *testing.T) {
	s := Session{
		Status:       StatusBusy,
		Location:     &geo.Point{Latitude: 25, Longitude: 121},
		CurrentOrder: &order.Order{ID: "RD001", Status: order.StatusAccepted},
	}
	cp := s.Clone()
	cp.Location.Latitude = 0
	cp.CurrentOrder.Status = order.StatusCancelled

	assert.Equal(t, 25.0, s.Location.Latitude)
	assert.Equal(t, order.StatusAccepted, s.CurrentOrder.Status)
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus(" ONLINE")
	assert.NoError(t, err)
	assert.Equal(t, StatusOnline, status)
	assert.Equal(t, "上線中", status.Label())

	_, err = ParseStatus("available")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
