package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-coordinator/internal/domain/geo"
)

func taipeiTrip(t *testing.T) *Order {
	t.Helper()
	pickup, err := geo.NewPlace("台北車站", 25.0478, 121.5170)
	require.NoError(t, err)
	dropoff, err := geo.NewPlace("台北101", 25.0340, 121.5645)
	require.NoError(t, err)

	o, err := NewOrder("p-1", pickup, dropoff)
	require.NoError(t, err)
	return o
}

func TestNewOrder(t *testing.T) {
	o := taipeiTrip(t)

	assert.Equal(t, StatusPending, o.Status)
	assert.Nil(t, o.DriverID)
	assert.Empty(t, o.ID)
	assert.InDelta(t, 5.0, o.DistanceKM, 0.5)
	assert.Equal(t, EstimateDurationMinutes(o.DistanceKM), o.DurationMinutes)
	assert.Equal(t, o.Fare.Base+o.Fare.Distance+o.Fare.Time, o.Fare.Total)
}

func TestNewOrderValidation(t *testing.T) {
	place, _ := geo.NewPlace("A", 25, 121)

	_, err := NewOrder(" ", place, place)
	assert.ErrorIs(t, err, ErrPassengerRequired)

	_, err = NewOrder("p-1", place, place)
	assert.ErrorIs(t, err, ErrSamePickupDropoff)

	_, err = NewOrder("p-1", geo.Place{Point: geo.Point{Latitude: 1}}, place)
	assert.ErrorIs(t, err, geo.ErrEmptyAddress)
}

func TestAcceptOnce(t *testing.T) {
	o := taipeiTrip(t)

	require.NoError(t, o.Accept("d-1"))
	assert.Equal(t, StatusAccepted, o.Status)
	assert.True(t, o.AssignedTo("d-1"))
	assert.NotNil(t, o.AcceptedAt)

	assert.ErrorIs(t, o.Accept("d-2"), ErrAlreadyAssigned)
	assert.ErrorIs(t, o.Accept(""), ErrDriverRequired)
}

func TestAdvanceToCompletion(t *testing.T) {
	o := taipeiTrip(t)
	require.NoError(t, o.Accept("d-1"))

	for !o.Status.Terminal() {
		prev := o.Status
		next, err := o.Advance(prev)
		require.NoError(t, err)
		assert.True(t, prev.Before(next))
	}
	assert.Equal(t, StatusCompleted, o.Status)
	assert.NotNil(t, o.CompletedAt)

	_, err := o.Advance(StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAdvanceStale(t *testing.T) {
	o := taipeiTrip(t)
	require.NoError(t, o.Accept("d-1"))
	_, err := o.Advance(StatusAccepted)
	require.NoError(t, err)

	got, err := o.Advance(StatusAccepted)
	assert.ErrorIs(t, err, ErrStaleStatus)
	assert.Equal(t, StatusPickupGoing, got)
}

func TestAdvanceTo(t *testing.T) {
	o := taipeiTrip(t)
	require.NoError(t, o.Accept("d-1"))

	assert.ErrorIs(t, o.AdvanceTo(StatusPickupGoing, "d-2"), ErrNotAssignedDriver)
	assert.ErrorIs(t, o.AdvanceTo(StatusPickupArrived, "d-1"), ErrInvalidTransition)
	assert.ErrorIs(t, o.AdvanceTo(StatusPending, "d-1"), ErrInvalidTransition)
	require.NoError(t, o.AdvanceTo(StatusPickupGoing, "d-1"))
	assert.Equal(t, StatusPickupGoing, o.Status)
}

func TestCancel(t *testing.T) {
	o := taipeiTrip(t)
	require.NoError(t, o.Cancel("  changed plans "))
	assert.Equal(t, StatusCancelled, o.Status)
	require.NotNil(t, o.CancellationReason)
	assert.Equal(t, "changed plans", *o.CancellationReason)
	assert.ErrorIs(t, o.Cancel(""), ErrNotCancellable)

	picked := taipeiTrip(t)
	require.NoError(t, picked.Accept("d-1"))
	for _, s := range []Status{StatusAccepted, StatusPickupGoing, StatusPickupArrived} {
		_, err := picked.Advance(s)
		require.NoError(t, err)
	}
	assert.ErrorIs(t, picked.Cancel(""), ErrNotCancellable)
}

func TestCloneDoesNotAlias(t *testing.T) {
	o := taipeiTrip(t)
	require.NoError(t, o.Accept("d-1"))

	cp := o.Clone()
	*cp.DriverID = "d-9"
	cp.Status = StatusCancelled

	assert.Equal(t, "d-1", *o.DriverID)
	assert.Equal(t, StatusAccepted, o.Status)
	assert.Nil(t, (*Order)(nil).Clone())
}

func TestStampAt(t *testing.T) {
	o := taipeiTrip(t)
	require.NoError(t, o.Accept("d-1"))
	require.NoError(t, o.Cancel("changed plans"))

	at := time.Date(2025, 3, 12, 12, 0, 0, 0, time.FixedZone("CST", 8*3600))
	o.StampAt(at)

	assert.True(t, o.CancelledAt.Equal(at))
	assert.Equal(t, time.UTC, o.UpdatedAt.Location())
	assert.False(t, o.AcceptedAt.Equal(at), "earlier transitions keep their time")
}
