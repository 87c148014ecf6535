package coordinator

import (
	"context"

	"ride-coordinator/internal/domain/geo"
	"ride-coordinator/internal/domain/order"
)

// RequestRide creates a pending order with a computed fare.
func (c *Coordinator) RequestRide(ctx context.Context, pickup, dropoff geo.Place) (*order.Order, error) {
	const op = "request_ride"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	s := c.Snapshot()
	if !s.Role().IsPassenger() {
		return nil, opErr(ErrForbidden, op, "only passengers can request rides", nil)
	}

	draft, err := order.NewOrder(s.Account.ID, pickup, dropoff)
	if err != nil {
		return nil, opErr(ErrRide, op, "invalid ride request", err)
	}

	created, err := c.backend.CreateRide(ctx, draft)
	if err != nil {
		c.log.Error(ctx, "ride_request_failed", "Backend rejected ride request", err,
			map[string]any{"passenger_id": s.Account.ID})
		return nil, opErr(ErrRide, op, "backend rejected ride request", err)
	}

	c.dispatch(OrderUpserted{Order: created})
	ctx = c.log.WithOrderID(ctx, created.ID)
	c.publishOrder(ctx, created)
	c.log.Info(ctx, "ride_requested", "Ride requested", map[string]any{
		"passenger_id": s.Account.ID,
		"distance_km":  created.DistanceKM,
		"fare":         created.Fare.Total,
	})
	return created.Clone(), nil
}

// CancelRide cancels one of the passenger's rides before pickup.
func (c *Coordinator) CancelRide(ctx context.Context, orderID, reason string) (*order.Order, error) {
	const op = "cancel_ride"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	s := c.Snapshot()
	if !s.Role().IsPassenger() {
		return nil, opErr(ErrForbidden, op, "only passengers can cancel rides", nil)
	}
	if idx := indexOrder(s.Orders, orderID); idx >= 0 && !s.Orders[idx].Status.Cancellable() {
		return nil, opErr(ErrRide, op, "ride can no longer be cancelled", order.ErrNotCancellable)
	}

	ctx = c.log.WithOrderID(ctx, orderID)
	cancelled, err := c.backend.CancelRide(ctx, orderID, s.Account.ID, reason)
	if err != nil {
		c.log.Error(ctx, "ride_cancel_failed", "Backend rejected cancellation", err,
			map[string]any{"passenger_id": s.Account.ID})
		return nil, opErr(ErrRide, op, "backend rejected cancellation", err)
	}

	c.dispatch(OrderUpserted{Order: cancelled})
	c.publishOrder(ctx, cancelled)
	c.log.Info(ctx, "ride_cancelled", "Ride cancelled", map[string]any{"passenger_id": s.Account.ID})
	return cancelled.Clone(), nil
}
