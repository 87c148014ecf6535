package coordinator

import (
	"context"
	"errors"

	"ride-coordinator/internal/domain/driver"
	"ride-coordinator/internal/domain/geo"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/ports"
)

// UpdateDriverStatus switches between offline and online under the
// configured consistency policy. Busy is entered only by AcceptOrder.
func (c *Coordinator) UpdateDriverStatus(ctx context.Context, next driver.Status) error {
	const op = "update_driver_status"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	s := c.Snapshot()
	driverID := s.DriverID()
	if driverID == "" {
		return opErr(ErrForbidden, op, "no driver signed in", nil)
	}
	if err := s.Driver.CanSwitchTo(next); err != nil {
		return opErr(ErrUpdate, op, "status change not allowed", err)
	}

	prev := s.Driver.Status
	remote := func(ctx context.Context) error {
		if demoAccount(s) {
			return nil
		}
		return c.backend.UpdateWorkStatus(ctx, driverID, next)
	}

	c.dispatch(DriverStatusSet{Status: next})

	var err error
	switch c.policy {
	case PolicyFireAndSet:
		err = remote(ctx)
	case PolicyRetry:
		err = retry(ctx, c.retries, c.retryBackoff, remote)
		if err != nil {
			c.dispatch(DriverStatusSet{Status: prev})
		}
	default:
		err = remote(ctx)
		if err != nil {
			c.dispatch(DriverStatusSet{Status: prev})
		}
	}

	details := map[string]any{"driver_id": driverID, "from": prev, "to": next, "policy": c.policy}
	if err != nil {
		c.log.Error(ctx, "driver_status_update_failed", "Backend rejected driver status change", err, details)
		return opErr(ErrUpdate, op, "backend rejected status change", err)
	}

	c.publishDriver(ctx, driverID, next, "")
	c.log.Info(ctx, "driver_status_updated", "Driver status changed", details)
	return nil
}

// ReportLocation stores the last-known position locally and forwards it to
// the backend on a best-effort basis.
func (c *Coordinator) ReportLocation(ctx context.Context, lat, lng float64) error {
	const op = "report_location"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	driverID := c.Snapshot().DriverID()
	if driverID == "" {
		return opErr(ErrForbidden, op, "no driver signed in", nil)
	}
	point, err := geo.NewPoint(lat, lng)
	if err != nil {
		return opErr(ErrUpdate, op, "invalid coordinates", err)
	}

	c.dispatch(LocationReported{Point: point})

	if err := c.backend.UpdateLocation(ctx, driverID, point.Latitude, point.Longitude); err != nil {
		c.log.Error(ctx, "location_update_failed", "Failed to forward driver location", err,
			map[string]any{"driver_id": driverID})
	}
	return nil
}

// Refresh re-fetches available orders and the current order. A current
// order the backend reports as cancelled is released at once, one reported
// as completed after the grace delay.
func (c *Coordinator) Refresh(ctx context.Context) ([]*order.Order, error) {
	const op = "refresh"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	s := c.Snapshot()
	driverID := s.DriverID()
	if driverID == "" {
		return nil, opErr(ErrForbidden, op, "no driver signed in", nil)
	}

	available, err := c.backend.GetAvailableOrders(ctx, driverID)
	if err != nil {
		if !(c.demoFallback && s.Demo) {
			c.log.Error(ctx, "available_orders_fetch_failed", "Failed to fetch available orders", err,
				map[string]any{"driver_id": driverID})
			return nil, opErr(ErrFetch, op, "failed to fetch available orders", err)
		}
		available = mockAvailableOrders(c.now().UTC())
	}
	c.dispatch(AvailableLoaded{Orders: available})

	if cur := s.Driver.CurrentOrder; cur != nil && !demoAccount(s) {
		ctx := c.log.WithOrderID(ctx, cur.ID)
		latest, err := c.backend.GetOrder(ctx, cur.ID)
		switch {
		case err != nil:
			c.log.Error(ctx, "current_order_fetch_failed", "Failed to re-fetch current order", err, nil)
		case latest.Status == order.StatusCancelled:
			c.releaseLocked(ctx, cur.ID, "order_cancelled_released")
		case latest.Status == order.StatusCompleted:
			c.dispatch(OrderAdvanced{Order: latest})
			// a completion seen locally already has its release pending
			if cur.Status != order.StatusCompleted {
				c.scheduleRelease(cur.ID)
			}
		default:
			c.dispatch(OrderAdvanced{Order: latest})
		}
	}

	return c.Snapshot().Available, nil
}

// AcceptOrder claims an order from the available list. State changes only
// after the backend confirms the claim; demo accounts claim locally.
func (c *Coordinator) AcceptOrder(ctx context.Context, orderID string) (*order.Order, error) {
	const op = "accept_order"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	s := c.Snapshot()
	driverID := s.DriverID()
	if driverID == "" {
		return nil, opErr(ErrForbidden, op, "no driver signed in", nil)
	}
	if err := s.Driver.CanAccept(); err != nil {
		return nil, opErr(ErrAccept, op, "driver cannot accept orders now", err)
	}
	if s.FindAvailable(orderID) == nil {
		return nil, opErr(ErrAccept, op, "order is not in the available list", ports.ErrNotFound)
	}

	ctx = c.log.WithOrderID(ctx, orderID)
	var (
		accepted *order.Order
		err      error
	)
	if demoAccount(s) {
		accepted, err = demoAccept(s, orderID, driverID, c.now())
	} else {
		accepted, err = c.backend.AcceptOrder(ctx, orderID, driverID)
	}
	if err != nil {
		msg := "backend rejected accept"
		if errors.Is(err, ports.ErrOrderTaken) {
			msg = "order already taken by another driver"
		}
		c.log.Error(ctx, "order_accept_failed", msg, err, map[string]any{"driver_id": driverID})
		return nil, opErr(ErrAccept, op, msg, err)
	}

	c.dispatch(OrderAccepted{Order: accepted})

	if !demoAccount(s) {
		if available, err := c.backend.GetAvailableOrders(ctx, driverID); err != nil {
			c.log.Error(ctx, "available_orders_fetch_failed", "Failed to refresh available orders after accept", err, nil)
		} else {
			c.dispatch(AvailableLoaded{Orders: available})
		}
	}

	c.publishOrder(ctx, accepted)
	c.publishDriver(ctx, driverID, driver.StatusBusy, accepted.ID)
	c.log.Info(ctx, "order_accepted", "Order accepted", map[string]any{"driver_id": driverID, "fare": accepted.Fare.Total})
	return accepted.Clone(), nil
}

// UpdateOrderStatus advances the current order one step from the status the
// caller last observed. Completing the order schedules the driver's release
// after the grace delay.
func (c *Coordinator) UpdateOrderStatus(ctx context.Context, orderID string, from order.Status) (*order.Order, error) {
	const op = "update_order_status"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	s := c.Snapshot()
	driverID := s.DriverID()
	if driverID == "" {
		return nil, opErr(ErrForbidden, op, "no driver signed in", nil)
	}
	cur := s.Driver.CurrentOrder
	if cur == nil || cur.ID != orderID {
		return nil, opErr(ErrStatus, op, "order is not the current order", ports.ErrNotFound)
	}
	if cur.Status != from {
		return nil, opErr(ErrStatus, op, "order status is stale", order.ErrStaleStatus)
	}
	next, err := from.Next()
	if err != nil {
		return nil, opErr(ErrStatus, op, "order cannot advance", errors.Join(order.ErrInvalidTransition, err))
	}

	ctx = c.log.WithOrderID(ctx, orderID)
	var updated *order.Order
	if demoAccount(s) {
		updated, err = demoAdvance(cur, next, driverID, c.now())
	} else {
		updated, err = c.backend.UpdateOrderStatus(ctx, orderID, next, driverID)
	}
	if err != nil {
		c.log.Error(ctx, "order_status_update_failed", "Backend rejected order status change", err,
			map[string]any{"from": from, "to": next})
		return nil, opErr(ErrStatus, op, "backend rejected status change", err)
	}

	c.dispatch(OrderAdvanced{Order: updated})
	if updated.Status == order.StatusCompleted {
		c.scheduleRelease(orderID)
	}

	c.publishOrder(ctx, updated)
	c.log.Info(ctx, "order_status_updated", "Order advanced", map[string]any{"from": from, "to": updated.Status})
	return updated.Clone(), nil
}

// Advance is UpdateOrderStatus from the cached status of the current order.
func (c *Coordinator) Advance(ctx context.Context, orderID string) (*order.Order, error) {
	cur := c.Snapshot().Driver.CurrentOrder
	if cur == nil || cur.ID != orderID {
		return nil, opErr(ErrStatus, "update_order_status", "order is not the current order", ports.ErrNotFound)
	}
	return c.UpdateOrderStatus(ctx, orderID, cur.Status)
}
