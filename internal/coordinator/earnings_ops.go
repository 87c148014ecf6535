package coordinator

import (
	"context"

	"ride-coordinator/internal/domain/earnings"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/domain/user"
)

// LoadEarnings replaces the cached snapshot for period. On failure the
// previous snapshot stays in place.
func (c *Coordinator) LoadEarnings(ctx context.Context, period earnings.Period) (earnings.Snapshot, error) {
	const op = "load_earnings"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	driverID := c.Snapshot().DriverID()
	if driverID == "" {
		return earnings.Snapshot{}, opErr(ErrFetch, op, "no authenticated driver", nil)
	}
	if !period.Valid() {
		return earnings.Snapshot{}, opErr(ErrFetch, op, "invalid period", earnings.ErrInvalidPeriod)
	}

	snapshot, err := c.backend.GetEarningsStats(ctx, driverID, period)
	if err != nil {
		c.log.Error(ctx, "earnings_fetch_failed", "Failed to fetch earnings", err,
			map[string]any{"driver_id": driverID, "period": period})
		return earnings.Snapshot{}, opErr(ErrFetch, op, "failed to fetch earnings", err)
	}
	snapshot.Period = period

	c.dispatch(EarningsLoaded{Snapshot: snapshot})
	return snapshot, nil
}

// LoadOrders replaces the cached order history. Drivers see the orders they
// hold, passengers the rides they requested. An empty filter returns all.
func (c *Coordinator) LoadOrders(ctx context.Context, filter order.Status) ([]*order.Order, error) {
	const op = "load_orders"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	s := c.Snapshot()
	if filter != "" && !filter.Valid() {
		return nil, opErr(ErrFetch, op, "invalid status filter", order.ErrInvalidStatus)
	}

	var (
		orders []*order.Order
		err    error
	)
	switch s.Role() {
	case user.RoleDriver:
		orders, err = c.backend.GetDriverOrders(ctx, s.Account.ID, filter)
	case user.RolePassenger:
		orders, err = c.backend.GetPassengerOrders(ctx, s.Account.ID)
		orders = filterOrders(orders, filter)
	default:
		return nil, opErr(ErrForbidden, op, "order history needs a driver or passenger session", nil)
	}
	if err != nil {
		c.log.Error(ctx, "orders_fetch_failed", "Failed to fetch order history", err,
			map[string]any{"account_id": s.Account.ID, "filter": filter})
		return nil, opErr(ErrFetch, op, "failed to fetch orders", err)
	}

	c.dispatch(OrdersLoaded{Orders: orders})
	return cloneOrders(orders), nil
}

// RequestWithdrawal validates the amount locally, so requests under the
// minimum never reach the backend.
func (c *Coordinator) RequestWithdrawal(ctx context.Context, amount int, bankAccount, holder string) (*earnings.Withdrawal, error) {
	const op = "request_withdrawal"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	driverID := c.Snapshot().DriverID()
	if driverID == "" {
		return nil, opErr(ErrForbidden, op, "no driver signed in", nil)
	}

	withdrawal, err := earnings.NewWithdrawal(driverID, amount, bankAccount, holder)
	if err != nil {
		return nil, opErr(ErrWithdrawal, op, "invalid withdrawal request", err)
	}

	saved, err := c.backend.RequestWithdrawal(ctx, withdrawal)
	if err != nil {
		c.log.Error(ctx, "withdrawal_failed", "Backend rejected withdrawal", err,
			map[string]any{"driver_id": driverID, "amount": amount})
		return nil, opErr(ErrWithdrawal, op, "backend rejected withdrawal", err)
	}

	c.log.Info(ctx, "withdrawal_requested", "Withdrawal requested", map[string]any{
		"driver_id":  driverID,
		"amount":     saved.Amount,
		"net_amount": saved.NetAmount,
	})
	return saved, nil
}

func filterOrders(in []*order.Order, filter order.Status) []*order.Order {
	if filter == "" {
		return in
	}
	out := make([]*order.Order, 0, len(in))
	for _, o := range in {
		if o.Status == filter {
			out = append(out, o)
		}
	}
	return out
}
