package sqlite

import (
	"context"
	"fmt"
	"time"

	"ride-coordinator/internal/ports"
)

// Overview aggregates order and driver counts for the admin board.
func (s *Store) Overview(ctx context.Context, now time.Time) (ports.Overview, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	out := ports.Overview{
		Timestamp:       now.UTC(),
		OrdersByStatus:  map[string]int{},
		DriversByStatus: map[string]int{},
	}

	if err := s.countBy(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`, out.OrdersByStatus); err != nil {
		return ports.Overview{}, fmt.Errorf("orders by status: %w", err)
	}
	if err := s.countBy(ctx, `SELECT work_status, COUNT(*) FROM drivers GROUP BY work_status`, out.DriversByStatus); err != nil {
		return ports.Overview{}, fmt.Errorf("drivers by status: %w", err)
	}

	y, m, d := now.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, 1)

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM orders WHERE status NOT IN ('pending', 'completed', 'cancelled')),
			(SELECT COUNT(*) FROM orders WHERE requested_at >= ? AND requested_at < ?),
			(SELECT COALESCE(SUM(fare_total), 0) FROM orders WHERE status = 'completed' AND completed_at >= ? AND completed_at < ?)`,
		formatTime(from), formatTime(to), formatTime(from), formatTime(to)).
		Scan(&out.ActiveOrders, &out.OrdersToday, &out.RevenueToday)
	if err != nil {
		return ports.Overview{}, fmt.Errorf("overview totals: %w", err)
	}
	return out, nil
}

func (s *Store) countBy(ctx context.Context, query string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}
