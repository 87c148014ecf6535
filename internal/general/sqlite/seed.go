package sqlite

import (
	"context"
	"fmt"

	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/general/demo"
)

// Seed loads the demo fixtures. It does nothing when any account already
// exists.
func (s *Store) Seed(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return fmt.Errorf("count accounts: %w", err)
	}
	if n > 0 {
		return nil
	}

	f, err := demo.Build(s.now())
	if err != nil {
		return fmt.Errorf("build fixtures: %w", err)
	}
	for _, a := range f.Accounts {
		if err := s.CreateAccount(ctx, a); err != nil {
			return fmt.Errorf("seed account %s: %w", a.ID, err)
		}
	}
	for _, o := range f.Orders {
		if err := s.insertOrder(ctx, o); err != nil {
			return fmt.Errorf("seed order %s: %w", o.ID, err)
		}
	}
	for _, c := range f.Conversations {
		if err := s.CreateConversation(ctx, c); err != nil {
			return fmt.Errorf("seed conversation %s: %w", c.ID, err)
		}
	}
	for _, m := range f.Messages {
		if _, err := s.SendMessage(ctx, m); err != nil {
			return fmt.Errorf("seed message: %w", err)
		}
	}
	for _, nt := range f.Notifications {
		if _, err := s.CreateNotification(ctx, nt); err != nil {
			return fmt.Errorf("seed notification: %w", err)
		}
	}
	return nil
}

// insertOrder writes o as-is, keeping its ID and lifecycle timestamps.
func (s *Store) insertOrder(ctx context.Context, o *order.Order) error {
	var driverID any
	if o.DriverID != nil {
		driverID = *o.DriverID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (id, passenger_id, driver_id, pickup_address, pickup_lat, pickup_lng,
			dropoff_address, dropoff_lat, dropoff_lng, distance_km, duration_minutes,
			fare_base, fare_distance, fare_time, fare_total, status,
			requested_at, accepted_at, completed_at, cancelled_at, cancellation_reason, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.PassengerID, driverID, o.Pickup.Address, o.Pickup.Latitude, o.Pickup.Longitude,
		o.Dropoff.Address, o.Dropoff.Latitude, o.Dropoff.Longitude, o.DistanceKM, o.DurationMinutes,
		o.Fare.Base, o.Fare.Distance, o.Fare.Time, o.Fare.Total, string(o.Status),
		formatTime(o.RequestedAt), nullTime(o.AcceptedAt), nullTime(o.CompletedAt), nullTime(o.CancelledAt),
		nullString(o.CancellationReason), formatTime(o.UpdatedAt))
	return err
}
