package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ride-coordinator/internal/domain/geo"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/ports"
)

const selectOrder = `
SELECT id, passenger_id, driver_id,
       pickup_address, pickup_lat, pickup_lng,
       dropoff_address, dropoff_lat, dropoff_lng,
       distance_km, duration_minutes,
       fare_base, fare_distance, fare_time, fare_total,
       status, requested_at, accepted_at, completed_at, cancelled_at,
       cancellation_reason, updated_at
FROM orders`

// GetAvailableOrders lists pending orders, oldest first.
func (s *Store) GetAvailableOrders(ctx context.Context, _ string) ([]*order.Order, error) {
	return s.listOrders(ctx, s.db, `WHERE status = 'pending' ORDER BY requested_at ASC, id ASC`)
}

// AcceptOrder claims a pending order with one conditional update; the
// first driver wins and later callers get ports.ErrOrderTaken.
func (s *Store) AcceptOrder(ctx context.Context, orderID, driverID string) (*order.Order, error) {
	var out *order.Order
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := s.timestamp()
		res, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET driver_id = ?, status = 'accepted', accepted_at = ?, updated_at = ?
			WHERE id = ? AND status = 'pending' AND driver_id IS NULL`,
			driverID, now, now, orderID)
		if err != nil {
			return fmt.Errorf("claim order: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			if _, err := s.getOrder(ctx, tx, orderID); err != nil {
				return err
			}
			return ports.ErrOrderTaken
		}
		if _, err := tx.ExecContext(ctx, `UPDATE drivers SET work_status = 'busy', updated_at = ? WHERE id = ?`, now, driverID); err != nil {
			return fmt.Errorf("mark driver busy: %w", err)
		}
		out, err = s.getOrder(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateOrderStatus moves the order assigned to driverID one step forward.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, status order.Status, driverID string) (*order.Order, error) {
	var out *order.Order
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		o, err := s.getOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		prev := o.Status
		if err := o.AdvanceTo(status, driverID); err != nil {
			return err
		}
		o.StampAt(s.now())
		if err := s.saveStatus(ctx, tx, o, prev); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRide stores a new pending order and assigns its ID.
func (s *Store) CreateRide(ctx context.Context, ride *order.Order) (*order.Order, error) {
	if ride == nil {
		return nil, errors.New("ride is nil")
	}
	o := ride.Clone()
	o.ID = newID("RD")
	o.Status = order.StatusPending
	o.DriverID = nil

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (id, passenger_id, pickup_address, pickup_lat, pickup_lng,
			dropoff_address, dropoff_lat, dropoff_lng, distance_km, duration_minutes,
			fare_base, fare_distance, fare_time, fare_total, status, requested_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.PassengerID, o.Pickup.Address, o.Pickup.Latitude, o.Pickup.Longitude,
		o.Dropoff.Address, o.Dropoff.Latitude, o.Dropoff.Longitude, o.DistanceKM, o.DurationMinutes,
		o.Fare.Base, o.Fare.Distance, o.Fare.Time, o.Fare.Total, string(o.Status),
		formatTime(o.RequestedAt), formatTime(o.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	return s.getOrder(ctx, s.db, o.ID)
}

// GetDriverOrders lists orders assigned to driverID, newest first,
// optionally filtered by status.
func (s *Store) GetDriverOrders(ctx context.Context, driverID string, filter order.Status) ([]*order.Order, error) {
	if filter == "" {
		return s.listOrders(ctx, s.db, `WHERE driver_id = ? ORDER BY requested_at DESC, id DESC`, driverID)
	}
	return s.listOrders(ctx, s.db, `WHERE driver_id = ? AND status = ? ORDER BY requested_at DESC, id DESC`, driverID, string(filter))
}

func (s *Store) GetPassengerOrders(ctx context.Context, passengerID string) ([]*order.Order, error) {
	return s.listOrders(ctx, s.db, `WHERE passenger_id = ? ORDER BY requested_at DESC, id DESC`, passengerID)
}

// GetActiveOrder returns the in-progress order of driverID or ports.ErrNotFound.
func (s *Store) GetActiveOrder(ctx context.Context, driverID string) (*order.Order, error) {
	orders, err := s.listOrders(ctx, s.db, `
		WHERE driver_id = ? AND status NOT IN ('pending', 'completed', 'cancelled')
		ORDER BY accepted_at DESC LIMIT 1`, driverID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ports.ErrNotFound
	}
	return orders[0], nil
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return s.getOrder(ctx, s.db, orderID)
}

// CancelRide cancels an order owned by passengerID. A driver holding the
// order is put back online.
func (s *Store) CancelRide(ctx context.Context, orderID, passengerID, reason string) (*order.Order, error) {
	var out *order.Order
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		o, err := s.getOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if o.PassengerID != passengerID {
			return ports.ErrNotFound
		}
		prev := o.Status
		if err := o.Cancel(reason); err != nil {
			return err
		}
		o.StampAt(s.now())
		if err := s.saveStatus(ctx, tx, o, prev); err != nil {
			return err
		}
		if o.DriverID != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE drivers SET work_status = 'online', updated_at = ? WHERE id = ? AND work_status = 'busy'`,
				s.timestamp(), *o.DriverID); err != nil {
				return fmt.Errorf("release driver: %w", err)
			}
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// saveStatus writes the lifecycle columns of o if its status is still prev.
func (s *Store) saveStatus(ctx context.Context, q queryer, o *order.Order, prev order.Status) error {
	res, err := q.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, completed_at = ?, cancelled_at = ?, cancellation_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(o.Status), nullTime(o.CompletedAt), nullTime(o.CancelledAt), nullString(o.CancellationReason),
		formatTime(o.UpdatedAt), o.ID, string(prev))
	if err != nil {
		return fmt.Errorf("save order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return order.ErrStaleStatus
	}
	return nil
}

func (s *Store) getOrder(ctx context.Context, q queryer, orderID string) (*order.Order, error) {
	o, err := scanOrder(q.QueryRowContext(ctx, selectOrder+` WHERE id = ?`, orderID))
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

func (s *Store) listOrders(ctx context.Context, q queryer, where string, args ...any) ([]*order.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := q.QueryContext(ctx, selectOrder+" "+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o           order.Order
		driverID    sql.NullString
		status      string
		requestedAt string
		updatedAt   string
		acceptedAt  sql.NullString
		completedAt sql.NullString
		cancelledAt sql.NullString
		reason      sql.NullString
		pickup      geo.Place
		dropoff     geo.Place
	)
	err := row.Scan(&o.ID, &o.PassengerID, &driverID,
		&pickup.Address, &pickup.Latitude, &pickup.Longitude,
		&dropoff.Address, &dropoff.Latitude, &dropoff.Longitude,
		&o.DistanceKM, &o.DurationMinutes,
		&o.Fare.Base, &o.Fare.Distance, &o.Fare.Time, &o.Fare.Total,
		&status, &requestedAt, &acceptedAt, &completedAt, &cancelledAt,
		&reason, &updatedAt)
	if err != nil {
		return nil, err
	}
	o.Pickup, o.Dropoff = pickup, dropoff
	o.Status = order.Status(status)
	if driverID.Valid {
		v := driverID.String
		o.DriverID = &v
	}
	if reason.Valid {
		v := reason.String
		o.CancellationReason = &v
	}
	if o.RequestedAt, err = parseTime(requestedAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if o.AcceptedAt, err = parseNullTime(acceptedAt); err != nil {
		return nil, err
	}
	if o.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, err
	}
	if o.CancelledAt, err = parseNullTime(cancelledAt); err != nil {
		return nil, err
	}
	return &o, nil
}
