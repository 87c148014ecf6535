package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/ports"
)

// OrderRepo persists orders using pgx and plain SQL.
type OrderRepo struct{}

func NewOrderRepo() ports.OrderRepository {
	return &OrderRepo{}
}

const selectOrder = `SELECT ` + orderColumns + ` FROM orders`

// CreateOrder inserts a pending order, assigning its ID when empty.
func (repo *OrderRepo) CreateOrder(ctx context.Context, o *order.Order) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}
	if o.ID == "" {
		o.ID = newID("RD")
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, passenger_id, driver_id, pickup_address, pickup_lat, pickup_lng,
			dropoff_address, dropoff_lat, dropoff_lng, distance_km, duration_minutes,
			fare_base, fare_distance, fare_time, fare_total, status,
			requested_at, accepted_at, completed_at, cancelled_at, cancellation_reason, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		o.ID, o.PassengerID, o.DriverID, o.Pickup.Address, o.Pickup.Latitude, o.Pickup.Longitude,
		o.Dropoff.Address, o.Dropoff.Latitude, o.Dropoff.Longitude, o.DistanceKM, o.DurationMinutes,
		o.Fare.Base, o.Fare.Distance, o.Fare.Time, o.Fare.Total, o.Status.String(),
		o.RequestedAt, o.AcceptedAt, o.CompletedAt, o.CancelledAt, o.CancellationReason, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID fetches an order by primary key.
func (repo *OrderRepo) GetByID(ctx context.Context, id string) (*order.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return scanOrder(tx.QueryRow(ctx, selectOrder+` WHERE id = $1`, id))
}

// GetForUpdate fetches and row-locks an order until the transaction ends.
func (repo *OrderRepo) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return scanOrder(tx.QueryRow(ctx, selectOrder+` WHERE id = $1 FOR UPDATE`, id))
}

// ListPending returns pending orders, oldest first.
func (repo *OrderRepo) ListPending(ctx context.Context, limit int) ([]*order.Order, error) {
	return repo.list(ctx, `WHERE status = 'pending' ORDER BY requested_at ASC, id ASC LIMIT $1`, limit)
}

// ListByDriver returns the driver's orders, newest first, optionally
// restricted to one status.
func (repo *OrderRepo) ListByDriver(ctx context.Context, driverID string, filter order.Status, limit int) ([]*order.Order, error) {
	if filter == "" {
		return repo.list(ctx, `WHERE driver_id = $1 ORDER BY requested_at DESC, id DESC LIMIT $2`, driverID, limit)
	}
	return repo.list(ctx, `WHERE driver_id = $1 AND status = $2 ORDER BY requested_at DESC, id DESC LIMIT $3`,
		driverID, filter.String(), limit)
}

// ListByPassenger returns the passenger's orders, newest first.
func (repo *OrderRepo) ListByPassenger(ctx context.Context, passengerID string, limit int) ([]*order.Order, error) {
	return repo.list(ctx, `WHERE passenger_id = $1 ORDER BY requested_at DESC, id DESC LIMIT $2`, passengerID, limit)
}

// GetActiveForDriver fetches the most recent in-progress order of a driver.
func (repo *OrderRepo) GetActiveForDriver(ctx context.Context, driverID string) (*order.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return scanOrder(tx.QueryRow(ctx, selectOrder+`
		WHERE driver_id = $1 AND status NOT IN ('pending', 'completed', 'cancelled')
		ORDER BY accepted_at DESC
		LIMIT 1`, driverID))
}

// ClaimPending assigns a pending, unassigned order to driverID in one
// statement. It returns ports.ErrOrderTaken when another driver got there
// first and ports.ErrNotFound when the order does not exist.
func (repo *OrderRepo) ClaimPending(ctx context.Context, orderID, driverID string, acceptedAt time.Time) (*order.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	o, err := scanOrder(tx.QueryRow(ctx, `
		UPDATE orders
		SET driver_id = $2, status = 'accepted', accepted_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'pending' AND driver_id IS NULL
		RETURNING `+orderColumns, orderID, driverID, acceptedAt))
	if errors.Is(err, ports.ErrNotFound) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check order: %w", err)
		}
		if exists {
			return nil, ports.ErrOrderTaken
		}
		return nil, ports.ErrNotFound
	}
	return o, err
}

// SaveStatus writes the lifecycle columns of o.
func (repo *OrderRepo) SaveStatus(ctx context.Context, o *order.Order) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $2, completed_at = $3, cancelled_at = $4, cancellation_reason = $5, updated_at = $6
		WHERE id = $1`,
		o.ID, o.Status.String(), o.CompletedAt, o.CancelledAt, o.CancellationReason, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// CountByStatus returns the number of orders per status.
func (repo *OrderRepo) CountByStatus(ctx context.Context) (map[order.Status]int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}
	defer rows.Close()

	out := make(map[order.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan order count: %w", err)
		}
		out[order.Status(status)] = n
	}
	return out, rows.Err()
}

// CountCreatedBetween counts orders requested in [start, end).
func (repo *OrderRepo) CountCreatedBetween(ctx context.Context, start, end time.Time) (int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE requested_at >= $1 AND requested_at < $2`, start, end).Scan(&n)
	return n, err
}

// SumFareCompletedBetween sums fares of orders completed in [start, end).
func (repo *OrderRepo) SumFareCompletedBetween(ctx context.Context, start, end time.Time) (int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(fare_total), 0)::int
		FROM orders
		WHERE status = 'completed' AND completed_at >= $1 AND completed_at < $2`, start, end).Scan(&n)
	return n, err
}

func (repo *OrderRepo) list(ctx context.Context, where string, args ...any) ([]*order.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, selectOrder+" "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

const orderColumns = `id, passenger_id, driver_id,
	pickup_address, pickup_lat, pickup_lng,
	dropoff_address, dropoff_lat, dropoff_lng,
	distance_km, duration_minutes,
	fare_base, fare_distance, fare_time, fare_total,
	status, requested_at, accepted_at, completed_at, cancelled_at,
	cancellation_reason, updated_at`

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.PassengerID, &o.DriverID,
		&o.Pickup.Address, &o.Pickup.Latitude, &o.Pickup.Longitude,
		&o.Dropoff.Address, &o.Dropoff.Latitude, &o.Dropoff.Longitude,
		&o.DistanceKM, &o.DurationMinutes,
		&o.Fare.Base, &o.Fare.Distance, &o.Fare.Time, &o.Fare.Total,
		&status, &o.RequestedAt, &o.AcceptedAt, &o.CompletedAt, &o.CancelledAt,
		&o.CancellationReason, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.Status = order.Status(status)
	o.RequestedAt = o.RequestedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}
