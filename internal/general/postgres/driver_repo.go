package postgres

import (
	"context"
	"fmt"
	"time"

	"ride-coordinator/internal/domain/driver"
	"ride-coordinator/internal/ports"
)

// DriverRepo persists driver work status and location.
type DriverRepo struct{}

func NewDriverRepo() ports.DriverRepository {
	return &DriverRepo{}
}

// UpdateWorkStatus sets the driver's work status.
func (repo *DriverRepo) UpdateWorkStatus(ctx context.Context, driverID string, status driver.Status) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `UPDATE drivers SET work_status = $2, updated_at = now() WHERE id = $1`, driverID, status.String())
	if err != nil {
		return fmt.Errorf("update work status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// UpdateLocation stores the last reported position.
func (repo *DriverRepo) UpdateLocation(ctx context.Context, driverID string, lat, lng float64, at time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE drivers
		SET latitude = $2, longitude = $3, location_updated_at = $4, updated_at = $4
		WHERE id = $1`, driverID, lat, lng, at)
	if err != nil {
		return fmt.Errorf("update location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// CountByStatus returns the number of drivers per work status.
func (repo *DriverRepo) CountByStatus(ctx context.Context) (map[driver.Status]int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `SELECT work_status, COUNT(*) FROM drivers GROUP BY work_status`)
	if err != nil {
		return nil, fmt.Errorf("count drivers by status: %w", err)
	}
	defer rows.Close()

	out := make(map[driver.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan driver count: %w", err)
		}
		out[driver.Status(status)] = n
	}
	return out, rows.Err()
}
