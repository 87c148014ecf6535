package sqlite

import (
	"context"
	"fmt"

	"ride-coordinator/internal/domain/driver"
	"ride-coordinator/internal/domain/geo"
	"ride-coordinator/internal/ports"
)

func (s *Store) UpdateWorkStatus(ctx context.Context, driverID string, status driver.Status) error {
	if !status.Valid() {
		return driver.ErrInvalidStatus
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `UPDATE drivers SET work_status = ?, updated_at = ? WHERE id = ?`,
		string(status), s.timestamp(), driverID)
	if err != nil {
		return fmt.Errorf("update work status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	if _, err := geo.NewPoint(lat, lng); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := s.timestamp()
	res, err := s.db.ExecContext(ctx, `
		UPDATE drivers SET latitude = ?, longitude = ?, location_updated_at = ?, updated_at = ?
		WHERE id = ?`, lat, lng, now, now, driverID)
	if err != nil {
		return fmt.Errorf("update location: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// WorkStatus returns the stored work status of driverID.
func (s *Store) WorkStatus(ctx context.Context, driverID string) (driver.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var status string
	if err := s.db.QueryRowContext(ctx, `SELECT work_status FROM drivers WHERE id = ?`, driverID).Scan(&status); err != nil {
		return "", notFound(err)
	}
	return driver.Status(status), nil
}
