package postgres

import (
	"context"
	"fmt"
	"time"

	"ride-coordinator/internal/domain/earnings"
	"ride-coordinator/internal/ports"
)

// EarningsRepo aggregates completed orders and records withdrawals.
type EarningsRepo struct{}

func NewEarningsRepo() ports.EarningsRepository {
	return &EarningsRepo{}
}

// Stats sums fares, trips and trip hours of orders the driver completed in [from, to).
func (repo *EarningsRepo) Stats(ctx context.Context, driverID string, from, to time.Time) (int, int, float64, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, 0, 0, err
	}

	var (
		total, orders int
		minutes       int
	)
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(fare_total), 0)::int, COUNT(*)::int, COALESCE(SUM(duration_minutes), 0)::int
		FROM orders
		WHERE driver_id = $1 AND status = 'completed' AND completed_at >= $2 AND completed_at < $3`,
		driverID, from, to).Scan(&total, &orders, &minutes)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("earnings stats: %w", err)
	}
	return total, orders, float64(minutes) / 60, nil
}

// Balance is lifetime completed fares minus non-rejected withdrawals.
func (repo *EarningsRepo) Balance(ctx context.Context, driverID string) (int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	// lock the driver row so concurrent withdrawals see each other
	if _, err := tx.Exec(ctx, `SELECT 1 FROM drivers WHERE id = $1 FOR UPDATE`, driverID); err != nil {
		return 0, fmt.Errorf("lock driver: %w", err)
	}

	var balance int
	err = tx.QueryRow(ctx, `
		SELECT
			(SELECT COALESCE(SUM(fare_total), 0) FROM orders WHERE driver_id = $1 AND status = 'completed')
			- (SELECT COALESCE(SUM(amount), 0) FROM withdrawals WHERE driver_id = $1 AND status <> 'rejected')`,
		driverID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("withdrawal balance: %w", err)
	}
	return balance, nil
}

// CreateWithdrawal inserts a withdrawal, assigning its ID when empty.
func (repo *EarningsRepo) CreateWithdrawal(ctx context.Context, w *earnings.Withdrawal) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}
	if w.ID == "" {
		w.ID = newID("WD")
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO withdrawals (id, driver_id, amount, fee, net_amount, bank_account, account_holder, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		w.ID, w.DriverID, w.Amount, w.Fee, w.NetAmount, w.BankAccount, w.AccountHolder, string(w.Status), w.RequestedAt)
	if err != nil {
		return fmt.Errorf("insert withdrawal: %w", err)
	}
	return nil
}
