package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"ride-coordinator/internal/domain/earnings"
)

// GetEarningsStats sums the completed orders of driverID inside period.
// Hours are the summed trip durations.
func (s *Store) GetEarningsStats(ctx context.Context, driverID string, period earnings.Period) (earnings.Snapshot, error) {
	if !period.Valid() {
		return earnings.Snapshot{}, earnings.ErrInvalidPeriod
	}
	from, to := period.Range(s.now())

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var total, orders, minutes int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(fare_total), 0), COUNT(*), COALESCE(SUM(duration_minutes), 0)
		FROM orders
		WHERE driver_id = ? AND status = 'completed' AND completed_at >= ? AND completed_at < ?`,
		driverID, formatTime(from), formatTime(to)).Scan(&total, &orders, &minutes)
	if err != nil {
		return earnings.Snapshot{}, fmt.Errorf("earnings stats: %w", err)
	}
	return earnings.NewSnapshot(period, total, orders, float64(minutes)/60), nil
}

// RequestWithdrawal records a pending payout if the driver's completed
// earnings cover it.
func (s *Store) RequestWithdrawal(ctx context.Context, w *earnings.Withdrawal) (*earnings.Withdrawal, error) {
	if err := earnings.ValidateAmount(w.Amount); err != nil {
		return nil, err
	}
	out := *w
	out.ID = newID("WD")

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var earned, withdrawn int
		err := tx.QueryRowContext(ctx, `
			SELECT
				(SELECT COALESCE(SUM(fare_total), 0) FROM orders WHERE driver_id = ? AND status = 'completed'),
				(SELECT COALESCE(SUM(amount), 0) FROM withdrawals WHERE driver_id = ? AND status != 'rejected')`,
			w.DriverID, w.DriverID).Scan(&earned, &withdrawn)
		if err != nil {
			return fmt.Errorf("withdrawal balance: %w", err)
		}
		if w.Amount > earned-withdrawn {
			return earnings.ErrInsufficientBalance
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO withdrawals (id, driver_id, amount, fee, net_amount, bank_account, account_holder, status, requested_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			out.ID, out.DriverID, out.Amount, out.Fee, out.NetAmount, out.BankAccount, out.AccountHolder,
			string(out.Status), formatTime(out.RequestedAt))
		if err != nil {
			return fmt.Errorf("insert withdrawal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
