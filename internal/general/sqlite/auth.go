package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ride-coordinator/internal/domain/user"
	"ride-coordinator/internal/ports"
)

const selectAccount = `
SELECT a.id, a.role, a.status, a.name, COALESCE(a.phone, ''), COALESCE(a.username, ''),
       a.password_hash, a.created_at, COALESCE(d.vehicle_plate, '')
FROM accounts a
LEFT JOIN drivers d ON d.id = a.id`

func (s *Store) LoginDriver(ctx context.Context, phone, password string) (*user.Account, error) {
	return s.login(ctx, `WHERE a.role = 'driver' AND a.phone = ?`, phone, password)
}

func (s *Store) LoginPassenger(ctx context.Context, phone, password string) (*user.Account, error) {
	return s.login(ctx, `WHERE a.role = 'passenger' AND a.phone = ?`, phone, password)
}

func (s *Store) LoginAdmin(ctx context.Context, username, password string) (*user.Account, error) {
	return s.login(ctx, `WHERE a.role = 'admin' AND a.username = ?`, username, password)
}

func (s *Store) login(ctx context.Context, where, identifier, password string) (*user.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	account, err := scanAccount(s.db.QueryRowContext(ctx, selectAccount+" "+where, identifier))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	switch err := account.Authenticate(password); {
	case err == nil:
		return account, nil
	case errors.Is(err, user.ErrAccountDisabled):
		return nil, err
	default:
		return nil, ports.ErrInvalidCredentials
	}
}

// CreateAccount inserts account (and its driver row) with a generated ID
// when none is set.
func (s *Store) CreateAccount(ctx context.Context, account *user.Account) error {
	if account.ID == "" {
		account.ID = newID(string(account.Role)[:1] + "-")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (id, role, status, name, phone, username, password_hash, created_at)
			VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?)`,
			account.ID, string(account.Role), string(account.Status), account.Name,
			account.Phone, account.Username, account.PasswordHash, formatTime(account.CreatedAt))
		if err != nil {
			return fmt.Errorf("insert account: %w", err)
		}
		if !account.Role.IsDriver() {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO drivers (id, vehicle_plate, work_status, updated_at)
			VALUES (?, NULLIF(?, ''), 'offline', ?)`,
			account.ID, account.VehiclePlate, s.timestamp())
		if err != nil {
			return fmt.Errorf("insert driver: %w", err)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*user.Account, error) {
	var (
		account   user.Account
		role      string
		status    string
		createdAt string
	)
	if err := row.Scan(&account.ID, &role, &status, &account.Name, &account.Phone, &account.Username,
		&account.PasswordHash, &createdAt, &account.VehiclePlate); err != nil {
		return nil, err
	}
	account.Role = user.Role(role)
	account.Status = user.Status(status)
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	account.CreatedAt = t
	return &account, nil
}
