package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ride-coordinator/internal/domain/user"
	"ride-coordinator/internal/ports"
)

// AccountRepo reads and creates sign-in records.
type AccountRepo struct{}

func NewAccountRepo() ports.AccountRepository {
	return &AccountRepo{}
}

const selectAccount = `
	SELECT a.id, a.role, a.status, a.name, COALESCE(a.phone, ''), COALESCE(a.username, ''),
	       a.password_hash, a.created_at, COALESCE(d.vehicle_plate, '')
	FROM accounts a
	LEFT JOIN drivers d ON d.id = a.id`

// GetByPhone returns the account of role registered with phone.
func (repo *AccountRepo) GetByPhone(ctx context.Context, role user.Role, phone string) (*user.Account, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return scanAccount(tx.QueryRow(ctx, selectAccount+` WHERE a.role = $1 AND a.phone = $2`, role.String(), phone))
}

// GetByUsername returns the admin account with username.
func (repo *AccountRepo) GetByUsername(ctx context.Context, username string) (*user.Account, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return scanAccount(tx.QueryRow(ctx, selectAccount+` WHERE a.role = 'admin' AND a.username = $1`, username))
}

// CreateAccount inserts the account and, for drivers, its operational row.
func (repo *AccountRepo) CreateAccount(ctx context.Context, account *user.Account) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}
	if account.ID == "" {
		account.ID = newID(account.Role.String()[:1] + "-")
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO accounts (id, role, status, name, phone, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8)`,
		account.ID, account.Role.String(), account.Status.String(), account.Name,
		account.Phone, account.Username, account.PasswordHash, account.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	if !account.Role.IsDriver() {
		return nil
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO drivers (id, vehicle_plate, work_status)
		VALUES ($1, NULLIF($2, ''), 'offline')`,
		account.ID, account.VehiclePlate,
	); err != nil {
		return fmt.Errorf("insert driver: %w", err)
	}
	return nil
}

func scanAccount(row pgx.Row) (*user.Account, error) {
	var (
		a            user.Account
		role, status string
	)
	err := row.Scan(&a.ID, &role, &status, &a.Name, &a.Phone, &a.Username, &a.PasswordHash, &a.CreatedAt, &a.VehiclePlate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.Role = user.Role(role)
	a.Status = user.Status(status)
	return &a, nil
}
