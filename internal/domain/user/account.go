package user

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Account is a driver, passenger or admin record. Drivers and passengers sign
// in with Phone, admins with Username.
type Account struct {
	ID           string    `json:"id"`
	Role         Role      `json:"role"`
	Status       Status    `json:"status"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Username     string    `json:"username,omitempty"`
	VehiclePlate string    `json:"vehicle_plate,omitempty"`
	PasswordHash string    `json:"-"`
	Demo         bool      `json:"demo,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

var (
	ErrIdentifierRequired = errors.New("phone or username is required")
	ErrNameRequired       = errors.New("name is required")
	ErrEmptyPasswordHash  = errors.New("password hash cannot be empty")
	ErrPasswordMismatch   = errors.New("password does not match")
	ErrAccountDisabled    = errors.New("account is not active")
)

// NewAccount constructs an active account and hashes the plain password.
func NewAccount(role Role, name, identifier, password string) (*Account, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if name = strings.TrimSpace(name); name == "" {
		return nil, ErrNameRequired
	}
	if identifier = strings.TrimSpace(identifier); identifier == "" {
		return nil, ErrIdentifierRequired
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	account := &Account{
		Role:         role,
		Status:       StatusActive,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if role.IsAdmin() {
		account.Username = identifier
	} else {
		account.Phone = identifier
	}
	return account, nil
}

// Identifier is the login handle for the account's role.
func (account *Account) Identifier() string {
	if account.Role.IsAdmin() {
		return account.Username
	}
	return account.Phone
}

// Authenticate verifies the plain password and that the account may sign in.
func (account *Account) Authenticate(password string) error {
	if account.PasswordHash == "" {
		return ErrEmptyPasswordHash
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return ErrPasswordMismatch
	}
	if !account.Status.IsActive() {
		return ErrAccountDisabled
	}
	return nil
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPasswordHash
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
