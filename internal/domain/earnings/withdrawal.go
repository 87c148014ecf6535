package earnings

import (
	"errors"
	"strings"
	"time"
)

// NT$ thresholds for cashing out.
const (
	MinWithdrawal = 500
	WithdrawalFee = 15
)

// WithdrawalStatus is the processing state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalCompleted WithdrawalStatus = "completed"
	WithdrawalRejected  WithdrawalStatus = "rejected"
)

// Withdrawal is the domain entity corresponding to the `withdrawals` table.
type Withdrawal struct {
	ID            string           `json:"id"`
	DriverID      string           `json:"driver_id"`
	Amount        int              `json:"amount"`
	Fee           int              `json:"fee"`
	NetAmount     int              `json:"net_amount"`
	BankAccount   string           `json:"bank_account"`
	AccountHolder string           `json:"account_holder"`
	Status        WithdrawalStatus `json:"status"`
	RequestedAt   time.Time        `json:"requested_at"`
}

var (
	ErrDriverIDRequired      = errors.New("driver id is required")
	ErrBelowMinimum          = errors.New("withdrawal amount is below the NT$500 minimum")
	ErrBankAccountRequired   = errors.New("bank account is required")
	ErrAccountHolderRequired = errors.New("account holder name is required")
	ErrInsufficientBalance   = errors.New("withdrawal amount exceeds the available balance")
)

// NewWithdrawal validates a request and applies the flat fee.
func NewWithdrawal(driverID string, amount int, bankAccount, holder string) (*Withdrawal, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}
	if driverID = strings.TrimSpace(driverID); driverID == "" {
		return nil, ErrDriverIDRequired
	}
	if bankAccount = strings.TrimSpace(bankAccount); bankAccount == "" {
		return nil, ErrBankAccountRequired
	}
	if holder = strings.TrimSpace(holder); holder == "" {
		return nil, ErrAccountHolderRequired
	}

	return &Withdrawal{
		DriverID:      driverID,
		Amount:        amount,
		Fee:           WithdrawalFee,
		NetAmount:     amount - WithdrawalFee,
		BankAccount:   bankAccount,
		AccountHolder: holder,
		Status:        WithdrawalPending,
		RequestedAt:   time.Now().UTC(),
	}, nil
}

// ValidateAmount enforces the minimum withdrawal.
func ValidateAmount(amount int) error {
	if amount < MinWithdrawal {
		return ErrBelowMinimum
	}
	return nil
}
