package ports

import (
	"context"
	"time"

	"ride-coordinator/internal/domain/chat"
	"ride-coordinator/internal/domain/driver"
	"ride-coordinator/internal/domain/earnings"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/domain/user"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AccountRepository looks up sign-in records.
type AccountRepository interface {
	GetByPhone(ctx context.Context, role user.Role, phone string) (*user.Account, error)
	GetByUsername(ctx context.Context, username string) (*user.Account, error)
	CreateAccount(ctx context.Context, account *user.Account) error
}

// OrderRepository defines the methods for managing order rows.
type OrderRepository interface {
	CreateOrder(ctx context.Context, o *order.Order) error
	GetByID(ctx context.Context, id string) (*order.Order, error)
	GetForUpdate(ctx context.Context, id string) (*order.Order, error)
	ListPending(ctx context.Context, limit int) ([]*order.Order, error)
	ListByDriver(ctx context.Context, driverID string, filter order.Status, limit int) ([]*order.Order, error)
	ListByPassenger(ctx context.Context, passengerID string, limit int) ([]*order.Order, error)
	GetActiveForDriver(ctx context.Context, driverID string) (*order.Order, error)
	ClaimPending(ctx context.Context, orderID, driverID string, acceptedAt time.Time) (*order.Order, error)
	SaveStatus(ctx context.Context, o *order.Order) error
	CountByStatus(ctx context.Context) (map[order.Status]int, error)
	CountCreatedBetween(ctx context.Context, start, end time.Time) (int, error)
	SumFareCompletedBetween(ctx context.Context, start, end time.Time) (int, error)
}

// DriverRepository defines the methods for managing driver operational data.
type DriverRepository interface {
	UpdateWorkStatus(ctx context.Context, driverID string, status driver.Status) error
	UpdateLocation(ctx context.Context, driverID string, lat, lng float64, at time.Time) error
	CountByStatus(ctx context.Context) (map[driver.Status]int, error)
}

// EarningsRepository aggregates completed orders and stores withdrawals.
type EarningsRepository interface {
	Stats(ctx context.Context, driverID string, from, to time.Time) (total, orders int, hours float64, err error)
	Balance(ctx context.Context, driverID string) (int, error)
	CreateWithdrawal(ctx context.Context, w *earnings.Withdrawal) error
}

// MessagingRepository defines the methods for chat and notification rows.
type MessagingRepository interface {
	ListConversations(ctx context.Context, accountID string) ([]chat.Conversation, error)
	GetConversation(ctx context.Context, id string) (*chat.Conversation, error)
	CreateConversation(ctx context.Context, c *chat.Conversation) error
	ListMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error)
	CreateMessage(ctx context.Context, m *chat.Message) error
	ListNotifications(ctx context.Context, accountID string, limit int) ([]chat.Notification, error)
	CreateNotification(ctx context.Context, n *chat.Notification) error
	MarkNotificationRead(ctx context.Context, accountID, id string) (bool, error)
}
