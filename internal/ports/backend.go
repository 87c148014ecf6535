package ports

import (
	"context"
	"errors"
	"time"

	"ride-coordinator/internal/domain/chat"
	"ride-coordinator/internal/domain/driver"
	"ride-coordinator/internal/domain/earnings"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/domain/user"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOrderTaken         = errors.New("order already taken")
)

// AuthBackend matches sign-in credentials against one account class each.
type AuthBackend interface {
	LoginDriver(ctx context.Context, phone, password string) (*user.Account, error)
	LoginPassenger(ctx context.Context, phone, password string) (*user.Account, error)
	LoginAdmin(ctx context.Context, username, password string) (*user.Account, error)
}

// OrderBackend is the authoritative order store. AcceptOrder must be atomic:
// at most one driver wins a pending order, the rest get ErrOrderTaken.
type OrderBackend interface {
	GetAvailableOrders(ctx context.Context, driverID string) ([]*order.Order, error)
	AcceptOrder(ctx context.Context, orderID, driverID string) (*order.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status order.Status, driverID string) (*order.Order, error)
	CreateRide(ctx context.Context, ride *order.Order) (*order.Order, error)
	GetDriverOrders(ctx context.Context, driverID string, filter order.Status) ([]*order.Order, error)
	GetPassengerOrders(ctx context.Context, passengerID string) ([]*order.Order, error)
	GetActiveOrder(ctx context.Context, driverID string) (*order.Order, error)
	GetOrder(ctx context.Context, orderID string) (*order.Order, error)
	CancelRide(ctx context.Context, orderID, passengerID, reason string) (*order.Order, error)
}

// EarningsBackend serves earnings aggregates and payouts.
type EarningsBackend interface {
	GetEarningsStats(ctx context.Context, driverID string, period earnings.Period) (earnings.Snapshot, error)
	RequestWithdrawal(ctx context.Context, withdrawal *earnings.Withdrawal) (*earnings.Withdrawal, error)
}

// DriverBackend persists driver work status and last-known location.
type DriverBackend interface {
	UpdateWorkStatus(ctx context.Context, driverID string, status driver.Status) error
	UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error
}

// MessagingBackend stores conversations, messages and notifications.
type MessagingBackend interface {
	ListConversations(ctx context.Context, accountID string) ([]chat.Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error)
	SendMessage(ctx context.Context, message *chat.Message) (*chat.Message, error)
	ListNotifications(ctx context.Context, accountID string) ([]chat.Notification, error)
	CreateNotification(ctx context.Context, notification *chat.Notification) (*chat.Notification, error)
	MarkNotificationRead(ctx context.Context, accountID, notificationID string) error
}

// AdminBackend aggregates counts for the admin board.
type AdminBackend interface {
	Overview(ctx context.Context, now time.Time) (Overview, error)
}

// Backend is everything a coordinator talks to.
type Backend interface {
	AuthBackend
	OrderBackend
	EarningsBackend
	DriverBackend
	MessagingBackend
}

// Store is a full backend implementation including admin reads.
type Store interface {
	Backend
	AdminBackend
	Close() error
}

// EventPublisher announces state changes to other services. Implementations
// must not block the caller for long; failures are logged, never fatal.
type EventPublisher interface {
	PublishDriverStatus(ctx context.Context, driverID string, status driver.Status) error
	PublishOrderStatus(ctx context.Context, o *order.Order) error
}
