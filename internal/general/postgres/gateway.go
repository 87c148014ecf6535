package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"ride-coordinator/internal/domain/chat"
	"ride-coordinator/internal/domain/driver"
	"ride-coordinator/internal/domain/earnings"
	"ride-coordinator/internal/domain/geo"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/domain/user"
	"ride-coordinator/internal/general/demo"
	"ride-coordinator/internal/general/logger"
	"ride-coordinator/internal/ports"
)

const (
	listLimit    = 100
	messageLimit = 200
)

// Gateway is the production backend: every call runs its repository work
// inside one unit of work.
type Gateway struct {
	pool      *pgxpool.Pool
	uow       ports.UnitOfWork
	accounts  ports.AccountRepository
	orders    ports.OrderRepository
	drivers   ports.DriverRepository
	earnings  ports.EarningsRepository
	messaging ports.MessagingRepository
	log       *logger.Logger
	now       func() time.Time
}

var _ ports.Store = (*Gateway)(nil)

// NewGateway wires the repositories over pool.
func NewGateway(pool *pgxpool.Pool, log *logger.Logger) *Gateway {
	return &Gateway{
		pool:      pool,
		uow:       NewUnitOfWork(pool),
		accounts:  NewAccountRepo(),
		orders:    NewOrderRepo(),
		drivers:   NewDriverRepo(),
		earnings:  NewEarningsRepo(),
		messaging: NewMessagingRepo(),
		log:       log,
		now:       time.Now,
	}
}

// Close releases the pool.
func (g *Gateway) Close() error {
	g.pool.Close()
	return nil
}

// ----- auth -----

func (g *Gateway) LoginDriver(ctx context.Context, phone, password string) (*user.Account, error) {
	return g.login(ctx, password, func(ctx context.Context) (*user.Account, error) {
		return g.accounts.GetByPhone(ctx, user.RoleDriver, phone)
	})
}

func (g *Gateway) LoginPassenger(ctx context.Context, phone, password string) (*user.Account, error) {
	return g.login(ctx, password, func(ctx context.Context) (*user.Account, error) {
		return g.accounts.GetByPhone(ctx, user.RolePassenger, phone)
	})
}

func (g *Gateway) LoginAdmin(ctx context.Context, username, password string) (*user.Account, error) {
	return g.login(ctx, password, func(ctx context.Context) (*user.Account, error) {
		return g.accounts.GetByUsername(ctx, username)
	})
}

func (g *Gateway) login(ctx context.Context, password string, lookup func(context.Context) (*user.Account, error)) (*user.Account, error) {
	var account *user.Account
	err := g.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		account, err = lookup(ctx)
		return err
	})
	if errors.Is(err, ports.ErrNotFound) {
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

// ----- orders -----

func (g *Gateway) GetAvailableOrders(ctx context.Context, _ string) ([]*order.Order, error) {
	var out []*order.Order
	err := g.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.orders.ListPending(ctx, listLimit)
		return err
	})
	return out, err
}

// AcceptOrder claims the order and marks the driver busy in one transaction.
func (g *Gateway) AcceptOrder(ctx context.Context, orderID, driverID string) (*order.Order, error) {
	var out *order.Order
	err := g.uow.WithinTx(ctx, func(ctx context.Context) error {
		o, err := g.orders.ClaimPending(ctx, orderID, driverID, g.now().UTC())
		if err != nil {
			return err
		}
		if err := g.drivers.UpdateWorkStatus(ctx, driverID, driver.StatusBusy); err != nil {
			return fmt.Errorf("mark driver busy: %w", err)
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	g.log.Info(ctx, "order_accepted", "Order claimed by driver", map[string]any{"order_id": orderID, "driver_id": driverID})
	return out, nil
}

// UpdateOrderStatus locks the order row and applies one forward step.
func (g *Gateway) UpdateOrderStatus(ctx context.Context, orderID string, status order.Status, driverID string) (*order.Order, error) {
	var out *order.Order
	err := g.uow.WithinTx(ctx, func(ctx context.Context) error {
		o, err := g.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := o.AdvanceTo(status, driverID); err != nil {
			return err
		}
		o.StampAt(g.now())
		if err := g.orders.SaveStatus(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gateway) CreateRide(ctx context.Context, ride *order.Order) (*order.Order, error) {
	if ride == nil {
		return nil, errors.New("ride is nil")
	}
	o := ride.Clone()
	o.ID = ""
	o.DriverID = nil
	o.Status = order.StatusPending

	err := g.uow.WithinTx(ctx, func(ctx context.Context) error {
		return g.orders.CreateOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (g *Gateway) GetDriverOrders(ctx context.Context, driverID string, filter order.Status) ([]*order.Order, error) {
	var out []*order.Order
	err := g.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.orders.ListByDriver(ctx, driverID, filter, listLimit)
		return err
	})
	return out, err
}

func (g *Gateway) GetPassengerOrders(ctx context.Context, passengerID string) ([]*order.Order, error) {
	var out []*order.Order
	err := g.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.orders.ListByPassenger(ctx, passengerID, listLimit)
		return err
	})
	return out, err
}

func (g *Gateway) GetActiveOrder(ctx context.Context, driverID string) (*order.Order, error) {
	var out *order.Order
	err := g.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.orders.GetActiveForDriver(ctx, driverID)
		return err
	})
	return out, err
}

func (g *Gateway) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	var out *order.Order
	err := g.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.orders.GetByID(ctx, orderID)
		return err
	})
	return out, err
}

// CancelRide cancels the passenger's order and frees the assigned driver.
func (g *Gateway) CancelRide(ctx context.Context, orderID, passengerID, reason string) (*order.Order, error) {
	var out *order.Order
	err := g.uow.WithinTx(ctx, func(ctx context.Context) error {
		o, err := g.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.PassengerID != passengerID {
			return ports.ErrNotFound
		}
		if err := o.Cancel(reason); err != nil {
			return err
		}
		o.StampAt(g.now())
		if err := g.orders.SaveStatus(ctx, o); err != nil {
			return err
		}
		if o.DriverID != nil {
			err := g.drivers.UpdateWorkStatus(ctx, *o.DriverID, driver.StatusOnline)
			if err != nil && !errors.Is(err, ports.ErrNotFound) {
				return fmt.Errorf("release driver: %w", err)
			}
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ----- earnings -----

func (g *Gateway) GetEarningsStats(ctx context.Context, driverID string, period earnings.Period) (earnings.Snapshot, error) {
	if !period.Valid() {
		return earnings.Snapshot{}, earnings.ErrInvalidPeriod
	}
	from, to := period.Range(g.now())

	var (
		total, orders int
		hours         float64
	)
	err := g.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		total, orders, hours, err = g.earnings.Stats(ctx, driverID, from, to)
		return err
	})
	if err != nil {
		return earnings.Snapshot{}, err
	}
	return earnings.NewSnapshot(period, total, orders, hours), nil
}

// RequestWithdrawal records the payout if the driver's balance covers it.
func (g *Gateway) RequestWithdrawal(ctx context.Context, w *earnings.Withdrawal) (*earnings.Withdrawal, error) {
	if err := earnings.ValidateAmount(w.Amount); err != nil {
		return nil, err
	}
	out := *w
	out.ID = ""

	err := g.uow.WithinTx(ctx, func(ctx context.Context) error {
		balance, err := g.earnings.Balance(ctx, out.DriverID)
		if err != nil {
			return err
		}
		if out.Amount > balance {
			return earnings.ErrInsufficientBalance
		}
		return g.earnings.CreateWithdrawal(ctx, &out)
	})
	if err != nil {
		return nil, err
	}
	g.log.Info(ctx, "withdrawal_requested", "Withdrawal recorded", map[string]any{
		"driver_id": out.DriverID, "amount": out.Amount, "withdrawal_id": out.ID,
	})
	return &out, nil
}

// ----- driver -----

func (g *Gateway) UpdateWorkStatus(ctx context.Context, driverID string, status driver.Status) error {
	if !status.Valid() {
		return driver.ErrInvalidStatus
	}
	return g.uow.WithinTx(ctx, func(ctx context.Context) error {
		return g.drivers.UpdateWorkStatus(ctx, driverID, status)
	})
}

func (g *Gateway) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	if _, err := geo.NewPoint(lat, lng); err != nil {
		return err
	}
	return g.uow.WithinTx(ctx, func(ctx context.Context) error {
		return g.drivers.UpdateLocation(ctx, driverID, lat, lng, g.now().UTC())
	})
}

// ----- messaging -----

func (g *Gateway) ListConversations(ctx context.Context, accountID string) ([]chat.Conversation, error) {
	var out []chat.Conversation
	err := g.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.messaging.ListConversations(ctx, accountID)
		return err
	})
	return out, err
}

func (g *Gateway) GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error) {
	var out *chat.Conversation
	err := g.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.messaging.GetConversation(ctx, conversationID)
		return err
	})
	return out, err
}

func (g *Gateway) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var out []chat.Message
	err := g.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.messaging.ListMessages(ctx, conversationID, messageLimit)
		return err
	})
	return out, err
}

func (g *Gateway) SendMessage(ctx context.Context, message *chat.Message) (*chat.Message, error) {
	out := *message
	out.ID = ""
	err := g.uow.WithinTx(ctx, func(ctx context.Context) error {
		return g.messaging.CreateMessage(ctx, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *Gateway) ListNotifications(ctx context.Context, accountID string) ([]chat.Notification, error) {
	var out []chat.Notification
	err := g.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.messaging.ListNotifications(ctx, accountID, listLimit)
		return err
	})
	return out, err
}

func (g *Gateway) CreateNotification(ctx context.Context, notification *chat.Notification) (*chat.Notification, error) {
	out := *notification
	out.ID = ""
	err := g.uow.WithinTx(ctx, func(ctx context.Context) error {
		return g.messaging.CreateNotification(ctx, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *Gateway) MarkNotificationRead(ctx context.Context, accountID, notificationID string) error {
	return g.uow.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := g.messaging.MarkNotificationRead(ctx, accountID, notificationID)
		if err != nil {
			return err
		}
		if !ok {
			return ports.ErrNotFound
		}
		return nil
	})
}

// ----- admin -----

// Overview aggregates counts for the admin board in one transaction.
func (g *Gateway) Overview(ctx context.Context, now time.Time) (ports.Overview, error) {
	out := ports.Overview{
		Timestamp:       now.UTC(),
		OrdersByStatus:  map[string]int{},
		DriversByStatus: map[string]int{},
	}
	from, to := earnings.PeriodToday.Range(now)

	err := g.uow.WithinTx(ctx, func(ctx context.Context) error {
		orders, err := g.orders.CountByStatus(ctx)
		if err != nil {
			return err
		}
		for status, n := range orders {
			out.OrdersByStatus[status.String()] = n
			if status.Active() {
				out.ActiveOrders += n
			}
		}

		drivers, err := g.drivers.CountByStatus(ctx)
		if err != nil {
			return err
		}
		for status, n := range drivers {
			out.DriversByStatus[status.String()] = n
		}

		if out.OrdersToday, err = g.orders.CountCreatedBetween(ctx, from, to); err != nil {
			return err
		}
		out.RevenueToday, err = g.orders.SumFareCompletedBetween(ctx, from, to)
		return err
	})
	if err != nil {
		return ports.Overview{}, err
	}
	return out, nil
}

// ----- seeding -----

// Seed loads the demo fixtures into an empty database. It does nothing
// when the demo driver already exists.
func (g *Gateway) Seed(ctx context.Context) error {
	f, err := demo.Build(g.now())
	if err != nil {
		return fmt.Errorf("build fixtures: %w", err)
	}

	return g.uow.WithinTx(ctx, func(ctx context.Context) error {
		_, err := g.accounts.GetByPhone(ctx, user.RoleDriver, f.Accounts[0].Phone)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ports.ErrNotFound) {
			return err
		}

		for _, a := range f.Accounts {
			if err := g.accounts.CreateAccount(ctx, a); err != nil {
				return fmt.Errorf("seed account %s: %w", a.ID, err)
			}
		}
		for _, o := range f.Orders {
			if err := g.orders.CreateOrder(ctx, o); err != nil {
				return fmt.Errorf("seed order %s: %w", o.ID, err)
			}
		}
		for _, c := range f.Conversations {
			if err := g.messaging.CreateConversation(ctx, c); err != nil {
				return fmt.Errorf("seed conversation %s: %w", c.ID, err)
			}
		}
		for _, m := range f.Messages {
			if err := g.messaging.CreateMessage(ctx, m); err != nil {
				return fmt.Errorf("seed message: %w", err)
			}
		}
		for _, n := range f.Notifications {
			if err := g.messaging.CreateNotification(ctx, n); err != nil {
				return fmt.Errorf("seed notification: %w", err)
			}
		}
		g.log.Info(ctx, "demo_seeded", "Loaded demo fixtures", map[string]any{
			"accounts": len(f.Accounts), "orders": len(f.Orders),
		})
		return nil
	})
}
