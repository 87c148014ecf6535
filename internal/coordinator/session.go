package coordinator

import (
	"context"
	"errors"
	"strings"

	"ride-coordinator/internal/domain/chat"
	"ride-coordinator/internal/domain/earnings"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/domain/user"
	"ride-coordinator/internal/ports"
)

// Credentials identify an account. An empty Role tries driver, passenger
// and admin in that order.
type Credentials struct {
	Identifier string    `json:"identifier"`
	Password   string    `json:"password"`
	Role       user.Role `json:"role,omitempty"`
}

var loginOrder = []user.Role{user.RoleDriver, user.RolePassenger, user.RoleAdmin}

// Login replaces the whole session with the matched account and eagerly
// loads the order, earnings and messaging caches.
func (c *Coordinator) Login(ctx context.Context, creds Credentials) (State, error) {
	const op = "login"
	c.opMu.Lock()
	defer c.opMu.Unlock()

	identifier := strings.TrimSpace(creds.Identifier)
	if identifier == "" || creds.Password == "" {
		return State{}, opErr(ErrAuth, op, "identifier and password are required", nil)
	}
	roles := loginOrder
	if creds.Role != "" {
		if !creds.Role.Valid() {
			return State{}, opErr(ErrAuth, op, "unknown role", user.ErrInvalidRole)
		}
		roles = []user.Role{creds.Role}
	}

	account, demo, err := c.authenticate(ctx, roles, identifier, creds.Password)
	if err != nil {
		c.log.Error(ctx, "login_failed", "Sign-in rejected", err, map[string]any{"identifier": identifier})
		return State{}, err
	}

	c.stopGraceLocked()

	var current *order.Order
	if account.Role.IsDriver() && !demo {
		current, err = c.backend.GetActiveOrder(ctx, account.ID)
		if err != nil && !errors.Is(err, ports.ErrNotFound) {
			c.log.Error(ctx, "active_order_restore_failed", "Failed to restore active order", err,
				map[string]any{"driver_id": account.ID})
		}
		if err != nil {
			current = nil
		}
	}

	c.dispatch(LoggedIn{Account: *account, Demo: demo, CurrentOrder: current})
	c.loadSnapshot(ctx, account, demo)

	c.log.Info(ctx, "login_succeeded", "Session started", map[string]any{
		"account_id": account.ID,
		"role":       account.Role,
		"demo":       demo,
	})
	return c.Snapshot(), nil
}

// Logout resets the session to Initial unconditionally.
func (c *Coordinator) Logout(ctx context.Context) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.stopGraceLocked()
	prev := c.Snapshot()
	c.dispatch(LoggedOut{})
	if prev.Account != nil {
		c.log.Info(ctx, "logout", "Session ended", map[string]any{"account_id": prev.Account.ID})
	}
}

func (c *Coordinator) authenticate(ctx context.Context, roles []user.Role, identifier, password string) (*user.Account, bool, error) {
	const op = "login"
	var unreachable error

	for _, role := range roles {
		account, err := c.loginAs(ctx, role, identifier, password)
		if err == nil {
			return account, false, nil
		}
		if errors.Is(err, user.ErrAccountDisabled) {
			return nil, false, opErr(ErrAuth, op, "account is disabled", err)
		}
		if errors.Is(err, ports.ErrInvalidCredentials) || errors.Is(err, ports.ErrNotFound) {
			continue
		}
		unreachable = err
		break
	}

	if unreachable != nil {
		if c.demoFallback {
			if account, ok := matchDemo(roles, identifier, password); ok {
				c.log.Info(ctx, "login_demo_fallback", "Backend unreachable, signed in with demo account",
					map[string]any{"account_id": account.ID, "cause": unreachable.Error()})
				return account, true, nil
			}
		}
		return nil, false, opErr(ErrAuth, op, "backend unreachable", unreachable)
	}
	return nil, false, opErr(ErrAuth, op, "invalid credentials", ports.ErrInvalidCredentials)
}

func (c *Coordinator) loginAs(ctx context.Context, role user.Role, identifier, password string) (*user.Account, error) {
	switch role {
	case user.RoleDriver:
		return c.backend.LoginDriver(ctx, identifier, password)
	case user.RolePassenger:
		return c.backend.LoginPassenger(ctx, identifier, password)
	default:
		return c.backend.LoginAdmin(ctx, identifier, password)
	}
}

// loadSnapshot fills the caches for a fresh session. Failures fall back to
// mock data when allowed and are otherwise logged and skipped.
func (c *Coordinator) loadSnapshot(ctx context.Context, account *user.Account, demo bool) {
	now := c.now().UTC()
	var (
		snap     SnapshotLoaded
		usedMock bool
	)
	track := func(mock bool) { usedMock = usedMock || mock }

	switch account.Role {
	case user.RoleDriver:
		var mock bool
		snap.Available, mock = fetchOr(ctx, c, demo, "available_orders", func(ctx context.Context) ([]*order.Order, error) {
			return c.backend.GetAvailableOrders(ctx, account.ID)
		}, func() []*order.Order { return mockAvailableOrders(now) })
		track(mock)

		snap.Orders, mock = fetchOr(ctx, c, demo, "driver_orders", func(ctx context.Context) ([]*order.Order, error) {
			return c.backend.GetDriverOrders(ctx, account.ID, "")
		}, func() []*order.Order { return mockOrderHistory(account.ID, now) })
		track(mock)

		var today earnings.Snapshot
		today, mock = fetchOr(ctx, c, demo, "earnings", func(ctx context.Context) (earnings.Snapshot, error) {
			return c.backend.GetEarningsStats(ctx, account.ID, earnings.PeriodToday)
		}, func() earnings.Snapshot { return mockEarnings(earnings.PeriodToday) })
		track(mock)
		if today.Period != "" {
			snap.Earnings = &today
		}

	case user.RolePassenger:
		var mock bool
		snap.Orders, mock = fetchOr(ctx, c, demo, "passenger_orders", func(ctx context.Context) ([]*order.Order, error) {
			return c.backend.GetPassengerOrders(ctx, account.ID)
		}, func() []*order.Order { return []*order.Order{} })
		track(mock)

	default:
		return
	}

	var mock bool
	snap.Conversations, mock = fetchOr(ctx, c, demo, "conversations", func(ctx context.Context) ([]chat.Conversation, error) {
		return c.backend.ListConversations(ctx, account.ID)
	}, func() []chat.Conversation { return mockConversations(account, now) })
	track(mock)

	snap.Notifications, mock = fetchOr(ctx, c, demo, "notifications", func(ctx context.Context) ([]chat.Notification, error) {
		return c.backend.ListNotifications(ctx, account.ID)
	}, func() []chat.Notification { return mockNotifications(account.ID, now) })
	track(mock)

	snap.Demo = usedMock
	c.dispatch(snap)
}

// fetchOr runs fetch, or returns mock data for demo sessions and, when the
// fallback is enabled, after a failed fetch. The bool reports mock use.
func fetchOr[T any](ctx context.Context, c *Coordinator, demo bool, what string, fetch func(context.Context) (T, error), mock func() T) (T, bool) {
	if demo {
		return mock(), true
	}
	v, err := fetch(ctx)
	if err == nil {
		return v, false
	}
	c.log.Error(ctx, "snapshot_load_failed", "Failed to load "+what, err, map[string]any{"demo_fallback": c.demoFallback})
	if c.demoFallback {
		return mock(), true
	}
	var zero T
	return zero, false
}
