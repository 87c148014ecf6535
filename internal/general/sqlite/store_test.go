package sqlite

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-coordinator/internal/domain/chat"
	"ride-coordinator/internal/domain/driver"
	"ride-coordinator/internal/domain/earnings"
	"ride-coordinator/internal/domain/geo"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/domain/user"
	"ride-coordinator/internal/ports"
)

// noon keeps the seeded trip (two hours earlier) inside "today".
var noon = time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)

func openSeeded(t *testing.T) *Store {
	t.Helper()
	d, err := Open("file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared")
	require.NoError(t, err)
	s := NewStore(d)
	s.now = func() time.Time { return noon }
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Seed(context.Background()))
	return s
}

func TestOpenAppliesMigrationsOnce(t *testing.T) {
	s := openSeeded(t)
	require.NoError(t, applyMigrations(s.db))

	var versions int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&versions))
	assert.Equal(t, 1, versions)

	// seeding twice is a no-op
	require.NoError(t, s.Seed(context.Background()))
	var accounts int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM accounts`).Scan(&accounts))
	assert.Equal(t, 4, accounts)
}

func TestLogin(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	a, err := s.LoginDriver(ctx, "0912345678", "123456")
	require.NoError(t, err)
	assert.Equal(t, "drv-001", a.ID)
	assert.Equal(t, "ABC-1234", a.VehiclePlate)
	assert.Equal(t, user.RoleDriver, a.Role)

	_, err = s.LoginPassenger(ctx, "0912345678", "123456")
	assert.ErrorIs(t, err, ports.ErrInvalidCredentials)

	_, err = s.LoginDriver(ctx, "0912345678", "wrong")
	assert.ErrorIs(t, err, ports.ErrInvalidCredentials)

	admin, err := s.LoginAdmin(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Username)

	_, err = s.db.Exec(`UPDATE accounts SET status = 'banned' WHERE id = 'psg-001'`)
	require.NoError(t, err)
	_, err = s.LoginPassenger(ctx, "0987654321", "123456")
	assert.ErrorIs(t, err, user.ErrAccountDisabled)
}

func TestAcceptOrderFirstDriverWins(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	second, err := user.NewAccount(user.RoleDriver, "林志明", "0933000222", "123456")
	require.NoError(t, err)
	require.NoError(t, s.CreateAccount(ctx, second))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		losses int
	)
	for _, id := range []string{"drv-001", second.ID} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := s.AcceptOrder(ctx, "RD001", id)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if assert.ErrorIs(t, err, ports.ErrOrderTaken) {
				losses++
			}
		}(id)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)

	o, err := s.GetOrder(ctx, "RD001")
	require.NoError(t, err)
	assert.Equal(t, order.StatusAccepted, o.Status)
	require.NotNil(t, o.AcceptedAt)

	status, err := s.WorkStatus(ctx, *o.DriverID)
	require.NoError(t, err)
	assert.Equal(t, driver.StatusBusy, status)

	_, err = s.AcceptOrder(ctx, "RD404", "drv-001")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	available, err := s.GetAvailableOrders(ctx, "drv-001")
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "RD002", available[0].ID)
}

func TestUpdateOrderStatusWalksSequence(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	_, err := s.AcceptOrder(ctx, "RD001", "drv-001")
	require.NoError(t, err)

	active, err := s.GetActiveOrder(ctx, "drv-001")
	require.NoError(t, err)
	assert.Equal(t, "RD001", active.ID)

	_, err = s.UpdateOrderStatus(ctx, "RD001", order.StatusPickupArrived, "drv-001")
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	_, err = s.UpdateOrderStatus(ctx, "RD001", order.StatusPickupGoing, "psg-001")
	assert.ErrorIs(t, err, order.ErrNotAssignedDriver)

	status := order.StatusAccepted
	for {
		next, err := status.Next()
		if err != nil {
			break
		}
		o, err := s.UpdateOrderStatus(ctx, "RD001", next, "drv-001")
		require.NoError(t, err)
		assert.Equal(t, next, o.Status)
		status = next
	}

	done, err := s.GetOrder(ctx, "RD001")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)
	assert.Equal(t, 350, done.Fare.Total)

	_, err = s.GetActiveOrder(ctx, "drv-001")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	history, err := s.GetDriverOrders(ctx, "drv-001", order.StatusCompleted)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestCreateAndCancelRide(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	pickup, err := geo.NewPlace("台北車站", 25.0478, 121.5170)
	require.NoError(t, err)
	dropoff, err := geo.NewPlace("台北101", 25.0340, 121.5645)
	require.NoError(t, err)
	draft, err := order.NewOrder("psg-001", pickup, dropoff)
	require.NoError(t, err)

	ride, err := s.CreateRide(ctx, draft)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ride.ID, "RD"))
	assert.Equal(t, draft.Fare, ride.Fare)
	assert.Equal(t, order.StatusPending, ride.Status)

	_, err = s.CancelRide(ctx, ride.ID, "psg-002", "")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	_, err = s.AcceptOrder(ctx, ride.ID, "drv-001")
	require.NoError(t, err)

	cancelled, err := s.CancelRide(ctx, ride.ID, "psg-001", "changed plans")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "changed plans", *cancelled.CancellationReason)

	status, err := s.WorkStatus(ctx, "drv-001")
	require.NoError(t, err)
	assert.Equal(t, driver.StatusOnline, status)

	_, err = s.CancelRide(ctx, ride.ID, "psg-001", "")
	assert.ErrorIs(t, err, order.ErrNotCancellable)

	mine, err := s.GetPassengerOrders(ctx, "psg-001")
	require.NoError(t, err)
	assert.Len(t, mine, 3)
}

func TestEarningsAndWithdrawal(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	today, err := s.GetEarningsStats(ctx, "drv-001", earnings.PeriodToday)
	require.NoError(t, err)
	assert.Equal(t, 259, today.Total)
	assert.Equal(t, 1, today.Orders)
	assert.InDelta(t, 0.35, today.Hours, 0.06)

	w, err := earnings.NewWithdrawal("drv-001", 500, "012-345678", "王大明")
	require.NoError(t, err)
	_, err = s.RequestWithdrawal(ctx, w)
	assert.ErrorIs(t, err, earnings.ErrInsufficientBalance)

	_, err = s.AcceptOrder(ctx, "RD001", "drv-001")
	require.NoError(t, err)
	_, err = s.db.Exec(`UPDATE orders SET status = 'completed', completed_at = ? WHERE id = 'RD001'`, formatTime(noon))
	require.NoError(t, err)

	saved, err := s.RequestWithdrawal(ctx, w)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(saved.ID, "WD"))
	assert.Equal(t, 485, saved.NetAmount)

	_, err = s.GetEarningsStats(ctx, "drv-001", "yearly")
	assert.ErrorIs(t, err, earnings.ErrInvalidPeriod)
}

func TestDriverStatusAndLocation(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	require.NoError(t, s.UpdateWorkStatus(ctx, "drv-001", driver.StatusOnline))
	assert.ErrorIs(t, s.UpdateWorkStatus(ctx, "nobody", driver.StatusOnline), ports.ErrNotFound)
	assert.ErrorIs(t, s.UpdateWorkStatus(ctx, "drv-001", "napping"), driver.ErrInvalidStatus)

	require.NoError(t, s.UpdateLocation(ctx, "drv-001", 25.04, 121.51))
	assert.ErrorIs(t, s.UpdateLocation(ctx, "drv-001", 91, 121.51), geo.ErrInvalidLatitude)
}

func TestMessaging(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	convs, err := s.ListConversations(ctx, "psg-001")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 1, convs[0].Unread)
	assert.Equal(t, "好的，大約兩分鐘到。", convs[0].LastMessage)

	msg, err := chat.NewMessage("CV001", "psg-001", "謝謝！")
	require.NoError(t, err)
	_, err = s.SendMessage(ctx, msg)
	require.NoError(t, err)

	messages, err := s.ListMessages(ctx, "CV001")
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "謝謝！", messages[2].Body)

	conv, err := s.GetConversation(ctx, "CV001")
	require.NoError(t, err)
	assert.True(t, conv.HasParticipant("drv-001"))

	_, err = s.GetConversation(ctx, "CV404")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	msg.ConversationID = "CV404"
	_, err = s.SendMessage(ctx, msg)
	assert.ErrorIs(t, err, ports.ErrNotFound)

	notes, err := s.ListNotifications(ctx, "psg-001")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.False(t, notes[0].Read)

	assert.ErrorIs(t, s.MarkNotificationRead(ctx, "psg-002", notes[0].ID), ports.ErrNotFound)
	require.NoError(t, s.MarkNotificationRead(ctx, "psg-001", notes[0].ID))
	notes, err = s.ListNotifications(ctx, "psg-001")
	require.NoError(t, err)
	assert.True(t, notes[0].Read)
}

func TestOverview(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	_, err := s.AcceptOrder(ctx, "RD002", "drv-001")
	require.NoError(t, err)

	ov, err := s.Overview(ctx, noon)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"pending": 1, "accepted": 1, "completed": 1}, ov.OrdersByStatus)
	assert.Equal(t, map[string]int{"busy": 1}, ov.DriversByStatus)
	assert.Equal(t, 1, ov.ActiveOrders)
	assert.Equal(t, 3, ov.OrdersToday)
	assert.Equal(t, 259, ov.RevenueToday)
}

func TestRollbackLast(t *testing.T) {
	s := openSeeded(t)
	require.NoError(t, RollbackLast(s.db))

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'orders'`).Scan(&n))
	assert.Zero(t, n)
}
