package coordinator

import (
	"time"

	"ride-coordinator/internal/domain/chat"
	"ride-coordinator/internal/domain/earnings"
	"ride-coordinator/internal/domain/geo"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/domain/user"
)

type demoCredential struct {
	identifier string
	password   string
	account    user.Account
}

// Fixed sign-ins accepted only when the backend cannot be reached.
var demoCredentials = []demoCredential{
	{
		identifier: "0912345678",
		password:   "123456",
		account: user.Account{
			ID: "demo-driver-001", Role: user.RoleDriver, Status: user.StatusActive,
			Name: "王大明", Phone: "0912345678", VehiclePlate: "ABC-1234", Demo: true,
		},
	},
	{
		identifier: "0987654321",
		password:   "123456",
		account: user.Account{
			ID: "demo-passenger-001", Role: user.RolePassenger, Status: user.StatusActive,
			Name: "李小華", Phone: "0987654321", Demo: true,
		},
	},
	{
		identifier: "admin",
		password:   "admin123",
		account: user.Account{
			ID: "demo-admin-001", Role: user.RoleAdmin, Status: user.StatusActive,
			Name: "系統管理員", Username: "admin", Demo: true,
		},
	},
}

// matchDemo looks up a demo account among the allowed roles.
func matchDemo(roles []user.Role, identifier, password string) (*user.Account, bool) {
	for _, role := range roles {
		for _, cred := range demoCredentials {
			if cred.account.Role == role && cred.identifier == identifier && cred.password == password {
				account := cred.account
				account.CreatedAt = time.Now().UTC()
				return &account, true
			}
		}
	}
	return nil, false
}

// demoAccount reports whether s is signed in with a demo credential. The
// backend has no record of such an account, so its driver flow stays local.
func demoAccount(s State) bool {
	return s.Account != nil && s.Account.Demo
}

// demoAccept claims a cached available order without a backend round trip.
func demoAccept(s State, orderID, driverID string, now time.Time) (*order.Order, error) {
	o := s.FindAvailable(orderID).Clone()
	if err := o.Accept(driverID); err != nil {
		return nil, err
	}
	o.StampAt(now)
	return o, nil
}

// demoAdvance moves the cached current order one step.
func demoAdvance(cur *order.Order, next order.Status, driverID string, now time.Time) (*order.Order, error) {
	o := cur.Clone()
	if err := o.AdvanceTo(next, driverID); err != nil {
		return nil, err
	}
	o.StampAt(now)
	return o, nil
}

func mockPlace(address string, lat, lng float64) geo.Place {
	return geo.Place{Address: address, Point: geo.Point{Latitude: lat, Longitude: lng}}
}

// mockAvailableOrders is the canned order board shown in demo sessions.
func mockAvailableOrders(now time.Time) []*order.Order {
	return []*order.Order{
		{
			ID:              "RD001",
			PassengerID:     "demo-passenger-001",
			Pickup:          mockPlace("台北車站", 25.0478, 121.5170),
			Dropoff:         mockPlace("松山機場", 25.0697, 121.5522),
			DistanceKM:      12.7,
			DurationMinutes: 30,
			Fare:            order.Fare{Base: 70, Distance: 190, Time: 90, Total: 350},
			Status:          order.StatusPending,
			RequestedAt:     now.Add(-3 * time.Minute),
			UpdatedAt:       now.Add(-3 * time.Minute),
		},
		{
			ID:              "RD002",
			PassengerID:     "demo-passenger-002",
			Pickup:          mockPlace("台北101", 25.0340, 121.5645),
			Dropoff:         mockPlace("西門町", 25.0421, 121.5081),
			DistanceKM:      6.1,
			DurationMinutes: 16,
			Fare:            order.Fare{Base: 70, Distance: 92, Time: 48, Total: 210},
			Status:          order.StatusPending,
			RequestedAt:     now.Add(-1 * time.Minute),
			UpdatedAt:       now.Add(-1 * time.Minute),
		},
	}
}

// mockOrderHistory is a short completed history.
func mockOrderHistory(accountID string, now time.Time) []*order.Order {
	completedAt := now.Add(-2 * time.Hour)
	driverID := accountID
	return []*order.Order{
		{
			ID:              "RD000",
			PassengerID:     "demo-passenger-001",
			DriverID:        &driverID,
			Pickup:          mockPlace("信義區市政府", 25.0375, 121.5637),
			Dropoff:         mockPlace("南港展覽館", 25.0553, 121.6170),
			DistanceKM:      8.4,
			DurationMinutes: 21,
			Fare:            order.Fare{Base: 70, Distance: 126, Time: 63, Total: 259},
			Status:          order.StatusCompleted,
			RequestedAt:     completedAt.Add(-30 * time.Minute),
			CompletedAt:     &completedAt,
			UpdatedAt:       completedAt,
		},
	}
}

// mockEarnings returns canned figures per period.
func mockEarnings(period earnings.Period) earnings.Snapshot {
	switch period {
	case earnings.PeriodWeek:
		return earnings.NewSnapshot(period, 8750, 35, 28.5)
	case earnings.PeriodMonth:
		return earnings.NewSnapshot(period, 35200, 142, 120)
	default:
		return earnings.NewSnapshot(earnings.PeriodToday, 1250, 5, 6.5)
	}
}

func mockConversations(account *user.Account, now time.Time) []chat.Conversation {
	conv := chat.Conversation{
		ID:          "CV001",
		OrderID:     "RD000",
		DriverID:    "demo-driver-001",
		PassengerID: "demo-passenger-001",
		LastMessage: "謝謝您，下次見！",
		Unread:      1,
		UpdatedAt:   now.Add(-2 * time.Hour),
	}
	if account.Role.IsDriver() {
		conv.DriverID = account.ID
	} else {
		conv.PassengerID = account.ID
	}
	return []chat.Conversation{conv}
}

func mockNotifications(accountID string, now time.Time) []chat.Notification {
	return []chat.Notification{
		{
			ID:        "NT001",
			AccountID: accountID,
			Title:     "歡迎使用",
			Body:      "目前為示範模式，資料僅供展示。",
			CreatedAt: now,
		},
	}
}
