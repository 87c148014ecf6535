// Package demo holds the fixture data loaded into an empty backend so a
// fresh install has accounts to sign in with and orders to accept.
package demo

import (
	"fmt"
	"time"

	"ride-coordinator/internal/domain/chat"
	"ride-coordinator/internal/domain/geo"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/domain/user"
)

// Fixtures is one consistent set of seed rows.
type Fixtures struct {
	Accounts      []*user.Account
	Orders        []*order.Order
	Conversations []*chat.Conversation
	Messages      []*chat.Message
	Notifications []*chat.Notification
}

type account struct {
	id, name, identifier, password, plate string
	role                                  user.Role
}

var accounts = []account{
	{id: "drv-001", role: user.RoleDriver, name: "王大明", identifier: "0912345678", password: "123456", plate: "ABC-1234"},
	{id: "psg-001", role: user.RolePassenger, name: "李小華", identifier: "0987654321", password: "123456"},
	{id: "psg-002", role: user.RolePassenger, name: "陳美玲", identifier: "0955000111", password: "123456"},
	{id: "adm-001", role: user.RoleAdmin, name: "系統管理員", identifier: "admin", password: "admin123"},
}

// Build returns the fixtures with timestamps relative to now: the RD001 and
// RD002 board, one trip RD000 completed two hours earlier with its chat,
// and a trip-completed notification.
func Build(now time.Time) (*Fixtures, error) {
	now = now.UTC()
	f := &Fixtures{}

	for _, a := range accounts {
		acc, err := user.NewAccount(a.role, a.name, a.identifier, a.password)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", a.id, err)
		}
		acc.ID = a.id
		acc.VehiclePlate = a.plate
		acc.CreatedAt = now
		f.Accounts = append(f.Accounts, acc)
	}

	board := []struct {
		id, passenger   string
		pickup, dropoff geo.Place
		distance        float64
		minutes, perKM  int
		age             time.Duration
	}{
		{"RD001", "psg-001", place("台北車站", 25.0478, 121.5170), place("松山機場", 25.0697, 121.5522), 12.7, 30, 190, 3 * time.Minute},
		{"RD002", "psg-002", place("台北101", 25.0340, 121.5645), place("西門町", 25.0421, 121.5081), 6.1, 16, 92, time.Minute},
	}
	for _, b := range board {
		at := now.Add(-b.age)
		f.Orders = append(f.Orders, &order.Order{
			ID:              b.id,
			PassengerID:     b.passenger,
			Pickup:          b.pickup,
			Dropoff:         b.dropoff,
			DistanceKM:      b.distance,
			DurationMinutes: b.minutes,
			Fare: order.Fare{
				Base:     order.BaseFare,
				Distance: b.perKM,
				Time:     b.minutes * order.RatePerMinute,
				Total:    order.BaseFare + b.perKM + b.minutes*order.RatePerMinute,
			},
			Status:      order.StatusPending,
			RequestedAt: at,
			UpdatedAt:   at,
		})
	}

	completedAt := now.Add(-2 * time.Hour)
	acceptedAt := completedAt.Add(-25 * time.Minute)
	driverID := "drv-001"
	f.Orders = append(f.Orders, &order.Order{
		ID:              "RD000",
		PassengerID:     "psg-001",
		DriverID:        &driverID,
		Pickup:          place("信義區市政府", 25.0375, 121.5637),
		Dropoff:         place("南港展覽館", 25.0553, 121.6170),
		DistanceKM:      8.4,
		DurationMinutes: 21,
		Fare:            order.Fare{Base: 70, Distance: 126, Time: 63, Total: 259},
		Status:          order.StatusCompleted,
		RequestedAt:     acceptedAt.Add(-2 * time.Minute),
		AcceptedAt:      &acceptedAt,
		CompletedAt:     &completedAt,
		UpdatedAt:       completedAt,
	})

	f.Conversations = append(f.Conversations, &chat.Conversation{
		ID: "CV001", OrderID: "RD000", DriverID: "drv-001", PassengerID: "psg-001", UpdatedAt: acceptedAt,
	})
	for i, m := range []struct{ sender, body string }{
		{"psg-001", "司機您好，我在大門口等。"},
		{"drv-001", "好的，大約兩分鐘到。"},
	} {
		msg, err := chat.NewMessage("CV001", m.sender, m.body)
		if err != nil {
			return nil, err
		}
		msg.SentAt = acceptedAt.Add(time.Duration(i+1) * time.Minute)
		f.Messages = append(f.Messages, msg)
	}

	note, err := chat.NewNotification("psg-001", "行程已完成", "您的行程 RD000 已完成，車資 NT$259。", "RD000")
	if err != nil {
		return nil, err
	}
	note.CreatedAt = completedAt
	f.Notifications = append(f.Notifications, note)

	return f, nil
}

func place(address string, lat, lng float64) geo.Place {
	return geo.Place{Address: address, Point: geo.Point{Latitude: lat, Longitude: lng}}
}
