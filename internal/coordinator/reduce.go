package coordinator

import (
	"ride-coordinator/internal/domain/chat"
	"ride-coordinator/internal/domain/driver"
	"ride-coordinator/internal/domain/earnings"
	"ride-coordinator/internal/domain/geo"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/domain/user"
)

// Action is a state change produced by the effect shell after the backend
// has answered.
type Action interface {
	action()
}

type (
	// LoggedIn replaces the whole state with a fresh session for Account.
	// An active CurrentOrder restores a busy driver.
	LoggedIn struct {
		Account      user.Account
		Demo         bool
		CurrentOrder *order.Order
	}
	LoggedOut struct{}

	// SnapshotLoaded fills the caches loaded right after sign-in. Nil
	// fields are left alone.
	SnapshotLoaded struct {
		Available     []*order.Order
		Orders        []*order.Order
		Earnings      *earnings.Snapshot
		Conversations []chat.Conversation
		Notifications []chat.Notification
		Demo          bool
	}

	DriverStatusSet struct {
		Status driver.Status
	}
	LocationReported struct {
		Point geo.Point
	}
	AvailableLoaded struct {
		Orders []*order.Order
	}
	OrderAccepted struct {
		Order *order.Order
	}
	OrderAdvanced struct {
		Order *order.Order
	}
	// OrderReleased clears the current order and puts the driver back online.
	OrderReleased struct {
		OrderID string
	}
	EarningsLoaded struct {
		Snapshot earnings.Snapshot
	}
	OrdersLoaded struct {
		Orders []*order.Order
	}
	OrderUpserted struct {
		Order *order.Order
	}
	ConversationsLoaded struct {
		Conversations []chat.Conversation
	}
	NotificationsLoaded struct {
		Notifications []chat.Notification
	}
	NotificationRead struct {
		ID string
	}
)

func (LoggedIn) action()            {}
func (LoggedOut) action()           {}
func (SnapshotLoaded) action()      {}
func (DriverStatusSet) action()     {}
func (LocationReported) action()    {}
func (AvailableLoaded) action()     {}
func (OrderAccepted) action()       {}
func (OrderAdvanced) action()       {}
func (OrderReleased) action()       {}
func (EarningsLoaded) action()      {}
func (OrdersLoaded) action()        {}
func (OrderUpserted) action()       {}
func (ConversationsLoaded) action() {}
func (NotificationsLoaded) action() {}
func (NotificationRead) action()    {}

// Reduce returns the state after applying a. It never mutates s and never
// produces a session that breaks the busy/current-order invariant or moves an
// order backwards. Actions that do not apply are no-ops.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case LoggedIn:
		return reduceLoggedIn(a)
	case LoggedOut:
		return Initial()
	}

	if !s.SignedIn() {
		return s
	}
	next := s.Clone()

	switch a := a.(type) {
	case SnapshotLoaded:
		if a.Available != nil {
			next.Available = withoutOrder(cloneOrders(a.Available), currentID(next))
		}
		if a.Orders != nil {
			next.Orders = cloneOrders(a.Orders)
		}
		if a.Earnings != nil {
			next.Earnings = setEarnings(next.Earnings, *a.Earnings)
		}
		if a.Conversations != nil {
			next.Conversations = append([]chat.Conversation(nil), a.Conversations...)
		}
		if a.Notifications != nil {
			next.Notifications = append([]chat.Notification(nil), a.Notifications...)
		}
		next.Demo = next.Demo || a.Demo

	case DriverStatusSet:
		if next.DriverID() == "" || !a.Status.Valid() || a.Status == driver.StatusBusy {
			return s
		}
		if next.Driver.CurrentOrder != nil {
			return s
		}
		next.Driver.Status = a.Status

	case LocationReported:
		if next.DriverID() == "" {
			return s
		}
		point := a.Point
		next.Driver.Location = &point

	case AvailableLoaded:
		next.Available = withoutOrder(cloneOrders(a.Orders), currentID(next))

	case OrderAccepted:
		if next.DriverID() == "" || a.Order == nil || next.Driver.CurrentOrder != nil {
			return s
		}
		next.Driver.CurrentOrder = a.Order.Clone()
		next.Driver.Status = driver.StatusBusy
		next.Available = withoutOrder(next.Available, a.Order.ID)

	case OrderAdvanced:
		cur := next.Driver.CurrentOrder
		if a.Order == nil || cur == nil || cur.ID != a.Order.ID || !cur.Status.Before(a.Order.Status) {
			return s
		}
		next.Driver.CurrentOrder = a.Order.Clone()
		next.Orders = replaceOrder(next.Orders, a.Order)

	case OrderReleased:
		cur := next.Driver.CurrentOrder
		if cur == nil || cur.ID != a.OrderID {
			return s
		}
		next.Driver.CurrentOrder = nil
		next.Driver.Status = driver.StatusOnline

	case EarningsLoaded:
		next.Earnings = setEarnings(next.Earnings, a.Snapshot)

	case OrdersLoaded:
		next.Orders = cloneOrders(a.Orders)
		if next.Orders == nil {
			next.Orders = []*order.Order{}
		}

	case OrderUpserted:
		if a.Order == nil {
			return s
		}
		if idx := indexOrder(next.Orders, a.Order.ID); idx >= 0 {
			next.Orders[idx] = a.Order.Clone()
		} else {
			next.Orders = append([]*order.Order{a.Order.Clone()}, next.Orders...)
		}

	case ConversationsLoaded:
		next.Conversations = append([]chat.Conversation{}, a.Conversations...)

	case NotificationsLoaded:
		next.Notifications = append([]chat.Notification{}, a.Notifications...)

	case NotificationRead:
		for i := range next.Notifications {
			if next.Notifications[i].ID == a.ID {
				next.Notifications[i].Read = true
			}
		}

	default:
		return s
	}
	return next
}

func reduceLoggedIn(a LoggedIn) State {
	next := Initial()
	account := a.Account
	next.Account = &account
	next.Demo = a.Demo
	if account.Role.IsDriver() && a.CurrentOrder != nil && a.CurrentOrder.Status.Active() {
		next.Driver.CurrentOrder = a.CurrentOrder.Clone()
		next.Driver.Status = driver.StatusBusy
	}
	return next
}

func currentID(s State) string {
	if s.Driver.CurrentOrder == nil {
		return ""
	}
	return s.Driver.CurrentOrder.ID
}

func withoutOrder(in []*order.Order, id string) []*order.Order {
	if id == "" {
		return in
	}
	out := make([]*order.Order, 0, len(in))
	for _, o := range in {
		if o.ID != id {
			out = append(out, o)
		}
	}
	return out
}

func indexOrder(in []*order.Order, id string) int {
	for i, o := range in {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func replaceOrder(in []*order.Order, o *order.Order) []*order.Order {
	if idx := indexOrder(in, o.ID); idx >= 0 {
		in[idx] = o.Clone()
	}
	return in
}

func setEarnings(in map[earnings.Period]earnings.Snapshot, snapshot earnings.Snapshot) map[earnings.Period]earnings.Snapshot {
	if in == nil {
		in = make(map[earnings.Period]earnings.Snapshot, 3)
	}
	in[snapshot.Period] = snapshot
	return in
}
