package coordinator

import (
	"maps"
	"slices"

	"ride-coordinator/internal/domain/chat"
	"ride-coordinator/internal/domain/driver"
	"ride-coordinator/internal/domain/earnings"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/domain/user"
)

// State is everything a signed-in client sees. Values returned by the
// Coordinator are deep copies and safe to keep.
type State struct {
	Account       *user.Account                         `json:"account,omitempty"`
	Driver        driver.Session                        `json:"driver"`
	Available     []*order.Order                        `json:"available_orders,omitempty"`
	Orders        []*order.Order                        `json:"orders,omitempty"`
	Earnings      map[earnings.Period]earnings.Snapshot `json:"earnings,omitempty"`
	Conversations []chat.Conversation                   `json:"conversations,omitempty"`
	Notifications []chat.Notification                   `json:"notifications,omitempty"`
	Demo          bool                                  `json:"demo"`
}

// Initial is the signed-out session.
func Initial() State {
	return State{Driver: driver.NewSession()}
}

// SignedIn reports whether an account is attached.
func (state State) SignedIn() bool {
	return state.Account != nil
}

// Role returns the signed-in role, or "" when signed out.
func (state State) Role() user.Role {
	if state.Account == nil {
		return ""
	}
	return state.Account.Role
}

// DriverID returns the account id when a driver is signed in.
func (state State) DriverID() string {
	if state.Account == nil || !state.Account.Role.IsDriver() {
		return ""
	}
	return state.Account.ID
}

// FindAvailable returns the cached available order with id.
func (state State) FindAvailable(id string) *order.Order {
	for _, o := range state.Available {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// Clone returns a deep copy.
func (state State) Clone() State {
	cp := state
	if state.Account != nil {
		account := *state.Account
		cp.Account = &account
	}
	cp.Driver = state.Driver.Clone()
	cp.Available = cloneOrders(state.Available)
	cp.Orders = cloneOrders(state.Orders)
	if state.Earnings != nil {
		cp.Earnings = maps.Clone(state.Earnings)
	}
	cp.Conversations = slices.Clone(state.Conversations)
	cp.Notifications = slices.Clone(state.Notifications)
	return cp
}

func cloneOrders(in []*order.Order) []*order.Order {
	if in == nil {
		return nil
	}
	out := make([]*order.Order, 0, len(in))
	for _, o := range in {
		if o != nil {
			out = append(out, o.Clone())
		}
	}
	return out
}
