package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"ride-coordinator/internal/domain/chat"
	"ride-coordinator/internal/domain/driver"
	"ride-coordinator/internal/domain/earnings"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/domain/user"
	"ride-coordinator/internal/ports"
)

var errNetwork = errors.New("dial tcp: connection refused")

// fakeBackend is an in-memory backend with per-method failure injection.
type fakeBackend struct {
	mu sync.Mutex

	accounts      map[string]*user.Account // by identifier
	passwords     map[string]string
	orders        map[string]*order.Order
	workStatus    map[string]driver.Status
	stats         map[earnings.Period]earnings.Snapshot
	withdrawals   []*earnings.Withdrawal
	conversations map[string]chat.Conversation
	messages      []chat.Message
	notifications []chat.Notification

	fail  map[string]error
	calls map[string]int
	// failTimes makes a method fail n times before succeeding.
	failTimes map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		accounts:      map[string]*user.Account{},
		passwords:     map[string]string{},
		orders:        map[string]*order.Order{},
		workStatus:    map[string]driver.Status{},
		stats:         map[earnings.Period]earnings.Snapshot{},
		conversations: map[string]chat.Conversation{},
		fail:          map[string]error{},
		calls:         map[string]int{},
		failTimes:     map[string]int{},
	}
}

func (f *fakeBackend) addAccount(role user.Role, id, identifier, password string) *user.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &user.Account{ID: id, Role: role, Status: user.StatusActive, Name: id}
	if role.IsAdmin() {
		a.Username = identifier
	} else {
		a.Phone = identifier
	}
	f.accounts[string(role)+":"+identifier] = a
	f.passwords[string(role)+":"+identifier] = password
	return a
}

func (f *fakeBackend) addOrder(o *order.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.ID] = o.Clone()
}

func (f *fakeBackend) setFail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, method)
		return
	}
	f.fail[method] = err
}

func (f *fakeBackend) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeBackend) status(driverID string) driver.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.workStatus[driverID]
}

// enter records a call and returns the injected failure, if any. Caller holds mu.
func (f *fakeBackend) enter(method string) error {
	f.calls[method]++
	if n := f.failTimes[method]; n > 0 {
		f.failTimes[method] = n - 1
		return errNetwork
	}
	return f.fail[method]
}

func (f *fakeBackend) login(role user.Role, identifier, password string) (*user.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Login"); err != nil {
		return nil, err
	}
	key := string(role) + ":" + identifier
	a, ok := f.accounts[key]
	if !ok || f.passwords[key] != password {
		return nil, ports.ErrInvalidCredentials
	}
	if !a.Status.IsActive() {
		return nil, user.ErrAccountDisabled
	}
	cp := *a
	return &cp, nil
}

func (f *fakeBackend) LoginDriver(_ context.Context, phone, password string) (*user.Account, error) {
	return f.login(user.RoleDriver, phone, password)
}

func (f *fakeBackend) LoginPassenger(_ context.Context, phone, password string) (*user.Account, error) {
	return f.login(user.RolePassenger, phone, password)
}

func (f *fakeBackend) LoginAdmin(_ context.Context, username, password string) (*user.Account, error) {
	return f.login(user.RoleAdmin, username, password)
}

func (f *fakeBackend) GetAvailableOrders(_ context.Context, _ string) ([]*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetAvailableOrders"); err != nil {
		return nil, err
	}
	var out []*order.Order
	for _, o := range f.orders {
		if o.Status == order.StatusPending {
			out = append(out, o.Clone())
		}
	}
	return out, nil
}

func (f *fakeBackend) AcceptOrder(_ context.Context, orderID, driverID string) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("AcceptOrder"); err != nil {
		return nil, err
	}
	o, ok := f.orders[orderID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if err := o.Accept(driverID); err != nil {
		return nil, ports.ErrOrderTaken
	}
	f.workStatus[driverID] = driver.StatusBusy
	return o.Clone(), nil
}

func (f *fakeBackend) UpdateOrderStatus(_ context.Context, orderID string, status order.Status, driverID string) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateOrderStatus"); err != nil {
		return nil, err
	}
	o, ok := f.orders[orderID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if err := o.AdvanceTo(status, driverID); err != nil {
		return nil, err
	}
	return o.Clone(), nil
}

func (f *fakeBackend) CreateRide(_ context.Context, ride *order.Order) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateRide"); err != nil {
		return nil, err
	}
	o := ride.Clone()
	o.ID = "RD" + time.Now().Format("150405.000000")
	f.orders[o.ID] = o
	return o.Clone(), nil
}

func (f *fakeBackend) GetDriverOrders(_ context.Context, driverID string, filter order.Status) ([]*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetDriverOrders"); err != nil {
		return nil, err
	}
	var out []*order.Order
	for _, o := range f.orders {
		if o.AssignedTo(driverID) && (filter == "" || o.Status == filter) {
			out = append(out, o.Clone())
		}
	}
	return out, nil
}

func (f *fakeBackend) GetPassengerOrders(_ context.Context, passengerID string) ([]*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetPassengerOrders"); err != nil {
		return nil, err
	}
	var out []*order.Order
	for _, o := range f.orders {
		if o.PassengerID == passengerID {
			out = append(out, o.Clone())
		}
	}
	return out, nil
}

func (f *fakeBackend) GetActiveOrder(_ context.Context, driverID string) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetActiveOrder"); err != nil {
		return nil, err
	}
	for _, o := range f.orders {
		if o.AssignedTo(driverID) && o.Status.Active() {
			return o.Clone(), nil
		}
	}
	return nil, ports.ErrNotFound
}

func (f *fakeBackend) GetOrder(_ context.Context, orderID string) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetOrder"); err != nil {
		return nil, err
	}
	o, ok := f.orders[orderID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return o.Clone(), nil
}

func (f *fakeBackend) CancelRide(_ context.Context, orderID, passengerID, reason string) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CancelRide"); err != nil {
		return nil, err
	}
	o, ok := f.orders[orderID]
	if !ok || o.PassengerID != passengerID {
		return nil, ports.ErrNotFound
	}
	if err := o.Cancel(reason); err != nil {
		return nil, err
	}
	return o.Clone(), nil
}

func (f *fakeBackend) GetEarningsStats(_ context.Context, _ string, period earnings.Period) (earnings.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetEarningsStats"); err != nil {
		return earnings.Snapshot{}, err
	}
	if s, ok := f.stats[period]; ok {
		return s, nil
	}
	return earnings.NewSnapshot(period, 0, 0, 0), nil
}

func (f *fakeBackend) RequestWithdrawal(_ context.Context, w *earnings.Withdrawal) (*earnings.Withdrawal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("RequestWithdrawal"); err != nil {
		return nil, err
	}
	cp := *w
	cp.ID = "WD001"
	f.withdrawals = append(f.withdrawals, &cp)
	return &cp, nil
}

func (f *fakeBackend) UpdateWorkStatus(_ context.Context, driverID string, status driver.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateWorkStatus"); err != nil {
		return err
	}
	f.workStatus[driverID] = status
	return nil
}

func (f *fakeBackend) UpdateLocation(_ context.Context, _ string, _, _ float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enter("UpdateLocation")
}

func (f *fakeBackend) ListConversations(_ context.Context, accountID string) ([]chat.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListConversations"); err != nil {
		return nil, err
	}
	var out []chat.Conversation
	for _, c := range f.conversations {
		if c.HasParticipant(accountID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeBackend) GetConversation(_ context.Context, id string) (*chat.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetConversation"); err != nil {
		return nil, err
	}
	c, ok := f.conversations[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &c, nil
}

func (f *fakeBackend) ListMessages(_ context.Context, conversationID string) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListMessages"); err != nil {
		return nil, err
	}
	var out []chat.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeBackend) SendMessage(_ context.Context, m *chat.Message) (*chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("SendMessage"); err != nil {
		return nil, err
	}
	cp := *m
	cp.ID = "MS" + time.Now().Format("150405.000000")
	f.messages = append(f.messages, cp)
	return &cp, nil
}

func (f *fakeBackend) ListNotifications(_ context.Context, accountID string) ([]chat.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListNotifications"); err != nil {
		return nil, err
	}
	var out []chat.Notification
	for _, n := range f.notifications {
		if n.AccountID == accountID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateNotification(_ context.Context, n *chat.Notification) (*chat.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateNotification"); err != nil {
		return nil, err
	}
	cp := *n
	f.notifications = append(f.notifications, cp)
	return &cp, nil
}

func (f *fakeBackend) MarkNotificationRead(_ context.Context, accountID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("MarkNotificationRead"); err != nil {
		return err
	}
	for i := range f.notifications {
		if f.notifications[i].ID == id && f.notifications[i].AccountID == accountID {
			f.notifications[i].Read = true
			return nil
		}
	}
	return ports.ErrNotFound
}

// recordingEvents captures published events.
type recordingEvents struct {
	mu      sync.Mutex
	drivers []driver.Status
	orders  []order.Status
}

func (r *recordingEvents) PublishDriverStatus(_ context.Context, _ string, status driver.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers = append(r.drivers, status)
	return nil
}

func (r *recordingEvents) PublishOrderStatus(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, o.Status)
	return nil
}

func (r *recordingEvents) orderStatuses() []order.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]order.Status(nil), r.orders...)
}
