package coordinator

import (
	"context"
	"sync"
	"time"

	"ride-coordinator/internal/domain/driver"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/general/logger"
	"ride-coordinator/internal/ports"
)

const (
	defaultGrace        = 3 * time.Second
	defaultRetries      = 3
	defaultRetryBackoff = 200 * time.Millisecond
	backgroundTimeout   = 5 * time.Second
)

// Update is pushed to subscribers after every dispatched action.
type Update struct {
	Version uint64
	State   State
}

// Coordinator owns one signed-in session. Operations run one at a time; the
// backend is called first and state changes only through Reduce.
type Coordinator struct {
	backend      ports.Backend
	events       ports.EventPublisher
	log          *logger.Logger
	policy       Policy
	retries      int
	retryBackoff time.Duration
	grace        time.Duration
	demoFallback bool
	now          func() time.Time

	// ctx bounds background work such as the completion release
	ctx    context.Context
	cancel context.CancelFunc

	opMu sync.Mutex

	mu      sync.RWMutex
	state   State
	version uint64
	subs    map[int]chan Update
	nextSub int
	timer   *time.Timer
	closed  bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the structured logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}

// WithEvents publishes driver and order status changes.
func WithEvents(events ports.EventPublisher) Option {
	return func(c *Coordinator) { c.events = events }
}

// WithPolicy selects how driver status changes are reconciled.
func WithPolicy(policy Policy) Option {
	return func(c *Coordinator) {
		if policy.Valid() {
			c.policy = policy
		}
	}
}

// WithRetry configures PolicyRetry.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Coordinator) {
		if attempts > 0 {
			c.retries = attempts
		}
		if backoff >= 0 {
			c.retryBackoff = backoff
		}
	}
}

// WithCompletionGrace sets the delay between completing an order and the
// driver going back online. Zero releases immediately.
func WithCompletionGrace(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.grace = d
		}
	}
}

// WithDemoFallback toggles demo credentials and mock data when the backend
// is unreachable.
func WithDemoFallback(enabled bool) Option {
	return func(c *Coordinator) { c.demoFallback = enabled }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a signed-out coordinator over backend.
func New(backend ports.Backend, opts ...Option) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		backend:      backend,
		log:          logger.New("coordinator"),
		policy:       PolicyRevert,
		retries:      defaultRetries,
		retryBackoff: defaultRetryBackoff,
		grace:        defaultGrace,
		demoFallback: true,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
		state:        Initial(),
		subs:         make(map[int]chan Update),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Coordinator) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Clone()
}

// Version counts dispatched actions.
func (c *Coordinator) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Subscribe returns a channel receiving the latest update after every
// change, starting with the current state. Slow readers only see the most
// recent update. The returned func unsubscribes and closes the channel.
func (c *Coordinator) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- Update{Version: c.version, State: c.state.Clone()}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Close stops the completion timer, cancels background work and closes all
// subscriptions. It does not sign the session out.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.cancel()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Coordinator) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// dispatch applies a and notifies subscribers.
func (c *Coordinator) dispatch(a Action) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = Reduce(c.state, a)
	c.version++
	u := Update{Version: c.version, State: c.state.Clone()}
	for _, ch := range c.subs {
		select {
		case ch <- u:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- u:
			default:
			}
		}
	}
	return c.state.Clone()
}

// ----- completion grace -----

func (c *Coordinator) scheduleRelease(orderID string) {
	if c.grace <= 0 {
		c.releaseLocked(c.ctx, orderID, "order_released")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.grace, func() {
		c.opMu.Lock()
		defer c.opMu.Unlock()
		if c.isClosed() {
			return
		}
		// a later login may have restored a different, still active order
		if cur := c.Snapshot().Driver.CurrentOrder; cur == nil || cur.Status != order.StatusCompleted {
			return
		}
		c.releaseLocked(c.ctx, orderID, "order_released")
	})
}

func (c *Coordinator) stopGraceLocked() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// releaseLocked clears orderID if it is still current and puts the driver
// back online. Caller holds opMu.
func (c *Coordinator) releaseLocked(ctx context.Context, orderID, action string) {
	s := c.Snapshot()
	cur := s.Driver.CurrentOrder
	if cur == nil || cur.ID != orderID {
		return
	}
	c.dispatch(OrderReleased{OrderID: orderID})

	driverID := s.DriverID()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundTimeout)
	defer cancel()
	ctx = c.log.WithOrderID(ctx, orderID)

	if !demoAccount(s) {
		if err := c.backend.UpdateWorkStatus(ctx, driverID, driver.StatusOnline); err != nil {
			c.log.Error(ctx, "driver_release_status_failed", "Failed to persist online status after release", err,
				map[string]any{"driver_id": driverID})
		}
	}
	c.publishDriver(ctx, driverID, driver.StatusOnline, "")
	c.log.Info(ctx, action, "Driver released from order", map[string]any{"driver_id": driverID, "order_status": cur.Status})
}

// ----- events -----

func (c *Coordinator) publishDriver(ctx context.Context, driverID string, status driver.Status, orderID string) {
	if c.events == nil || driverID == "" {
		return
	}
	if err := c.events.PublishDriverStatus(ctx, driverID, status); err != nil {
		c.log.Error(ctx, "driver_status_publish_failed", "Failed to publish driver status", err,
			map[string]any{"driver_id": driverID, "status": status, "order_id": orderID})
	}
}

func (c *Coordinator) publishOrder(ctx context.Context, o *order.Order) {
	if c.events == nil || o == nil {
		return
	}
	if err := c.events.PublishOrderStatus(ctx, o); err != nil {
		c.log.Error(ctx, "order_status_publish_failed", "Failed to publish order status", err,
			map[string]any{"order_id": o.ID, "status": o.Status})
	}
}
