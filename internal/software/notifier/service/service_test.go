package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-coordinator/internal/domain/chat"
	"ride-coordinator/internal/general/contracts"
	"ride-coordinator/internal/general/rabbitmq"
	"ride-coordinator/internal/ports"
	"ride-coordinator/internal/testutil"
)

type memDedupe struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (m *memDedupe) Exists(_ context.Context, keys ...string) *goredis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return goredis.NewIntResult(0, m.err)
	}
	var n int64
	for _, k := range keys {
		if m.seen[k] {
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

func (m *memDedupe) Set(_ context.Context, key string, _ any, _ time.Duration) *goredis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return goredis.NewStatusResult("", m.err)
	}
	m.seen[key] = true
	return goredis.NewStatusResult("OK", nil)
}

// flakyStore fails CreateNotification for the listed accounts until healed.
type flakyStore struct {
	ports.MessagingBackend
	failFor map[string]bool
}

var errDBBlip = errors.New("db blip")

func (s *flakyStore) CreateNotification(ctx context.Context, n *chat.Notification) (*chat.Notification, error) {
	if s.failFor[n.AccountID] {
		return nil, errDBBlip
	}
	return s.MessagingBackend.CreateNotification(ctx, n)
}

// scriptedConsumer hands each body to the handler once, then waits for ctx.
type scriptedConsumer struct {
	bodies [][]byte
	errs   []error
	calls  int
}

func (c *scriptedConsumer) Consume(ctx context.Context, _, _ string, _ int, handle rabbitmq.Handler) error {
	c.calls++
	for _, body := range c.bodies {
		c.errs = append(c.errs, handle(ctx, amqp.Delivery{Body: body}))
	}
	c.bodies = nil
	<-ctx.Done()
	return nil
}

func message(t *testing.T, status, correlationID string) []byte {
	t.Helper()
	buf, err := json.Marshal(contracts.OrderStatusMessage{
		OrderID:     testutil.PendingOrderID,
		PassengerID: testutil.PassengerID,
		DriverID:    testutil.DriverID,
		Status:      status,
		FareTotal:   testutil.PendingOrderFare,
		Envelope:    contracts.Envelope{CorrelationID: correlationID, Producer: "test"},
	})
	require.NoError(t, err)
	return buf
}

func TestAcceptedNotifiesPassenger(t *testing.T) {
	store := testutil.NewStore(t)
	svc := NewNotifierService(testutil.Logger(t), store, nil, nil)
	ctx := context.Background()

	before, err := store.ListNotifications(ctx, testutil.PassengerID)
	require.NoError(t, err)

	require.NoError(t, svc.HandleOrderStatus(ctx, amqp.Delivery{Body: message(t, "accepted", "c-1")}))

	after, err := store.ListNotifications(ctx, testutil.PassengerID)
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)

	var found bool
	for _, n := range after {
		if n.Title == "司機已接單" && n.OrderID == testutil.PendingOrderID {
			found = true
			assert.False(t, n.Read)
		}
	}
	assert.True(t, found)
}

func TestCancelledNotifiesBothSides(t *testing.T) {
	store := testutil.NewStore(t)
	svc := NewNotifierService(testutil.Logger(t), store, nil, nil)
	ctx := context.Background()

	driverBefore, err := store.ListNotifications(ctx, testutil.DriverID)
	require.NoError(t, err)

	require.NoError(t, svc.HandleOrderStatus(ctx, amqp.Delivery{Body: message(t, "cancelled", "c-2")}))

	driverAfter, err := store.ListNotifications(ctx, testutil.DriverID)
	require.NoError(t, err)
	assert.Len(t, driverAfter, len(driverBefore)+1)
}

func TestIntermediateStatusesAreSkipped(t *testing.T) {
	store := testutil.NewStore(t)
	svc := NewNotifierService(testutil.Logger(t), store, nil, nil)
	ctx := context.Background()

	before, err := store.ListNotifications(ctx, testutil.PassengerID)
	require.NoError(t, err)

	require.NoError(t, svc.HandleOrderStatus(ctx, amqp.Delivery{Body: message(t, "delivery_going", "c-3")}))

	after, err := store.ListNotifications(ctx, testutil.PassengerID)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestMalformedMessagesFail(t *testing.T) {
	svc := NewNotifierService(testutil.Logger(t), testutil.NewStore(t), nil, nil)

	assert.Error(t, svc.HandleOrderStatus(context.Background(), amqp.Delivery{Body: []byte("{")}))
	assert.Error(t, svc.HandleOrderStatus(context.Background(), amqp.Delivery{Body: message(t, "teleported", "c-4")}))
}

func TestDuplicateDeliveriesNotifyOnce(t *testing.T) {
	store := testutil.NewStore(t)
	svc := NewNotifierService(testutil.Logger(t), store, nil, &memDedupe{seen: map[string]bool{}})
	ctx := context.Background()

	before, err := store.ListNotifications(ctx, testutil.PassengerID)
	require.NoError(t, err)

	body := message(t, "completed", "c-5")
	require.NoError(t, svc.HandleOrderStatus(ctx, amqp.Delivery{Body: body}))
	require.NoError(t, svc.HandleOrderStatus(ctx, amqp.Delivery{Body: body}))

	after, err := store.ListNotifications(ctx, testutil.PassengerID)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)
}

func TestDedupeFailureStillNotifies(t *testing.T) {
	store := testutil.NewStore(t)
	svc := NewNotifierService(testutil.Logger(t), store, nil, &memDedupe{err: errors.New("redis down")})
	ctx := context.Background()

	before, err := store.ListNotifications(ctx, testutil.PassengerID)
	require.NoError(t, err)

	require.NoError(t, svc.HandleOrderStatus(ctx, amqp.Delivery{Body: message(t, "completed", "c-6")}))

	after, err := store.ListNotifications(ctx, testutil.PassengerID)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)
}

func TestFailedStoreIsRetriedOnRedelivery(t *testing.T) {
	store := testutil.NewStore(t)
	flaky := &flakyStore{MessagingBackend: store, failFor: map[string]bool{testutil.PassengerID: true}}
	svc := NewNotifierService(testutil.Logger(t), flaky, nil, &memDedupe{seen: map[string]bool{}})
	ctx := context.Background()

	before, err := store.ListNotifications(ctx, testutil.PassengerID)
	require.NoError(t, err)

	body := message(t, "completed", "c-8")
	err = svc.HandleOrderStatus(ctx, amqp.Delivery{Body: body})
	require.ErrorIs(t, err, errDBBlip)
	assert.True(t, rabbitmq.IsRetryable(err))

	flaky.failFor = nil
	require.NoError(t, svc.HandleOrderStatus(ctx, amqp.Delivery{Body: body, Redelivered: true}))
	require.NoError(t, svc.HandleOrderStatus(ctx, amqp.Delivery{Body: body, Redelivered: true}))

	after, err := store.ListNotifications(ctx, testutil.PassengerID)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)
}

func TestCancelRedeliveryNotifiesOnlyMissingRecipient(t *testing.T) {
	store := testutil.NewStore(t)
	flaky := &flakyStore{MessagingBackend: store, failFor: map[string]bool{testutil.DriverID: true}}
	svc := NewNotifierService(testutil.Logger(t), flaky, nil, &memDedupe{seen: map[string]bool{}})
	ctx := context.Background()

	passengerBefore, err := store.ListNotifications(ctx, testutil.PassengerID)
	require.NoError(t, err)
	driverBefore, err := store.ListNotifications(ctx, testutil.DriverID)
	require.NoError(t, err)

	body := message(t, "cancelled", "c-9")
	require.Error(t, svc.HandleOrderStatus(ctx, amqp.Delivery{Body: body}))

	flaky.failFor = nil
	require.NoError(t, svc.HandleOrderStatus(ctx, amqp.Delivery{Body: body, Redelivered: true}))

	passengerAfter, err := store.ListNotifications(ctx, testutil.PassengerID)
	require.NoError(t, err)
	driverAfter, err := store.ListNotifications(ctx, testutil.DriverID)
	require.NoError(t, err)
	assert.Len(t, passengerAfter, len(passengerBefore)+1)
	assert.Len(t, driverAfter, len(driverBefore)+1)
}

func TestMalformedMessagesAreNotRetryable(t *testing.T) {
	svc := NewNotifierService(testutil.Logger(t), testutil.NewStore(t), nil, nil)

	err := svc.HandleOrderStatus(context.Background(), amqp.Delivery{Body: []byte("{")})
	require.Error(t, err)
	assert.False(t, rabbitmq.IsRetryable(err))
}

func TestRunStopsOnCancel(t *testing.T) {
	consumer := &scriptedConsumer{bodies: [][]byte{[]byte("{"), message(t, "accepted", "c-7")}}
	svc := NewNotifierService(testutil.Logger(t), testutil.NewStore(t), consumer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx, contracts.QueueOrderStatus, 4) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 1, consumer.calls)
	require.Len(t, consumer.errs, 2)
	assert.Error(t, consumer.errs[0])
	assert.NoError(t, consumer.errs[1])
}
