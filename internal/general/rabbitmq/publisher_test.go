package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ride-coordinator/internal/domain/driver"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/general/contracts"
)

type sent struct {
	exchange, key string
	body          []byte
}

type fakeSender struct {
	msgs []sent
	err  error
}

func (f *fakeSender) PublishMessage(_ context.Context, exchange, key string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, sent{exchange, key, body})
	return nil
}

var fixed = time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)

func newTestPublisher(s Sender) *Publisher {
	p := NewPublisher(s, "coordinator-service")
	p.now = func() time.Time { return fixed }
	return p
}

func TestPublishDriverStatus(t *testing.T) {
	s := &fakeSender{}
	require.NoError(t, newTestPublisher(s).PublishDriverStatus(context.Background(), "drv-001", driver.StatusOnline))

	require.Len(t, s.msgs, 1)
	assert.Equal(t, contracts.ExchangeDriverTopic, s.msgs[0].exchange)
	assert.Equal(t, "driver.status.drv-001", s.msgs[0].key)

	var msg contracts.DriverStatusMessage
	require.NoError(t, json.Unmarshal(s.msgs[0].body, &msg))
	assert.Equal(t, "online", msg.Status)
	assert.Equal(t, "coordinator-service", msg.Producer)
	assert.NotEmpty(t, msg.CorrelationID)
	assert.True(t, msg.SentAt.Equal(fixed))
}

func TestPublishOrderStatus(t *testing.T) {
	s := &fakeSender{}
	drv := "drv-001"
	o := &order.Order{ID: "RD001", PassengerID: "psg-001", DriverID: &drv, Status: order.StatusPickupGoing,
		Fare: order.Fare{Total: 350}}

	require.NoError(t, newTestPublisher(s).PublishOrderStatus(context.Background(), o))

	require.Len(t, s.msgs, 1)
	assert.Equal(t, contracts.ExchangeRideTopic, s.msgs[0].exchange)
	assert.Equal(t, "order.status.pickup_going", s.msgs[0].key)

	var msg contracts.OrderStatusMessage
	require.NoError(t, json.Unmarshal(s.msgs[0].body, &msg))
	assert.Equal(t, "RD001", msg.OrderID)
	assert.Equal(t, "drv-001", msg.DriverID)
	assert.Equal(t, 350, msg.FareTotal)
	assert.Equal(t, order.StatusPickupGoing.Label(), msg.Label)
}

func TestPublishErrors(t *testing.T) {
	boom := errors.New("broker down")
	p := newTestPublisher(&fakeSender{err: boom})

	assert.ErrorIs(t, p.PublishDriverStatus(context.Background(), "drv-001", driver.StatusOffline), boom)
	assert.Error(t, p.PublishOrderStatus(context.Background(), nil))
}

func TestBackoffCaps(t *testing.T) {
	d := minBackoff
	for range 10 {
		d = nextBackoff(d)
	}
	assert.Equal(t, maxBackoff, d)
}
