package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"ride-coordinator/internal/domain/driver"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/general/contracts"
	"ride-coordinator/internal/ports"
)

const publishTimeout = 5 * time.Second

// Sender is the transport half of a publisher.
type Sender interface {
	PublishMessage(ctx context.Context, exchange, routingKey string, body []byte) error
}

// Publisher turns coordinator state changes into bus messages.
type Publisher struct {
	sender   Sender
	producer string
	now      func() time.Time
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher wraps sender; producer names this service in every envelope.
func NewPublisher(sender Sender, producer string) *Publisher {
	return &Publisher{sender: sender, producer: producer, now: time.Now}
}

// PublishDriverStatus sends driver.status.{driver_id} on the driver exchange.
func (publisher *Publisher) PublishDriverStatus(ctx context.Context, driverID string, status driver.Status) error {
	msg := contracts.DriverStatusMessage{
		DriverID:  driverID,
		Status:    status.String(),
		Label:     status.Label(),
		Timestamp: publisher.now().UTC(),
		Envelope:  publisher.envelope(),
	}
	return publisher.send(ctx, contracts.ExchangeDriverTopic, contracts.RouteDriverStatusPrefix+driverID, msg)
}

// PublishOrderStatus sends order.status.{status} on the ride exchange.
func (publisher *Publisher) PublishOrderStatus(ctx context.Context, o *order.Order) error {
	if o == nil {
		return errors.New("rabbitmq: nil order")
	}
	msg := contracts.OrderStatusMessage{
		OrderID:     o.ID,
		PassengerID: o.PassengerID,
		Status:      o.Status.String(),
		Label:       o.Status.Label(),
		FareTotal:   o.Fare.Total,
		Timestamp:   publisher.now().UTC(),
		Envelope:    publisher.envelope(),
	}
	if o.DriverID != nil {
		msg.DriverID = *o.DriverID
	}
	return publisher.send(ctx, contracts.ExchangeRideTopic, contracts.RouteOrderStatusPrefix+o.Status.String(), msg)
}

func (publisher *Publisher) envelope() contracts.Envelope {
	return contracts.Envelope{
		CorrelationID: uuid.NewString(),
		Producer:      publisher.producer,
		SentAt:        publisher.now().UTC(),
	}
}

func (publisher *Publisher) send(ctx context.Context, exchange, key string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return publisher.sender.PublishMessage(ctx, exchange, key, body)
}

// PublishMessage publishes a persistent JSON message and waits for the
// broker confirm.
func (client *Client) PublishMessage(ctx context.Context, exchange, routingKey string, body []byte) error {
	client.mu.RLock()
	conn, ch, confirms := client.conn, client.pub, client.confirms
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() || ch == nil || ch.IsClosed() {
		return ErrNotConnected
	}

	client.pubMu.Lock()
	defer client.pubMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := ch.PublishWithContext(ctx, exchange, routingKey, true, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", routingKey, err)
	}

	select {
	case c, ok := <-confirms:
		if !ok {
			return ErrNotConnected
		}
		if !c.Ack {
			return fmt.Errorf("rabbitmq: publish %s not acknowledged", routingKey)
		}
		return nil
	case <-ctx.Done():
		// drain the late confirm so the next publish reads its own
		select {
		case <-confirms:
		case <-time.After(2 * time.Second):
		}
		return ctx.Err()
	}
}
