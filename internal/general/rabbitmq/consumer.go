package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const handlerTimeout = 30 * time.Second

// Handler processes one delivery. A returned error drops the message unless
// it is marked with Retryable.
type Handler func(ctx context.Context, d amqp.Delivery) error

type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

// Retryable marks a handler error as transient. The delivery is requeued
// once; a redelivered message that fails again is dropped.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return retryableError{err: err}
}

// IsRetryable reports whether err was marked with Retryable.
func IsRetryable(err error) bool {
	var re retryableError
	return errors.As(err, &re)
}

// requeueOnFailure decides the fate of a delivery whose handler failed.
func requeueOnFailure(err error, redelivered bool) bool {
	return IsRetryable(err) && !redelivered
}

func (client *Client) consumerChannel(prefetch int) (*amqp.Channel, error) {
	client.mu.RLock()
	conn := client.conn
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, ErrNotConnected
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq open channel: %w", err)
	}
	if prefetch < 1 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq qos(prefetch=%d): %w", prefetch, err)
	}
	return ch, nil
}

// Consume reads queue with manual acks until ctx is cancelled or the channel
// closes. Each delivery gets its own bounded context.
func (client *Client) Consume(ctx context.Context, queue, consumerTag string, prefetch int, handle Handler) error {
	ch, err := client.consumerChannel(prefetch)
	if err != nil {
		return err
	}
	defer ch.Close()

	deliveries, err := ch.Consume(queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq consume %s: %w", queue, err)
	}
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(consumerTag, false)
			return nil

		case cerr := <-chClosed:
			if cerr != nil {
				return fmt.Errorf("rabbitmq channel closed while consuming %s: %w", queue, cerr)
			}
			return nil

		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
			err := handle(hctx, d)
			cancel()

			if err != nil {
				details := map[string]any{"queue": queue, "routing_key": d.RoutingKey}
				if requeueOnFailure(err, d.Redelivered) {
					client.log.Error(ctx, "rabbitmq_delivery_requeued", "Handler failed; message requeued", err, details)
					_ = d.Nack(false, true)
					continue
				}
				client.log.Error(ctx, "rabbitmq_delivery_dropped", "Handler failed; message dropped", err, details)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
