package service

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"ride-coordinator/internal/general/logger"
	"ride-coordinator/internal/general/rabbitmq"
	"ride-coordinator/internal/ports"
)

const (
	consumerTag    = "notification-worker-order-status"
	dedupeTTL      = 24 * time.Hour
	restartBackoff = 2 * time.Second
)

// Consumer is the slice of the RabbitMQ client the worker reads from.
type Consumer interface {
	Consume(ctx context.Context, queue, consumerTag string, prefetch int, handle rabbitmq.Handler) error
}

// Deduper remembers which recipients of a message were already notified.
type Deduper interface {
	Exists(ctx context.Context, keys ...string) *goredis.IntCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
}

// NotifierService turns order status events into passenger and driver
// notifications.
type NotifierService struct {
	logger   *logger.Logger
	store    ports.MessagingBackend
	consumer Consumer
	dedupe   Deduper
}

// NewNotifierService wires the worker. dedupe may be nil.
func NewNotifierService(logger *logger.Logger, store ports.MessagingBackend, consumer Consumer, dedupe Deduper) *NotifierService {
	return &NotifierService{logger: logger, store: store, consumer: consumer, dedupe: dedupe}
}

// Run consumes the order status queue until ctx is cancelled, restarting the
// consumer after channel failures.
func (service *NotifierService) Run(ctx context.Context, queue string, prefetch int) error {
	for {
		err := service.consumer.Consume(ctx, queue, consumerTag, prefetch, service.HandleOrderStatus)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			service.logger.Error(ctx, "consumer_stopped", "Order status consumer stopped; restarting", err,
				map[string]any{"queue": queue, "backoff": restartBackoff.String()})
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(restartBackoff):
		}
	}
}
