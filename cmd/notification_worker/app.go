package notificationworker

import (
	"context"

	"ride-coordinator/internal/general/config"
	"ride-coordinator/internal/general/contracts"
	"ride-coordinator/internal/general/logger"
	"ride-coordinator/internal/general/rabbitmq"
	"ride-coordinator/internal/general/redis"
	"ride-coordinator/internal/general/storage"
	"ride-coordinator/internal/software/notifier/service"
)

const serviceName = "notification-worker"

// Run consumes order status events and stores notifications until ctx is
// cancelled.
func Run(ctx context.Context, configPath string, prefetch int) error {
	log := logger.New(serviceName)
	ctx = log.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		log.Error(ctx, "config_load_failed", "Failed to load config", err, map[string]any{"path": configPath})
		return err
	}

	store, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "store_open_failed", "Failed to open order store", err, map[string]any{"backend": cfg.Backend})
		return err
	}
	defer store.Close()

	rmq, err := rabbitmq.Connect(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	// redelivered events are deduplicated in redis when it is configured
	var dedupe service.Deduper
	if cfg.CacheEnabled() {
		rdb, err := redis.NewClient(ctx, cfg, log)
		if err != nil {
			log.Error(ctx, "redis_connection_failed", "Redis unavailable; duplicate deliveries not filtered", err, nil)
		} else {
			defer rdb.Close()
			dedupe = rdb
		}
	}

	svc := service.NewNotifierService(log, store, rmq, dedupe)

	log.Info(ctx, "service_started", "Notification worker started", map[string]any{
		"queue":    contracts.QueueOrderStatus,
		"prefetch": prefetch,
		"dedupe":   dedupe != nil,
	})
	err = svc.Run(ctx, contracts.QueueOrderStatus, prefetch)
	log.Info(ctx, "service_stopped", "Notification worker stopped", nil)
	return err
}
