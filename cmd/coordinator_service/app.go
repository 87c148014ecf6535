package coordinatorservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"ride-coordinator/internal/coordinator"
	"ride-coordinator/internal/general/config"
	"ride-coordinator/internal/general/jwt"
	"ride-coordinator/internal/general/logger"
	"ride-coordinator/internal/general/rabbitmq"
	"ride-coordinator/internal/general/redis"
	"ride-coordinator/internal/general/storage"
	"ride-coordinator/internal/general/websocket"
	"ride-coordinator/internal/ports"
	adminhandler "ride-coordinator/internal/software/adminboard/handler"
	adminservice "ride-coordinator/internal/software/adminboard/service"
	"ride-coordinator/internal/software/coordinator/handler"
)

const serviceName = "coordinator-service"

// Run serves the coordinator HTTP/WebSocket API until ctx is cancelled.
func Run(ctx context.Context, configPath string, maxConcurrent int) error {
	// set up a new logger with a static request ID for startup logs
	log := logger.New(serviceName)
	ctx = log.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		log.Error(ctx, "config_load_failed", "Failed to load config", err, map[string]any{"path": configPath})
		return err
	}

	// the order store: postgres in production, sqlite for demo/offline mode
	store, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "store_open_failed", "Failed to open order store", err, map[string]any{"backend": cfg.Backend})
		return err
	}
	defer store.Close()

	// earnings snapshots read through redis when configured
	var backend ports.Store = store
	if cfg.CacheEnabled() {
		rdb, err := redis.NewClient(ctx, cfg, log)
		if err != nil {
			// the cache is optional; serve straight from the store
			log.Error(ctx, "redis_connection_failed", "Redis unavailable; earnings cache disabled", err, nil)
		} else {
			defer rdb.Close()
			backend = redis.NewCachedStore(store, rdb, cfg.Redis.EarningsTTL, log)
		}
	}

	opts := []coordinator.Option{
		coordinator.WithLogger(log),
		coordinator.WithRetry(cfg.Coordinator.RetryAttempts, cfg.Coordinator.RetryBackoff),
		coordinator.WithCompletionGrace(cfg.Coordinator.CompletionGrace),
		coordinator.WithDemoFallback(cfg.DemoFallback()),
	}
	if policy, err := coordinator.ParsePolicy(cfg.Coordinator.ConsistencyPolicy); err == nil {
		opts = append(opts, coordinator.WithPolicy(policy))
	}

	// status events go to rabbitmq when enabled
	if cfg.EventsEnabled() {
		rmq, err := rabbitmq.Connect(ctx, cfg, log)
		if err != nil {
			log.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
			return err
		}
		defer rmq.Close()
		opts = append(opts, coordinator.WithEvents(rabbitmq.NewPublisher(rmq, serviceName)))
	}

	registry := coordinator.NewRegistry(func() *coordinator.Coordinator {
		return coordinator.New(backend, opts...)
	})
	defer registry.CloseAll()

	jwtManager, err := jwt.NewManager(cfg.JWT.SecretKey, cfg.JWT.TTL)
	if err != nil {
		log.Error(ctx, "jwt_setup_failed", "Failed to set up JWT manager", err, nil)
		return err
	}

	// set up the HTTP handlers and their routes
	mux := http.NewServeMux()
	stream := websocket.NewSessionStream(log, jwtManager, registry)
	handler.NewCoordinatorHTTPHandler(registry, log, jwtManager, stream).RegisterRoutes(mux)
	adminhandler.NewAdminHTTPHandler(adminservice.NewAdminService(store, registry, log), log, jwtManager).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.CoordinatorServicePort),
		Handler:           withConcurrencyLimit(maxConcurrent, mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	log.Info(ctx, "service_started",
		fmt.Sprintf("Coordinator service started on port %d", cfg.Services.CoordinatorServicePort),
		map[string]any{
			"port":           cfg.Services.CoordinatorServicePort,
			"max_concurrent": maxConcurrent,
			"backend":        cfg.Backend,
			"policy":         cfg.Coordinator.ConsistencyPolicy,
			"events":         cfg.EventsEnabled(),
		},
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		// hijacked websocket connections are not covered by Shutdown; closing
		// the sessions ends their streams
		registry.CloseAll()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
		log.Info(ctx, "service_stopped", "Coordinator service stopped", nil)
	case err := <-errCh:
		if err != nil {
			log.Error(ctx, "http_server_error", "HTTP server terminated with error", err,
				map[string]any{"port": cfg.Services.CoordinatorServicePort})
			return err
		}
	}
	return nil
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// WebSocket streams hold a slot for as long as they stay open.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
