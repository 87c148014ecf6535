package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"ride-coordinator/internal/general/config"
	"ride-coordinator/internal/general/logger"
)

// NewClient connects to the redis section of cfg and pings it once.
func NewClient(ctx context.Context, cfg *config.Config, log *logger.Logger) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}

	log.Info(ctx, "redis_connected", "Connected to Redis", map[string]any{
		"addr": cfg.Redis.Addr, "db": cfg.Redis.DB, "earnings_ttl": cfg.Redis.EarningsTTL.String(),
	})
	return client, nil
}
