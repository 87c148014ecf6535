package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"ride-coordinator/internal/general/config"
	"ride-coordinator/internal/general/logger"
)

//go:embed schema.sql
var schemaSQL string

// DSN renders the database section of cfg as a postgres URL.
func DSN(cfg *config.Config) string {
	u := &url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(cfg.Database.Host, strconv.Itoa(cfg.Database.Port)),
		Path:     "/" + cfg.Database.Name,
		User:     url.UserPassword(cfg.Database.User, cfg.Database.Password),
		RawQuery: url.Values{"sslmode": {cfg.Database.SSLMode}}.Encode(),
	}
	return u.String()
}

// NewPool opens a pgx pool for the order store and pings it once.
func NewPool(ctx context.Context, cfg *config.Config, log *logger.Logger) (*pgxpool.Pool, error) {
	start := time.Now()

	pcfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres parse dsn: %w", err)
	}
	pcfg.ConnConfig.ConnectTimeout = 5 * time.Second
	if pcfg.ConnConfig.RuntimeParams == nil {
		pcfg.ConnConfig.RuntimeParams = make(map[string]string, 2)
	}
	pcfg.ConnConfig.RuntimeParams["timezone"] = "UTC"
	pcfg.ConnConfig.RuntimeParams["application_name"] = "ride-coordinator"
	pcfg.MaxConns = cfg.Database.MaxConns
	pcfg.HealthCheckPeriod = 30 * time.Second
	pcfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("postgres open pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping %s: %w", cfg.Database.Host, err)
	}

	log.Info(ctx, "db_connected", "Connected to PostgreSQL order store", map[string]any{
		"host":        cfg.Database.Host,
		"database":    cfg.Database.Name,
		"max_conns":   cfg.Database.MaxConns,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return pool, nil
}

// Migrate creates any missing tables and indexes. The schema is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
