// Package redis caches earnings snapshots in front of a backend store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"ride-coordinator/internal/domain/earnings"
	"ride-coordinator/internal/domain/order"
	"ride-coordinator/internal/general/logger"
	"ride-coordinator/internal/ports"
)

var periods = []earnings.Period{earnings.PeriodToday, earnings.PeriodWeek, earnings.PeriodMonth}

// KV is the subset of the redis client the cache needs.
type KV interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// CachedStore serves GetEarningsStats from redis when it can and drops a
// driver's cached snapshots after anything that changes the totals. Cache
// failures are logged and fall through to the wrapped store.
type CachedStore struct {
	ports.Store
	kv  KV
	ttl time.Duration
	log *logger.Logger
}

// NewCachedStore wraps store with a snapshot cache of the given ttl.
func NewCachedStore(store ports.Store, kv KV, ttl time.Duration, log *logger.Logger) *CachedStore {
	return &CachedStore{Store: store, kv: kv, ttl: ttl, log: log}
}

func earningsKey(driverID string, period earnings.Period) string {
	return fmt.Sprintf("earnings:%s:%s", driverID, period)
}

// GetEarningsStats reads through the cache.
func (s *CachedStore) GetEarningsStats(ctx context.Context, driverID string, period earnings.Period) (earnings.Snapshot, error) {
	key := earningsKey(driverID, period)

	raw, err := s.kv.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var snap earnings.Snapshot
		jerr := json.Unmarshal(raw, &snap)
		if jerr == nil {
			return snap, nil
		}
		s.log.Error(ctx, "earnings_cache_decode_failed", "Ignoring unreadable cache entry", jerr, map[string]any{"key": key})
	case !errors.Is(err, goredis.Nil):
		s.log.Error(ctx, "earnings_cache_get_failed", "Earnings cache read failed", err, map[string]any{"key": key})
	}

	snap, err := s.Store.GetEarningsStats(ctx, driverID, period)
	if err != nil {
		return earnings.Snapshot{}, err
	}

	body, err := json.Marshal(snap)
	if err == nil {
		err = s.kv.Set(ctx, key, body, s.ttl).Err()
	}
	if err != nil {
		s.log.Error(ctx, "earnings_cache_set_failed", "Earnings cache write failed", err, map[string]any{"key": key})
	}
	return snap, nil
}

// RequestWithdrawal invalidates the driver's snapshots once the payout is recorded.
func (s *CachedStore) RequestWithdrawal(ctx context.Context, w *earnings.Withdrawal) (*earnings.Withdrawal, error) {
	out, err := s.Store.RequestWithdrawal(ctx, w)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, out.DriverID)
	return out, nil
}

// UpdateOrderStatus invalidates the driver's snapshots when a trip completes.
func (s *CachedStore) UpdateOrderStatus(ctx context.Context, orderID string, status order.Status, driverID string) (*order.Order, error) {
	out, err := s.Store.UpdateOrderStatus(ctx, orderID, status, driverID)
	if err != nil {
		return nil, err
	}
	if out.Status == order.StatusCompleted {
		s.invalidate(ctx, driverID)
	}
	return out, nil
}

func (s *CachedStore) invalidate(ctx context.Context, driverID string) {
	keys := make([]string, 0, len(periods))
	for _, p := range periods {
		keys = append(keys, earningsKey(driverID, p))
	}
	if err := s.kv.Del(ctx, keys...).Err(); err != nil {
		s.log.Error(ctx, "earnings_cache_invalidate_failed", "Earnings cache invalidation failed", err,
			map[string]any{"driver_id": driverID})
	}
}
