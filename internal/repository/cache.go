package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// balanceTTL bounds staleness if an invalidation is ever lost; the database
// stays the source of truth either way.
const balanceTTL = 5 * time.Minute

// BalanceCache is a redis read-through cache over profile balances. Only the
// read path goes through it; ledger mutations bypass it and invalidate the
// affected keys afterwards.
type BalanceCache struct {
	rdb   *redis.Client
	store *Store
}

func NewBalanceCache(rdb *redis.Client, store *Store) *BalanceCache {
	return &BalanceCache{rdb: rdb, store: store}
}

func balanceKey(profileID int64) string {
	return fmt.Sprintf("balance:%d", profileID)
}

// Balance implements service.BalanceView. Cache problems degrade to a
// database read, never to an error.
func (c *BalanceCache) Balance(ctx context.Context, profileID int64) (int64, error) {
	key := balanceKey(profileID)
	cached, err := c.rdb.Get(ctx, key).Int64()
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		slog.Warn("balance cache read failed", "profile_id", profileID, "error", err)
	}

	balance, err := c.store.ProfileBalance(ctx, profileID)
	if err != nil {
		return 0, err
	}
	if err := c.rdb.Set(ctx, key, balance, balanceTTL).Err(); err != nil {
		slog.Warn("balance cache write failed", "profile_id", profileID, "error", err)
	}
	return balance, nil
}

// Invalidate implements service.Invalidator.
func (c *BalanceCache) Invalidate(ctx context.Context, profileIDs ...int64) {
	keys := make([]string, len(profileIDs))
	for i, id := range profileIDs {
		keys[i] = balanceKey(id)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("balance cache invalidation failed", "profile_ids", profileIDs, "error", err)
	}
}
