package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// BalanceCache is a read-through Redis cache for account balances. Postgres
// stays the source of truth; the ledger deletes the key after every write so
// the next read warms it back up.
type BalanceCache struct {
	rdb *redis.Client
}

func NewBalanceCache(rdb *redis.Client) *BalanceCache {
	return &BalanceCache{rdb: rdb}
}

var errCacheMiss = errors.New("balance not found in cache")

func balanceKey(accountID uuid.UUID) string {
	return fmt.Sprintf("balance:%s", accountID)
}

func (c *BalanceCache) Get(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	if c == nil || c.rdb == nil {
		return decimal.Zero, errCacheMiss
	}
	val, err := c.rdb.Get(ctx, balanceKey(accountID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, errCacheMiss
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(val)
}

// Set stores the balance without a TTL; invalidation is explicit.
func (c *BalanceCache) Set(ctx context.Context, accountID uuid.UUID, balance decimal.Decimal) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Set(ctx, balanceKey(accountID), balance.String(), 0).Err()
}

func (c *BalanceCache) Invalidate(ctx context.Context, accountIDs ...uuid.UUID) {
	if c == nil || c.rdb == nil {
		return
	}
	keys := make([]string, 0, len(accountIDs))
	for _, id := range accountIDs {
		keys = append(keys, balanceKey(id))
	}
	_ = c.rdb.Del(ctx, keys...).Err()
}
