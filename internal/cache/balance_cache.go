package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segyhp/microloan-ledger/internal/domain"
	customError "github.com/segyhp/microloan-ledger/pkg/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ledger:balance:"

// BalanceCache stores derived balance summaries. It is never the source of
// truth; every mutation invalidates the entry for its loan.
type BalanceCache interface {
	Get(ctx context.Context, loanID uuid.UUID) (*domain.BalanceSummary, bool, error)
	Set(ctx context.Context, summary domain.BalanceSummary) error
	Invalidate(ctx context.Context, loanID uuid.UUID) error
}

type redisBalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisBalanceCache(client *redis.Client, ttl time.Duration) BalanceCache {
	return &redisBalanceCache{client: client, ttl: ttl}
}

func Key(loanID uuid.UUID) string {
	return keyPrefix + loanID.String()
}

func (c *redisBalanceCache) Get(ctx context.Context, loanID uuid.UUID) (*domain.BalanceSummary, bool, error) {
	raw, err := c.client.Get(ctx, Key(loanID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, customError.WrapCacheError(err)
	}

	var summary domain.BalanceSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		// A corrupt entry is treated as a miss and dropped.
		_ = c.client.Del(ctx, Key(loanID)).Err()
		return nil, false, nil
	}
	return &summary, true, nil
}

func (c *redisBalanceCache) Set(ctx context.Context, summary domain.BalanceSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return customError.WrapCacheError(err)
	}

	if err := c.client.Set(ctx, Key(summary.LoanID), raw, c.ttl).Err(); err != nil {
		return customError.WrapCacheError(err)
	}
	return nil
}

func (c *redisBalanceCache) Invalidate(ctx context.Context, loanID uuid.UUID) error {
	if err := c.client.Del(ctx, Key(loanID)).Err(); err != nil {
		return customError.WrapCacheError(err)
	}
	return nil
}
