package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/segyhp/microloan-ledger/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping Redis integration test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { client.Close() })
	return client
}

func TestKey(t *testing.T) {
	id := uuid.MustParse("3f1c2b4a-0000-4000-8000-000000000001")
	assert.Equal(t, "ledger:balance:3f1c2b4a-0000-4000-8000-000000000001", Key(id))
}

func TestRedisBalanceCache_RoundTrip(t *testing.T) {
	client := openTestRedis(t)
	ctx := context.Background()
	c := NewRedisBalanceCache(client, time.Minute)

	summary := domain.BalanceSummary{
		LoanID:      uuid.New(),
		Status:      domain.LoanStatusActive,
		TotalDue:    decimal.NewFromInt(11000),
		TotalPaid:   decimal.NewFromInt(4000),
		Outstanding: decimal.NewFromInt(7000),
	}

	_, ok, err := c.Get(ctx, summary.LoanID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, summary))
	got, ok, err := c.Get(ctx, summary.LoanID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Outstanding.Equal(summary.Outstanding))
	assert.Equal(t, summary.Status, got.Status)

	require.NoError(t, c.Invalidate(ctx, summary.LoanID))
	_, ok, err = c.Get(ctx, summary.LoanID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisBalanceCache_CorruptEntryIsMiss(t *testing.T) {
	client := openTestRedis(t)
	ctx := context.Background()
	c := NewRedisBalanceCache(client, time.Minute)
	id := uuid.New()

	require.NoError(t, client.Set(ctx, Key(id), "not json", time.Minute).Err())

	_, ok, err := c.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(0), client.Exists(ctx, Key(id)).Val())
}
