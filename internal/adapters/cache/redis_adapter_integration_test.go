//go:build integration

package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundbrave/search-service/internal/domain/providers"
	redisclient "github.com/fundbrave/search-service/internal/infrastructure/clients/redis"
)

func newIntegrationAdapter(t *testing.T) providers.CacheProvider {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() {
		_ = rdb.FlushDB(context.Background()).Err()
		_ = rdb.Close()
	})
	return NewRedisAdapter(redisclient.NewClientFromRedis(rdb))
}

func TestRedisAdapter_RoundTripAndMiss(t *testing.T) {
	adapter := newIntegrationAdapter(t)
	ctx := context.Background()

	_, err := adapter.Get(ctx, "search:v1:missing")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)

	require.NoError(t, adapter.Set(ctx, "search:v1:k", []byte(`{"totals":{}}`), time.Minute))
	got, err := adapter.Get(ctx, "search:v1:k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"totals":{}}`, string(got))
}

func TestRedisAdapter_DeletePatternScansAllPages(t *testing.T) {
	adapter := newIntegrationAdapter(t)
	ctx := context.Background()

	for i := 0; i < 3*scanBatch; i++ {
		require.NoError(t, adapter.Set(ctx, fmt.Sprintf("search:v1:%d", i), []byte("x"), time.Minute))
	}
	require.NoError(t, adapter.Set(ctx, "search:trending:v1", []byte("x"), time.Minute))

	require.NoError(t, adapter.DeletePattern(ctx, "search:v1:*"))

	_, err := adapter.Get(ctx, "search:v1:42")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
	_, err = adapter.Get(ctx, "search:trending:v1")
	assert.NoError(t, err)
}
