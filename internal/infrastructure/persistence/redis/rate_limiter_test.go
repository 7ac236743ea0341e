package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devtrophies/trophies/pkg/timeutil"
)

func TestMemoryLimiter_Window(t *testing.T) {
	clock := timeutil.NewFixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ml := NewMemoryLimiter(2, time.Minute, clock)
	t.Cleanup(ml.Close)

	ctx := context.Background()

	d, err := ml.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	clock.Advance(10 * time.Second)
	d, _ = ml.Allow(ctx, "10.0.0.1")
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, _ = ml.Allow(ctx, "10.0.0.1")
	assert.False(t, d.Allowed)
	assert.Equal(t, 50*time.Second, d.RetryAfter)

	// Keys are counted independently
	d, _ = ml.Allow(ctx, "10.0.0.2")
	assert.True(t, d.Allowed)

	// The first request has left the window
	clock.Advance(50 * time.Second)
	d, _ = ml.Allow(ctx, "10.0.0.1")
	assert.True(t, d.Allowed)
}

func TestMemoryLimiter_Sweep(t *testing.T) {
	clock := timeutil.NewFixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ml := NewMemoryLimiter(5, time.Minute, clock)
	t.Cleanup(ml.Close)

	_, _ = ml.Allow(context.Background(), "a")
	_, _ = ml.Allow(context.Background(), "b")

	clock.Advance(2 * time.Minute)
	ml.sweep()

	ml.mu.Lock()
	defer ml.mu.Unlock()
	assert.Empty(t, ml.requests)
}

func TestMemoryLimiter_CloseIsIdempotent(t *testing.T) {
	ml := NewMemoryLimiter(1, time.Second, nil)
	ml.Close()
	ml.Close()
}

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "ratelimit:trophies:1.2.3.4:42", RateLimitKey("1.2.3.4", "trophies", 42))
}

func TestConfig_OptionsFromURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "redis://:pw@cache.internal:6380/3"

	opts, err := cfg.options()
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, cfg.PoolSize, opts.PoolSize)
}

func TestRedisLimiter_ConnectionError(t *testing.T) {
	raw := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = raw.Close() })

	l := NewRedisLimiter(NewClientFrom(raw), 10, time.Minute, nil)
	_, err := l.Allow(context.Background(), "10.0.0.1")
	assert.Error(t, err)
}

// TestRedisLimiter_Integration needs a live server: REDIS_TEST_ADDR=localhost:6379.
func TestRedisLimiter_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	cfg := DefaultConfig()
	cfg.URL = "redis://" + addr
	client, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLimiter(client, 2, time.Minute, nil)
	key := uuid.NewString()

	for i := 0; i < 2; i++ {
		d, err := l.Allow(context.Background(), key)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	d, err := l.Allow(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Positive(t, d.RetryAfter)
}
