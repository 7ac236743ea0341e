package redis

import (
	"context"
	"sync"
	"time"

	"github.com/devtrophies/trophies/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST LIMITING
// ══════════════════════════════════════════════════════════════════════════════

// Decision is the outcome of one limiter check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int

	// RetryAfter is set when the request was rejected.
	RetryAfter time.Duration
}

// RequestLimiter decides whether a caller may issue another request.
type RequestLimiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Redis fixed window
// ─────────────────────────────────────────────────────────────────────────────

// RedisLimiter counts requests per key in fixed windows. Counters live in
// Redis so all instances share one budget.
type RedisLimiter struct {
	client *Client
	limit  int
	window time.Duration
	action string
	clock  timeutil.Clock
}

// NewRedisLimiter creates a limiter allowing limit requests per window.
func NewRedisLimiter(client *Client, limit int, window time.Duration, clock timeutil.Clock) *RedisLimiter {
	if clock == nil {
		clock = timeutil.SystemClock()
	}
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		action: "trophies",
		clock:  clock,
	}
}

// Allow implements RequestLimiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.clock.Now()
	windowIdx := now.UnixNano() / int64(l.window)
	counterKey := RateLimitKey(key, l.action, windowIdx)

	n, err := l.client.Incr(ctx, counterKey)
	if err != nil {
		return Decision{}, err
	}
	if n == 1 {
		// Twice the window so a slow clock on another instance still finds the key.
		if err := l.client.Expire(ctx, counterKey, 2*l.window); err != nil {
			return Decision{}, err
		}
	}

	if int(n) > l.limit {
		windowEnd := time.Unix(0, (windowIdx+1)*int64(l.window))
		return Decision{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			RetryAfter: windowEnd.Sub(now),
		}, nil
	}

	return Decision{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - int(n),
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// In-memory sliding window
// ─────────────────────────────────────────────────────────────────────────────

// MemoryLimiter keeps request timestamps per key in process memory.
type MemoryLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	clock    timeutil.Clock

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryLimiter creates an in-process limiter. Call Close to stop the
// background cleanup.
func NewMemoryLimiter(limit int, window time.Duration, clock timeutil.Clock) *MemoryLimiter {
	if clock == nil {
		clock = timeutil.SystemClock()
	}
	ml := &MemoryLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		clock:    clock,
		stop:     make(chan struct{}),
	}

	go ml.cleanupLoop()

	return ml
}

// Allow implements RequestLimiter. It never fails.
func (ml *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := ml.clock.Now()
	valid := ml.prune(ml.requests[key], now)

	if len(valid) >= ml.limit {
		ml.requests[key] = valid
		return Decision{
			Allowed:    false,
			Limit:      ml.limit,
			Remaining:  0,
			RetryAfter: valid[0].Add(ml.window).Sub(now),
		}, nil
	}

	ml.requests[key] = append(valid, now)
	return Decision{
		Allowed:   true,
		Limit:     ml.limit,
		Remaining: ml.limit - len(valid) - 1,
	}, nil
}

// Close stops the cleanup goroutine.
func (ml *MemoryLimiter) Close() {
	ml.stopOnce.Do(func() { close(ml.stop) })
}

// prune drops timestamps that left the window. Input is sorted ascending.
func (ml *MemoryLimiter) prune(requests []time.Time, now time.Time) []time.Time {
	windowStart := now.Add(-ml.window)
	i := 0
	for i < len(requests) && !requests[i].After(windowStart) {
		i++
	}
	return requests[i:]
}

func (ml *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ml.stop:
			return
		case <-ticker.C:
			ml.sweep()
		}
	}
}

func (ml *MemoryLimiter) sweep() {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := ml.clock.Now()
	for key, requests := range ml.requests {
		valid := ml.prune(requests, now)
		if len(valid) == 0 {
			delete(ml.requests, key)
		} else {
			ml.requests[key] = valid
		}
	}
}
