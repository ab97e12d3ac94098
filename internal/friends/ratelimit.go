package friends

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Limiter bounds friend-request attempts per ordered (from, to) pair with a
// sliding window. Every attempt counts, including ones the protocol rejects.
type Limiter interface {
	// Allow records an attempt and reports whether it is within the limit.
	Allow(ctx context.Context, fromID, toID string) (bool, error)
}

// MemoryLimiter keeps sliding windows in process memory.
type MemoryLimiter struct {
	window time.Duration
	max    int
	mu     sync.Mutex
	hits   map[string][]time.Time
	now    func() time.Time
}

// NewMemoryLimiter creates an in-memory sliding-window limiter.
func NewMemoryLimiter(window time.Duration, max int) *MemoryLimiter {
	return &MemoryLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, fromID, toID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := fromID + ":" + toID
	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.hits[key][:0]
	for _, ts := range l.hits[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	l.hits[key] = kept

	return len(kept) <= l.max, nil
}

// RedisLimiter keeps sliding windows in a Redis sorted set so the limit
// holds across instances. Redis errors fail open with a warning; rate
// limiting is protection, not a dependency.
type RedisLimiter struct {
	client *redis.Client
	window time.Duration
	max    int
	logger zerolog.Logger
}

// NewRedisLimiter creates a Redis-backed sliding-window limiter.
func NewRedisLimiter(client *redis.Client, window time.Duration, max int, logger zerolog.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		window: window,
		max:    max,
		logger: logger,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, fromID, toID string) (bool, error) {
	key := fmt.Sprintf("friendreq:rate:%s:%s", fromID, toID)
	now := time.Now()
	cutoff := strconv.FormatInt(now.Add(-l.window).UnixNano(), 10)
	member := strconv.FormatInt(now.UnixNano(), 10)

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", cutoff)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn().Err(err).Str("from", fromID).Str("to", toID).Msg("rate limiter unavailable, allowing")
		return true, nil
	}

	return count.Val() <= int64(l.max), nil
}
