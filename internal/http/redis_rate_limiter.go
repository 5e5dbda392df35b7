package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "buildlog:ratelimit:"
	redisCallTimeout = 250 * time.Millisecond
	redisDialTimeout = 2 * time.Second
)

// fixedWindowScript increments the window counter and starts its expiry on
// the first hit. It returns the new count and the remaining TTL in ms.
var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// redisRateLimiter shares windows between server replicas.
type redisRateLimiter struct {
	client redis.Scripter
	closer func() error
	logger *slog.Logger
	now    func() time.Time
}

// NewRedisRateLimiter connects to addr and verifies it answers PING.
func NewRedisRateLimiter(addr, password string, db int, logger *slog.Logger) (RateLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: redisDialTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("using redis rate limiter", "addr", addr, "db", db)
	return &redisRateLimiter{client: client, closer: client.Close, logger: logger, now: time.Now}, nil
}

// Allow lets the request through when Redis misbehaves.
func (rl *redisRateLimiter) Allow(key string, limit int, window time.Duration) rateDecision {
	if limit <= 0 {
		return rateDecision{allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisCallTimeout)
	defer cancel()

	res, err := fixedWindowScript.Run(ctx, rl.client, []string{redisKeyPrefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		rl.logger.Error("redis rate limiter unavailable, allowing request", "key", key, "error", err)
		return rateDecision{allowed: true}
	}
	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	if ttl <= 0 {
		ttl = window
	}
	return rateDecision{
		allowed:   count <= limit,
		count:     count,
		windowEnd: rl.now().Add(ttl),
	}
}

func (rl *redisRateLimiter) Close() {
	if rl.closer != nil {
		_ = rl.closer()
	}
}
