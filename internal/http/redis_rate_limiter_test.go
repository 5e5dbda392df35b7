package httpx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// scriptStub answers EVALSHA with an in-memory counter.
type scriptStub struct {
	counts map[string]int64
	err    error
	keys   []string
	args   []interface{}
}

func (s *scriptStub) run(ctx context.Context, keys []string, args ...interface{}) *redis.Cmd {
	cmd := redis.NewCmd(ctx)
	if s.err != nil {
		cmd.SetErr(s.err)
		return cmd
	}
	s.keys, s.args = keys, args
	s.counts[keys[0]]++
	cmd.SetVal([]interface{}{s.counts[keys[0]], int64(30000)})
	return cmd
}

func (s *scriptStub) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	return s.run(ctx, keys, args...)
}

func (s *scriptStub) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	return s.run(ctx, keys, args...)
}

func (s *scriptStub) EvalRO(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	return s.run(ctx, keys, args...)
}

func (s *scriptStub) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	return s.run(ctx, keys, args...)
}

func (s *scriptStub) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceCmd(ctx)
}

func (s *scriptStub) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	return redis.NewStringCmd(ctx)
}

func TestRedisRateLimiterCountsWindow(t *testing.T) {
	stub := &scriptStub{counts: map[string]int64{}}
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	rl := &redisRateLimiter{client: stub, logger: slog.New(slog.NewTextHandler(io.Discard, nil)), now: func() time.Time { return now }}

	first := rl.Allow("ai|user:u1", 2, time.Minute)
	if !first.allowed || first.count != 1 || !first.windowEnd.Equal(now.Add(30*time.Second)) {
		t.Fatalf("unexpected first decision %+v", first)
	}
	if stub.keys[0] != "buildlog:ratelimit:ai|user:u1" || stub.args[0] != int64(60000) {
		t.Fatalf("unexpected script call keys=%v args=%v", stub.keys, stub.args)
	}
	rl.Allow("ai|user:u1", 2, time.Minute)
	if third := rl.Allow("ai|user:u1", 2, time.Minute); third.allowed || third.count != 3 {
		t.Fatalf("third request should be rejected, got %+v", third)
	}
}

func TestRedisRateLimiterFailsOpen(t *testing.T) {
	stub := &scriptStub{err: errors.New("connection refused")}
	rl := &redisRateLimiter{client: stub, logger: slog.New(slog.NewTextHandler(io.Discard, nil)), now: time.Now}
	if d := rl.Allow("login|ip:1.2.3.4", 1, time.Minute); !d.allowed {
		t.Fatalf("redis errors must not block requests")
	}
	rl.Close()
}
