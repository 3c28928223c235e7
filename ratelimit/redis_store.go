package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// Consumes atomically: INCRBY first, undo when the window would overflow, so
// concurrent callers can never overshoot the capacity.
// KEYS[1] window key, ARGV[1] tokens, ARGV[2] period millis, ARGV[3] capacity.
const takeScript = `
local count = redis.call('INCRBY', KEYS[1], ARGV[1])
if count == tonumber(ARGV[1]) then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
if count > tonumber(ARGV[3]) then
  redis.call('DECRBY', KEYS[1], ARGV[1])
  local ttl = redis.call('PTTL', KEYS[1])
  if ttl < 0 then
    ttl = tonumber(ARGV[2])
  end
  return {0, ttl}
end
return {1, 0}
`

// KEYS[1] window key, ARGV[1] tokens, ARGV[2] capacity, ARGV[3] period millis.
const peekScript = `
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
if count + tonumber(ARGV[1]) > tonumber(ARGV[2]) then
  local ttl = redis.call('PTTL', KEYS[1])
  if ttl < 0 then
    ttl = tonumber(ARGV[3])
  end
  return {0, ttl}
end
return {1, 0}
`

/*
RedisStore is the fixed-window backend for deployments that want limiter
state off the database. Windows are aligned to epoch boundaries and expire on
their own, there is nothing to migrate or clean up. Unlike GormStore it
cannot join a database transaction, so tokens taken by a mutation that later
fails stay consumed until the window rolls.
*/
type RedisStore struct {
	client *redis.Client
	take   *redis.Script
	peek   *redis.Script
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		take:   redis.NewScript(takeScript),
		peek:   redis.NewScript(peekScript),
	}
}

func (s *RedisStore) Take(ctx context.Context, def Definition, key string, n int, now time.Time) (Result, error) {
	res, err := s.take.Run(ctx, s.client, []string{s.windowKey(def, key, now)},
		n, def.Period.Milliseconds(), def.Rate).Result()
	if err != nil {
		return Result{}, errors.Wrap(err, "rate limit take script failed")
	}
	return parseScriptResult(res)
}

func (s *RedisStore) Peek(ctx context.Context, def Definition, key string, n int, now time.Time) (Result, error) {
	res, err := s.peek.Run(ctx, s.client, []string{s.windowKey(def, key, now)},
		n, def.Rate, def.Period.Milliseconds()).Result()
	if err != nil {
		return Result{}, errors.Wrap(err, "rate limit peek script failed")
	}
	return parseScriptResult(res)
}

func (s *RedisStore) windowKey(def Definition, key string, now time.Time) string {
	idx := now.UnixMilli() / def.Period.Milliseconds()
	return fmt.Sprintf("rl:%s:%s:%d", def.Name, key, idx)
}

func parseScriptResult(res interface{}) (Result, error) {
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return Result{}, errors.Errorf("unexpected rate limit script result: %v", res)
	}
	allowed, _ := vals[0].(int64)
	ttl, _ := vals[1].(int64)
	if allowed == 1 {
		return Result{Ok: true}, nil
	}
	return Result{RetryAfter: time.Duration(ttl) * time.Millisecond}, nil
}
