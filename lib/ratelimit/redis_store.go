package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript performs the refill-and-debit as one atomic operation inside
// Redis. Denials do not write state back, so a failed check never puts the
// bucket into debt. Keys expire after roughly two full refill periods to
// bound growth for idle tenants.
//
// KEYS[1] bucket key
// ARGV[1] now (unix milliseconds)
// ARGV[2] capacity
// ARGV[3] refill rate (tokens per second)
// ARGV[4] cost
var takeScript = redis.NewScript(`
local bucket = redis.call('HMGET', KEYS[1], 'tokens', 'lastRefill')
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refillRate = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])

local tokens = tonumber(bucket[1]) or capacity
local lastRefill = tonumber(bucket[2]) or now

local elapsed = math.max(0, now - lastRefill) / 1000
tokens = math.min(capacity, tokens + elapsed * refillRate)

if tokens >= cost then
  tokens = tokens - cost
  redis.call('HMSET', KEYS[1], 'tokens', tokens, 'lastRefill', now)
  redis.call('EXPIRE', KEYS[1], math.ceil(capacity / refillRate) * 2)
  return {1, tostring(tokens)}
end
return {0, tostring(tokens)}
`)

// RedisStore shares bucket state across gateway processes.
type RedisStore struct {
	client redis.Scripter
}

func NewRedisStore(client redis.Scripter) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Take(ctx context.Context, key string, capacity int, refillRate float64, cost float64, now time.Time) (float64, bool, error) {
	result, err := takeScript.Run(ctx, s.client, []string{key},
		now.UnixMilli(),
		capacity,
		refillRate,
		cost,
	).Slice()
	if err != nil {
		return 0, false, err
	}
	if len(result) != 2 {
		return 0, false, fmt.Errorf("ratelimit: unexpected script reply %v", result)
	}

	allowed, ok := result[0].(int64)
	if !ok {
		return 0, false, fmt.Errorf("ratelimit: unexpected allowed flag %T", result[0])
	}
	raw, ok := result[1].(string)
	if !ok {
		return 0, false, fmt.Errorf("ratelimit: unexpected token count %T", result[1])
	}
	tokens, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, err
	}

	return tokens, allowed == 1, nil
}
