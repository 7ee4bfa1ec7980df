package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces the budget counter keys.
const DefaultKeyPrefix = "dubkit:budget"

// windowTTL keeps a minute bucket alive long enough to serve late arrivals
// in its own window, then lets Redis reclaim it.
const windowTTL = 2 * time.Minute

// reserveScript performs the read-compare-increment across both counters as
// one atomic step. Returning early on either ceiling leaves both counters
// untouched, so a denied reservation has no side effects.
var reserveScript = redis.NewScript(`
local tokens = tonumber(ARGV[1])
local requests = tonumber(ARGV[2])
local token_cap = tonumber(ARGV[3])
local request_cap = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local used_tokens = tonumber(redis.call('GET', KEYS[1]) or '0')
local used_requests = tonumber(redis.call('GET', KEYS[2]) or '0')

if token_cap > 0 and used_tokens + tokens > token_cap then
	return 0
end
if request_cap > 0 and used_requests + requests > request_cap then
	return 0
end

redis.call('INCRBY', KEYS[1], tokens)
redis.call('INCRBY', KEYS[2], requests)
redis.call('EXPIRE', KEYS[1], ttl)
redis.call('EXPIRE', KEYS[2], ttl)
return 1
`)

// RedisStore keeps budget counters in Redis so ceilings hold across every
// process sharing the instance.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a store over the given client.
// An empty prefix uses DefaultKeyPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    windowTTL,
	}
}

// Reserve implements Store via a Lua script, so the compare and both
// increments execute atomically on the server.
func (s *RedisStore) Reserve(ctx context.Context, bucket int64, tokens, requests, tokenCeiling, requestCeiling int64) (bool, error) {
	keys := []string{
		fmt.Sprintf("%s:tokens:%d", s.prefix, bucket),
		fmt.Sprintf("%s:requests:%d", s.prefix, bucket),
	}
	res, err := reserveScript.Run(ctx, s.client, keys,
		tokens, requests, tokenCeiling, requestCeiling, int64(s.ttl.Seconds())).Int64()
	if err != nil {
		return false, fmt.Errorf("redis reserve: %w", err)
	}
	return res == 1, nil
}
