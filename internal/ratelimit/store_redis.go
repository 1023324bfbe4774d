package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// slidingWindowScript trims every window, rejects without recording when
// any key is at the limit, and otherwise adds the hit to all keys. Returns
// {allowed, count, oldest_ms} for the rejecting or most used key.
var slidingWindowScript = redis.NewScript(`
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])
local member = ARGV[4]

local function oldest(key)
  local first = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
  if first[2] then
    return tonumber(first[2])
  end
  return now
end

for _, key in ipairs(KEYS) do
  redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
  local count = redis.call("ZCARD", key)
  if count >= limit then
    return {0, count, oldest(key)}
  end
end

local maxCount = 0
local oldestMs = now
for _, key in ipairs(KEYS) do
  redis.call("ZADD", key, now, member)
  redis.call("PEXPIRE", key, window)
  local count = redis.call("ZCARD", key)
  if count > maxCount then
    maxCount = count
    oldestMs = oldest(key)
  end
end
return {1, maxCount, oldestMs}
`)

// Redis is a sliding window shared by every replica, one sorted set per key.
type Redis struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client, now: time.Now}
}

// Allow evaluates every key in one script. Keys are hash-tagged by scope so a
// cluster routes them to the same slot.
func (s *Redis) Allow(ctx context.Context, keys []string, rule Rule) (Result, error) {
	if len(keys) == 0 {
		return Result{Allowed: true, Remaining: rule.Limit, Limit: rule.Limit}, nil
	}
	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = redisKey(k)
	}
	now := s.now()
	vals, err := slidingWindowScript.Run(ctx, s.client, redisKeys,
		now.UnixMilli(),
		rule.Window.Milliseconds(),
		rule.Limit,
		strconv.FormatInt(now.UnixNano(), 10)+"-"+uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit %s: %w", strings.Join(keys, ","), err)
	}
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("rate limit %s: unexpected reply %v", strings.Join(keys, ","), vals)
	}

	res := Result{
		Allowed: vals[0] == 1,
		ResetAt: time.UnixMilli(vals[2]).Add(rule.Window),
		Limit:   rule.Limit,
	}
	if res.Allowed {
		res.Remaining = rule.Limit - int(vals[1])
	}
	return res, nil
}

func (s *Redis) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisKey(key)).Err()
}

// redisKey wraps the scope segment in a hash tag: "send-otp:ip_1" becomes
// "ratelimit:{send-otp}:ip_1".
func redisKey(key string) string {
	scope, rest, ok := strings.Cut(key, ":")
	if !ok {
		return keyPrefix + "{" + key + "}"
	}
	return keyPrefix + "{" + scope + "}:" + rest
}
