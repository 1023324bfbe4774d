package geo

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores suggestion lists by normalized query.
type Cache interface {
	Get(ctx context.Context, query string) ([]AddressCandidate, bool, error)
	Set(ctx context.Context, query string, candidates []AddressCandidate) error
}

const cacheKeyPrefix = "geo:suggest:"

// RedisCache keeps suggestion lists as JSON strings with a TTL.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, query string) ([]AddressCandidate, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(query)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read suggestion cache: %w", err)
	}
	var out []AddressCandidate
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, fmt.Errorf("decode suggestion cache: %w", err)
	}
	return out, true, nil
}

func (c *RedisCache) Set(ctx context.Context, query string, candidates []AddressCandidate) error {
	raw, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("encode suggestion cache: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(query), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write suggestion cache: %w", err)
	}
	return nil
}

// cacheKey hashes the folded query so arbitrary user text never becomes part
// of a Redis key.
func cacheKey(query string) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.Join(strings.Fields(query), " "))))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
