package otp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"stoop/pkg/platform/sentinel"
)

const keyPrefix = "otp:challenge:"

const (
	fieldCodeHash  = "code_hash"
	fieldIssuedAt  = "issued_at"
	fieldExpiresAt = "expires_at"
	fieldAttempts  = "attempts"
	fieldLocked    = "locked"
	fieldPrevHash  = "superseded_hashes"
)

// recordFailureScript increments attempts only while the challenge exists, so
// a failure racing with consumption or expiry never resurrects a hash
// without a TTL. Returns -1 when the key is gone.
var recordFailureScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return {-1, 0}
end
local n = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
local locked = 0
if n >= tonumber(ARGV[1]) then
	redis.call('HSET', KEYS[1], 'locked', '1')
	locked = 1
end
return {n, locked}
`)

var redisOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "stoop_otp_redis_op_duration_seconds",
	Help:    "Latency of OTP challenge operations against Redis",
	Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
}, []string{"op"})

// RedisStore keeps one hash per email with PEXPIREAT set to the challenge
// expiry.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func challengeKey(email string) string {
	return keyPrefix + email
}

func (s *RedisStore) Save(ctx context.Context, c *Challenge) error {
	defer observe("save", time.Now())
	key := challengeKey(c.Email)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key,
			fieldCodeHash, c.CodeHash,
			fieldIssuedAt, c.IssuedAt.UnixMilli(),
			fieldExpiresAt, c.ExpiresAt.UnixMilli(),
			fieldAttempts, c.Attempts,
			fieldLocked, boolField(c.Locked),
			fieldPrevHash, strings.Join(c.SupersededHashes, hashSeparator),
		)
		p.PExpireAt(ctx, key, c.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save otp challenge: %w", err)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, email string, now time.Time) (*Challenge, error) {
	defer observe("find", time.Now())
	fields, err := s.client.HGetAll(ctx, challengeKey(email)).Result()
	if err != nil {
		return nil, fmt.Errorf("load otp challenge: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("otp challenge not found: %w", sentinel.ErrNotFound)
	}
	c, err := decodeChallenge(email, fields)
	if err != nil {
		return nil, err
	}
	if c.IsExpired(now) {
		return nil, fmt.Errorf("otp challenge expired: %w", sentinel.ErrNotFound)
	}
	return c, nil
}

func (s *RedisStore) RecordFailure(ctx context.Context, email string, maxAttempts int) (int, bool, error) {
	defer observe("record_failure", time.Now())
	res, err := recordFailureScript.Run(ctx, s.client, []string{challengeKey(email)}, maxAttempts).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("record otp failure: %w", err)
	}
	if len(res) != 2 || res[0] < 0 {
		return 0, false, fmt.Errorf("otp challenge not found: %w", sentinel.ErrNotFound)
	}
	return int(res[0]), res[1] == 1, nil
}

// Consume deletes the challenge. Of two concurrent consumers only the one
// whose DEL removed the key succeeds.
func (s *RedisStore) Consume(ctx context.Context, email string) error {
	defer observe("consume", time.Now())
	n, err := s.client.Del(ctx, challengeKey(email)).Result()
	if err != nil {
		return fmt.Errorf("consume otp challenge: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("otp challenge already consumed: %w", sentinel.ErrAlreadyUsed)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, email string) error {
	defer observe("delete", time.Now())
	if err := s.client.Del(ctx, challengeKey(email)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete otp challenge: %w", err)
	}
	return nil
}

func decodeChallenge(email string, fields map[string]string) (*Challenge, error) {
	issued, err1 := strconv.ParseInt(fields[fieldIssuedAt], 10, 64)
	expires, err2 := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
	attempts, err3 := strconv.Atoi(fields[fieldAttempts])
	if err := errors.Join(err1, err2, err3); err != nil {
		return nil, fmt.Errorf("decode otp challenge: %w", err)
	}
	return &Challenge{
		Email:     email,
		CodeHash:  fields[fieldCodeHash],
		IssuedAt:  time.UnixMilli(issued).UTC(),
		ExpiresAt: time.UnixMilli(expires).UTC(),
		Attempts:  attempts,
		Locked:    fields[fieldLocked] == "1",

		SupersededHashes: splitHashes(fields[fieldPrevHash]),
	}, nil
}

// hashSeparator joins superseded hashes; hex digests never contain it.
const hashSeparator = ","

func splitHashes(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, hashSeparator)
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func observe(op string, start time.Time) {
	redisOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
