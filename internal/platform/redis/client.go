// Package redis opens the shared Redis connection behind the OTP challenge
// store, the send throttle and the suggestion cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"stoop/internal/platform/config"
)

const healthTimeout = 2 * time.Second

// Client owns the connection pool. Stores take Client.Client so they can be
// handed a miniredis or cluster client in tests.
type Client struct {
	Client redis.UniversalClient
	pool   *redis.Client
}

// New connects to Redis. It returns nil, nil when no URL is configured so the
// caller can fall back to in-memory stores.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	pool := redis.NewClient(opts)
	if err := pool.Ping(ctx).Err(); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return &Client{Client: pool, pool: pool}, nil
}

// Health pings with its own short deadline so a hung Redis cannot stall the
// /health handler.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if err := c.pool.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// RegisterPoolMetrics exports connection pool usage, read on scrape.
func (c *Client) RegisterPoolMetrics(reg prometheus.Registerer) {
	factory := promauto.With(reg)
	gauge := func(name, help string, read func(*redis.PoolStats) uint32) {
		factory.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			return float64(read(c.pool.PoolStats()))
		})
	}
	gauge("stoop_redis_pool_total_conns", "Open connections in the Redis pool",
		func(s *redis.PoolStats) uint32 { return s.TotalConns })
	gauge("stoop_redis_pool_idle_conns", "Idle connections in the Redis pool",
		func(s *redis.PoolStats) uint32 { return s.IdleConns })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "stoop_redis_pool_timeouts_total",
		Help: "Times a caller waited for a pooled connection and gave up",
	}, func() float64 {
		return float64(c.pool.PoolStats().Timeouts)
	})
}

func (c *Client) Close() error {
	return c.pool.Close()
}
