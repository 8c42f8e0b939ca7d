// Package cache provides an optional Redis result cache keyed by the
// patient snapshot hash. Evaluation is deterministic, so a cached
// result for an identical snapshot is exactly the result a fresh run
// would produce.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/medrx-safety-engine/internal/domain"
)

const keyPrefix = "medrx:eval:"

// ResultCache caches evaluation results in Redis.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

// NewResultCache connects to Redis and verifies connectivity.
func NewResultCache(ctx context.Context, redisURL string, ttl time.Duration, logger *logrus.Logger) (*ResultCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	logger.WithField("ttl", ttl).Info("Result cache connected")
	return &ResultCache{client: client, ttl: ttl, log: logger}, nil
}

// Get returns the cached result for a snapshot hash, or nil on miss.
// Cache errors degrade to a miss.
func (c *ResultCache) Get(ctx context.Context, snapshotHash string) *domain.EvaluationResult {
	raw, err := c.client.Get(ctx, keyPrefix+snapshotHash).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		c.log.WithError(err).Warn("Result cache read failed")
		return nil
	}

	result := &domain.EvaluationResult{}
	if err := json.Unmarshal(raw, result); err != nil {
		c.log.WithError(err).Warn("Result cache entry corrupt; treating as miss")
		return nil
	}
	return result
}

// Set stores a result under a snapshot hash. Best effort.
func (c *ResultCache) Set(ctx context.Context, snapshotHash string, result *domain.EvaluationResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		c.log.WithError(err).Warn("Result cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, keyPrefix+snapshotHash, payload, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("Result cache write failed")
	}
}

// Close releases the Redis connection.
func (c *ResultCache) Close() error {
	return c.client.Close()
}
