package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MikeSquared-Agency/CrewMatch/internal/metrics"
	"github.com/MikeSquared-Agency/CrewMatch/internal/store"
)

const rosterKey = "crewmatch:roster:v1"

// RosterCache serves a JSON snapshot of the roster from Redis and refills
// it from the wrapped source on a miss. Redis failures degrade to the source.
type RosterCache struct {
	source store.RosterSource
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRosterCache(source store.RosterSource, client *redis.Client, ttl time.Duration, logger *slog.Logger) *RosterCache {
	return &RosterCache{source: source, redis: client, ttl: ttl, logger: logger}
}

func (c *RosterCache) ListWorkers(ctx context.Context) ([]store.Worker, error) {
	raw, err := c.redis.Get(ctx, rosterKey).Bytes()
	switch {
	case err == nil:
		var workers []store.Worker
		jerr := json.Unmarshal(raw, &workers)
		if jerr == nil {
			metrics.RosterCache.WithLabelValues("hit").Inc()
			return workers, nil
		}
		metrics.RosterCache.WithLabelValues("error").Inc()
		c.logger.Warn("discarding corrupt roster snapshot", "error", jerr)
	case errors.Is(err, redis.Nil):
		metrics.RosterCache.WithLabelValues("miss").Inc()
	default:
		metrics.RosterCache.WithLabelValues("error").Inc()
		c.logger.Warn("roster cache read failed", "error", err)
	}

	workers, err := c.source.ListWorkers(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, workers)
	return workers, nil
}

func (c *RosterCache) store(ctx context.Context, workers []store.Worker) {
	payload, err := json.Marshal(workers)
	if err != nil {
		c.logger.Warn("encode roster snapshot", "error", err)
		return
	}
	if err := c.redis.Set(ctx, rosterKey, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("roster cache write failed", "error", err)
	}
}

// Invalidate drops the snapshot so the next read goes to the source.
func (c *RosterCache) Invalidate(ctx context.Context) error {
	if err := c.redis.Del(ctx, rosterKey).Err(); err != nil {
		return fmt.Errorf("invalidate roster cache: %w", err)
	}
	return nil
}
