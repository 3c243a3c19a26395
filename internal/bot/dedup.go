package bot

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper remembers webhook event ids so platform redeliveries do not
// execute a command twice.
type Deduper interface {
	// Seen marks the event id and reports whether it was already marked.
	Seen(ctx context.Context, eventID string) bool
}

type redisDeduper struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisDeduper builds a Redis-backed deduper. A Redis failure counts as
// not-seen: redelivered commands are idempotent-safe at the service layer
// (first-link-wins, transition preconditions), so processing again is the
// safer degradation.
func NewRedisDeduper(client *redis.Client, ttl time.Duration, logger *zap.Logger) Deduper {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &redisDeduper{client: client, ttl: ttl, logger: logger}
}

func (d *redisDeduper) Seen(ctx context.Context, eventID string) bool {
	if eventID == "" {
		return false
	}
	fresh, err := d.client.SetNX(ctx, "webhook:event:"+eventID, 1, d.ttl).Result()
	if err != nil {
		d.logger.Warn("webhook dedup unavailable", zap.Error(err))
		return false
	}
	return !fresh
}

type noopDeduper struct{}

// NewNoopDeduper builds a deduper that never suppresses events.
func NewNoopDeduper() Deduper {
	return noopDeduper{}
}

func (noopDeduper) Seen(context.Context, string) bool {
	return false
}
