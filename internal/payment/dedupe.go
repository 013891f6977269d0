package payment

import (
	"context"
	"time"

	"cryptopay/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Deduper short-circuits duplicate webhook deliveries with a Redis
// SETNX marker. It is an optimization only: a duplicate that slips
// through (Redis down, TTL elapsed) is still neutralized by the guarded
// status transition.
type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Deduper{rdb: rdb, ttl: ttl}
}

// Seen marks the delivery key and reports whether it was already
// marked. Fails open on Redis errors.
func (d *Deduper) Seen(ctx context.Context, key string) bool {
	if d == nil || d.rdb == nil {
		return false
	}

	set, err := d.rdb.SetNX(ctx, "webhook:"+key, 1, d.ttl).Result()
	if err != nil {
		logger.Warnf("webhook dedupe unavailable: %v", err)
		return false
	}
	return !set
}
