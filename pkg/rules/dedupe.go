package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper claims (event, rule) pairs so redelivered events do not run a
// rule twice. Claim reports true for the first claim only.
type Deduper interface {
	Claim(ctx context.Context, eventID, ruleID string) (bool, error)
}

// SetNXer is the slice of the Redis client RedisDeduper needs.
type SetNXer interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

const DefaultDedupeTTL = 24 * time.Hour

// RedisDeduper claims pairs with SET NX, so every instance sharing the Redis
// sees the same claims.
type RedisDeduper struct {
	client SetNXer
	prefix string
	ttl    time.Duration
}

func NewRedisDeduper(client SetNXer, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = DefaultDedupeTTL
	}

	return &RedisDeduper{client: client, prefix: "supplyflow:dedupe:", ttl: ttl}
}

func (d *RedisDeduper) Claim(ctx context.Context, eventID, ruleID string) (bool, error) {
	claimed, err := d.client.SetNX(ctx, d.prefix+eventID+":"+ruleID, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %s/%s: %w", eventID, ruleID, err)
	}

	return claimed, nil
}
