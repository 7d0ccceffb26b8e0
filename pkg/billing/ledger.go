package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// EventLedger remembers which webhook events were already processed
type EventLedger interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// RedisEventLedger stores processed event ids in Redis with a TTL
type RedisEventLedger struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisEventLedger creates a ledger; ttl bounds how long ids are remembered
func NewRedisEventLedger(client *redis.Client, ttl time.Duration) *RedisEventLedger {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisEventLedger{
		redis:  client,
		ttl:    ttl,
		prefix: "solvenote:webhook:event",
	}
}

// Seen reports whether eventID was marked processed
func (l *RedisEventLedger) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := l.redis.Exists(ctx, l.key(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check event ledger: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed records eventID
func (l *RedisEventLedger) MarkProcessed(ctx context.Context, eventID string) error {
	if err := l.redis.SetNX(ctx, l.key(eventID), time.Now().Unix(), l.ttl).Err(); err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

func (l *RedisEventLedger) key(eventID string) string {
	return l.prefix + ":" + eventID
}

// NopEventLedger never reports duplicates. Used when Redis is disabled.
type NopEventLedger struct{}

// Seen always reports false
func (NopEventLedger) Seen(context.Context, string) (bool, error) { return false, nil }

// MarkProcessed does nothing
func (NopEventLedger) MarkProcessed(context.Context, string) error { return nil }
