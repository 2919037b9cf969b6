package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const eventKeyPrefix = "webhook:event:"

// EventLedger remembers provider event ids that were already fulfilled.
type EventLedger interface {
	// Seen reports whether eventID was recorded and has not expired.
	Seen(ctx context.Context, eventID string) (bool, error)
	// Record marks eventID as fulfilled for the ledger's TTL.
	Record(ctx context.Context, eventID string) error
}

type RedisEventLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisEventLedger keeps ids for ttl; providers stop redelivering after a few days.
func NewRedisEventLedger(client *redis.Client, ttl time.Duration) *RedisEventLedger {
	return &RedisEventLedger{client: client, ttl: ttl}
}

func (l *RedisEventLedger) Seen(ctx context.Context, eventID string) (bool, error) {
	err := l.client.Get(ctx, eventKeyPrefix+eventID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (l *RedisEventLedger) Record(ctx context.Context, eventID string) error {
	return l.client.SetNX(ctx, eventKeyPrefix+eventID, time.Now().UTC().Format(time.RFC3339), l.ttl).Err()
}
