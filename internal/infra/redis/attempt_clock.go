package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptClock records contest attempt starts in Redis so every instance measures elapsed time
// from the same instant.
type AttemptClock struct {
	client *redis.Client
}

func NewAttemptClock(client *redis.Client) *AttemptClock {
	return &AttemptClock{client: client}
}

func (c *AttemptClock) MarkStarted(ctx context.Context, contestID, userID string, at, expiresAt time.Time) (time.Time, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return at, nil
	}
	key := c.key(contestID, userID)
	set, err := c.client.SetNX(ctx, key, at.UTC().Format(time.RFC3339Nano), ttl).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("record attempt start: %w", err)
	}
	if set {
		return at, nil
	}
	existing, ok, err := c.StartedAt(ctx, contestID, userID)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return at, nil
	}
	return existing, nil
}

func (c *AttemptClock) StartedAt(ctx context.Context, contestID, userID string) (time.Time, bool, error) {
	raw, err := c.client.Get(ctx, c.key(contestID, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read attempt start: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse attempt start: %w", err)
	}
	return at, true, nil
}

func (c *AttemptClock) key(contestID, userID string) string {
	return "contest:" + contestID + ":start:" + userID
}
