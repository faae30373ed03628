package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/srgjo27/bookingcore/internal/core/domain"
)

// AvailabilityCache keeps a short-lived copy of each event's capacity under
// seats:<event id>. The ledger deletes the key after every committed change.
type AvailabilityCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewAvailabilityCache(rdb redis.Cmdable, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{rdb: rdb, ttl: ttl}
}

func Key(eventID uuid.UUID) string {
	return fmt.Sprintf("seats:%s", eventID.String())
}

// Get returns nil without error on a cache miss.
func (c *AvailabilityCache) Get(ctx context.Context, eventID uuid.UUID) (*domain.Availability, error) {
	raw, err := c.rdb.Get(ctx, Key(eventID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var a domain.Availability
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("decode availability: %w", err)
	}

	return &a, nil
}

func (c *AvailabilityCache) Set(ctx context.Context, availability domain.Availability) error {
	b, err := json.Marshal(availability)
	if err != nil {
		return err
	}

	if err := c.rdb.Set(ctx, Key(availability.EventID), string(b), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

func (c *AvailabilityCache) Invalidate(ctx context.Context, eventID uuid.UUID) error {
	if err := c.rdb.Del(ctx, Key(eventID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}
