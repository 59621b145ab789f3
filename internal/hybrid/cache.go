package hybrid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	availabilityKeyPrefix = "chat:provider:available:"
	healthKey             = "chat:health:status"
)

// StatusCache keeps provider availability and health reports in Redis so
// workers on different hosts share probe results.
type StatusCache struct {
	rdb redis.Cmdable
}

func NewStatusCache(rdb redis.Cmdable) *StatusCache {
	return &StatusCache{rdb: rdb}
}

func (c *StatusCache) GetAvailability(ctx context.Context, provider string) (bool, bool, error) {
	val, err := c.rdb.Get(ctx, availabilityKeyPrefix+provider).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("get availability %s: %w", provider, err)
	}
	return val == "1", true, nil
}

func (c *StatusCache) SetAvailability(ctx context.Context, provider string, available bool, ttl time.Duration) error {
	val := "0"
	if available {
		val = "1"
	}
	if err := c.rdb.Set(ctx, availabilityKeyPrefix+provider, val, ttl).Err(); err != nil {
		return fmt.Errorf("set availability %s: %w", provider, err)
	}
	return nil
}

func (c *StatusCache) ClearAvailability(ctx context.Context, provider string) error {
	if err := c.rdb.Del(ctx, availabilityKeyPrefix+provider).Err(); err != nil {
		return fmt.Errorf("clear availability %s: %w", provider, err)
	}
	return nil
}

func (c *StatusCache) GetHealth(ctx context.Context) (*HealthStatus, bool, error) {
	data, err := c.rdb.Get(ctx, healthKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get health status: %w", err)
	}
	var status HealthStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, false, fmt.Errorf("decode health status: %w", err)
	}
	return &status, true, nil
}

func (c *StatusCache) SetHealth(ctx context.Context, status *HealthStatus, ttl time.Duration) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode health status: %w", err)
	}
	if err := c.rdb.Set(ctx, healthKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("set health status: %w", err)
	}
	return nil
}
