package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotKey is the base key the offer snapshot is stored under.
const SnapshotKey = "offers:snapshot"

// JSON wraps Redis helpers for JSON payloads.
type JSON struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewJSON constructs a cache helper. Keys are namespaced with prefix when it is
// not empty.
func NewJSON(client redis.UniversalClient, prefix string, ttl time.Duration) *JSON {
	return &JSON{client: client, prefix: prefix, ttl: ttl}
}

// Key returns base namespaced with the configured prefix.
func (c *JSON) Key(base string) string {
	if c == nil || c.prefix == "" {
		return base
	}
	return c.prefix + ":" + base
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *JSON) GetJSON(ctx context.Context, base string, dst any) (bool, error) {
	if c == nil || c.client == nil || base == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, c.Key(base)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *JSON) SetJSON(ctx context.Context, base string, v any) error {
	if c == nil || c.client == nil || base == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.Key(base), data, c.ttl).Err()
}

// Delete drops the cached payload, if any.
func (c *JSON) Delete(ctx context.Context, base string) error {
	if c == nil || c.client == nil || base == "" {
		return nil
	}
	return c.client.Del(ctx, c.Key(base)).Err()
}
