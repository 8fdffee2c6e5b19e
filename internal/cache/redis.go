package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/voiceguard/internal/analysis"
)

const keyPrefix = "voiceguard:analysis:"

// ResultCache keeps analysis verdicts in Redis keyed by audio digest.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, ttl: ttl}
}

func Key(digest string) string {
	return keyPrefix + digest
}

func (c *ResultCache) Get(ctx context.Context, digest string) (*analysis.Result, bool, error) {
	val, err := c.client.Get(ctx, Key(digest)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", digest, err)
	}

	var r analysis.Result
	if err := json.Unmarshal(val, &r); err != nil {
		return nil, false, fmt.Errorf("decode cached result: %w", err)
	}
	return &r, true, nil
}

func (c *ResultCache) Set(ctx context.Context, digest string, r *analysis.Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	return c.client.Set(ctx, Key(digest), data, c.ttl).Err()
}
