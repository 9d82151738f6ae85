package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/civicpulse/civicpulse/internal/domain"
)

const (
	snapshotKey = "sentiment:snapshot"
	snapshotTTL = 10 * time.Minute
)

// RedisCache stores the snapshot as a JSON blob with a TTL. The TTL bounds
// staleness if all publishers stop; the broadcaster refreshes it well within
// that window.
type RedisCache struct {
	rdb *goredis.Client
}

func NewRedisCache(rdb *goredis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Put(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, snapshotKey, data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context) (domain.Snapshot, error) {
	data, err := c.rdb.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.Snapshot{}, domain.ErrNoData
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}
