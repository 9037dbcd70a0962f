// internal/repository/redisstore/snapshot_cache.go
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lms-admin-service/internal/domain/liveclass"
	xerrors "lms-admin-service/internal/pkg/errors"

	"github.com/redis/go-redis/v9"
)

const snapshotKeyPrefix = "liveclass:snapshot:"

// SnapshotCache holds the last known status of each watched class so it
// survives restarts and can be served for classes that are not being polled.
type SnapshotCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewSnapshotCache(client redis.Cmdable, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

func (c *SnapshotCache) Put(ctx context.Context, snap liveclass.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKeyPrefix+snap.ClassID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}
	return nil
}

func (c *SnapshotCache) Get(ctx context.Context, classID string) (liveclass.Snapshot, error) {
	data, err := c.client.Get(ctx, snapshotKeyPrefix+classID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return liveclass.Snapshot{}, xerrors.ErrNotFound
		}
		return liveclass.Snapshot{}, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap liveclass.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return liveclass.Snapshot{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snap, nil
}

func (c *SnapshotCache) Delete(ctx context.Context, classID string) error {
	return c.client.Del(ctx, snapshotKeyPrefix+classID).Err()
}
