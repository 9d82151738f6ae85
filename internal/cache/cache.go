// Package cache stores the latest sentiment snapshot so read paths can
// serve without touching the database. Two implementations exist: an
// in-process one for single-node deployments and tests, and a Redis-backed
// one so several replicas share the same view.
package cache

import (
	"context"
	"sync"

	"github.com/civicpulse/civicpulse/internal/domain"
)

// SnapshotCache holds the most recently computed snapshot. Get returns
// domain.ErrNoData when nothing has been stored yet.
type SnapshotCache interface {
	Put(ctx context.Context, snap domain.Snapshot) error
	Get(ctx context.Context) (domain.Snapshot, error)
}

// MemoryCache is the in-process implementation.
type MemoryCache struct {
	mu     sync.RWMutex
	snap   domain.Snapshot
	filled bool
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Put(_ context.Context, snap domain.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = snap
	c.filled = true
	return nil
}

func (c *MemoryCache) Get(_ context.Context) (domain.Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.filled {
		return domain.Snapshot{}, domain.ErrNoData
	}
	return c.snap, nil
}
