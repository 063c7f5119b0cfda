package storage

import (
	"context"
	"sync"
	"time"

	"ClaimsPlatform/internal/domain"
	"ClaimsPlatform/internal/ports"
)

// CachingBatchStore caches batch metadata with a TTL in front of a
// BatchStore. The refresh cycle calls Invalidate before reading so its view
// is always fresh; other metadata readers tolerate the TTL. Count and stream
// calls pass through uncached.
type CachingBatchStore struct {
	inner ports.BatchStore
	ttl   time.Duration

	mu       sync.Mutex
	batches  []domain.LoadedBatch
	cachedAt time.Time
}

var _ ports.BatchStore = (*CachingBatchStore)(nil)

// NewCachingBatchStore wraps inner with a metadata cache of the given TTL.
func NewCachingBatchStore(inner ports.BatchStore, ttl time.Duration) *CachingBatchStore {
	return &CachingBatchStore{inner: inner, ttl: ttl}
}

// ListBatches serves from cache while it is warm, otherwise reloads.
func (c *CachingBatchStore) ListBatches(ctx context.Context) ([]domain.LoadedBatch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.batches != nil && time.Since(c.cachedAt) < c.ttl {
		return c.batches, nil
	}

	batches, err := c.inner.ListBatches(ctx)
	if err != nil {
		return nil, err
	}

	c.batches = batches
	c.cachedAt = time.Now()
	return batches, nil
}

// Invalidate drops the cached metadata so the next read hits the store.
func (c *CachingBatchStore) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = nil
}

// CountIdentifiers passes through to the underlying store.
func (c *CachingBatchStore) CountIdentifiers(ctx context.Context, batchID int64) (int, error) {
	return c.inner.CountIdentifiers(ctx, batchID)
}

// StreamIdentifiers passes through to the underlying store.
func (c *CachingBatchStore) StreamIdentifiers(ctx context.Context, batchID int64, pageSize int, fn func(ids []string) error) error {
	return c.inner.StreamIdentifiers(ctx, batchID, pageSize, fn)
}
