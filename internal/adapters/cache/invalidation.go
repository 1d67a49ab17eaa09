package cache

import (
	"context"

	"github.com/Amund211/eliteseller-gateway/internal/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Invalidate removes the entry for key so the next FetchCoalesced starts a new
// operation. Safe to call when no entry exists.
//
// An operation in flight for key keeps running for the callers already
// waiting on it, but its value is not stored.
func (c *Coalescer[T]) Invalidate(ctx context.Context, key Key) {
	c.lock.Lock()
	_, existed := c.store.get(key)
	c.store.remove(key)
	c.lock.Unlock()

	if existed {
		c.recordInvalidations(ctx, 1)
	}
}

// InvalidateAll removes every entry whose key matches predicate.
// Returns the number of removed entries.
func (c *Coalescer[T]) InvalidateAll(ctx context.Context, predicate func(Key) bool) int {
	c.lock.Lock()
	removed := 0
	for _, key := range c.store.keys() {
		if predicate(key) {
			c.store.remove(key)
			removed++
		}
	}
	c.lock.Unlock()

	c.recordInvalidations(ctx, removed)
	return removed
}

func (c *Coalescer[T]) recordInvalidations(ctx context.Context, count int) {
	logging.FromContext(ctx).InfoContext(ctx, "Invalidated cache entries", "cacheName", c.name, "count", count)
	if count == 0 {
		return
	}
	metrics.invalidationCount.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("cache_name", c.name),
	))
}
