package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Amund211/eliteseller-gateway/internal/domain"
	"github.com/Amund211/eliteseller-gateway/internal/logging"
	"github.com/Amund211/eliteseller-gateway/internal/reporting"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Operation produces the value for a key. Errors are converted to a value by
// the Coalescer, so every caller receives a value.
type Operation[T any] func(ctx context.Context) (T, error)

// transient is implemented by values that may describe the attempt rather than
// the key. Such values are handed to the waiters but never stored.
type transient interface {
	Transient() bool
}

func isTransient[T any](value T) bool {
	t, ok := any(value).(transient)
	return ok && t.Transient()
}

// Coalescer makes sure at most one operation runs per key, and keeps the
// outcome until the key is invalidated.
type Coalescer[T any] struct {
	name         string
	store        Store[T]
	failureValue func(error) T
	nowFunc      func() time.Time
	afterFunc    func(time.Duration) <-chan time.Time

	// Guards the check-then-insert on the store, flight bookkeeping and closed
	lock    sync.Mutex
	flights map[*flight[T]]struct{}
	closed  bool
}

func NewCoalescer[T any](
	name string,
	store Store[T],
	failureValue func(error) T,
	nowFunc func() time.Time,
	afterFunc func(time.Duration) <-chan time.Time,
) *Coalescer[T] {
	return &Coalescer[T]{
		name:         name,
		store:        store,
		failureValue: failureValue,
		nowFunc:      nowFunc,
		afterFunc:    afterFunc,

		flights: make(map[*flight[T]]struct{}),
	}
}

func (c *Coalescer[T]) recordLookup(ctx context.Context, outcome string) {
	logging.FromContext(ctx).InfoContext(ctx, "Getting coalesced value", "cache", outcome, "cacheName", c.name)
	metrics.lookupCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache_name", c.name),
		attribute.String("outcome", outcome),
	))
}

// FetchCoalesced returns the value for key.
//
// A resolved value is returned as is. If an operation for key is in flight the
// caller waits for its value. Otherwise operation is started after delay, and
// its value is stored for later callers.
//
// The operation runs detached from ctx and is only cancelled when every
// waiting caller has gone away. A caller whose ctx ends receives an aborted
// failure value.
func (c *Coalescer[T]) FetchCoalesced(ctx context.Context, key Key, operation Operation[T], delay time.Duration) T {
	if key == "" {
		return c.failureValue(domain.ErrEmptyKey)
	}
	if delay < 0 {
		delay = 0
	}

	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return c.failureValue(fmt.Errorf("%w: cache %s is closed", domain.ErrAborted, c.name))
	}

	existing, ok := c.store.get(key)
	if ok && !existing.pending() {
		c.lock.Unlock()
		c.recordLookup(ctx, "hit")
		return existing.value
	}

	if ok {
		f := existing.flight
		f.waiters++
		c.lock.Unlock()
		c.recordLookup(ctx, "wait")
		return c.wait(ctx, key, f)
	}

	operationCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f := &flight[T]{
		done:    make(chan struct{}),
		waiters: 1,
		cancel:  cancel,
	}
	c.store.put(key, entry[T]{flight: f})
	c.flights[f] = struct{}{}
	c.lock.Unlock()

	c.recordLookup(ctx, "miss")

	go c.run(operationCtx, key, f, operation, delay)

	return c.wait(ctx, key, f)
}

func (c *Coalescer[T]) wait(ctx context.Context, key Key, f *flight[T]) T {
	select {
	case <-f.done:
		return f.value
	case <-ctx.Done():
	}

	c.lock.Lock()
	f.waiters--
	abandoned := f.waiters == 0
	if abandoned {
		// Let the next caller start a fresh flight instead of attaching to
		// one that is being cancelled
		if current, ok := c.store.get(key); ok && current.flight == f {
			c.store.remove(key)
		}
	}
	c.lock.Unlock()

	if abandoned {
		f.cancel()
	}

	select {
	case <-f.done:
		return f.value
	default:
	}

	logging.FromContext(ctx).InfoContext(ctx, "Caller stopped waiting for coalesced value", "cacheName", c.name, "abandoned", abandoned)
	return c.failureValue(fmt.Errorf("%w: %w", domain.ErrAborted, context.Cause(ctx)))
}

func (c *Coalescer[T]) run(ctx context.Context, key Key, f *flight[T], operation Operation[T], delay time.Duration) {
	defer f.cancel()

	start := c.nowFunc()
	value := c.execute(ctx, operation, delay)
	resolvedAt := c.nowFunc()

	c.lock.Lock()
	defer c.lock.Unlock()

	// The entry may have been invalidated or abandoned while in flight. The
	// value is still handed to the waiters, but not stored.
	if current, ok := c.store.get(key); ok && current.flight == f && !c.closed {
		if isTransient(value) {
			c.store.remove(key)
		} else {
			c.store.put(key, entry[T]{value: value, resolvedAt: resolvedAt})
		}
	}
	delete(c.flights, f)

	f.value = value
	close(f.done)

	metrics.flightDuration.Record(ctx, resolvedAt.Sub(start).Seconds(), metric.WithAttributes(
		attribute.String("cache_name", c.name),
	))
}

func (c *Coalescer[T]) execute(ctx context.Context, operation Operation[T], delay time.Duration) (value T) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("coalesced operation panicked: %v", r)
			reporting.Report(ctx, err, map[string]string{"cacheName": c.name})
			value = c.failureValue(err)
		}
	}()

	if delay > 0 {
		select {
		case <-c.afterFunc(delay):
		case <-ctx.Done():
			return c.failureValue(fmt.Errorf("%w: cancelled during delay: %w", domain.ErrAborted, ctx.Err()))
		}
	}

	result, err := operation(ctx)
	if err != nil {
		return c.failureValue(err)
	}
	return result
}

// ResolvedAt returns when the stored value for key resolved.
// Returns false if the key is absent or still pending.
func (c *Coalescer[T]) ResolvedAt(key Key) (time.Time, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	e, ok := c.store.get(key)
	if !ok || e.pending() {
		return time.Time{}, false
	}
	return e.resolvedAt, true
}

// Close cancels every operation in flight and releases the store.
// Later calls to FetchCoalesced return an aborted failure value.
func (c *Coalescer[T]) Close() {
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return
	}
	c.closed = true
	flights := make([]*flight[T], 0, len(c.flights))
	for f := range c.flights {
		flights = append(flights, f)
	}
	c.lock.Unlock()

	for _, f := range flights {
		f.cancel()
	}
	c.store.close()
}
