package ratelimiting

import (
	"context"
	"slices"
	"sync"
	"time"
)

// RequestLimiter spaces out requests to an upstream API so that no more than
// a fixed number of them happen within any window of time
type RequestLimiter interface {
	// Limit waits for room in the window and then calls send.
	// Returns false without calling send when ctx ends first, or when the wait
	// would leave less than maxSendTime before the deadline of ctx.
	Limit(ctx context.Context, maxSendTime time.Duration, send func()) bool
}

type slidingWindowLimiter struct {
	window    time.Duration
	nowFunc   func() time.Time
	afterFunc func(time.Duration) <-chan time.Time

	// Holds one token per request that is waiting or sending
	inFlight chan struct{}

	lock sync.Mutex
	// When each of the last requests finished, oldest first. One request waiting
	// or sending has taken its entry out.
	finished []time.Time
}

// NewWindowLimitRequestLimiter allows limit requests per window. The window of
// a request starts when it finishes.
func NewWindowLimitRequestLimiter(
	limit int,
	window time.Duration,
	nowFunc func() time.Time,
	afterFunc func(time.Duration) <-chan time.Time,
) *slidingWindowLimiter {
	// Start with a full history of requests that are already out of the window
	longAgo := nowFunc().Add(-window)
	finished := make([]time.Time, limit)
	for i := range finished {
		finished[i] = longAgo
	}

	return &slidingWindowLimiter{
		window:    window,
		nowFunc:   nowFunc,
		afterFunc: afterFunc,

		inFlight: make(chan struct{}, limit),
		finished: finished,
	}
}

func (l *slidingWindowLimiter) Limit(ctx context.Context, maxSendTime time.Duration, send func()) bool {
	select {
	case l.inFlight <- struct{}{}:
		defer func() { <-l.inFlight }()
	case <-ctx.Done():
		return false
	}

	oldest, ok := l.takeOldest(ctx, maxSendTime)
	if !ok {
		return false
	}

	if wait := l.untilOutOfWindow(oldest); wait > 0 {
		select {
		case <-l.afterFunc(wait):
		case <-ctx.Done():
			// Nothing was sent, so the history is unchanged
			l.record(oldest)
			return false
		}
	}

	send()

	l.record(l.nowFunc())
	return true
}

func (l *slidingWindowLimiter) untilOutOfWindow(finishedAt time.Time) time.Duration {
	return l.window - l.nowFunc().Sub(finishedAt)
}

// takeOldest removes the oldest finished request from the history, unless
// waiting for it to leave the window would make the request miss its deadline
func (l *slidingWindowLimiter) takeOldest(ctx context.Context, maxSendTime time.Duration) (time.Time, bool) {
	l.lock.Lock()
	defer l.lock.Unlock()

	oldest := l.finished[0]
	if deadline, ok := ctx.Deadline(); ok {
		if l.untilOutOfWindow(oldest)+maxSendTime > deadline.Sub(l.nowFunc()) {
			return time.Time{}, false
		}
	}

	l.finished = l.finished[1:]
	return oldest, true
}

func (l *slidingWindowLimiter) record(finishedAt time.Time) {
	l.lock.Lock()
	defer l.lock.Unlock()

	i, _ := slices.BinarySearchFunc(l.finished, finishedAt, time.Time.Compare)
	l.finished = slices.Insert(l.finished, i, finishedAt)
}

var _ RequestLimiter = (*slidingWindowLimiter)(nil)
