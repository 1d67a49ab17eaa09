package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Amund211/eliteseller-gateway/internal/logging"
	"github.com/Amund211/eliteseller-gateway/internal/reporting"
)

// ProfileRefresh signals that cached profiles are stale
const ProfileRefresh = "profile:refresh"

// Event is a named signal. An empty Session targets every session.
type Event struct {
	Name    string `json:"name"`
	Session string `json:"session,omitempty"`
}

type Handler func(ctx context.Context, event Event)

type Emitter interface {
	// On registers handler for events with the given name. Call the returned func to unsubscribe.
	On(name string, handler Handler) func()
	Emit(ctx context.Context, event Event)
}

type subscription struct {
	handler Handler
}

type Local struct {
	lock     sync.RWMutex
	handlers map[string][]*subscription
}

// NewLocal creates an in-process emitter. Handlers run synchronously in registration order.
func NewLocal() *Local {
	return &Local{
		handlers: make(map[string][]*subscription),
	}
}

func (l *Local) On(name string, handler Handler) func() {
	sub := &subscription{handler: handler}

	l.lock.Lock()
	l.handlers[name] = append(l.handlers[name], sub)
	l.lock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.lock.Lock()
			defer l.lock.Unlock()

			subs := l.handlers[name]
			for i, s := range subs {
				if s == sub {
					l.handlers[name] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
			if len(l.handlers[name]) == 0 {
				delete(l.handlers, name)
			}
		})
	}
}

func (l *Local) Emit(ctx context.Context, event Event) {
	l.lock.RLock()
	subs := append([]*subscription(nil), l.handlers[event.Name]...)
	l.lock.RUnlock()

	logging.FromContext(ctx).DebugContext(
		ctx,
		"Emitting event",
		slog.String("event", event.Name),
		slog.String("eventSession", event.Session),
		slog.Int("handlers", len(subs)),
	)

	for _, sub := range subs {
		l.dispatch(ctx, sub.handler, event)
	}
}

func (l *Local) dispatch(ctx context.Context, handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			reporting.Report(
				ctx,
				fmt.Errorf("event handler panicked: %v", r),
				map[string]string{"event": event.Name, "session": event.Session},
			)
		}
	}()

	handler(ctx, event)
}

var _ Emitter = (*Local)(nil)
