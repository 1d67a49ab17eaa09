package cache

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

type ttlStore[T any] struct {
	cache     *ttlcache.Cache[Key, entry[T]]
	closeOnce sync.Once
}

func (s *ttlStore[T]) get(key Key) (entry[T], bool) {
	item := s.cache.Get(key)
	if item == nil {
		return entry[T]{}, false
	}
	return item.Value(), true
}

func (s *ttlStore[T]) put(key Key, e entry[T]) {
	// Pending entries must stay until their flight completes, or a second
	// flight could start for the same key
	ttl := ttlcache.DefaultTTL
	if e.pending() {
		ttl = ttlcache.NoTTL
	}
	s.cache.Set(key, e, ttl)
}

func (s *ttlStore[T]) remove(key Key) {
	s.cache.Delete(key)
}

func (s *ttlStore[T]) keys() []Key {
	return s.cache.Keys()
}

func (s *ttlStore[T]) close() {
	s.closeOnce.Do(s.cache.Stop)
}

// NewTTLStore creates a store where resolved entries expire after ttl.
// A ttl of 0 keeps resolved entries until they are invalidated.
func NewTTLStore[T any](ttl time.Duration) *ttlStore[T] {
	cache := ttlcache.New[Key, entry[T]](
		ttlcache.WithTTL[Key, entry[T]](ttl),
		ttlcache.WithDisableTouchOnHit[Key, entry[T]](),
	)
	go cache.Start()
	return &ttlStore[T]{cache: cache}
}
