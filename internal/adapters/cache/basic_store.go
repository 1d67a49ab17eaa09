package cache

import "sync"

type basicStore[T any] struct {
	entries map[Key]entry[T]
	lock    sync.Mutex
}

func (s *basicStore[T]) get(key Key) (entry[T], bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	e, ok := s.entries[key]
	return e, ok
}

func (s *basicStore[T]) put(key Key, e entry[T]) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.entries[key] = e
}

func (s *basicStore[T]) remove(key Key) {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.entries, key)
}

func (s *basicStore[T]) keys() []Key {
	s.lock.Lock()
	defer s.lock.Unlock()

	keys := make([]Key, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return keys
}

func (s *basicStore[T]) close() {
}

func NewBasicStore[T any]() *basicStore[T] {
	return &basicStore[T]{
		entries: make(map[Key]entry[T]),
	}
}
