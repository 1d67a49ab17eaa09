package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Amund211/eliteseller-gateway/internal/domain"
)

// Key identifies a logical resource as seen with a specific credential.
type Key string

// NewKey derives the key for a resource fetched with the given credential.
//
// The credential is included as a digest so different credentials never share
// an entry, without the raw credential ending up in logs.
// Returns the empty key if resourceURL is empty.
func NewKey(resourceURL string, credential string) Key {
	if resourceURL == "" {
		return ""
	}
	return Key(fmt.Sprintf("%s#%s", resourceURL, domain.CredentialDigest(credential)))
}

// Resource returns the resource URL the key was derived from
func (k Key) Resource() string {
	index := strings.LastIndexByte(string(k), '#')
	if index == -1 {
		return string(k)
	}
	return string(k[:index])
}

// ResourceHasPrefix returns a predicate for InvalidateAll matching every key
// whose resource starts with prefix, regardless of credential.
func ResourceHasPrefix(prefix string) func(Key) bool {
	return func(k Key) bool {
		return strings.HasPrefix(k.Resource(), prefix)
	}
}

// flight is a single in-progress operation shared by every attached caller
type flight[T any] struct {
	done    chan struct{}
	value   T
	waiters int
	cancel  context.CancelFunc
}

// entry is either pending (flight != nil) or resolved
type entry[T any] struct {
	flight *flight[T]

	value      T
	resolvedAt time.Time
}

func (e entry[T]) pending() bool {
	return e.flight != nil
}

// Store holds the entries of a Coalescer.
//
// Implementations must be safe for concurrent use and must not perform I/O.
// Atomicity across calls is provided by the Coalescer.
type Store[T any] interface {
	get(key Key) (entry[T], bool)
	put(key Key, e entry[T])
	remove(key Key)
	keys() []Key
	close()
}
