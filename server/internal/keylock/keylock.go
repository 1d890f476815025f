// Package keylock provides striped mutual exclusion keyed by player UUID.
// Operations on the same key are serialised while operations on different
// keys mostly proceed independently.
package keylock

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// DefaultStripes is the stripe count used when New is passed a non-positive
// value.
const DefaultStripes = 64

// Locker is a fixed set of mutexes. A key always maps to the same stripe, so
// two keys may share a stripe; callers must never hold one stripe while
// acquiring another.
type Locker struct {
	stripes []sync.Mutex
}

// New returns a Locker with n stripes.
func New(n int) *Locker {
	if n <= 0 {
		n = DefaultStripes
	}
	return &Locker{stripes: make([]sync.Mutex, n)}
}

// Lock acquires the stripe for id and returns the function releasing it.
func (l *Locker) Lock(id uuid.UUID) (unlock func()) {
	mu := &l.stripes[Index(id, len(l.stripes))]
	mu.Lock()
	return mu.Unlock
}

// Index returns the stripe or shard index in [0, n) for id.
func Index(id uuid.UUID, n int) int {
	if n <= 1 {
		return 0
	}
	return int(xxhash.Sum64(id[:]) % uint64(n))
}
