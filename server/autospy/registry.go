package autospy

import (
	"sync"

	"github.com/google/uuid"
	"github.com/segmentio/fasthash/fnv1a"
)

// Registry maps requesters to their Session. It holds at most one Session per
// requester. Registry only protects its own map; serialising the lifecycle of
// a single requester is up to the Manager.
type Registry struct {
	shards []registryShard
}

type registryShard struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry returns an empty Registry split into n shards.
func NewRegistry(n int) *Registry {
	if n <= 0 {
		n = 16
	}
	r := &Registry{shards: make([]registryShard, n)}
	for i := range r.shards {
		r.shards[i].sessions = make(map[uuid.UUID]*Session)
	}
	return r
}

func (r *Registry) shard(id uuid.UUID) *registryShard {
	return &r.shards[fnv1a.HashBytes64(id[:])%uint64(len(r.shards))]
}

// Contains reports if id currently has a session.
func (r *Registry) Contains(id uuid.UUID) bool {
	_, ok := r.Get(id)
	return ok
}

// Get returns the session of id.
func (r *Registry) Get(id uuid.UUID) (*Session, bool) {
	sh := r.shard(id)
	sh.mu.RLock()
	s, ok := sh.sessions[id]
	sh.mu.RUnlock()
	return s, ok
}

// Put stores s under its requester, replacing any session stored before.
func (r *Registry) Put(s *Session) {
	sh := r.shard(s.requester)
	sh.mu.Lock()
	sh.sessions[s.requester] = s
	sh.mu.Unlock()
}

// Remove deletes the session of id. It reports false if there was none, so
// removing twice is harmless.
func (r *Registry) Remove(id uuid.UUID) bool {
	sh := r.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.sessions[id]; !ok {
		return false
	}
	delete(sh.sessions, id)
	return true
}

// removeIf deletes the session of id only if it is still s.
func (r *Registry) removeIf(id uuid.UUID, s *Session) bool {
	sh := r.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if cur, ok := sh.sessions[id]; !ok || cur != s {
		return false
	}
	delete(sh.sessions, id)
	return true
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

// Requesters returns the UUIDs of all requesters with a session.
func (r *Registry) Requesters() []uuid.UUID {
	ids := make([]uuid.UUID, 0, r.Len())
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		for id := range sh.sessions {
			ids = append(ids, id)
		}
		sh.mu.RUnlock()
	}
	return ids
}
