package host

import (
	"slices"
	"sync"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/google/uuid"
)

// Roster tracks connected players in the order they joined. It never touches a
// world, so it can be queried from any goroutine without blocking on a tick.
type Roster struct {
	mu      sync.RWMutex
	order   []uuid.UUID
	entries map[uuid.UUID]rosterEntry
}

type rosterEntry struct {
	name   string
	handle *world.EntityHandle
}

// NewRoster returns an empty Roster.
func NewRoster() *Roster {
	return &Roster{entries: make(map[uuid.UUID]rosterEntry)}
}

// Add records p as connected. Adding a player that is already present
// refreshes its name and handle without changing its position.
func (r *Roster) Add(p *player.Player) {
	r.add(p.UUID(), p.Name(), p.H())
}

func (r *Roster) add(id uuid.UUID, name string, handle *world.EntityHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		r.order = append(r.order, id)
	}
	r.entries[id] = rosterEntry{name: name, handle: handle}
}

// Remove forgets the player with the UUID passed. It reports false if the
// player was not present.
func (r *Roster) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	r.order = slices.DeleteFunc(r.order, func(other uuid.UUID) bool { return other == id })
	return true
}

// Online returns the UUIDs of all connected players in join order.
func (r *Roster) Online() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Connected reports if the player with the UUID passed is connected.
func (r *Roster) Connected(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// Name returns the name of a connected player.
func (r *Roster) Name(id uuid.UUID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e.name, ok
}

func (r *Roster) handle(id uuid.UUID) (*world.EntityHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok || e.handle == nil {
		return nil, false
	}
	return e.handle, true
}
