package autospy

import (
	"slices"

	"github.com/google/uuid"
)

// Cursor walks a snapshot of the online population once. Later joins and
// quits do not affect a Cursor already created; when it is exhausted the owner
// replaces it with a Fresh one.
//
// A Cursor is owned by a single session and is not safe for concurrent use.
type Cursor struct {
	snapshot []uuid.UUID
	pos      int
}

// Fresh returns a Cursor positioned before the first element of population.
// The slice is copied.
func Fresh(population []uuid.UUID) *Cursor {
	return &Cursor{snapshot: slices.Clone(population)}
}

// HasNext reports if Next may be called.
func (c *Cursor) HasNext() bool {
	return c != nil && c.pos < len(c.snapshot)
}

// Next returns the next player in the snapshot. It panics if HasNext is false.
func (c *Cursor) Next() uuid.UUID {
	if !c.HasNext() {
		panic("autospy: Next called on exhausted cursor")
	}
	id := c.snapshot[c.pos]
	c.pos++
	return id
}

// Len returns the size of the snapshot.
func (c *Cursor) Len() int {
	if c == nil {
		return 0
	}
	return len(c.snapshot)
}

// Remaining returns the number of players not yet returned by Next.
func (c *Cursor) Remaining() int {
	if c == nil {
		return 0
	}
	return len(c.snapshot) - c.pos
}
