package autospy

import (
	"time"

	"github.com/google/uuid"
)

// Session is the state of one requester's spectate rotation. All fields are
// guarded by the requester's stripe in the Manager's lock.
type Session struct {
	requester uuid.UUID
	interval  time.Duration
	loadTicks int
	started   time.Time

	task       Task
	cursor     *Cursor
	transition *transition
	target     uuid.UUID
}

// Requester returns the UUID of the player the session belongs to.
func (s *Session) Requester() uuid.UUID { return s.requester }

// cancel stops the repeating task and any transition still in flight. It
// reports false if the task could not be cancelled.
func (s *Session) cancel() bool {
	if s.transition != nil {
		s.transition.cancel()
		s.transition = nil
	}
	if s.task == nil {
		return true
	}
	return s.task.Cancel()
}
