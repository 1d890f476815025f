package autospy

import (
	"errors"

	"github.com/google/uuid"
)

// maxRefreshes bounds how often a single tick replaces an exhausted cursor.
const maxRefreshes = 2

var errSessionEnded = errors.New("session ended")

// tick is run by the repeating task of s. It chooses the next target of the
// requester and starts the transition to it.
func (m *Manager) tick(s *Session) {
	r := s.requester
	if !m.current(s) {
		return
	}
	if !m.pop.Connected(r) {
		// The quit event was missed or is still being delivered.
		_ = m.end(r, s, "requester offline")
		return
	}
	spectating, err := m.views.Spectating(r)
	if err != nil {
		m.log.Debug("Skipped tick.", "requester", r, "error", err)
		return
	}
	if !spectating {
		if m.end(r, s, "left spectator mode") == nil {
			m.notify.Message(r, msgLeftManually)
		}
		return
	}

	t, err := m.selectTarget(s)
	if err != nil {
		if errors.Is(err, errNoEligibleTarget) {
			m.metrics.IncSkipped()
			m.log.Debug("Skipped tick.", "requester", r, "reason", err)
		}
		return
	}
	t.step()
}

// selectTarget draws from the cursor of s until it finds an eligible target
// and installs a transition towards it, replacing any transition in flight.
func (m *Manager) selectTarget(s *Session) (*transition, error) {
	r := s.requester
	unlock := m.locks.Lock(r)
	defer unlock()

	if !m.current(s) {
		return nil, errSessionEnded
	}
	if !anyEligible(m.pop.Online(), r, m.pop, m.perms, m.reg) {
		return nil, errNoEligibleTarget
	}
	m.metrics.IncTicks()

	target, ok := m.draw(s)
	if !ok {
		return nil, errNoEligibleTarget
	}
	if s.transition != nil {
		s.transition.cancel()
	}
	s.transition = newTransition(m, s, target)
	return s.transition, nil
}

// draw advances the cursor of s to the next eligible player, replacing the
// cursor with a fresh snapshot when it runs out.
func (m *Manager) draw(s *Session) (uuid.UUID, bool) {
	r := s.requester
	refreshes := 0
	for {
		if !s.cursor.HasNext() {
			if refreshes == maxRefreshes {
				return uuid.Nil, false
			}
			s.cursor = Fresh(m.pop.Online())
			refreshes++
			continue
		}
		if id := s.cursor.Next(); !Ineligible(id, r, m.pop, m.perms, m.reg) {
			return id, true
		}
	}
}
