package autospy

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// phase is a step of the view transition of a requester to a new target.
type phase uint8

const (
	// phaseClear detaches the requester from its current target.
	phaseClear phase = iota
	// phaseMove teleports the requester to the target so that the area
	// around it can load.
	phaseMove
	// phaseTarget makes the requester spectate the target.
	phaseTarget
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phaseClear:
		return "clear"
	case phaseMove:
		return "move"
	case phaseTarget:
		return "target"
	default:
		return "done"
	}
}

var errTargetGone = errors.New("target went offline")

// transition moves a requester to a target in phases, each scheduled as a
// separate task. Cancelling it drops every phase that has not started.
type transition struct {
	m         *Manager
	session   *Session
	requester uuid.UUID
	target    uuid.UUID
	moveDelay time.Duration
	loadDelay time.Duration

	mu        sync.Mutex
	phase     phase
	pending   Task
	cancelled bool
}

func newTransition(m *Manager, s *Session, target uuid.UUID) *transition {
	return &transition{
		m:         m,
		session:   s,
		requester: s.requester,
		target:    target,
		moveDelay: time.Duration(m.conf.MoveTicks) * TickDuration,
		loadDelay: time.Duration(s.loadTicks) * TickDuration,
	}
}

// step runs the current phase and schedules the next one.
func (t *transition) step() {
	t.mu.Lock()
	if t.cancelled || t.phase == phaseDone {
		t.mu.Unlock()
		return
	}
	p := t.phase
	t.mu.Unlock()

	if err := t.perform(p); err != nil {
		t.m.log.Debug("Transition aborted.", "requester", t.requester, "target", t.target, "phase", p, "error", err)
		t.finish()
		return
	}

	next, delay := p+1, time.Duration(0)
	switch p {
	case phaseClear:
		delay = t.moveDelay
	case phaseMove:
		delay = t.loadDelay
	}

	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.phase = next
	t.mu.Unlock()
	if next == phaseDone {
		return
	}

	task := t.m.sched.After(delay, t.step)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		task.Cancel()
		return
	}
	t.pending = task
}

func (t *transition) perform(p phase) error {
	m := t.m
	switch p {
	case phaseClear:
		if err := m.views.ClearTarget(t.requester); err != nil {
			return fmt.Errorf("clear target: %w", err)
		}
	case phaseMove:
		if !m.pop.Connected(t.target) {
			return errTargetGone
		}
		loc, err := m.views.Location(t.target)
		if err != nil {
			return fmt.Errorf("locate target: %w", err)
		}
		if err := m.views.Teleport(t.requester, loc); err != nil {
			return fmt.Errorf("teleport: %w", err)
		}
	case phaseTarget:
		name, ok := m.pop.Name(t.target)
		if !ok {
			return errTargetGone
		}
		if err := m.views.SetTarget(t.requester, t.target); err != nil {
			return fmt.Errorf("set target: %w", err)
		}
		m.record(t)
		m.notify.ActionBar(t.requester, spectatingMessage(name))
	}
	return nil
}

// finish marks the transition as done without running further phases.
func (t *transition) finish() {
	t.mu.Lock()
	t.phase = phaseDone
	t.mu.Unlock()
}

// cancel stops the transition. Phases already running complete.
func (t *transition) cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = true
	if t.pending != nil {
		t.pending.Cancel()
		t.pending = nil
	}
}

// record stores the target of a completed transition on its session.
func (m *Manager) record(t *transition) {
	s := t.session
	unlock := m.locks.Lock(s.requester)
	defer unlock()
	if s.transition != t || !m.current(s) {
		return
	}
	s.target = t.target
	s.transition = nil
	m.metrics.IncRetargets()
}
