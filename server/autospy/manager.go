package autospy

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dm-vev/autospy/server/internal/keylock"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Options configure a single session. Zero fields take the Manager's
// defaults.
type Options struct {
	// Interval is the time between target changes.
	Interval time.Duration
	// LoadTicks is the number of server ticks to wait at the target's
	// position before spectating it.
	LoadTicks int
}

func (opts Options) validate() error {
	if opts.Interval > MaxInterval {
		return fmt.Errorf("%w: interval %v exceeds %v", ErrInvalidOptions, opts.Interval, MaxInterval)
	}
	if opts.LoadTicks > MaxLoadTicks {
		return fmt.Errorf("%w: load interval of %d ticks exceeds %d", ErrInvalidOptions, opts.LoadTicks, MaxLoadTicks)
	}
	return nil
}

// Manager starts and stops spectate rotation sessions. It is safe for
// concurrent use. Lifecycle operations and ticks of the same requester are
// serialised; different requesters are independent.
type Manager struct {
	conf    Config
	log     *slog.Logger
	pop     Population
	perms   Permissions
	views   Views
	notify  Notifier
	sched   Scheduler
	clock   clockwork.Clock
	metrics *Metrics

	reg   *Registry
	locks *keylock.Locker
}

// New creates a Manager using the fields of conf. It panics if one of the
// collaborators is missing.
func (conf Config) New() *Manager {
	switch {
	case conf.Population == nil:
		panic("autospy: config requires a Population")
	case conf.Permissions == nil:
		panic("autospy: config requires Permissions")
	case conf.Views == nil:
		panic("autospy: config requires Views")
	case conf.Notifier == nil:
		panic("autospy: config requires a Notifier")
	}
	conf = conf.withDefaults()
	return &Manager{
		conf:    conf,
		log:     conf.Log.With("subsystem", "autospy"),
		pop:     conf.Population,
		perms:   conf.Permissions,
		views:   conf.Views,
		notify:  conf.Notifier,
		sched:   conf.Scheduler,
		clock:   conf.Clock,
		metrics: conf.Metrics,
		reg:     NewRegistry(conf.Shards),
		locks:   keylock.New(conf.Shards),
	}
}

// Start puts r in spectator mode and starts rotating its view. It returns
// ErrAlreadyActive without changing anything if r already has a session.
func (m *Manager) Start(r uuid.UUID, opts Options) error {
	opts = m.options(opts)
	if err := opts.validate(); err != nil {
		return err
	}
	if m.reg.Contains(r) {
		return ErrAlreadyActive
	}
	// Views may block on the world, so it is called before taking the lock.
	if err := m.views.SetSpectator(r); err != nil {
		return fmt.Errorf("set spectator mode: %w", err)
	}
	cursor := Fresh(m.pop.Online())

	if err := m.register(r, opts, cursor); err != nil {
		return err
	}

	m.metrics.IncStarted()
	m.log.Info("Session started.", "requester", r, "interval", opts.Interval, "loadTicks", opts.LoadTicks)
	m.notify.Message(r, msgNowActive)
	return nil
}

// register stores a new session for r and schedules its ticks.
func (m *Manager) register(r uuid.UUID, opts Options, cursor *Cursor) error {
	unlock := m.locks.Lock(r)
	defer unlock()
	if m.reg.Contains(r) {
		return ErrAlreadyActive
	}
	s := &Session{
		requester: r,
		interval:  opts.Interval,
		loadTicks: opts.LoadTicks,
		started:   m.clock.Now(),
		cursor:    cursor,
	}
	m.reg.Put(s)
	defer func() {
		if s.task == nil {
			m.reg.removeIf(r, s)
		}
	}()
	// The tick takes the same lock, so it cannot run before task is set.
	s.task = m.sched.Every(opts.Interval, func() { m.tick(s) })
	return nil
}

// Stop ends the session of r and tells r about it. It returns ErrNotActive if
// r has no session and ErrCancelFailed if the session's task could not be
// cancelled, in which case the session is kept and Stop may be retried.
func (m *Manager) Stop(r uuid.UUID) error {
	err := m.end(r, nil, "stopped")
	switch {
	case err == nil:
		m.notify.Message(r, msgNoLonger)
	case errors.Is(err, ErrCancelFailed):
		m.notify.Message(r, msgCancelFailed)
	}
	return err
}

// Toggle stops the session of r if it has one and starts one otherwise. It
// reports if a session was started.
func (m *Manager) Toggle(r uuid.UUID, opts Options) (started bool, err error) {
	if !m.reg.Contains(r) {
		err = m.Start(r, opts)
		if !errors.Is(err, ErrAlreadyActive) {
			return err == nil, err
		}
	}
	return false, m.Stop(r)
}

// Disconnect ends the session of r, if any, without notifying r. It should be
// called when r leaves the server and may be called more than once.
func (m *Manager) Disconnect(r uuid.UUID) {
	if err := m.end(r, nil, "disconnected"); err != nil && !errors.Is(err, ErrNotActive) {
		m.log.Error("End session of disconnected player.", "requester", r, "error", err)
	}
}

// Active reports if r currently has a session.
func (m *Manager) Active(r uuid.UUID) bool {
	return m.reg.Contains(r)
}

// Target returns the player r is currently spectating.
func (m *Manager) Target(r uuid.UUID) (uuid.UUID, bool) {
	unlock := m.locks.Lock(r)
	defer unlock()
	s, ok := m.reg.Get(r)
	if !ok || s.target == uuid.Nil {
		return uuid.Nil, false
	}
	return s.target, true
}

// Sessions returns the number of active sessions.
func (m *Manager) Sessions() int {
	return m.reg.Len()
}

// Close ends every session without notifying the requesters.
func (m *Manager) Close() {
	for _, r := range m.reg.Requesters() {
		if err := m.end(r, nil, "shutdown"); err != nil && !errors.Is(err, ErrNotActive) {
			m.log.Error("End session on shutdown.", "requester", r, "error", err)
		}
	}
}

// end cancels and removes the session of r. If expect is non-nil, the session
// is only ended if it is still expect.
func (m *Manager) end(r uuid.UUID, expect *Session, reason string) error {
	unlock := m.locks.Lock(r)
	defer unlock()

	s, ok := m.reg.Get(r)
	if !ok || (expect != nil && s != expect) {
		return ErrNotActive
	}
	if !s.cancel() {
		m.metrics.IncCancelFailures()
		m.log.Error("Cancel session task.", "requester", r, "reason", reason)
		return ErrCancelFailed
	}
	m.reg.removeIf(r, s)
	m.metrics.IncEnded()
	m.log.Info("Session ended.", "requester", r, "reason", reason, "duration", m.clock.Since(s.started))
	return nil
}

// current reports if s is still the registered session of its requester.
func (m *Manager) current(s *Session) bool {
	cur, ok := m.reg.Get(s.requester)
	return ok && cur == s
}

func (m *Manager) options(opts Options) Options {
	if opts.Interval <= 0 {
		opts.Interval = m.conf.Interval
	}
	if opts.LoadTicks <= 0 {
		opts.LoadTicks = m.conf.LoadTicks
	}
	return opts
}
