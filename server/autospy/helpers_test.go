package autospy

import (
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// manualScheduler runs tasks synchronously when advance is called, in due
// order, so tests can reason about every tick.
type manualScheduler struct {
	mu         sync.Mutex
	now        time.Duration
	tasks      []*manualTask
	failCancel bool
	panicEvery bool
}

type manualTask struct {
	s         *manualScheduler
	due       time.Duration
	interval  time.Duration
	fn        func()
	cancelled bool
	fired     bool
}

func (t *manualTask) Cancel() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.failCancel && t.interval > 0 {
		return false
	}
	t.cancelled = true
	return true
}

func (s *manualScheduler) Every(interval time.Duration, fn func()) Task {
	if s.panicEvery {
		panic("scheduler closed")
	}
	return s.add(interval, interval, fn)
}

func (s *manualScheduler) After(delay time.Duration, fn func()) Task {
	return s.add(delay, 0, fn)
}

func (s *manualScheduler) add(delay, interval time.Duration, fn func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTask{s: s, due: s.now + delay, interval: interval, fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

func (s *manualScheduler) advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()
	for {
		s.mu.Lock()
		var next *manualTask
		for _, t := range s.tasks {
			if t.cancelled || t.fired || t.due > target {
				continue
			}
			if next == nil || t.due < next.due {
				next = t
			}
		}
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = next.due
		if next.interval > 0 {
			next.due += next.interval
		} else {
			next.fired = true
		}
		fn := next.fn
		s.mu.Unlock()
		fn()
	}
}

// nextTick returns the time until the earliest repeating task is due.
func (s *manualScheduler) nextTick() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		next  time.Duration
		found bool
	)
	for _, t := range s.tasks {
		if t.interval <= 0 || t.cancelled {
			continue
		}
		if !found || t.due < next {
			next, found = t.due, true
		}
	}
	return next - s.now, found
}

// repeating returns the number of repeating tasks that were not cancelled.
func (s *manualScheduler) repeating() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.interval > 0 && !t.cancelled {
			n++
		}
	}
	return n
}

type sentMessage struct {
	to  uuid.UUID
	msg string
}

var errOffline = errors.New("player offline")

// fakeHost is an in-memory server implementing every collaborator.
type fakeHost struct {
	mu         sync.Mutex
	online     []uuid.UUID
	names      map[uuid.UUID]string
	caps       map[uuid.UUID][]string
	spectating map[uuid.UUID]bool
	locations  map[uuid.UUID]Location
	targets    map[uuid.UUID]uuid.UUID

	clears     int
	teleports  []sentMessage
	messages   []sentMessage
	actionBars []sentMessage
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		names:      make(map[uuid.UUID]string),
		caps:       make(map[uuid.UUID][]string),
		spectating: make(map[uuid.UUID]bool),
		locations:  make(map[uuid.UUID]Location),
		targets:    make(map[uuid.UUID]uuid.UUID),
	}
}

// join adds a player and returns its UUID.
func (h *fakeHost) join(name string, caps ...string) uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := uuid.New()
	h.online = append(h.online, id)
	h.names[id] = name
	h.caps[id] = caps
	h.locations[id] = Location{Pos: mgl64.Vec3{float64(len(h.online)), 64, 0}, Dimension: "overworld"}
	return id
}

func (h *fakeHost) quit(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.online = slices.DeleteFunc(h.online, func(o uuid.UUID) bool { return o == id })
}

func (h *fakeHost) setSpectating(id uuid.UUID, v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.spectating[id] = v
}

func (h *fakeHost) Online() []uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.online)
}

func (h *fakeHost) Connected(id uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Contains(h.online, id)
}

func (h *fakeHost) Name(id uuid.UUID) (string, bool) {
	if !h.Connected(id) {
		return "", false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.names[id], true
}

func (h *fakeHost) Has(id uuid.UUID, capability string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Contains(h.caps[id], capability)
}

func (h *fakeHost) Spectating(id uuid.UUID) (bool, error) {
	if !h.Connected(id) {
		return false, errOffline
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.spectating[id], nil
}

func (h *fakeHost) SetSpectator(id uuid.UUID) error {
	h.setSpectating(id, true)
	return nil
}

func (h *fakeHost) ClearTarget(id uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clears++
	delete(h.targets, id)
	return nil
}

func (h *fakeHost) Location(id uuid.UUID) (Location, error) {
	if !h.Connected(id) {
		return Location{}, errOffline
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.locations[id], nil
}

func (h *fakeHost) Teleport(id uuid.UUID, loc Location) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.locations[id] = loc
	h.teleports = append(h.teleports, sentMessage{to: id})
	return nil
}

func (h *fakeHost) SetTarget(id, target uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.targets[id] = target
	return nil
}

func (h *fakeHost) Message(id uuid.UUID, msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, sentMessage{to: id, msg: msg})
}

func (h *fakeHost) ActionBar(id uuid.UUID, msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actionBars = append(h.actionBars, sentMessage{to: id, msg: msg})
}

func (h *fakeHost) target(id uuid.UUID) (uuid.UUID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.targets[id]
	return t, ok
}

func (h *fakeHost) messagesTo(id uuid.UUID) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, m := range h.messages {
		if m.to == id {
			out = append(out, m.msg)
		}
	}
	return out
}

func (h *fakeHost) clearCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clears
}

type testEnv struct {
	host    *fakeHost
	sched   *manualScheduler
	metrics *Metrics
	m       *Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	host := newFakeHost()
	sched := &manualScheduler{}
	metrics := NewMetrics()
	m := Config{
		Log:         discardLogger(),
		Population:  host,
		Permissions: host,
		Views:       host,
		Notifier:    host,
		Scheduler:   sched,
		Clock:       clockwork.NewFakeClock(),
		Metrics:     metrics,
	}.New()
	return &testEnv{host: host, sched: sched, metrics: metrics, m: m}
}

// settle is long enough for any transition to finish and shorter than an
// interval.
const settle = time.Second

// cycle advances to the next tick and past its full transition. Time is
// measured from the tick, so repeated cycles stay aligned with the interval.
func (e *testEnv) cycle(interval time.Duration) {
	wait, ok := e.sched.nextTick()
	if !ok {
		wait = interval
	}
	e.sched.advance(wait)
	e.sched.advance(settle)
}

func (e *testEnv) session(t *testing.T, id uuid.UUID) *Session {
	t.Helper()
	s, ok := e.m.reg.Get(id)
	if !ok {
		t.Fatalf("no session registered for %v", id)
	}
	return s
}
