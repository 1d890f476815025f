package autospy

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dm-vev/autospy/server/internal/recovery"
	"github.com/jonboulle/clockwork"
)

// TickDuration is the length of one server tick. Transition delays are
// expressed in ticks.
const TickDuration = time.Second / 20

// Task is a handle to work submitted to a Scheduler.
type Task interface {
	// Cancel prevents any run of the task that has not started yet. It may
	// be called any number of times and reports true if no further run will
	// start. A run already in progress is not interrupted.
	Cancel() bool
}

// Scheduler runs functions later, either once or repeatedly. Functions may be
// run on any goroutine and concurrently with each other.
type Scheduler interface {
	// Every runs fn once per interval, starting one interval from now.
	Every(interval time.Duration, fn func()) Task
	// After runs fn once, delay from now.
	After(delay time.Duration, fn func()) Task
}

// ClockScheduler is a Scheduler driven by a clockwork.Clock. Every repeating
// task gets its own goroutine so that tasks tick independently. Panics in
// scheduled functions are recovered and logged.
type ClockScheduler struct {
	clock   clockwork.Clock
	log     *slog.Logger
	metrics *Metrics

	closing   chan struct{}
	closeOnce sync.Once
	running   sync.WaitGroup
}

// NewClockScheduler returns a ClockScheduler. A nil clock uses real time and a
// nil log uses slog.Default().
func NewClockScheduler(clock clockwork.Clock, log *slog.Logger, metrics *Metrics) *ClockScheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &ClockScheduler{
		clock:   clock,
		log:     log,
		metrics: metrics,
		closing: make(chan struct{}),
	}
}

// Every implements Scheduler.
func (s *ClockScheduler) Every(interval time.Duration, fn func()) Task {
	if interval <= 0 {
		panic("autospy: non-positive interval")
	}
	t := &repeatingTask{stop: make(chan struct{})}
	ticker := s.clock.NewTicker(interval)

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				// Cancel may have raced with the tick.
				select {
				case <-t.stop:
					return
				default:
				}
				s.run(fn)
			case <-t.stop:
				return
			case <-s.closing:
				return
			}
		}
	}()
	return t
}

// After implements Scheduler.
func (s *ClockScheduler) After(delay time.Duration, fn func()) Task {
	t := &delayedTask{}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = s.clock.AfterFunc(delay, func() {
		if t.cancelled.Load() || s.closed() {
			return
		}
		s.run(fn)
	})
	return t
}

// Close stops all tasks and waits for running repeating tasks to return.
func (s *ClockScheduler) Close() {
	s.closeOnce.Do(func() {
		close(s.closing)
	})
	s.running.Wait()
}

func (s *ClockScheduler) closed() bool {
	select {
	case <-s.closing:
		return true
	default:
		return false
	}
}

func (s *ClockScheduler) run(fn func()) {
	if err := recovery.Call(fn); err != nil {
		s.metrics.IncPanics()
		var pe *recovery.PanicError
		if errors.As(err, &pe) {
			s.log.Error("Scheduled task panicked.", "panic", pe.Value, "stack", string(pe.Stack))
			return
		}
		s.log.Error("Scheduled task failed.", "error", err)
	}
}

type repeatingTask struct {
	stop     chan struct{}
	stopOnce sync.Once
}

func (t *repeatingTask) Cancel() bool {
	t.stopOnce.Do(func() {
		close(t.stop)
	})
	return true
}

type delayedTask struct {
	mu        sync.Mutex
	timer     clockwork.Timer
	cancelled atomic.Bool
}

func (t *delayedTask) Cancel() bool {
	t.cancelled.Store(true)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	return true
}
