package autospy

import "sync"

// Metrics counts what the autospy subsystem did. A nil *Metrics is valid and
// discards everything.
type Metrics struct {
	mu sync.Mutex

	started        uint64
	ended          uint64
	ticks          uint64
	skipped        uint64
	retargets      uint64
	cancelFailures uint64
	panics         uint64
}

// MetricsSnapshot is a copy of the counters of a Metrics.
type MetricsSnapshot struct {
	Started        uint64
	Ended          uint64
	Ticks          uint64
	Skipped        uint64
	Retargets      uint64
	CancelFailures uint64
	Panics         uint64
}

// NewMetrics creates a zeroed Metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) add(field *uint64) {
	m.mu.Lock()
	*field++
	m.mu.Unlock()
}

// IncStarted counts a started session.
func (m *Metrics) IncStarted() {
	if m != nil {
		m.add(&m.started)
	}
}

// IncEnded counts a session that ended for any reason.
func (m *Metrics) IncEnded() {
	if m != nil {
		m.add(&m.ended)
	}
}

// IncTicks counts a tick that reached target selection.
func (m *Metrics) IncTicks() {
	if m != nil {
		m.add(&m.ticks)
	}
}

// IncSkipped counts a tick skipped because no target was eligible.
func (m *Metrics) IncSkipped() {
	if m != nil {
		m.add(&m.skipped)
	}
}

// IncRetargets counts a completed view transition.
func (m *Metrics) IncRetargets() {
	if m != nil {
		m.add(&m.retargets)
	}
}

// IncCancelFailures counts a stop that failed to cancel its task.
func (m *Metrics) IncCancelFailures() {
	if m != nil {
		m.add(&m.cancelFailures)
	}
}

// IncPanics counts a recovered panic in a scheduled function.
func (m *Metrics) IncPanics() {
	if m != nil {
		m.add(&m.panics)
	}
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		Started:        m.started,
		Ended:          m.ended,
		Ticks:          m.ticks,
		Skipped:        m.skipped,
		Retargets:      m.retargets,
		CancelFailures: m.cancelFailures,
		Panics:         m.panics,
	}
}

// Active returns the number of sessions started but not ended.
func (s MetricsSnapshot) Active() uint64 {
	if s.Ended > s.Started {
		return 0
	}
	return s.Started - s.Ended
}
