package observability

import "sync"

// Counter names recorded per tick.
const (
	MetricStaffExpired    = "staff_expired"
	MetricReassigned      = "tickets_reassigned"
	MetricEscalated       = "tickets_escalated"
	MetricCrisisAssigned  = "crisis_assigned"
	MetricCrisisUnfilled  = "crisis_unassigned"
	MetricStaleSkips      = "stale_skips"
	MetricTicketErrors    = "ticket_errors"
	MetricPhaseFailures   = "phase_failures"
	MetricTicksRun        = "ticks_run"
	MetricTicksSkipped    = "ticks_skipped_lease_held"
	MetricNotifyFailures  = "notification_failures"
	MetricHistoryFailures = "history_failures"
)

// Metrics provides basic in-memory counters for tick activity.
type Metrics struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{counters: make(map[string]int64)}
}

// Add increments a named counter.
func (m *Metrics) Add(name string, delta int64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += delta
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}
