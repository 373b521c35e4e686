package dispatcher

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dshills/persona/internal/dispatcher/hook"
)

// Failure classes recorded by Metrics.
const (
	FailNotImplemented = "not_implemented"
	FailAmbiguous      = "ambiguous"
	FailVisibility     = "visibility"
	FailRoleNotFound   = "role_not_found"
	FailCancelled      = "cancelled"
	FailDepth          = "depth"
	FailPanic          = "panic"
	FailOther          = "other"
)

// Failure classifies a call error into one of the Fail* classes, or ""
// for nil.
func Failure(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPanic):
		return FailPanic
	case errors.Is(err, ErrCallCancelled):
		return FailCancelled
	case errors.Is(err, ErrCallDepthExceeded):
		return FailDepth
	case errors.Is(err, ErrAmbiguousMethod):
		return FailAmbiguous
	case errors.Is(err, ErrIllegalVisibility):
		return FailVisibility
	case errors.Is(err, ErrMethodNotImplemented):
		return FailNotImplemented
	case errors.Is(err, ErrRoleNotFound):
		return FailRoleNotFound
	default:
		return FailOther
	}
}

// MethodStats holds the statistics of one method name.
type MethodStats struct {
	Name  string
	Calls uint64

	// ByRole counts successful calls per answering role; dispatcher-own
	// methods count under "".
	ByRole map[string]uint64

	// ByScope counts calls per caller scope.
	ByScope map[hook.Scope]uint64

	// Failures counts failed calls per Fail* class.
	Failures map[string]uint64

	TotalDuration time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
}

// Errors returns the number of failed calls.
func (s MethodStats) Errors() uint64 {
	var n uint64
	for _, c := range s.Failures {
		n += c
	}
	return n
}

// AverageDuration returns the mean call duration.
func (s MethodStats) AverageDuration() time.Duration {
	if s.Calls == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Calls)
}

func (s *MethodStats) clone() MethodStats {
	cp := *s
	cp.ByRole = cloneMap(s.ByRole)
	cp.ByScope = cloneMap(s.ByScope)
	cp.Failures = cloneMap(s.Failures)
	return cp
}

func cloneMap[K comparable](m map[K]uint64) map[K]uint64 {
	out := make(map[K]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Metrics collects per-method call statistics: which roles answered, from
// which scope the calls came, and why failed calls failed.
type Metrics struct {
	mu      sync.RWMutex
	methods map[string]*MethodStats
	panics  uint64
}

// NewMetrics creates an empty collector.
func NewMetrics() *Metrics {
	return &Metrics{methods: make(map[string]*MethodStats)}
}

// RecordCall records a finished call, nested calls included.
func (m *Metrics) RecordCall(inv *hook.Invocation, out *hook.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.methods[inv.Method]
	if s == nil {
		s = &MethodStats{
			Name:        inv.Method,
			ByRole:      make(map[string]uint64),
			ByScope:     make(map[hook.Scope]uint64),
			Failures:    make(map[string]uint64),
			MinDuration: out.Duration,
		}
		m.methods[inv.Method] = s
	}

	s.Calls++
	s.ByScope[hook.ScopeOf(inv)]++
	if fail := Failure(out.Err); fail != "" {
		s.Failures[fail]++
	} else {
		s.ByRole[out.Role]++
	}

	s.TotalDuration += out.Duration
	if out.Duration < s.MinDuration {
		s.MinDuration = out.Duration
	}
	if out.Duration > s.MaxDuration {
		s.MaxDuration = out.Duration
	}
}

// RecordPanic counts a recovered role function panic.
func (m *Metrics) RecordPanic() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics++
}

// TotalPanics returns the number of recovered panics. A panic is counted
// once even when its error propagates through enclosing calls.
func (m *Metrics) TotalPanics() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.panics
}

// Method returns the statistics of one method.
func (m *Metrics) Method(name string) (MethodStats, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.methods[name]
	if !ok {
		return MethodStats{}, false
	}
	return s.clone(), true
}

// Methods returns every method's statistics, most called first.
func (m *Metrics) Methods() []MethodStats {
	m.mu.RLock()
	out := make([]MethodStats, 0, len(m.methods))
	for _, s := range m.methods {
		out = append(out, s.clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Calls != out[j].Calls {
			return out[i].Calls > out[j].Calls
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// MetricsSnapshot totals the collector at one point in time.
type MetricsSnapshot struct {
	Calls    uint64
	Errors   uint64
	Panics   uint64
	Failures map[string]uint64
	ByRole   map[string]uint64
	Methods  int
}

// Snapshot totals every method.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		Panics:   m.panics,
		Failures: make(map[string]uint64),
		ByRole:   make(map[string]uint64),
		Methods:  len(m.methods),
	}
	for _, s := range m.methods {
		snap.Calls += s.Calls
		for k, v := range s.Failures {
			snap.Failures[k] += v
			snap.Errors += v
		}
		for k, v := range s.ByRole {
			snap.ByRole[k] += v
		}
	}
	return snap
}

// Reset clears all statistics.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.methods = make(map[string]*MethodStats)
	m.panics = 0
}
