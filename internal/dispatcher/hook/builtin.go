package hook

import (
	"sync"
	"time"
)

// Standard hook priorities.
const (
	PriorityAudit      = 1000 // Runs first (pre) / last (post)
	PriorityValidation = 800  // Validate before resolution
	PriorityTelemetry  = 700  // Instrumentation
	PriorityTrace      = 500  // Capture call history
)

// Logger is the interface for logging hooks. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// AuditHook logs every call for debugging and audit trails.
type AuditHook struct {
	logger Logger
}

// NewAuditHook creates an audit hook with the given logger.
func NewAuditHook(logger Logger) *AuditHook {
	return &AuditHook{logger: logger}
}

// Name implements Hook.
func (h *AuditHook) Name() string { return "audit" }

// Priority implements Hook.
func (h *AuditHook) Priority() int { return PriorityAudit }

// PreCall logs the call being resolved.
func (h *AuditHook) PreCall(inv *Invocation) bool {
	if h.logger != nil {
		h.logger.Debug("call start",
			"method", inv.Method,
			"hint", inv.Hint,
			"caller", inv.Caller.Kind.String(),
			"depth", inv.Depth,
		)
	}
	return true
}

// PostCall logs the call outcome.
func (h *AuditHook) PostCall(inv *Invocation, out *Outcome) {
	if h.logger == nil {
		return
	}

	if out.Err != nil {
		h.logger.Error("call failed",
			"method", inv.Method,
			"role", out.Role,
			"error", out.Err,
		)
		return
	}
	h.logger.Debug("call complete",
		"method", inv.Method,
		"role", out.Role,
		"duration", out.Duration,
	)
}

// ValidationHook cancels calls rejected by a custom function. The
// function's error becomes the reason of the call's CancelError.
type ValidationHook struct {
	name     string
	priority int
	scope    Scope
	validate func(*Invocation) error

	mu      sync.Mutex
	lastErr error
}

// NewValidationHook creates a validation hook applied to calls in scope.
func NewValidationHook(name string, priority int, scope Scope, validate func(*Invocation) error) *ValidationHook {
	return &ValidationHook{
		name:     name,
		priority: priority,
		scope:    scope,
		validate: validate,
	}
}

// Scope implements Scoped.
func (h *ValidationHook) Scope() Scope { return h.scope }

// Name implements Hook.
func (h *ValidationHook) Name() string { return h.name }

// Priority implements Hook.
func (h *ValidationHook) Priority() int { return h.priority }

// PreCall validates the invocation and cancels it if invalid.
func (h *ValidationHook) PreCall(inv *Invocation) bool {
	if h.validate == nil {
		return true
	}
	err := h.validate(inv)

	h.mu.Lock()
	h.lastErr = err
	h.mu.Unlock()

	if err != nil {
		return inv.Reject(err)
	}
	return true
}

// LastError returns the error from the most recent validation.
func (h *ValidationHook) LastError() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

// CallRecord is one entry in a TraceHook history.
type CallRecord struct {
	Timestamp time.Time
	Method    string
	Hint      string
	Role      string
	Caller    string
	Depth     int
	Err       error
}

// TraceHook records the call history of a dispatcher, nested calls included.
type TraceHook struct {
	mu      sync.RWMutex
	records []CallRecord
	maxSize int
}

// NewTraceHook creates a trace hook. maxSize limits retained records (0 = unlimited).
func NewTraceHook(maxSize int) *TraceHook {
	return &TraceHook{maxSize: maxSize}
}

// Name implements Hook.
func (h *TraceHook) Name() string { return "trace" }

// Priority implements Hook.
func (h *TraceHook) Priority() int { return PriorityTrace }

// PostCall appends the call to the history.
func (h *TraceHook) PostCall(inv *Invocation, out *Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, CallRecord{
		Timestamp: time.Now(),
		Method:    inv.Method,
		Hint:      inv.Hint,
		Role:      out.Role,
		Caller:    inv.Caller.Kind.String(),
		Depth:     inv.Depth,
		Err:       out.Err,
	})

	if h.maxSize > 0 && len(h.records) > h.maxSize {
		h.records = h.records[len(h.records)-h.maxSize:]
	}
}

// Records returns a copy of the recorded calls, oldest first.
func (h *TraceHook) Records() []CallRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]CallRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Clear removes all recorded calls.
func (h *TraceHook) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = nil
}
