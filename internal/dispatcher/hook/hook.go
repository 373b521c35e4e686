package hook

import (
	"time"

	"github.com/dshills/persona/internal/dispatcher/execctx"
)

// Invocation describes a call about to be resolved.
type Invocation struct {
	// Method is the requested method name.
	Method string

	// Hint is the explicit role name, or "" for ordinary resolution.
	Hint string

	// Args are the forwarded call arguments.
	Args []any

	// Caller is the identity used for visibility checks.
	Caller execctx.Caller

	// Depth is the re-entrancy depth of the call (1 for external calls).
	Depth int

	// Dispatcher is the ID of the dispatcher handling the call.
	Dispatcher string

	reason error
}

// Reject records why a pre-call hook refuses the call and returns false,
// so a hook can end with `return inv.Reject(err)`.
func (inv *Invocation) Reject(reason error) bool {
	inv.reason = reason
	return false
}

// Outcome describes the result of a call.
type Outcome struct {
	// Role is the role that answered the call ("" for dispatcher methods
	// and failed resolutions).
	Role string

	// Value is the returned value.
	Value any

	// Err is the returned error.
	Err error

	// Duration is the wall time spent resolving and executing.
	Duration time.Duration
}

// Hook is the base interface for all call hooks.
type Hook interface {
	// Name returns a unique identifier for this hook.
	Name() string

	// Priority returns the hook priority.
	// Higher values run first for pre-hooks, last for post-hooks.
	// Standard priorities:
	//   1000+ = system/critical hooks
	//   500-999 = framework hooks
	//   0-99 = user hooks
	Priority() int
}

// PreCallHook is called before a call is resolved.
type PreCallHook interface {
	Hook

	// PreCall may inspect or modify the invocation.
	// Returns false to cancel the call, usually through inv.Reject.
	PreCall(inv *Invocation) bool
}

// PostCallHook is called after a call completes, including failed ones.
type PostCallHook interface {
	Hook

	// PostCall may inspect or modify the outcome.
	PostCall(inv *Invocation, out *Outcome)
}

// PreCallFunc wraps a function as a PreCallHook.
type PreCallFunc struct {
	name     string
	priority int
	fn       func(inv *Invocation) bool
}

// NewPreCallFunc creates a new PreCallFunc hook.
func NewPreCallFunc(name string, priority int, fn func(inv *Invocation) bool) *PreCallFunc {
	return &PreCallFunc{
		name:     name,
		priority: priority,
		fn:       fn,
	}
}

// Name implements Hook.
func (f *PreCallFunc) Name() string { return f.name }

// Priority implements Hook.
func (f *PreCallFunc) Priority() int { return f.priority }

// PreCall implements PreCallHook.
func (f *PreCallFunc) PreCall(inv *Invocation) bool {
	if f.fn == nil {
		return true
	}
	return f.fn(inv)
}

// PostCallFunc wraps a function as a PostCallHook.
type PostCallFunc struct {
	name     string
	priority int
	fn       func(inv *Invocation, out *Outcome)
}

// NewPostCallFunc creates a new PostCallFunc hook.
func NewPostCallFunc(name string, priority int, fn func(inv *Invocation, out *Outcome)) *PostCallFunc {
	return &PostCallFunc{
		name:     name,
		priority: priority,
		fn:       fn,
	}
}

// Name implements Hook.
func (f *PostCallFunc) Name() string { return f.name }

// Priority implements Hook.
func (f *PostCallFunc) Priority() int { return f.priority }

// PostCall implements PostCallHook.
func (f *PostCallFunc) PostCall(inv *Invocation, out *Outcome) {
	if f.fn != nil {
		f.fn(inv, out)
	}
}

// CombinedHook implements both PreCallHook and PostCallHook.
type CombinedHook interface {
	PreCallHook
	PostCallHook
}
