// Package hook provides extensible pre/post call hooks for the dispatcher.
//
// Hooks intercept every resolved call for logging, validation, tracing,
// telemetry, and other cross-cutting concerns. They are organized by
// priority to control execution order.
//
// # Hook Types
//
// There are two main hook interfaces:
//
//   - PreCallHook: Called before a call is resolved. Can cancel the call.
//   - PostCallHook: Called after the call completes, failed calls included.
//
// Hooks implement the base Hook interface with Name() and Priority() methods
// for identification and ordering.
//
// # Scopes
//
// A hook observes external, internal (role to role) and hinted calls
// unless it implements Scoped or is registered with RegisterFor. A
// validation hook limited to ScopeExternal guards the public surface
// without taxing every nested call.
//
// # Cancellation
//
// A pre-hook cancels with `return inv.Reject(reason)`. The dispatcher
// returns a *CancelError naming the hook, which matches ErrCancelled and
// the reason under errors.Is.
//
// # Priority System
//
//   - Pre-hooks: Higher priority runs first.
//   - Post-hooks: Lower priority runs first, higher runs last (to see final results).
//   - Equal priorities: pre-hooks in registration order, post-hooks reversed.
//
// Standard priority constants are provided:
//
//	PriorityAudit      = 1000 // System/audit hooks
//	PriorityValidation = 800  // Validation before resolution
//	PriorityTelemetry  = 700  // Spans and metrics
//	PriorityTrace      = 500  // Call history
//
// # Usage
//
//	m := hook.NewManager()
//	m.Register(hook.NewAuditHook(logger))
//	m.RegisterFor(hook.ScopeExternal, hook.NewPreCallFunc("deny-ban", 900, func(inv *hook.Invocation) bool {
//	    if inv.Method == "ban" {
//	        return inv.Reject(errForbidden)
//	    }
//	    return true
//	}))
//
// Nested calls issued from inside a role method pass through the hooks
// too, with Invocation.Depth greater than one.
package hook
