// Package dispatcher composes an object out of swappable roles.
//
// A Dispatcher owns a private data segment, a Registry of roles, and an
// EnabledSet naming the roles currently active. Every call is routed
// through the Resolver and executed with an explicit execution context that
// carries the dispatcher's data, so a value written by one role is seen by
// every other role on the next call.
//
// # Resolution
//
// For an unhinted call the resolver scans enabled roles only:
//
//  1. External callers see public methods.
//  2. Role functions and dispatcher-own methods also see protected methods.
//  3. A private method is seen only by functions of the same role declared
//     at the same definition level.
//
// Zero visible matches yield ErrMethodNotImplemented (or ErrIllegalVisibility
// when a match exists but is hidden). Two or more yield ErrAmbiguousMethod
// naming the conflicting roles; enable order never breaks a tie.
//
// A hinted call (execctx.Context.CallRole) consults the named role only,
// ignores the enabled set and skips visibility filtering. Hints are refused
// for external callers, so an ancestor's private helpers are reachable from
// inside a derived role but never from outside.
//
// # Inheritance
//
// A Definition may extend another. Roles declared at each level are
// registered ancestor first; a role of the same name at a derived level is
// layered over the ancestor role. Construction asks the role source for
// "Level.Role" before "Role", so one source can serve both layers. Lookups
// try the newest layer first, skipping layers whose declaration the caller
// cannot see, and a hint of the form "Origin.Role" selects one layer
// explicitly.
//
// # Execution
//
// When a call is dispatched:
//
//  1. The call depth limit is checked
//  2. Pre-call hooks run (may cancel the call)
//  3. Own methods are tried, then roles are resolved
//  4. The resolved producer is called and its function executed in a new frame
//  5. Assertions are re-evaluated if an external call changed the data
//  6. Post-call hooks run
//  7. Metrics are recorded (if enabled)
//
// # Usage
//
//	def := &dispatcher.Definition{
//	    Name:    "Article",
//	    Roles:   []string{"Draft", "Published"},
//	    Initial: []string{"Draft"},
//	}
//	d, err := dispatcher.New(def, source, dispatcher.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	_, err = d.Call("setTitle", "Hello")
//
// A Dispatcher has no internal locking. Share an instance across goroutines
// only behind an external mutex.
package dispatcher
