// Package execctx provides the execution context handed to role functions.
//
// A role function never holds a reference to the dispatcher directly. The
// invoker builds a Context for every call, and the Context carries the
// dispatcher's data segment and the identity of the calling role. Re-entrant
// calls go back through the Context so that the resolver sees the elevated
// caller scope.
package execctx

import (
	"github.com/dshills/persona/internal/props"
)

// CallerKind classifies where a call originates.
type CallerKind uint8

const (
	// CallerExternal is code outside the dispatcher. Only public methods resolve.
	CallerExternal CallerKind = iota
	// CallerSelf is a method declared by the dispatcher itself.
	CallerSelf
	// CallerRole is a function produced by one of the dispatcher's roles.
	CallerRole
)

// String returns a string representation of the caller kind.
func (k CallerKind) String() string {
	switch k {
	case CallerExternal:
		return "external"
	case CallerSelf:
		return "self"
	case CallerRole:
		return "role"
	default:
		return "unknown"
	}
}

// Caller identifies the origin of a call for visibility checks.
type Caller struct {
	Kind CallerKind

	// Role is the name of the calling role (CallerRole only).
	Role string

	// Origin is the definition level that declared the calling role.
	Origin string
}

// External is the caller used for calls entering from outside the dispatcher.
var External = Caller{Kind: CallerExternal}

// IsInternal returns true if the call originates inside the dispatcher.
func (c Caller) IsInternal() bool {
	return c.Kind != CallerExternal
}

// Invoker is the part of the dispatcher visible to role functions.
type Invoker interface {
	// Invoke resolves and executes a method on behalf of ctx.
	// A non-empty hint restricts resolution to that role.
	Invoke(ctx *Context, hint, method string, args []any) (any, error)

	Enable(name string) error
	Disable(name string) error
	DisableAll()
	Switch(name string) error
	IsEnabled(name string) bool
	EnabledRoles() []string
	ID() string
}

// Context is the explicit "self" passed as first argument to role functions.
type Context struct {
	invoker Invoker
	data    *props.Data
	caller  Caller
	method  string
	depth   int
}

// New creates a root context for calls entering the dispatcher from outside.
func New(inv Invoker, data *props.Data) *Context {
	if data == nil {
		data = props.New()
	}
	return &Context{
		invoker: inv,
		data:    data,
		caller:  External,
	}
}

// Enter returns a child context for executing method as caller.
// The child shares the dispatcher and data segment with its parent.
func (ctx *Context) Enter(caller Caller, method string) *Context {
	return &Context{
		invoker: ctx.invoker,
		data:    ctx.data,
		caller:  caller,
		method:  method,
		depth:   ctx.depth + 1,
	}
}

// Data returns the dispatcher's private data segment.
func (ctx *Context) Data() *props.Data {
	return ctx.data
}

// Get reads a property from the dispatcher's data.
func (ctx *Context) Get(key string) (any, bool) {
	return ctx.data.Get(key)
}

// GetString reads a string property from the dispatcher's data.
func (ctx *Context) GetString(key string) string {
	return ctx.data.String(key)
}

// Set writes a property to the dispatcher's data.
func (ctx *Context) Set(key string, value any) {
	ctx.data.Set(key, value)
}

// Call invokes another method on the same dispatcher with this context's
// caller scope, so protected methods and the caller's own private methods resolve.
func (ctx *Context) Call(method string, args ...any) (any, error) {
	return ctx.invoker.Invoke(ctx, "", method, args)
}

// CallRole invokes method on the named role only, regardless of whether the
// role is enabled and regardless of the method's visibility.
func (ctx *Context) CallRole(role, method string, args ...any) (any, error) {
	return ctx.invoker.Invoke(ctx, role, method, args)
}

// Enable enables a role on the dispatcher.
func (ctx *Context) Enable(name string) error {
	return ctx.invoker.Enable(name)
}

// Disable disables a role on the dispatcher.
func (ctx *Context) Disable(name string) error {
	return ctx.invoker.Disable(name)
}

// DisableAll disables every role on the dispatcher.
func (ctx *Context) DisableAll() {
	ctx.invoker.DisableAll()
}

// Switch makes name the only enabled role.
func (ctx *Context) Switch(name string) error {
	return ctx.invoker.Switch(name)
}

// IsEnabled returns true if the role is currently enabled.
func (ctx *Context) IsEnabled(name string) bool {
	return ctx.invoker.IsEnabled(name)
}

// EnabledRoles returns the currently enabled roles in enable order.
func (ctx *Context) EnabledRoles() []string {
	return ctx.invoker.EnabledRoles()
}

// Caller returns the identity used for visibility checks.
func (ctx *Context) Caller() Caller {
	return ctx.caller
}

// Role returns the name of the role whose function is executing.
func (ctx *Context) Role() string {
	return ctx.caller.Role
}

// Origin returns the definition level of the executing role.
func (ctx *Context) Origin() string {
	return ctx.caller.Origin
}

// Method returns the method being executed, or "" for a root context.
func (ctx *Context) Method() string {
	return ctx.method
}

// Depth returns the nesting depth; 0 for a root context.
func (ctx *Context) Depth() int {
	return ctx.depth
}

// DispatcherID returns the owning dispatcher's instance ID.
func (ctx *Context) DispatcherID() string {
	return ctx.invoker.ID()
}

// Validate checks that the context is attached to a dispatcher.
func (ctx *Context) Validate() error {
	if ctx.invoker == nil {
		return ErrMissingInvoker
	}
	return nil
}
