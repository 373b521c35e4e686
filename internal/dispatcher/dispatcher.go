package dispatcher

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/persona/internal/assertion"
	"github.com/dshills/persona/internal/dispatcher/execctx"
	"github.com/dshills/persona/internal/dispatcher/hook"
	"github.com/dshills/persona/internal/props"
	"github.com/dshills/persona/internal/role"
)

// UnhandledFunc answers calls that no role implements. It runs with the
// dispatcher's own identity.
type UnhandledFunc func(ctx *execctx.Context, method string, args []any) (any, error)

// Dispatcher is a composed object whose behavior is provided by its
// currently enabled roles.
//
// A Dispatcher is not safe for concurrent use. Callers sharing one instance
// across goroutines must serialize every call and role operation.
type Dispatcher struct {
	id     string
	def    *Definition
	config Config

	// Role state
	registry *Registry
	enabled  *EnabledSet
	resolver *Resolver

	// Unregistered roles awaiting release. They may still be running when
	// removed, so they are released at the next Reinitialize or Close.
	retired []*role.Implementation

	// Private data segment shared by every role function
	data *props.Data

	own        map[string]OwnMethod
	assertions *assertion.Engine
	unhandled  UnhandledFunc

	hooks   *hook.Manager
	metrics *Metrics

	// frames holds the contexts of calls currently executing. A context
	// not in this set is treated as an external caller.
	frames map[*execctx.Context]struct{}
	depth  int
}

// New creates a dispatcher from a definition, resolving its roles through src.
func New(def *Definition, src role.Source, config Config) (*Dispatcher, error) {
	d, err := newDispatcher(def, config)
	if err != nil {
		return nil, err
	}
	def.Initialize(d.data)
	for k, v := range config.InitialData {
		d.data.Set(k, v)
	}
	if err := d.Reinitialize(src); err != nil {
		return nil, err
	}
	return d, nil
}

// Restore rebuilds a dispatcher around previously saved data without running
// the definition's initializers, then runs the construction hook.
func Restore(def *Definition, src role.Source, data map[string]any, config Config) (*Dispatcher, error) {
	d, err := newDispatcher(def, config)
	if err != nil {
		return nil, err
	}
	d.data.Replace(data)
	if err := d.Reinitialize(src); err != nil {
		return nil, err
	}
	return d, nil
}

func newDispatcher(def *Definition, config Config) (*Dispatcher, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	d := &Dispatcher{
		id:         uuid.NewString(),
		def:        def,
		config:     config,
		data:       props.New(),
		own:        def.OwnMethods(),
		assertions: assertion.NewEngine(def.AllAssertions()...),
		hooks:      hook.NewManager(),
		frames:     make(map[*execctx.Context]struct{}),
	}
	d.use(NewRegistry(), NewEnabledSet())

	if config.EnableMetrics {
		d.metrics = NewMetrics()
	}
	if config.Logger != nil {
		d.hooks.Register(hook.NewAuditHook(config.Logger))
	}
	return d, nil
}

// Call invokes a method as an external caller. Only public methods resolve.
func (d *Dispatcher) Call(method string, args ...any) (any, error) {
	return d.invoke(d.Context(), execctx.External, "", method, args)
}

// Context returns a root context for code outside the dispatcher. Calls made
// through it are external.
func (d *Dispatcher) Context() *execctx.Context {
	return execctx.New(d, d.data)
}

// Invoke implements execctx.Invoker. The caller identity is taken from ctx
// only if ctx belongs to a call this dispatcher is currently executing.
func (d *Dispatcher) Invoke(ctx *execctx.Context, hint, method string, args []any) (any, error) {
	caller := execctx.External
	if _, ok := d.frames[ctx]; ok {
		caller = ctx.Caller()
	} else {
		ctx = d.Context()
	}
	return d.invoke(ctx, caller, hint, method, args)
}

func (d *Dispatcher) invoke(parent *execctx.Context, caller execctx.Caller, hint, method string, args []any) (any, error) {
	start := time.Now()
	inv := &hook.Invocation{
		Method:     method,
		Hint:       hint,
		Args:       args,
		Caller:     caller,
		Depth:      d.depth + 1,
		Dispatcher: d.id,
	}
	out := &hook.Outcome{}

	if d.config.MaxCallDepth > 0 && d.depth >= d.config.MaxCallDepth {
		out.Err = newCallError("call", method, hint, ErrCallDepthExceeded)
	} else if err := d.hooks.RunPreCall(inv); err != nil {
		out.Err = newCallError("call", inv.Method, hint, err)
	} else {
		rev := d.data.Revision()
		out.Role, out.Value, out.Err = d.descend(parent, inv)

		if out.Err == nil && d.depth == 0 && d.config.AutoAssert && d.data.Revision() != rev {
			out.Err = d.UpdateRoles()
		}
	}

	out.Duration = time.Since(start)
	d.hooks.RunPostCall(inv, out)
	if d.metrics != nil {
		d.metrics.RecordCall(inv, out)
	}
	return out.Value, out.Err
}

// descend runs execute one level deeper. The depth is restored even when a
// panic escapes with recovery turned off.
func (d *Dispatcher) descend(parent *execctx.Context, inv *hook.Invocation) (string, any, error) {
	d.depth++
	defer func() { d.depth-- }()
	return d.execute(parent, inv)
}

// execute resolves inv and runs the selected function.
func (d *Dispatcher) execute(parent *execctx.Context, inv *hook.Invocation) (string, any, error) {
	var hiddenOwn bool
	if inv.Hint == "" {
		if m, ok := d.own[inv.Method]; ok {
			if ownVisible(m, inv.Caller) {
				child := parent.Enter(execctx.Caller{Kind: execctx.CallerSelf}, inv.Method)
				v, err := d.run(child, "", m.Func, inv.Args)
				return "", v, err
			}
			hiddenOwn = true
		}
	}

	res, err := d.resolver.Resolve(Request{Method: inv.Method, Hint: inv.Hint, Caller: inv.Caller})
	if err != nil {
		if errors.Is(err, ErrMethodNotImplemented) && inv.Hint == "" {
			if hiddenOwn {
				return "", nil, newCallError("call", inv.Method, "", ErrIllegalVisibility)
			}
			if d.unhandled != nil {
				child := parent.Enter(execctx.Caller{Kind: execctx.CallerSelf}, inv.Method)
				v, uerr := d.run(child, "", func(ctx *execctx.Context, args ...any) (any, error) {
					return d.unhandled(ctx, inv.Method, args)
				}, inv.Args)
				return "", v, uerr
			}
		}
		return "", nil, err
	}

	fn := res.Producer()
	if fn == nil {
		return res.Role, nil, newCallError("call", inv.Method, res.Role,
			fmt.Errorf("%w: producer returned no function", ErrInvalidRole))
	}

	child := parent.Enter(execctx.Caller{
		Kind:   execctx.CallerRole,
		Role:   res.Method.Role,
		Origin: res.Method.Origin,
	}, inv.Method)
	v, err := d.run(child, res.Role, fn, inv.Args)
	return res.Role, v, err
}

// run executes fn inside a tracked frame.
func (d *Dispatcher) run(ctx *execctx.Context, roleName string, fn role.Func, args []any) (result any, err error) {
	d.frames[ctx] = struct{}{}
	defer delete(d.frames, ctx)

	if d.config.RecoverFromPanic {
		defer func() {
			if r := recover(); r != nil {
				stack := make([]byte, 4096)
				n := runtime.Stack(stack, false)

				result = nil
				err = newCallError("call", ctx.Method(), roleName, fmt.Errorf("%w: %v", ErrPanic, r))

				if d.metrics != nil {
					d.metrics.RecordPanic()
				}
				if d.config.Logger != nil {
					d.config.Logger.Error("role function panic",
						"dispatcher", d.id,
						"method", ctx.Method(),
						"role", roleName,
						"panic", fmt.Sprint(r),
						"stack", string(stack[:n]),
					)
				}
			}
		}()
	}

	return fn(ctx, args...)
}

func ownVisible(m OwnMethod, caller execctx.Caller) bool {
	switch m.Visibility {
	case role.Public:
		return true
	case role.Protected:
		return caller.IsInternal()
	case role.Private:
		return caller.Kind == execctx.CallerSelf
	default:
		return false
	}
}

// Enable adds a registered role to the enabled set. Enabling an enabled
// role is a no-op.
func (d *Dispatcher) Enable(name string) error {
	if !d.registry.Has(name) {
		return newCallError("enable", "", name, ErrRoleNotFound)
	}
	if d.enabled.Add(name) {
		d.logTransition("role enabled", name)
	}
	return nil
}

// Disable removes a role from the enabled set. Disabling a registered but
// inactive role is a no-op.
func (d *Dispatcher) Disable(name string) error {
	if !d.registry.Has(name) {
		return newCallError("disable", "", name, ErrRoleNotFound)
	}
	if d.enabled.Remove(name) {
		d.logTransition("role disabled", name)
	}
	return nil
}

// DisableAll empties the enabled set.
func (d *Dispatcher) DisableAll() {
	if d.enabled.Len() == 0 {
		return
	}
	d.enabled.Clear()
	d.logTransition("roles cleared", "")
}

// Switch makes name the only enabled role. If name is not registered the
// enabled set is left unchanged.
func (d *Dispatcher) Switch(name string) error {
	if !d.registry.Has(name) {
		return newCallError("switch", "", name, ErrRoleNotFound)
	}
	d.enabled.Clear()
	d.enabled.Add(name)
	d.logTransition("role switched", name)
	return nil
}

// IsEnabled returns true if the role is currently enabled.
func (d *Dispatcher) IsEnabled(name string) bool {
	return d.enabled.Contains(name)
}

// EnabledRoles returns the enabled roles in enable order.
func (d *Dispatcher) EnabledRoles() []string {
	return d.enabled.Names()
}

// Roles returns the registered roles in registration order.
func (d *Dispatcher) Roles() []string {
	return d.registry.Names()
}

// Register adds a role at runtime. Roles without an origin are attributed
// to the dispatcher's definition.
func (d *Dispatcher) Register(name string, impl *role.Implementation) error {
	return d.registry.Register(name, d.attribute(impl))
}

// RegisterOverride layers a role over an existing role of the same name.
func (d *Dispatcher) RegisterOverride(name string, impl *role.Implementation) error {
	return d.registry.RegisterOverride(name, d.attribute(impl))
}

func (d *Dispatcher) attribute(impl *role.Implementation) *role.Implementation {
	if impl.Validate() == nil && impl.Origin() == "" {
		return impl.WithOrigin(d.def.Name)
	}
	return impl
}

// Unregister removes a role, disabling it first if it is enabled.
func (d *Dispatcher) Unregister(name string) error {
	if !d.registry.Has(name) {
		return newCallError("unregister", "", name, ErrRoleNotFound)
	}
	if d.enabled.Remove(name) {
		d.logTransition("role disabled", name)
	}
	d.retired = append(d.retired, d.registry.Layers(name)...)
	return d.registry.Unregister(name)
}

// Close releases every role the dispatcher holds, including unregistered
// ones, and leaves it with no roles. The data segment is kept, so
// Reinitialize can bring the dispatcher back.
func (d *Dispatcher) Close() error {
	if d.depth > 0 {
		return fmt.Errorf("%w: cannot close during a call", ErrInvalidArgument)
	}
	releaseAll(d.registry)
	d.releaseRetired()
	d.use(NewRegistry(), NewEnabledSet())
	return nil
}

func (d *Dispatcher) releaseRetired() {
	for _, impl := range d.retired {
		impl.Release()
	}
	d.retired = nil
}

// UpdateRoles evaluates the dispatcher's assertions against its data.
func (d *Dispatcher) UpdateRoles() error {
	if d.assertions.Len() == 0 {
		return nil
	}
	return d.assertions.Evaluate(d.data, d)
}

// AddAssertion appends an assertion evaluated after the definition's own.
func (d *Dispatcher) AddAssertion(a assertion.Assertion) {
	d.assertions.Add(a)
}

// SetUnhandled installs a handler for calls no role implements.
// Pass nil to restore ErrMethodNotImplemented.
func (d *Dispatcher) SetUnhandled(fn UnhandledFunc) {
	d.unhandled = fn
}

// ID returns the dispatcher instance ID.
func (d *Dispatcher) ID() string {
	return d.id
}

// Definition returns the dispatcher's definition.
func (d *Dispatcher) Definition() *Definition {
	return d.def
}

// Data returns the private data segment.
func (d *Dispatcher) Data() *props.Data {
	return d.data
}

// Registry returns the role registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Hooks returns the hook manager.
func (d *Dispatcher) Hooks() *hook.Manager {
	return d.hooks
}

// Metrics returns the metrics collector (may be nil if disabled).
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// Config returns the dispatcher configuration.
func (d *Dispatcher) Config() Config {
	return d.config
}

// Depth returns the nesting depth of the call currently executing.
func (d *Dispatcher) Depth() int {
	return d.depth
}

func (d *Dispatcher) logTransition(msg, name string) {
	if d.config.Logger == nil {
		return
	}
	d.config.Logger.Debug(msg,
		"dispatcher", d.id,
		"definition", d.def.Name,
		"role", name,
		"enabled", d.enabled.Names(),
	)
}
