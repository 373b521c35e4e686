// Package role defines role implementations: named, immutable tables of
// methods that a dispatcher composes at runtime.
package role

import (
	"fmt"
	"sync"

	"github.com/dshills/persona/internal/dispatcher/execctx"
)

// Func is the unit of behavior produced by a role method. The dispatcher's
// execution context is always the first parameter; role code never captures
// the dispatcher itself.
type Func func(ctx *execctx.Context, args ...any) (any, error)

// Producer returns the Func to execute. It is called once per invocation,
// so a producer may return different functions depending on current state.
type Producer func() Func

// Static returns a Producer that always yields fn.
func Static(fn Func) Producer {
	return func() Func { return fn }
}

// Method describes one entry of a role's method table.
type Method struct {
	// Name is the case-sensitive method identifier.
	Name string

	// Visibility is the declared scope.
	Visibility Visibility

	// Role is the name of the owning role.
	Role string

	// Origin is the definition level that declared the role. Private
	// methods are only visible to functions from the same role and origin.
	Origin string
}

type entry struct {
	desc    Method
	produce Producer
}

// releaser runs a cleanup at most once, shared by every copy of a role.
type releaser struct {
	once sync.Once
	fn   func()
}

// Implementation is an immutable role: a name plus a method table.
type Implementation struct {
	name    string
	origin  string
	methods map[string]entry
	order   []string
	release *releaser
}

// Name returns the role name.
func (i *Implementation) Name() string {
	return i.name
}

// Origin returns the definition level that declared this role.
func (i *Implementation) Origin() string {
	return i.origin
}

// Lookup returns the descriptor and producer for a method.
func (i *Implementation) Lookup(method string) (Method, Producer, bool) {
	e, ok := i.methods[method]
	if !ok {
		return Method{}, nil, false
	}
	return e.desc, e.produce, true
}

// Has returns true if the role declares method in any scope.
func (i *Implementation) Has(method string) bool {
	_, ok := i.methods[method]
	return ok
}

// Methods returns all descriptors in declaration order.
func (i *Implementation) Methods() []Method {
	out := make([]Method, 0, len(i.order))
	for _, name := range i.order {
		out = append(out, i.methods[name].desc)
	}
	return out
}

// Len returns the number of declared methods.
func (i *Implementation) Len() int {
	return len(i.methods)
}

// WithOrigin returns a copy of the role attributed to the given definition level.
func (i *Implementation) WithOrigin(origin string) *Implementation {
	cp := &Implementation{
		name:    i.name,
		origin:  origin,
		methods: make(map[string]entry, len(i.methods)),
		order:   append([]string(nil), i.order...),
		release: i.release,
	}
	for k, e := range i.methods {
		e.desc.Origin = origin
		cp.methods[k] = e
	}
	return cp
}

// Release frees resources held by the role's functions, such as a script
// state. Copies made by WithOrigin share one cleanup, which runs at most
// once. The role must not be called afterwards.
func (i *Implementation) Release() {
	if i == nil || i.release == nil {
		return
	}
	i.release.once.Do(i.release.fn)
}

// Validate checks that the role has a usable name and method table.
// It is safe to call on a nil receiver.
func (i *Implementation) Validate() error {
	if i == nil {
		return fmt.Errorf("%w: nil implementation", ErrInvalidRole)
	}
	if i.methods == nil {
		return fmt.Errorf("%w: %q has no method table", ErrInvalidRole, i.name)
	}
	return CheckName("role", i.name)
}

// Builder assembles an Implementation. The first error encountered is
// reported by Build; later calls become no-ops.
type Builder struct {
	impl *Implementation
	err  error
}

// New starts a role definition.
func New(name string) *Builder {
	b := &Builder{
		impl: &Implementation{
			name:    name,
			methods: make(map[string]entry),
		},
	}
	if err := CheckName("role", name); err != nil {
		b.err = err
	}
	return b
}

// Origin sets the definition level. Dispatchers set this when a role is
// declared by a Definition, so most callers never need it.
func (b *Builder) Origin(origin string) *Builder {
	b.impl.origin = origin
	return b
}

// OnRelease sets the cleanup run by Implementation.Release.
func (b *Builder) OnRelease(fn func()) *Builder {
	if fn != nil {
		b.impl.release = &releaser{fn: fn}
	}
	return b
}

// Method declares a method with an explicit visibility.
func (b *Builder) Method(name string, vis Visibility, p Producer) *Builder {
	if b.err != nil {
		return b
	}
	if err := CheckName("method", name); err != nil {
		b.err = err
		return b
	}
	if p == nil {
		b.err = fmt.Errorf("%w: method %s.%s has no producer", ErrInvalidArgument, b.impl.name, name)
		return b
	}
	if _, exists := b.impl.methods[name]; exists {
		b.err = fmt.Errorf("%w: method %s.%s declared twice", ErrInvalidArgument, b.impl.name, name)
		return b
	}
	b.impl.methods[name] = entry{
		desc:    Method{Name: name, Visibility: vis, Role: b.impl.name},
		produce: p,
	}
	b.impl.order = append(b.impl.order, name)
	return b
}

// Public declares a public method.
func (b *Builder) Public(name string, p Producer) *Builder {
	return b.Method(name, Public, p)
}

// Protected declares a protected method.
func (b *Builder) Protected(name string, p Producer) *Builder {
	return b.Method(name, Protected, p)
}

// Private declares a private method.
func (b *Builder) Private(name string, p Producer) *Builder {
	return b.Method(name, Private, p)
}

// Func declares a method whose producer always returns fn.
func (b *Builder) Func(name string, vis Visibility, fn Func) *Builder {
	if fn == nil {
		return b.Method(name, vis, nil)
	}
	return b.Method(name, vis, Static(fn))
}

// Build finalizes the role.
func (b *Builder) Build() (*Implementation, error) {
	if b.err != nil {
		return nil, b.err
	}
	impl := b.impl.WithOrigin(b.impl.origin)
	return impl, nil
}

// MustBuild is like Build but panics on error. Intended for package-level
// role tables whose shape is fixed at compile time.
func (b *Builder) MustBuild() *Implementation {
	impl, err := b.Build()
	if err != nil {
		panic(err)
	}
	return impl
}
