package dispatcher

import (
	"fmt"

	"github.com/dshills/persona/internal/role"
)

// Registry owns every role known to one dispatcher instance.
//
// A role name maps to a stack of layers. Register creates a single-layer
// role; RegisterOverride pushes a derived layer on top of an existing one.
// Lookups consult layers from the top down, so the newest layer wins for a
// method it declares and older layers still answer for the rest.
//
// Registry has no internal locking; it belongs to a single dispatcher.
type Registry struct {
	roles map[string][]*role.Implementation
	order []string
}

// NewRegistry creates an empty role registry.
func NewRegistry() *Registry {
	return &Registry{
		roles: make(map[string][]*role.Implementation),
	}
}

// Register adds a role. The implementation's own name must match name.
func (r *Registry) Register(name string, impl *role.Implementation) error {
	if err := r.check("register", name, impl); err != nil {
		return err
	}
	if _, exists := r.roles[name]; exists {
		return newCallError("register", "", name, ErrDuplicateRole)
	}

	r.roles[name] = []*role.Implementation{impl}
	r.order = append(r.order, name)
	return nil
}

// RegisterOverride layers impl on top of an existing role of the same name.
// If the role is not registered yet it behaves like Register.
func (r *Registry) RegisterOverride(name string, impl *role.Implementation) error {
	if err := r.check("register", name, impl); err != nil {
		return err
	}
	layers, exists := r.roles[name]
	if !exists {
		r.roles[name] = []*role.Implementation{impl}
		r.order = append(r.order, name)
		return nil
	}
	r.roles[name] = append(layers, impl)
	return nil
}

// Unregister removes a role and all of its layers.
func (r *Registry) Unregister(name string) error {
	if _, exists := r.roles[name]; !exists {
		return newCallError("unregister", "", name, ErrRoleNotFound)
	}
	delete(r.roles, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Has returns true if the role is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.roles[name]
	return ok
}

// Get returns the top layer of a role, or nil if it is not registered.
func (r *Registry) Get(name string) *role.Implementation {
	layers := r.roles[name]
	if len(layers) == 0 {
		return nil
	}
	return layers[len(layers)-1]
}

// Layers returns every layer of a role, oldest first.
func (r *Registry) Layers(name string) []*role.Implementation {
	layers := r.roles[name]
	out := make([]*role.Implementation, len(layers))
	copy(out, layers)
	return out
}

// Names returns all registered role names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered roles.
func (r *Registry) Len() int {
	return len(r.roles)
}

// Lookup finds method on the named role, newest layer first.
func (r *Registry) Lookup(name, method string) (role.Method, role.Producer, bool) {
	layers := r.roles[name]
	for i := len(layers) - 1; i >= 0; i-- {
		if desc, p, ok := layers[i].Lookup(method); ok {
			return desc, p, true
		}
	}
	return role.Method{}, nil, false
}

// LookupAt finds method on the layer of the named role declared by origin.
func (r *Registry) LookupAt(name, origin, method string) (role.Method, role.Producer, bool) {
	for _, impl := range r.roles[name] {
		if impl.Origin() == origin {
			return impl.Lookup(method)
		}
	}
	return role.Method{}, nil, false
}

// HasLayer returns true if the named role has a layer declared by origin.
func (r *Registry) HasLayer(name, origin string) bool {
	for _, impl := range r.roles[name] {
		if impl.Origin() == origin {
			return true
		}
	}
	return false
}

// Methods returns the effective method table of a role: each method name
// once, as seen by Lookup, in declaration order with older layers first.
func (r *Registry) Methods(name string) []role.Method {
	layers := r.roles[name]
	seen := make(map[string]bool)
	var out []role.Method
	for _, impl := range layers {
		for _, m := range impl.Methods() {
			if seen[m.Name] {
				continue
			}
			seen[m.Name] = true
			desc, _, _ := r.Lookup(name, m.Name)
			out = append(out, desc)
		}
	}
	return out
}

// Clear removes every role.
func (r *Registry) Clear() {
	r.roles = make(map[string][]*role.Implementation)
	r.order = nil
}

func (r *Registry) check(op, name string, impl *role.Implementation) error {
	if err := role.CheckName("role", name); err != nil {
		return newCallError(op, "", name, err)
	}
	if err := impl.Validate(); err != nil {
		return newCallError(op, "", name, err)
	}
	if impl.Name() != name {
		return newCallError(op, "", name, fmt.Errorf("%w: implementation is named %q", ErrInvalidArgument, impl.Name()))
	}
	return nil
}
