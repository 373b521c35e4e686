package dispatcher

import (
	"errors"
	"fmt"

	"github.com/dshills/persona/internal/role"
)

// Reinitialize is the construction hook. It resolves every declared role
// through src into a fresh registry, registering ancestor levels first with
// derived same-named roles layered on top, checks that every assertion
// names a registered role, applies the initial switch and enables, then
// evaluates assertions once.
//
// The new registry and enabled set replace the current ones only when all
// of that succeeds; on failure the dispatcher keeps its previous roles and
// the partially built ones are released. Replaced roles are released after
// the swap, so a *Registry obtained earlier must not be used to call them.
//
// New and Restore call it; persistence code that rebuilt the data segment
// by other means may call it directly. The data segment is left untouched.
func (d *Dispatcher) Reinitialize(src role.Source) error {
	if src == nil {
		return fmt.Errorf("%w: role source is required", ErrInvalidArgument)
	}
	if d.depth > 0 {
		return fmt.Errorf("%w: cannot reinitialize during a call", ErrInvalidArgument)
	}

	prevRegistry, prevEnabled := d.registry, d.enabled
	d.use(NewRegistry(), NewEnabledSet())
	if err := d.construct(src); err != nil {
		releaseAll(d.registry)
		d.use(prevRegistry, prevEnabled)
		return err
	}

	releaseAll(prevRegistry)
	d.releaseRetired()
	return nil
}

func (d *Dispatcher) construct(src role.Source) error {
	for _, decl := range d.def.Declared() {
		impl, err := resolveDeclared(src, decl)
		if err != nil {
			if errors.Is(err, role.ErrNotFound) {
				return &CallError{Op: "construct", Role: decl.Role, Err: fmt.Errorf("%w: %w", ErrRoleNotFound, err)}
			}
			return &CallError{Op: "construct", Role: decl.Role, Err: err}
		}
		if err := impl.Validate(); err != nil {
			impl.Release()
			return newCallError("construct", "", decl.Role, err)
		}
		if impl.Name() != decl.Role {
			impl.Release()
			return newCallError("construct", "", decl.Role,
				fmt.Errorf("%w: source returned role %q", ErrInvalidRole, impl.Name()))
		}
		if err := d.registry.RegisterOverride(decl.Role, impl.WithOrigin(decl.Origin)); err != nil {
			impl.Release()
			return err
		}
	}

	if err := d.assertions.Validate(); err != nil {
		return err
	}
	if err := d.assertions.CheckRoles(d.registry.Has); err != nil {
		return &CallError{Op: "construct", Err: fmt.Errorf("%w: %w", ErrRoleNotFound, err)}
	}

	initialSwitch, initial := d.def.InitialRoles()
	if initialSwitch != "" {
		if err := d.Switch(initialSwitch); err != nil {
			return err
		}
	}
	for _, name := range initial {
		if err := d.Enable(name); err != nil {
			return err
		}
	}

	return d.UpdateRoles()
}

// use points the dispatcher and its resolver at a registry and enabled set.
func (d *Dispatcher) use(registry *Registry, enabled *EnabledSet) {
	d.registry = registry
	d.enabled = enabled
	d.resolver = NewResolver(registry, enabled)
}

// releaseAll releases every layer of every role in r.
func releaseAll(r *Registry) {
	for _, name := range r.Names() {
		for _, impl := range r.Layers(name) {
			impl.Release()
		}
	}
}

// resolveDeclared asks src for "Origin.Role" first, so a source can supply
// a level-specific implementation, then for the bare role name.
func resolveDeclared(src role.Source, decl Declaration) (*role.Implementation, error) {
	impl, err := src.Resolve(decl.Origin + "." + decl.Role)
	if !errors.Is(err, role.ErrNotFound) {
		return impl, err
	}
	return src.Resolve(decl.Role)
}
