package dispatcher

import (
	"fmt"

	"github.com/dshills/persona/internal/assertion"
	"github.com/dshills/persona/internal/props"
	"github.com/dshills/persona/internal/role"
)

// OwnMethod is a method declared by the dispatcher definition itself rather
// than by a role. Own methods run with the dispatcher's own identity and may
// call protected role methods.
type OwnMethod struct {
	Name       string
	Visibility role.Visibility
	Func       role.Func
}

// Definition is the static declaration of a dispatcher type.
//
// A definition may extend a parent. The derived definition's declared roles
// are the union of every ancestor's roles and its own, ancestors first; a
// role name repeated at a derived level is layered over the ancestor role.
type Definition struct {
	// Name identifies the definition and is the origin of the roles it declares.
	Name string

	// Parent is the extended definition, or nil.
	Parent *Definition

	// Roles lists role identifiers resolved through a role.Source.
	Roles []string

	// Methods are dispatcher-own methods.
	Methods []OwnMethod

	// Initial lists roles enabled at construction. A nil slice inherits
	// the parent's list.
	Initial []string

	// InitialSwitch, if set, is switched to before Initial is applied.
	// Inherited when empty and Initial is nil.
	InitialSwitch string

	// Assertions are evaluated at construction and after mutating calls.
	// Ancestor assertions run first.
	Assertions []assertion.Assertion

	// Init seeds the data segment of a new dispatcher. Ancestor
	// initializers run first. Restore skips it.
	Init func(data *props.Data)
}

// Declaration is one role declared at one definition level.
type Declaration struct {
	Origin string
	Role   string
}

// Validate checks names and the parent chain.
func (def *Definition) Validate() error {
	if def == nil {
		return fmt.Errorf("%w: nil definition", ErrInvalidArgument)
	}
	seen := make(map[*Definition]bool)
	for d := def; d != nil; d = d.Parent {
		if seen[d] {
			return fmt.Errorf("%w: definition %q extends itself", ErrInvalidArgument, def.Name)
		}
		seen[d] = true

		if err := role.CheckName("definition", d.Name); err != nil {
			return err
		}
		levelRoles := make(map[string]bool, len(d.Roles))
		for _, r := range d.Roles {
			if err := role.CheckName("role", r); err != nil {
				return fmt.Errorf("definition %s: %w", d.Name, err)
			}
			if levelRoles[r] {
				return newCallError("declare", "", r, ErrDuplicateRole)
			}
			levelRoles[r] = true
		}
		levelMethods := make(map[string]bool, len(d.Methods))
		for _, m := range d.Methods {
			if err := role.CheckName("method", m.Name); err != nil {
				return fmt.Errorf("definition %s: %w", d.Name, err)
			}
			if m.Func == nil {
				return fmt.Errorf("%w: method %s.%s has no function", ErrInvalidArgument, d.Name, m.Name)
			}
			if levelMethods[m.Name] {
				return fmt.Errorf("%w: method %s.%s declared twice", ErrInvalidArgument, d.Name, m.Name)
			}
			levelMethods[m.Name] = true
		}
	}
	return nil
}

// Lineage returns the definition chain, root ancestor first.
func (def *Definition) Lineage() []*Definition {
	var chain []*Definition
	for d := def; d != nil; d = d.Parent {
		chain = append([]*Definition{d}, chain...)
	}
	return chain
}

// Declared returns every declared role across the lineage, ancestors first.
func (def *Definition) Declared() []Declaration {
	var out []Declaration
	for _, d := range def.Lineage() {
		for _, r := range d.Roles {
			out = append(out, Declaration{Origin: d.Name, Role: r})
		}
	}
	return out
}

// RoleNames returns the distinct declared role names, in first-declaration order.
func (def *Definition) RoleNames() []string {
	seen := make(map[string]bool)
	var out []string
	for _, decl := range def.Declared() {
		if !seen[decl.Role] {
			seen[decl.Role] = true
			out = append(out, decl.Role)
		}
	}
	return out
}

// InitialRoles returns the effective initial switch target and enable list.
func (def *Definition) InitialRoles() (string, []string) {
	for d := def; d != nil; d = d.Parent {
		if d.Initial != nil || d.InitialSwitch != "" {
			return d.InitialSwitch, d.Initial
		}
	}
	return "", nil
}

// OwnMethods returns the effective own methods. A derived method replaces
// an ancestor method of the same name.
func (def *Definition) OwnMethods() map[string]OwnMethod {
	out := make(map[string]OwnMethod)
	for _, d := range def.Lineage() {
		for _, m := range d.Methods {
			out[m.Name] = m
		}
	}
	return out
}

// AllAssertions returns assertions across the lineage, ancestors first.
func (def *Definition) AllAssertions() []assertion.Assertion {
	var out []assertion.Assertion
	for _, d := range def.Lineage() {
		out = append(out, d.Assertions...)
	}
	return out
}

// Initialize runs every Init across the lineage, ancestors first.
func (def *Definition) Initialize(data *props.Data) {
	for _, d := range def.Lineage() {
		if d.Init != nil {
			d.Init(data)
		}
	}
}

// Extends reports whether def is name or derives from it.
func (def *Definition) Extends(name string) bool {
	for d := def; d != nil; d = d.Parent {
		if d.Name == name {
			return true
		}
	}
	return false
}
