// Package assertion re-evaluates declared property constraints against a
// dispatcher's data and toggles roles as a side effect.
//
// An assertion never touches the data it reads. Role changes go through the
// Transition interface, which the dispatcher implements with its own
// Enable and Disable operations.
package assertion

import (
	"errors"
	"fmt"

	"github.com/dshills/persona/internal/role"
)

// ErrBadAssertion indicates an assertion that does not satisfy the
// evaluation contract. It is raised before any assertion is applied.
var ErrBadAssertion = errors.New("assertion: bad assertion")

// Transition is the only way an assertion may affect a dispatcher.
type Transition interface {
	Enable(name string) error
	Disable(name string) error
}

// Values is read access to a property store. *props.Data satisfies it.
type Values interface {
	Get(key string) (any, bool)
}

// Assertion checks one property and adjusts roles accordingly.
type Assertion interface {
	// Property returns the name of the inspected property.
	Property() string

	// Validate reports ErrBadAssertion for a malformed assertion.
	Validate() error

	// Apply evaluates the assertion against value and performs its transitions.
	Apply(value any, present bool, t Transition) error
}

// RoleLister is implemented by assertions that can name every role they
// may toggle. Engine.CheckRoles uses it to reject unknown roles up front.
type RoleLister interface {
	Roles() []string
}

// PropertyAssertion enables and disables roles depending on a constraint.
type PropertyAssertion struct {
	property   string
	constraint Constraint

	enable      []string
	disable     []string
	elseEnable  []string
	elseDisable []string
	description string
}

// Property starts an assertion on the named property.
func Property(name string, c Constraint) *PropertyAssertion {
	return &PropertyAssertion{property: name, constraint: c}
}

// Enables lists roles to enable when the constraint passes.
func (a *PropertyAssertion) Enables(roles ...string) *PropertyAssertion {
	a.enable = append(a.enable, roles...)
	return a
}

// Disables lists roles to disable when the constraint passes.
func (a *PropertyAssertion) Disables(roles ...string) *PropertyAssertion {
	a.disable = append(a.disable, roles...)
	return a
}

// OtherwiseEnable lists roles to enable when the constraint fails.
func (a *PropertyAssertion) OtherwiseEnable(roles ...string) *PropertyAssertion {
	a.elseEnable = append(a.elseEnable, roles...)
	return a
}

// OtherwiseDisable lists roles to disable when the constraint fails.
func (a *PropertyAssertion) OtherwiseDisable(roles ...string) *PropertyAssertion {
	a.elseDisable = append(a.elseDisable, roles...)
	return a
}

// Describe sets a human-readable description.
func (a *PropertyAssertion) Describe(text string) *PropertyAssertion {
	a.description = text
	return a
}

// Property implements Assertion.
func (a *PropertyAssertion) Property() string {
	return a.property
}

// Constraint returns the checked constraint.
func (a *PropertyAssertion) Constraint() Constraint {
	return a.constraint
}

// String describes the assertion.
func (a *PropertyAssertion) String() string {
	if a.description != "" {
		return a.description
	}
	c := "<nil>"
	if a.constraint != nil {
		c = a.constraint.String()
	}
	return fmt.Sprintf("%s is %s", a.property, c)
}

// Roles returns every role the assertion may toggle, each once, in the
// order they were listed.
func (a *PropertyAssertion) Roles() []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{a.enable, a.disable, a.elseEnable, a.elseDisable} {
		for _, name := range list {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// Validate implements Assertion.
func (a *PropertyAssertion) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: nil assertion", ErrBadAssertion)
	}
	if a.property == "" {
		return fmt.Errorf("%w: empty property name", ErrBadAssertion)
	}
	if a.constraint == nil {
		return fmt.Errorf("%w: %s has no constraint", ErrBadAssertion, a.property)
	}
	if len(a.enable)+len(a.disable)+len(a.elseEnable)+len(a.elseDisable) == 0 {
		return fmt.Errorf("%w: %s toggles no roles", ErrBadAssertion, a.property)
	}
	for _, list := range [][]string{a.enable, a.disable, a.elseEnable, a.elseDisable} {
		for _, name := range list {
			if !role.ValidName(name) {
				return fmt.Errorf("%w: %s names invalid role %q", ErrBadAssertion, a.property, name)
			}
		}
	}
	return nil
}

// Apply implements Assertion. Disables run before enables so that an
// assertion listing the same role in both ends with the role enabled.
func (a *PropertyAssertion) Apply(value any, present bool, t Transition) error {
	ok, err := a.constraint.Check(value, present)
	if err != nil {
		return fmt.Errorf("assertion %s: %w", a.property, err)
	}

	disable, enable := a.disable, a.enable
	if !ok {
		disable, enable = a.elseDisable, a.elseEnable
	}
	for _, name := range disable {
		if err := t.Disable(name); err != nil {
			return err
		}
	}
	for _, name := range enable {
		if err := t.Enable(name); err != nil {
			return err
		}
	}
	return nil
}
