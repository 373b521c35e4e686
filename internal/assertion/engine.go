package assertion

import (
	"fmt"
)

// Engine evaluates an ordered list of assertions.
//
// Assertions are applied in declaration order. When two assertions toggle
// the same role, the one declared last decides the final state. Evaluation
// is idempotent as long as each assertion only reads data.
type Engine struct {
	assertions []Assertion
}

// NewEngine creates an engine over the given assertions.
func NewEngine(assertions ...Assertion) *Engine {
	e := &Engine{}
	e.assertions = append(e.assertions, assertions...)
	return e
}

// Add appends an assertion.
func (e *Engine) Add(a Assertion) {
	e.assertions = append(e.assertions, a)
}

// Len returns the number of assertions.
func (e *Engine) Len() int {
	return len(e.assertions)
}

// Assertions returns the assertions in declaration order.
func (e *Engine) Assertions() []Assertion {
	out := make([]Assertion, len(e.assertions))
	copy(out, e.assertions)
	return out
}

// Validate checks every assertion and returns the first failure.
func (e *Engine) Validate() error {
	for i, a := range e.assertions {
		if isNil(a) {
			return fmt.Errorf("%w: assertion %d is nil", ErrBadAssertion, i)
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("assertion %d (%s): %w", i, a.Property(), err)
		}
	}
	return nil
}

// CheckRoles reports ErrBadAssertion for the first assertion naming a role
// that known rejects. Assertions that do not implement RoleLister are
// skipped.
func (e *Engine) CheckRoles(known func(name string) bool) error {
	for i, a := range e.assertions {
		rl, ok := a.(RoleLister)
		if !ok || isNil(a) {
			continue
		}
		for _, name := range rl.Roles() {
			if !known(name) {
				return fmt.Errorf("%w: assertion %d (%s) names unknown role %q", ErrBadAssertion, i, a.Property(), name)
			}
		}
	}
	return nil
}

// Evaluate validates all assertions, then applies each against values.
// Nothing is applied when validation fails.
func (e *Engine) Evaluate(values Values, t Transition) error {
	if err := e.Validate(); err != nil {
		return err
	}
	for _, a := range e.assertions {
		v, present := values.Get(a.Property())
		if err := a.Apply(v, present, t); err != nil {
			return err
		}
	}
	return nil
}

func isNil(a Assertion) bool {
	if a == nil {
		return true
	}
	if pa, ok := a.(*PropertyAssertion); ok && pa == nil {
		return true
	}
	return false
}
