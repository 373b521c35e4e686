package assertion

import (
	"fmt"
	"reflect"
	"strings"
)

// Constraint is a predicate over one property value.
type Constraint interface {
	// Check evaluates the constraint. present is false when the property
	// does not exist in the data segment.
	Check(value any, present bool) (bool, error)

	// String describes the constraint for diagnostics.
	String() string
}

type simpleConstraint struct {
	name string
	fn   func(value any, present bool) bool
}

func (c simpleConstraint) Check(value any, present bool) (bool, error) {
	return c.fn(value, present), nil
}

func (c simpleConstraint) String() string {
	return c.name
}

// IsSet passes when the property exists and is not nil.
func IsSet() Constraint {
	return simpleConstraint{"set", func(v any, present bool) bool {
		return present && v != nil
	}}
}

// IsNotSet passes when the property is absent or nil.
func IsNotSet() Constraint {
	return simpleConstraint{"not set", func(v any, present bool) bool {
		return !present || v == nil
	}}
}

// IsEqual passes when the property equals want. Numbers compare by value
// regardless of their Go type.
func IsEqual(want any) Constraint {
	return simpleConstraint{fmt.Sprintf("equal %v", want), func(v any, present bool) bool {
		return present && equal(v, want)
	}}
}

// IsNotEqual passes when the property is absent or differs from want.
func IsNotEqual(want any) Constraint {
	return simpleConstraint{fmt.Sprintf("not equal %v", want), func(v any, present bool) bool {
		return !present || !equal(v, want)
	}}
}

// IsTrue passes when the property is the boolean true.
func IsTrue() Constraint {
	return simpleConstraint{"true", func(v any, present bool) bool {
		b, ok := v.(bool)
		return present && ok && b
	}}
}

// IsFalse passes when the property is absent or not the boolean true.
func IsFalse() Constraint {
	return simpleConstraint{"false", func(v any, present bool) bool {
		b, ok := v.(bool)
		return !present || !ok || !b
	}}
}

// IsEmpty passes for absent, nil and zero values, and empty strings,
// slices and maps.
func IsEmpty() Constraint {
	return simpleConstraint{"empty", empty}
}

// IsNotEmpty is the negation of IsEmpty.
func IsNotEmpty() Constraint {
	return simpleConstraint{"not empty", func(v any, present bool) bool {
		return !empty(v, present)
	}}
}

// Callback adapts an arbitrary predicate. A nil fn makes the assertion
// fail validation.
func Callback(name string, fn func(value any, present bool) bool) Constraint {
	if fn == nil {
		return nil
	}
	if name == "" {
		name = "callback"
	}
	return simpleConstraint{name, fn}
}

// NewConstraint builds a constraint by kind, as used in manifests.
// Kinds: set, not_set, equal, not_equal, true, false, empty, not_empty.
func NewConstraint(kind string, arg any) (Constraint, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "set":
		return IsSet(), nil
	case "not_set":
		return IsNotSet(), nil
	case "equal":
		return IsEqual(arg), nil
	case "not_equal":
		return IsNotEqual(arg), nil
	case "true":
		return IsTrue(), nil
	case "false":
		return IsFalse(), nil
	case "empty":
		return IsEmpty(), nil
	case "not_empty":
		return IsNotEmpty(), nil
	default:
		return nil, fmt.Errorf("%w: unknown constraint %q", ErrBadAssertion, kind)
	}
}

func empty(v any, present bool) bool {
	if !present || v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	default:
		return rv.IsZero()
	}
}

func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
