package assertion_test

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/dshills/persona/internal/assertion"
	"github.com/dshills/persona/internal/props"
)

// fakeRoles records transitions and rejects unknown role names.
type fakeRoles struct {
	known   map[string]bool
	enabled map[string]bool
	calls   int
}

func newFakeRoles(names ...string) *fakeRoles {
	f := &fakeRoles{known: make(map[string]bool), enabled: make(map[string]bool)}
	for _, n := range names {
		f.known[n] = true
	}
	return f
}

var errUnknownRole = errors.New("unknown role")

func (f *fakeRoles) Enable(name string) error {
	f.calls++
	if !f.known[name] {
		return errUnknownRole
	}
	f.enabled[name] = true
	return nil
}

func (f *fakeRoles) Disable(name string) error {
	f.calls++
	if !f.known[name] {
		return errUnknownRole
	}
	delete(f.enabled, name)
	return nil
}

func (f *fakeRoles) names() []string {
	var out []string
	for n := range f.enabled {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func TestConstraints(t *testing.T) {
	tests := []struct {
		name    string
		c       assertion.Constraint
		value   any
		present bool
		want    bool
	}{
		{"set present", assertion.IsSet(), "x", true, true},
		{"set absent", assertion.IsSet(), nil, false, false},
		{"set nil", assertion.IsSet(), nil, true, false},
		{"not set absent", assertion.IsNotSet(), nil, false, true},
		{"not set present", assertion.IsNotSet(), 1, true, false},
		{"equal string", assertion.IsEqual("admin"), "admin", true, true},
		{"equal mixed numbers", assertion.IsEqual(3), 3.0, true, true},
		{"equal absent", assertion.IsEqual(nil), nil, false, false},
		{"not equal", assertion.IsNotEqual("admin"), "guest", true, true},
		{"not equal absent", assertion.IsNotEqual("admin"), nil, false, true},
		{"true", assertion.IsTrue(), true, true, true},
		{"true string", assertion.IsTrue(), "true", true, false},
		{"false", assertion.IsFalse(), false, true, true},
		{"false absent", assertion.IsFalse(), nil, false, true},
		{"empty string", assertion.IsEmpty(), "", true, true},
		{"empty slice", assertion.IsEmpty(), []string{}, true, true},
		{"empty zero", assertion.IsEmpty(), 0, true, true},
		{"not empty", assertion.IsNotEmpty(), "x", true, true},
		{"not empty absent", assertion.IsNotEmpty(), nil, false, false},
		{"callback", assertion.Callback("positive", func(v any, _ bool) bool {
			n, ok := v.(int)
			return ok && n > 0
		}), 5, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.c.Check(tt.value, tt.present)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("%s.Check(%v, %v) = %v, want %v", tt.c, tt.value, tt.present, got, tt.want)
			}
		})
	}
}

func TestNewConstraint(t *testing.T) {
	c, err := assertion.NewConstraint("EQUAL", "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok, _ := c.Check("x", true); !ok {
		t.Error("expected equal constraint to pass")
	}

	if _, err := assertion.NewConstraint("between", nil); !errors.Is(err, assertion.ErrBadAssertion) {
		t.Errorf("expected ErrBadAssertion, got %v", err)
	}
}

func TestEngineEnablesAndDisables(t *testing.T) {
	data := props.New()
	roles := newFakeRoles("Admin", "Guest")
	engine := assertion.NewEngine(
		assertion.Property("level", assertion.IsEqual("admin")).
			Enables("Admin").
			Disables("Guest").
			OtherwiseDisable("Admin").
			OtherwiseEnable("Guest"),
	)

	if err := engine.Evaluate(data, roles); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := roles.names(); len(got) != 1 || got[0] != "Guest" {
		t.Errorf("expected [Guest], got %v", got)
	}

	data.Set("level", "admin")
	if err := engine.Evaluate(data, roles); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := roles.names(); len(got) != 1 || got[0] != "Admin" {
		t.Errorf("expected [Admin], got %v", got)
	}
}

func TestEngineIdempotent(t *testing.T) {
	data := props.FromMap(map[string]any{"banned": true})
	roles := newFakeRoles("Member", "Banned")
	engine := assertion.NewEngine(
		assertion.Property("banned", assertion.IsTrue()).Enables("Banned").Disables("Member"),
		assertion.Property("banned", assertion.IsFalse()).Enables("Member").Disables("Banned"),
	)

	for i := 0; i < 3; i++ {
		if err := engine.Evaluate(data, roles); err != nil {
			t.Fatalf("evaluation %d: %v", i, err)
		}
		if got := roles.names(); len(got) != 1 || got[0] != "Banned" {
			t.Fatalf("evaluation %d: expected [Banned], got %v", i, got)
		}
	}
}

func TestEngineLastDeclaredWins(t *testing.T) {
	data := props.FromMap(map[string]any{"a": 1, "b": 2})
	roles := newFakeRoles("X")
	engine := assertion.NewEngine(
		assertion.Property("a", assertion.IsSet()).Enables("X"),
		assertion.Property("b", assertion.IsSet()).Disables("X"),
	)

	if err := engine.Evaluate(data, roles); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roles.names()) != 0 {
		t.Errorf("expected the later assertion to disable X, got %v", roles.names())
	}
}

func TestEngineBadAssertionIsEager(t *testing.T) {
	tests := []struct {
		name string
		a    assertion.Assertion
	}{
		{"nil", nil},
		{"nil property assertion", (*assertion.PropertyAssertion)(nil)},
		{"no property", assertion.Property("", assertion.IsSet()).Enables("X")},
		{"no constraint", assertion.Property("p", nil).Enables("X")},
		{"nil callback", assertion.Property("p", assertion.Callback("cb", nil)).Enables("X")},
		{"no roles", assertion.Property("p", assertion.IsSet())},
		{"bad role name", assertion.Property("p", assertion.IsSet()).Enables("not a role")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roles := newFakeRoles("X")
			engine := assertion.NewEngine(
				assertion.Property("p", assertion.IsNotSet()).Enables("X"),
				tt.a,
			)

			err := engine.Evaluate(props.New(), roles)
			if !errors.Is(err, assertion.ErrBadAssertion) {
				t.Fatalf("expected ErrBadAssertion, got %v", err)
			}
			if roles.calls != 0 {
				t.Errorf("no transition may run before validation, got %d calls", roles.calls)
			}
		})
	}
}

func TestEngineCheckRoles(t *testing.T) {
	a := assertion.Property("p", assertion.IsSet()).
		Enables("X", "Y").
		Disables("X").
		OtherwiseEnable("Z")
	if got := a.Roles(); !reflect.DeepEqual(got, []string{"X", "Y", "Z"}) {
		t.Errorf("Roles() = %v, want [X Y Z]", got)
	}

	known := map[string]bool{"X": true, "Y": true}
	engine := assertion.NewEngine(a, nil)
	err := engine.CheckRoles(func(name string) bool { return known[name] })
	if !errors.Is(err, assertion.ErrBadAssertion) || !strings.Contains(err.Error(), `"Z"`) {
		t.Errorf("expected ErrBadAssertion naming Z, got %v", err)
	}

	known["Z"] = true
	if err := engine.CheckRoles(func(name string) bool { return known[name] }); err != nil {
		t.Errorf("all roles known: %v", err)
	}
}

func TestEngineTransitionErrorPropagates(t *testing.T) {
	engine := assertion.NewEngine(assertion.Property("p", assertion.IsNotSet()).Enables("Missing"))

	err := engine.Evaluate(props.New(), newFakeRoles())
	if !errors.Is(err, errUnknownRole) {
		t.Errorf("expected transition error, got %v", err)
	}
}

func TestPropertyAssertionString(t *testing.T) {
	a := assertion.Property("status", assertion.IsEqual("published")).Enables("Published")
	if got := a.String(); got != "status is equal published" {
		t.Errorf("String() = %q", got)
	}
	if got := a.Describe("published articles").String(); got != "published articles" {
		t.Errorf("String() with description = %q", got)
	}
}
