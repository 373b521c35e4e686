package script_test

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/persona/internal/dispatcher"
	"github.com/dshills/persona/internal/role"
	"github.com/dshills/persona/internal/script"
)

const draftScript = `
role("Draft")

public("setTitle", function(self, title)
    self:set("title", title)
end)

public("getTitle", function(self)
    return self:get("title")
end)

private("getDate", function(self)
    return "2024-01-01"
end)

public("stamp", function(self)
    return self:get("title") .. "@" .. self:call("getDate")
end)

public("publish", function(self)
    self:switch("Published")
end)

public("count", function(self, n)
    local total = 0
    for i = 1, n do
        total = total + i
    end
    return total
end)
`

const publishedScript = `
role("Published")

protected("formatBody", function(self)
    local body = self:get("body") or ""
    return (body:gsub("\n", "<br/>"))
end)

public("getFormattedBody", function(self)
    return self:call("formatBody")
end)

public("getTitle", function(self)
    return self:get("title")
end)

public("missing", function(self)
    return self:call("noSuchMethod")
end)

public("safeMissing", function(self)
    local ok, err = pcall(function() return self:call("noSuchMethod") end)
    if ok then
        return "no error"
    end
    return tostring(err)
end)
`

type source map[string]*script.RoleScript

func (s source) Resolve(id string) (*role.Implementation, error) {
	rs, ok := s[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", role.ErrNotFound, id)
	}
	return rs.Factory()()
}

func mustCompile(t *testing.T, name, code string) *script.RoleScript {
	t.Helper()
	rs, err := script.CompileRole(name, code)
	if err != nil {
		t.Fatalf("CompileRole(%s): %v", name, err)
	}
	return rs
}

func newArticle(t *testing.T) *dispatcher.Dispatcher {
	t.Helper()
	src := source{
		"Draft":     mustCompile(t, "draft.lua", draftScript),
		"Published": mustCompile(t, "published.lua", publishedScript),
	}
	def := &dispatcher.Definition{
		Name:    "Article",
		Roles:   []string{"Draft", "Published"},
		Initial: []string{"Draft"},
	}
	d, err := dispatcher.New(def, src, dispatcher.DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestCompileRoleDeclarations(t *testing.T) {
	rs := mustCompile(t, "draft.lua", draftScript)
	if rs.Name() != "Draft" {
		t.Errorf("Name() = %q, want Draft", rs.Name())
	}
	impl, err := rs.Factory()()
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, m := range impl.Methods() {
		names = append(names, m.Name)
	}
	want := []string{"setTitle", "getTitle", "getDate", "stamp", "publish", "count"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Methods() = %v, want %v", names, want)
	}
	if m, _, _ := impl.Lookup("getDate"); m.Visibility != role.Private {
		t.Errorf("getDate visibility = %v, want private", m.Visibility)
	}
}

func TestCompileRoleErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{"syntax", `role("Draft"`, script.ErrCompile},
		{"no role", `public("a", function(self) end)`, script.ErrNoRole},
		{"runtime", `error("boom")`, script.ErrRuntime},
		{"bad visibility", `role("Draft") method("a", "secret", function(self) end)`, script.ErrRuntime},
		{"duplicate method", `role("Draft") public("a", function() end) public("a", function() end)`, role.ErrInvalidArgument},
		{"bad role name", `role("not valid")`, role.ErrInvalidArgument},
		{"no file access", `role("Draft") dofile("x.lua")`, script.ErrRuntime},
		{"unsafe require", `role("Draft") require("os")`, script.ErrRuntime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := script.CompileRole(tt.name, tt.code)
			if !errors.Is(err, tt.want) {
				t.Errorf("CompileRole() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestScriptedArticle(t *testing.T) {
	d := newArticle(t)

	if _, err := d.Call("setTitle", "Hello"); err != nil {
		t.Fatalf("setTitle: %v", err)
	}
	if v, _ := d.Call("getTitle"); v != "Hello" {
		t.Errorf("getTitle = %v, want Hello", v)
	}
	if v, err := d.Call("stamp"); err != nil || v != "Hello@2024-01-01" {
		t.Errorf("stamp = %v, %v", v, err)
	}
	if v, err := d.Call("count", 4); err != nil || v != int64(10) {
		t.Errorf("count = %v (%T), %v", v, v, err)
	}
	if _, err := d.Call("getDate"); !errors.Is(err, dispatcher.ErrIllegalVisibility) {
		t.Errorf("external getDate error = %v, want ErrIllegalVisibility", err)
	}

	if _, err := d.Call("publish"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !reflect.DeepEqual(d.EnabledRoles(), []string{"Published"}) {
		t.Fatalf("EnabledRoles() = %v", d.EnabledRoles())
	}

	d.Data().Set("body", "a\nb")
	if v, err := d.Call("getFormattedBody"); err != nil || v != "a<br/>b" {
		t.Errorf("getFormattedBody = %v, %v", v, err)
	}
	if _, err := d.Call("formatBody"); !errors.Is(err, dispatcher.ErrIllegalVisibility) {
		t.Errorf("external formatBody error = %v", err)
	}
}

func TestDispatcherErrorsPropagateThroughLua(t *testing.T) {
	d := newArticle(t)
	if err := d.Switch("Published"); err != nil {
		t.Fatal(err)
	}

	if _, err := d.Call("missing"); !errors.Is(err, dispatcher.ErrMethodNotImplemented) {
		t.Errorf("missing error = %v, want ErrMethodNotImplemented", err)
	}

	v, err := d.Call("safeMissing")
	if err != nil {
		t.Fatalf("safeMissing: %v", err)
	}
	if s, _ := v.(string); !strings.Contains(s, "method not implemented") {
		t.Errorf("pcall error text = %q", v)
	}
}

func TestFactoryIsolatesState(t *testing.T) {
	rs := mustCompile(t, "counter.lua", `
role("Counter")
local n = 0
public("next", function(self)
    n = n + 1
    return n
end)
`)
	def := &dispatcher.Definition{Name: "Clock", Roles: []string{"Counter"}, Initial: []string{"Counter"}}
	src := source{"Counter": rs}

	a, err := dispatcher.New(def, src, dispatcher.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	b, err := dispatcher.New(def, src, dispatcher.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	a.Call("next")
	a.Call("next")
	if v, _ := a.Call("next"); v != int64(3) {
		t.Errorf("a.next = %v, want 3", v)
	}
	if v, _ := b.Call("next"); v != int64(1) {
		t.Errorf("b.next = %v, want 1", v)
	}
}

func TestReinitializeClosesReplacedStates(t *testing.T) {
	src := source{"Draft": mustCompile(t, "draft.lua", draftScript)}
	def := &dispatcher.Definition{Name: "Article", Roles: []string{"Draft"}, Initial: []string{"Draft"}}
	d, err := dispatcher.New(def, src, dispatcher.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	old := d.Registry().Get("Draft")

	if err := d.Reinitialize(src); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Call("setTitle", "fresh"); err != nil {
		t.Fatalf("rebuilt role: %v", err)
	}

	other, err := dispatcher.New(&dispatcher.Definition{Name: "Other"}, src, dispatcher.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := other.Register("Draft", old); err != nil {
		t.Fatal(err)
	}
	if err := other.Enable("Draft"); err != nil {
		t.Fatal(err)
	}
	if _, err := other.Call("getTitle"); !errors.Is(err, script.ErrStateClosed) {
		t.Errorf("replaced role must run on a closed state, got %v", err)
	}
}

func TestExecutionTimeout(t *testing.T) {
	rs, err := script.CompileRole("loop.lua", `
role("Loop")
public("spin", function(self)
    while true do end
end)
`, script.WithExecutionTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	def := &dispatcher.Definition{Name: "Spinner", Roles: []string{"Loop"}, Initial: []string{"Loop"}}
	d, err := dispatcher.New(def, source{"Loop": rs}, dispatcher.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Call("spin"); !errors.Is(err, script.ErrExecutionTimeout) {
		t.Errorf("spin error = %v, want ErrExecutionTimeout", err)
	}
}

func TestExpression(t *testing.T) {
	tests := []struct {
		code    string
		value   any
		present bool
		want    bool
	}{
		{`present`, "x", true, true},
		{`present`, nil, false, false},
		{`value == "admin"`, "admin", true, true},
		{`value == "admin"`, "user", true, false},
		{`present and #value > 3`, "abcd", true, true},
		{`value ~= nil and value >= 18`, 21, true, true},
		{`value ~= nil and value >= 18`, 12, true, false},
		{`value`, nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			e, err := script.NewExpression(tt.code)
			if err != nil {
				t.Fatalf("NewExpression: %v", err)
			}
			defer e.Close()
			got, err := e.Check(tt.value, tt.present)
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if got != tt.want {
				t.Errorf("Check(%v, %v) = %v, want %v", tt.value, tt.present, got, tt.want)
			}
		})
	}
}

func TestExpressionErrors(t *testing.T) {
	if _, err := script.NewExpression(`value ==`); !errors.Is(err, script.ErrCompile) {
		t.Errorf("compile error = %v, want ErrCompile", err)
	}
	e, err := script.NewExpression(`value.field > 1`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Check(nil, false); !errors.Is(err, script.ErrRuntime) {
		t.Errorf("runtime error = %v, want ErrRuntime", err)
	}
	if e.String() != "lua(value.field > 1)" {
		t.Errorf("String() = %q", e.String())
	}
}

func TestBridgeRoundTrip(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	b := script.NewBridge(L)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"bool", true, true},
		{"int", 42, int64(42)},
		{"float", 1.5, 1.5},
		{"string", "x", "x"},
		{"strings", []string{"a", "b"}, []any{"a", "b"}},
		{"map", map[string]any{"k": "v"}, map[string]any{"k": "v"}},
		{"int slice", []int{1, 2}, []any{int64(1), int64(2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.ToGoValue(b.ToLuaValue(tt.in))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("round trip = %#v, want %#v", got, tt.want)
			}
		})
	}
}
