package script

import (
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/persona/internal/assertion"
)

// Expression is an assertion constraint written in Lua. The expression
// sees the property as value and whether it exists as present:
//
//	present and value ~= "" and #value > 3
//
// An Expression is safe for concurrent use.
type Expression struct {
	mu   sync.Mutex
	code string
	st   *State
	fn   *lua.LFunction
}

var _ assertion.Constraint = (*Expression)(nil)

// NewExpression compiles a Lua constraint expression.
func NewExpression(code string, opts ...StateOption) (*Expression, error) {
	proto, err := Compile("expression", "return ("+code+")")
	if err != nil {
		return nil, err
	}
	st := NewState(opts...)
	return &Expression{code: code, st: st, fn: st.Load(proto)}, nil
}

// Check evaluates the expression using Lua truthiness.
func (e *Expression) Check(value any, present bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.st.L.SetGlobal("value", e.st.bridge.ToLuaValue(value))
	e.st.L.SetGlobal("present", lua.LBool(present))
	ret, err := e.st.Call(e.fn)
	if err != nil {
		return false, err
	}
	return lua.LVAsBool(ret), nil
}

// String returns the expression source.
func (e *Expression) String() string {
	return "lua(" + e.code + ")"
}

// Close releases the underlying Lua state.
func (e *Expression) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.Close()
}
