package script

import (
	"fmt"
	"os"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/persona/internal/dispatcher/execctx"
	"github.com/dshills/persona/internal/role"
)

const selfTypeName = "persona.self"

// declaration globals, removed once a role script has run.
var declarationGlobals = []string{"role", "method", "public", "protected", "private"}

// RoleScript is a compiled Lua role. A role script names its role and
// declares methods in order:
//
//	role("Draft")
//
//	public("setTitle", function(self, title)
//	    self:set("title", title)
//	end)
//
//	private("getDate", function(self)
//	    return self:get("created")
//	end)
//
// Every method function receives self, a handle on the calling dispatcher,
// followed by the call arguments.
type RoleScript struct {
	source string
	proto  *lua.FunctionProto
	opts   []StateOption
	name   string
}

// CompileRole compiles a role script and runs it once to check its
// declarations. source is used in error messages.
func CompileRole(source, code string, opts ...StateOption) (*RoleScript, error) {
	proto, err := Compile(source, code)
	if err != nil {
		return nil, err
	}
	rs := &RoleScript{source: source, proto: proto, opts: opts}

	impl, err := rs.Build()
	if err != nil {
		return nil, err
	}
	rs.name = impl.Name()
	impl.Release()
	return rs, nil
}

// LoadRoleFile reads and compiles a role script from disk.
func LoadRoleFile(path string, opts ...StateOption) (*RoleScript, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read role script: %w", err)
	}
	return CompileRole(path, string(code), opts...)
}

// Name returns the declared role name.
func (rs *RoleScript) Name() string {
	return rs.name
}

// Source returns the name the script was compiled under.
func (rs *RoleScript) Source() string {
	return rs.source
}

// Factory returns a role.Factory producing a fresh implementation, backed
// by its own Lua state, on every call. Releasing the implementation closes
// the state.
func (rs *RoleScript) Factory() role.Factory {
	return rs.Build
}

type declaration struct {
	name       string
	visibility role.Visibility
	fn         *lua.LFunction
}

// Build runs the script in a new state and returns the role it declares.
// The caller owns the state through the returned role and frees it with
// Release.
func (rs *RoleScript) Build() (*role.Implementation, error) {
	st := NewState(rs.opts...)
	installSelfType(st)

	var (
		name  string
		decls []declaration
	)
	declare := func(vis role.Visibility) lua.LGFunction {
		return func(L *lua.LState) int {
			method := L.CheckString(1)
			fn := L.CheckFunction(2)
			decls = append(decls, declaration{name: method, visibility: vis, fn: fn})
			return 0
		}
	}

	L := st.L
	L.SetGlobal("role", L.NewFunction(func(L *lua.LState) int {
		if name != "" {
			L.RaiseError("role already declared as %q", name)
		}
		name = L.CheckString(1)
		return 0
	}))
	L.SetGlobal("method", L.NewFunction(func(L *lua.LState) int {
		vis, err := role.ParseVisibility(L.CheckString(2))
		if err != nil {
			L.ArgError(2, err.Error())
		}
		decls = append(decls, declaration{name: L.CheckString(1), visibility: vis, fn: L.CheckFunction(3)})
		return 0
	}))
	L.SetGlobal("public", L.NewFunction(declare(role.Public)))
	L.SetGlobal("protected", L.NewFunction(declare(role.Protected)))
	L.SetGlobal("private", L.NewFunction(declare(role.Private)))

	if _, err := st.Call(st.Load(rs.proto)); err != nil {
		st.Close()
		return nil, fmt.Errorf("%s: %w", rs.source, err)
	}
	for _, g := range declarationGlobals {
		L.SetGlobal(g, lua.LNil)
	}
	if name == "" {
		st.Close()
		return nil, fmt.Errorf("%w: %s", ErrNoRole, rs.source)
	}

	b := role.New(name).OnRelease(st.Close)
	for _, d := range decls {
		b.Func(d.name, d.visibility, bind(st, d.fn))
	}
	impl, err := b.Build()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("%s: %w", rs.source, err)
	}
	return impl, nil
}

// bind adapts a Lua function to a role.Func.
func bind(st *State, fn *lua.LFunction) role.Func {
	return func(ctx *execctx.Context, args ...any) (any, error) {
		L := st.L
		largs := make([]lua.LValue, 0, len(args)+1)
		largs = append(largs, newSelf(L, ctx))
		for _, a := range args {
			largs = append(largs, st.bridge.ToLuaValue(a))
		}
		ret, err := st.Call(fn, largs...)
		if err != nil {
			return nil, err
		}
		return st.bridge.ToGoValue(ret), nil
	}
}

func newSelf(L *lua.LState, ctx *execctx.Context) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = ctx
	L.SetMetatable(ud, L.GetTypeMetatable(selfTypeName))
	return ud
}

func checkSelf(L *lua.LState) *execctx.Context {
	ud := L.CheckUserData(1)
	ctx, ok := ud.Value.(*execctx.Context)
	if !ok {
		L.ArgError(1, "self expected")
	}
	return ctx
}

// installSelfType registers the methods available on self.
func installSelfType(st *State) {
	L := st.L
	mt := L.NewTypeMetatable(selfTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"get": func(L *lua.LState) int {
			v, _ := checkSelf(L).Get(L.CheckString(2))
			L.Push(st.bridge.ToLuaValue(v))
			return 1
		},
		"set": func(L *lua.LState) int {
			ctx := checkSelf(L)
			ctx.Set(L.CheckString(2), st.bridge.ToGoValue(L.Get(3)))
			return 0
		},
		"has": func(L *lua.LState) int {
			_, ok := checkSelf(L).Get(L.CheckString(2))
			L.Push(lua.LBool(ok))
			return 1
		},
		"call": func(L *lua.LState) int {
			ctx := checkSelf(L)
			v, err := ctx.Call(L.CheckString(2), st.bridge.ToGoArgs(3)...)
			if err != nil {
				return st.raise(L, err)
			}
			L.Push(st.bridge.ToLuaValue(v))
			return 1
		},
		"call_role": func(L *lua.LState) int {
			ctx := checkSelf(L)
			v, err := ctx.CallRole(L.CheckString(2), L.CheckString(3), st.bridge.ToGoArgs(4)...)
			if err != nil {
				return st.raise(L, err)
			}
			L.Push(st.bridge.ToLuaValue(v))
			return 1
		},
		"enable": func(L *lua.LState) int {
			if err := checkSelf(L).Enable(L.CheckString(2)); err != nil {
				return st.raise(L, err)
			}
			return 0
		},
		"disable": func(L *lua.LState) int {
			if err := checkSelf(L).Disable(L.CheckString(2)); err != nil {
				return st.raise(L, err)
			}
			return 0
		},
		"switch": func(L *lua.LState) int {
			if err := checkSelf(L).Switch(L.CheckString(2)); err != nil {
				return st.raise(L, err)
			}
			return 0
		},
		"disable_all": func(L *lua.LState) int {
			checkSelf(L).DisableAll()
			return 0
		},
		"is_enabled": func(L *lua.LState) int {
			L.Push(lua.LBool(checkSelf(L).IsEnabled(L.CheckString(2))))
			return 1
		},
		"enabled_roles": func(L *lua.LState) int {
			L.Push(st.bridge.ToLuaValue(checkSelf(L).EnabledRoles()))
			return 1
		},
		"role": func(L *lua.LState) int {
			L.Push(lua.LString(checkSelf(L).Role()))
			return 1
		},
		"origin": func(L *lua.LState) int {
			L.Push(lua.LString(checkSelf(L).Origin()))
			return 1
		},
		"method": func(L *lua.LState) int {
			L.Push(lua.LString(checkSelf(L).Method()))
			return 1
		},
	}))
}
