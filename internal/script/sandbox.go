package script

import (
	lua "github.com/yuin/gopher-lua"
)

// unsafeGlobals are removed from every state before user code runs.
var unsafeGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"module",
	"_printregs",
}

// safeModules lists the modules require may return.
var safeModules = map[string]bool{
	lua.StringLibName: true,
	lua.TabLibName:    true,
	lua.MathLibName:   true,
}

// openSafeLibraries opens the subset of the standard library scripts may use.
// io, os, debug and package are never opened.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// installSandbox strips dangerous globals and replaces require with a
// whitelist lookup.
func installSandbox(L *lua.LState) {
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetGlobal("require", L.NewFunction(safeRequire))
}

func safeRequire(L *lua.LState) int {
	name := L.CheckString(1)
	if !safeModules[name] {
		L.RaiseError("module %q is not available", name)
		return 0
	}
	L.Push(L.GetGlobal(name))
	return 1
}
