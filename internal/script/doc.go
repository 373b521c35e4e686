// Package script runs role implementations and assertion constraints
// written in Lua.
//
// Scripts execute in a sandboxed gopher-lua state: only the base, table,
// string and math libraries are opened, file loading functions are
// removed, and require resolves whitelisted modules only. Each outermost
// call is bounded by an execution timeout.
//
// # Roles
//
// A role script declares its name and methods:
//
//	role("Published")
//
//	protected("formatBody", function(self)
//	    return (self:get("body") or ""):gsub("\n", "<br/>")
//	end)
//
//	public("getFormattedBody", function(self)
//	    return self:call("formatBody")
//	end)
//
// self exposes get, set, has, call, call_role, enable, disable, switch,
// disable_all, is_enabled, enabled_roles, role, origin and method. Errors
// returned by the dispatcher propagate through Lua unchanged, so callers
// can still match them with errors.Is.
//
//	rs, err := script.LoadRoleFile("roles/published.lua")
//	if err != nil {
//	    return err
//	}
//	impl, err := rs.Factory()()
//
// # Expressions
//
// NewExpression compiles a Lua expression over value and present into an
// assertion.Constraint.
package script
