package script

import "errors"

// Script errors.
var (
	// ErrStateClosed indicates the Lua state has been closed.
	ErrStateClosed = errors.New("script: lua state is closed")

	// ErrExecutionTimeout indicates a script ran past its time budget.
	ErrExecutionTimeout = errors.New("script: execution timeout")

	// ErrCompile indicates a script failed to parse or compile.
	ErrCompile = errors.New("script: compile failed")

	// ErrRuntime indicates a Lua error raised while running a script.
	ErrRuntime = errors.New("script: runtime error")

	// ErrNoRole indicates a role script did not declare a role name.
	ErrNoRole = errors.New("script: no role declared")
)
