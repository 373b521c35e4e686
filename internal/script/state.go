package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// Default limits for a Lua state.
const (
	DefaultExecutionTimeout = 2 * time.Second
	DefaultCallStackSize    = 256
)

// State wraps a sandboxed gopher-lua state.
//
// A State is not safe for concurrent use. Role states belong to a single
// dispatcher instance; callers sharing a State across goroutines must
// serialize access themselves.
type State struct {
	L *lua.LState

	executionTimeout time.Duration
	callStackSize    int

	bridge *Bridge
	depth  int
	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout bounds how long an outermost call may run.
// Zero disables the limit.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// WithCallStackSize sets the Lua call stack size.
func WithCallStackSize(n int) StateOption {
	return func(s *State) {
		if n > 0 {
			s.callStackSize = n
		}
	}
}

// NewState creates a sandboxed Lua state.
func NewState(opts ...StateOption) *State {
	s := &State{
		executionTimeout: DefaultExecutionTimeout,
		callStackSize:    DefaultCallStackSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: s.callStackSize,
	})
	openSafeLibraries(L)
	installSandbox(L)
	L.SetTop(0)

	s.L = L
	s.bridge = NewBridge(L)
	return s
}

// Bridge returns the value converter bound to this state.
func (s *State) Bridge() *Bridge {
	return s.bridge
}

// Compile parses and compiles Lua source once so it can be loaded into any
// number of states.
func Compile(name, source string) (*lua.FunctionProto, error) {
	chunk, err := parse.Parse(strings.NewReader(source), name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCompile, name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCompile, name, err)
	}
	return proto, nil
}

// Load turns a compiled chunk into a callable function of this state.
func (s *State) Load(proto *lua.FunctionProto) *lua.LFunction {
	return s.L.NewFunctionFromProto(proto)
}

// DoString compiles and runs a chunk, discarding its results.
func (s *State) DoString(name, source string) error {
	proto, err := Compile(name, source)
	if err != nil {
		return err
	}
	_, err = s.Call(s.Load(proto))
	return err
}

// Call invokes fn with args and returns its first result.
//
// Calls may nest: a Go function invoked from Lua may call back into the
// same state. The execution timeout covers the outermost call only.
func (s *State) Call(fn lua.LValue, args ...lua.LValue) (ret lua.LValue, err error) {
	if s.closed {
		return lua.LNil, ErrStateClosed
	}

	if s.depth == 0 && s.executionTimeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.executionTimeout)
		s.L.SetContext(ctx)
		defer func() {
			s.L.RemoveContext()
			cancel()
		}()
	}

	s.depth++
	defer func() {
		s.depth--
		if r := recover(); r != nil {
			ret, err = lua.LNil, fmt.Errorf("%w: lua panic: %v", ErrRuntime, r)
		}
	}()

	if err := s.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		return lua.LNil, s.translate(err)
	}
	ret = s.L.Get(-1)
	s.L.Pop(1)
	return ret, nil
}

// translate maps a Lua error onto the package errors. A Go error raised
// through raise is returned as is.
func (s *State) translate(err error) error {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		if ud, ok := apiErr.Object.(*lua.LUserData); ok {
			if goErr, ok := ud.Value.(error); ok {
				return goErr
			}
		}
		if ctx := s.L.Context(); ctx != nil && ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrExecutionTimeout, ctx.Err())
		}
		return fmt.Errorf("%w: %s", ErrRuntime, apiErr.Object.String())
	}
	return fmt.Errorf("%w: %v", ErrRuntime, err)
}

// raise aborts the running Lua function with a Go error. The error is
// carried as userdata so Call can hand the original value back.
func (s *State) raise(L *lua.LState, err error) int {
	ud := L.NewUserData()
	ud.Value = err
	mt := L.NewTable()
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(err.Error()))
		return 1
	}))
	L.SetMetatable(ud, mt)
	L.Error(ud, 1)
	return 0
}

// IsClosed reports whether Close has been called.
func (s *State) IsClosed() bool {
	return s.closed
}

// Close releases the Lua state.
func (s *State) Close() {
	if s.closed {
		return
	}
	s.L.Close()
	s.closed = true
}
