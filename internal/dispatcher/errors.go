package dispatcher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/persona/internal/dispatcher/hook"
	"github.com/dshills/persona/internal/role"
)

// Dispatcher errors.
var (
	// ErrRoleNotFound indicates a role name absent from the registry.
	ErrRoleNotFound = errors.New("dispatcher: role not found")

	// ErrDuplicateRole indicates a registration collision without override intent.
	ErrDuplicateRole = errors.New("dispatcher: duplicate role")

	// ErrMethodNotImplemented indicates no eligible role provides the method.
	ErrMethodNotImplemented = errors.New("dispatcher: method not implemented")

	// ErrAmbiguousMethod indicates two or more enabled roles provide the method.
	ErrAmbiguousMethod = errors.New("dispatcher: ambiguous method implementation")

	// ErrIllegalVisibility indicates the caller may not see the requested method.
	ErrIllegalVisibility = errors.New("dispatcher: illegal visibility access")

	// ErrInvalidRole indicates a role object without a usable method table.
	ErrInvalidRole = role.ErrInvalidRole

	// ErrInvalidArgument indicates a malformed role or method name.
	ErrInvalidArgument = role.ErrInvalidArgument

	// ErrCallDepthExceeded indicates re-entrant calls nested beyond the configured limit.
	ErrCallDepthExceeded = errors.New("dispatcher: call depth exceeded")

	// ErrPanic indicates a role function panicked.
	ErrPanic = errors.New("dispatcher: role function panic")

	// ErrCallCancelled indicates a pre-call hook cancelled the call. The
	// wrapped *hook.CancelError names the hook and its reason.
	ErrCallCancelled = hook.ErrCancelled
)

// CallError reports a structural failure of a dispatcher operation.
type CallError struct {
	Op         string   // Operation name (e.g., "call", "enable", "register")
	Method     string   // Requested method, if any
	Role       string   // Role involved, if any
	Candidates []string // Conflicting or hidden roles, sorted
	Err        error    // Underlying sentinel
}

func (e *CallError) Error() string {
	if e == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(e.Op)
	if e.Role != "" && e.Method != "" {
		fmt.Fprintf(&b, " %s.%s", e.Role, e.Method)
	} else if e.Method != "" {
		fmt.Fprintf(&b, " %s", e.Method)
	} else if e.Role != "" {
		fmt.Fprintf(&b, " %s", e.Role)
	}
	if len(e.Candidates) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Candidates, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *CallError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newCallError(op, method, roleName string, err error) *CallError {
	return &CallError{
		Op:     op,
		Method: method,
		Role:   roleName,
		Err:    err,
	}
}
