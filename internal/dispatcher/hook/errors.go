package hook

import (
	"errors"
	"fmt"
)

// ErrCancelled indicates a pre-call hook refused a call.
var ErrCancelled = errors.New("dispatcher: call cancelled by hook")

// CancelError reports which hook refused a call and why. It matches both
// ErrCancelled and the reason under errors.Is.
type CancelError struct {
	Hook   string
	Reason error
}

func (e *CancelError) Error() string {
	if e.Reason == nil {
		return fmt.Sprintf("%v (%s)", ErrCancelled, e.Hook)
	}
	return fmt.Sprintf("%v (%s): %v", ErrCancelled, e.Hook, e.Reason)
}

func (e *CancelError) Unwrap() []error {
	if e.Reason == nil {
		return []error{ErrCancelled}
	}
	return []error{ErrCancelled, e.Reason}
}
