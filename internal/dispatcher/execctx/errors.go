package execctx

import "errors"

// Context validation errors.
var (
	// ErrMissingInvoker indicates the context is not attached to a dispatcher.
	ErrMissingInvoker = errors.New("execution context: dispatcher is required")
)
