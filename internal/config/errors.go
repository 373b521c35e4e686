package config

import (
	"errors"
	"fmt"
)

// ErrValidationFailed indicates a configuration value out of range.
var ErrValidationFailed = errors.New("validation failed")

// ValidationError names the offending setting.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Path, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
