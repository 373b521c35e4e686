package role

import (
	"errors"
	"fmt"
	"regexp"
)

// Role errors.
var (
	// ErrInvalidArgument indicates a malformed role or method name.
	ErrInvalidArgument = errors.New("role: invalid argument")

	// ErrInvalidRole indicates a role object without a method table.
	ErrInvalidRole = errors.New("role: invalid role object")

	// ErrNotFound indicates a source cannot provide the requested role.
	ErrNotFound = errors.New("role: not found")
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidName reports whether s is a usable role or method identifier.
func ValidName(s string) bool {
	return identifier.MatchString(s)
}

// CheckName returns ErrInvalidArgument if s is not a valid identifier.
// kind names the thing being checked ("role", "method") for the message.
func CheckName(kind, s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty %s name", ErrInvalidArgument, kind)
	}
	if !ValidName(s) {
		return fmt.Errorf("%w: %s name %q is not an identifier", ErrInvalidArgument, kind, s)
	}
	return nil
}
