package role

import "fmt"

// Visibility controls which callers may resolve a method.
type Visibility uint8

const (
	// Public methods resolve for every caller, including external ones.
	Public Visibility = iota
	// Protected methods resolve for any role function and for the
	// dispatcher's own methods, never for external callers.
	Protected
	// Private methods resolve only for functions of the declaring role.
	Private
)

// String returns a string representation of the visibility.
func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "unknown"
	}
}

// ParseVisibility parses "public", "protected" or "private".
// An empty string parses as Public.
func ParseVisibility(s string) (Visibility, error) {
	switch s {
	case "", "public", "PUBLIC":
		return Public, nil
	case "protected", "PROTECTED":
		return Protected, nil
	case "private", "PRIVATE":
		return Private, nil
	default:
		return Public, fmt.Errorf("%w: unknown visibility %q", ErrInvalidArgument, s)
	}
}
