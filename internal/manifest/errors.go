package manifest

import (
	"errors"
	"fmt"
)

// Manifest errors.
var (
	// ErrUnknownFormat indicates a file extension with no decoder.
	ErrUnknownFormat = errors.New("manifest: unknown format")

	// ErrInvalid indicates a manifest that decodes but cannot describe a
	// dispatcher.
	ErrInvalid = errors.New("manifest: invalid manifest")

	// ErrUnknownParent indicates an extends reference to a missing manifest.
	ErrUnknownParent = errors.New("manifest: unknown parent")

	// ErrCycle indicates manifests that extend each other.
	ErrCycle = errors.New("manifest: extends cycle")

	// ErrDuplicate indicates two manifests with the same name.
	ErrDuplicate = errors.New("manifest: duplicate name")
)

// ParseError represents an error while decoding a manifest file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
