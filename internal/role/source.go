package role

// Factory constructs a fresh role object. Every dispatcher instance calls the
// factory itself so per-instance state never leaks between dispatchers.
type Factory func() (*Implementation, error)

// Source resolves role identifiers to freshly constructed implementations.
// Implementations return an error wrapping ErrNotFound for unknown ids.
//
// Dispatchers first ask for the qualified id "Level.Role", where Level is
// the name of the definition declaring the role, and fall back to "Role".
type Source interface {
	Resolve(id string) (*Implementation, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(id string) (*Implementation, error)

// Resolve implements Source.
func (f SourceFunc) Resolve(id string) (*Implementation, error) {
	return f(id)
}
