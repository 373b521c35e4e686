package dispatcher

// EnabledSet is the ordered set of currently active role names.
// Order is enable order and only affects enumeration, never resolution.
type EnabledSet struct {
	names []string
	index map[string]int
}

// NewEnabledSet creates an empty enabled set.
func NewEnabledSet() *EnabledSet {
	return &EnabledSet{index: make(map[string]int)}
}

// Add appends name. Returns false if it was already present.
func (s *EnabledSet) Add(name string) bool {
	if _, ok := s.index[name]; ok {
		return false
	}
	s.index[name] = len(s.names)
	s.names = append(s.names, name)
	return true
}

// Remove deletes name. Returns false if it was not present.
func (s *EnabledSet) Remove(name string) bool {
	i, ok := s.index[name]
	if !ok {
		return false
	}
	s.names = append(s.names[:i], s.names[i+1:]...)
	delete(s.index, name)
	for j := i; j < len(s.names); j++ {
		s.index[s.names[j]] = j
	}
	return true
}

// Clear removes every name.
func (s *EnabledSet) Clear() {
	s.names = nil
	s.index = make(map[string]int)
}

// Contains reports whether name is enabled.
func (s *EnabledSet) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Names returns a copy of the enabled names in enable order.
func (s *EnabledSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of enabled roles.
func (s *EnabledSet) Len() int {
	return len(s.names)
}
