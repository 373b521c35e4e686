package dispatcher

import (
	"sort"

	"github.com/dshills/persona/internal/role"
)

// MethodState selects methods by the state of their role.
type MethodState uint8

const (
	// AllMethods lists methods of every registered role and own methods.
	AllMethods MethodState = iota
	// EnabledMethods lists methods of enabled roles and own methods.
	EnabledMethods
	// DisabledMethods lists methods of registered roles that are not enabled.
	DisabledMethods
)

// String returns a string representation of the state.
func (s MethodState) String() string {
	switch s {
	case AllMethods:
		return "all"
	case EnabledMethods:
		return "enabled"
	case DisabledMethods:
		return "disabled"
	default:
		return "unknown"
	}
}

// MethodInfo is one row of a method listing.
type MethodInfo struct {
	role.Method

	// Enabled reports whether the owning role is enabled.
	Enabled bool

	// Own marks a dispatcher-own method. Role is empty for these.
	Own bool
}

// ListMethods enumerates declared methods by state. Own methods come
// first sorted by name, then roles in registration order with each role's
// methods in declaration order.
func (d *Dispatcher) ListMethods(state MethodState) []MethodInfo {
	var out []MethodInfo

	if state != DisabledMethods {
		names := make([]string, 0, len(d.own))
		for name := range d.own {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			m := d.own[name]
			out = append(out, MethodInfo{
				Method: role.Method{
					Name:       m.Name,
					Visibility: m.Visibility,
					Origin:     d.def.Name,
				},
				Enabled: true,
				Own:     true,
			})
		}
	}

	for _, name := range d.registry.Names() {
		enabled := d.enabled.Contains(name)
		if (state == EnabledMethods && !enabled) || (state == DisabledMethods && enabled) {
			continue
		}
		for _, m := range d.registry.Methods(name) {
			out = append(out, MethodInfo{Method: m, Enabled: enabled})
		}
	}
	return out
}

// Snapshot is a point-in-time view of a dispatcher for diagnostics.
type Snapshot struct {
	ID         string
	Definition string
	Roles      []string
	Enabled    []string
	Data       map[string]any
	Revision   uint64
}

// Snapshot returns the dispatcher's current state.
func (d *Dispatcher) Snapshot() Snapshot {
	return Snapshot{
		ID:         d.id,
		Definition: d.def.Name,
		Roles:      d.registry.Names(),
		Enabled:    d.enabled.Names(),
		Data:       d.data.Snapshot(),
		Revision:   d.data.Revision(),
	}
}
