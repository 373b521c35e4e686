package dispatcher

import (
	"sort"
	"strings"

	"github.com/dshills/persona/internal/dispatcher/execctx"
	"github.com/dshills/persona/internal/role"
)

// Request is the input to method resolution.
type Request struct {
	// Method is the case-sensitive method name.
	Method string

	// Hint names a single role to resolve against. It may be qualified
	// with the declaring definition as "Origin.Role" to select one layer.
	Hint string

	// Caller is the identity used for visibility checks.
	Caller execctx.Caller
}

// Resolution is the unique method selected for a request.
type Resolution struct {
	Role     string
	Method   role.Method
	Producer role.Producer
}

// Resolver selects the role method that answers a request.
type Resolver struct {
	registry *Registry
	enabled  *EnabledSet
}

// NewResolver creates a resolver over a registry and its enabled set.
func NewResolver(registry *Registry, enabled *EnabledSet) *Resolver {
	return &Resolver{registry: registry, enabled: enabled}
}

// Resolve finds the single method answering req.
//
// Hinted requests consult only the named role, ignore the enabled set and
// skip visibility filtering; they are refused for external callers.
// Unhinted requests consider enabled roles only and fail on ambiguity. Each
// role answers with its newest layer that the caller can see.
func (r *Resolver) Resolve(req Request) (Resolution, error) {
	if err := role.CheckName("method", req.Method); err != nil {
		return Resolution{}, newCallError("resolve", req.Method, req.Hint, err)
	}
	if req.Hint != "" {
		return r.resolveHinted(req)
	}

	var (
		matches []Resolution
		hidden  []string
	)
	for _, name := range r.enabled.names {
		desc, p, found, visible := r.lookupVisible(name, req.Method, req.Caller)
		if !found {
			continue
		}
		if !visible {
			hidden = append(hidden, name)
			continue
		}
		matches = append(matches, Resolution{Role: name, Method: desc, Producer: p})
	}

	switch len(matches) {
	case 0:
		if len(hidden) > 0 {
			sort.Strings(hidden)
			err := newCallError("resolve", req.Method, "", ErrIllegalVisibility)
			err.Candidates = hidden
			return Resolution{}, err
		}
		return Resolution{}, newCallError("resolve", req.Method, "", ErrMethodNotImplemented)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Role
		}
		sort.Strings(names)
		err := newCallError("resolve", req.Method, "", ErrAmbiguousMethod)
		err.Candidates = names
		return Resolution{}, err
	}
}

// lookupVisible walks the layers of a role newest first and returns the first
// declaration of method that caller may see, so a derived layer's private
// override does not hide an ancestor's public method from outside callers.
// found reports whether any layer declares method at all.
func (r *Resolver) lookupVisible(name, method string, caller execctx.Caller) (desc role.Method, p role.Producer, found, visible bool) {
	layers := r.registry.roles[name]
	for i := len(layers) - 1; i >= 0; i-- {
		d, prod, ok := layers[i].Lookup(method)
		if !ok {
			continue
		}
		found = true
		if Visible(d, caller) {
			return d, prod, true, true
		}
	}
	return role.Method{}, nil, found, false
}

func (r *Resolver) resolveHinted(req Request) (Resolution, error) {
	if !req.Caller.IsInternal() {
		return Resolution{}, newCallError("resolve", req.Method, req.Hint, ErrIllegalVisibility)
	}

	origin, name, qualified := strings.Cut(req.Hint, ".")
	if !qualified {
		name, origin = origin, ""
	}
	if !r.registry.Has(name) || (qualified && !r.registry.HasLayer(name, origin)) {
		return Resolution{}, newCallError("resolve", req.Method, req.Hint, ErrRoleNotFound)
	}

	var (
		desc role.Method
		p    role.Producer
		ok   bool
	)
	if qualified {
		desc, p, ok = r.registry.LookupAt(name, origin, req.Method)
	} else {
		desc, p, ok = r.registry.Lookup(name, req.Method)
	}
	if !ok {
		return Resolution{}, newCallError("resolve", req.Method, req.Hint, ErrMethodNotImplemented)
	}
	return Resolution{Role: name, Method: desc, Producer: p}, nil
}

// Visible reports whether caller may resolve m without a hint.
func Visible(m role.Method, caller execctx.Caller) bool {
	switch m.Visibility {
	case role.Public:
		return true
	case role.Protected:
		return caller.IsInternal()
	case role.Private:
		return caller.Kind == execctx.CallerRole &&
			caller.Role == m.Role &&
			caller.Origin == m.Origin
	default:
		return false
	}
}
