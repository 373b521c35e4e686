// Package catalog provides role sources: a static factory table, a
// directory of Lua role scripts, and a watcher that reloads scripts when
// they change on disk.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dshills/persona/internal/role"
)

// Static resolves roles from Go factories.
type Static map[string]role.Factory

// Resolve implements role.Source.
func (s Static) Resolve(id string) (*role.Implementation, error) {
	f, ok := s[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", role.ErrNotFound, id)
	}
	return f()
}

// Names returns the registered role identifiers in sorted order.
func (s Static) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Chain consults sources in order. A source reporting role.ErrNotFound
// passes the request on; any other error stops the search.
type Chain []role.Source

// Resolve implements role.Source.
func (c Chain) Resolve(id string) (*role.Implementation, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		impl, err := src.Resolve(id)
		if errors.Is(err, role.ErrNotFound) {
			continue
		}
		return impl, err
	}
	return nil, fmt.Errorf("%w: %s", role.ErrNotFound, id)
}
