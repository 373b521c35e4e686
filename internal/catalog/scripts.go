package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/persona/internal/role"
	"github.com/dshills/persona/internal/script"
)

// ScriptExt is the file extension of role scripts.
const ScriptExt = ".lua"

// Scripts resolves roles from Lua role scripts. It is safe for concurrent
// use, so a Watcher may reload scripts while dispatchers resolve roles.
type Scripts struct {
	mu     sync.RWMutex
	roles  map[string]*script.RoleScript
	byPath map[string]string
	opts   []script.StateOption
}

// NewScripts creates an empty script catalog. opts configure every Lua
// state the catalog creates.
func NewScripts(opts ...script.StateOption) *Scripts {
	return &Scripts{
		roles:  make(map[string]*script.RoleScript),
		byPath: make(map[string]string),
		opts:   opts,
	}
}

// LoadDir loads every script directly inside dir. Loading stops at the
// first script that fails to compile.
func (s *Scripts) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading script dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !IsScript(e.Name()) {
			continue
		}
		if _, err := s.Load(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Load compiles one script and registers the role it declares, replacing
// any role previously loaded from the same path or with the same name.
// It returns the role name.
func (s *Scripts) Load(path string) (string, error) {
	path = filepath.Clean(path)
	rs, err := script.LoadRoleFile(path, s.opts...)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byPath[path]; ok && prev != rs.Name() {
		delete(s.roles, prev)
	}
	if other, ok := s.roles[rs.Name()]; ok && other.Source() != path {
		delete(s.byPath, other.Source())
	}
	s.roles[rs.Name()] = rs
	s.byPath[path] = rs.Name()
	return rs.Name(), nil
}

// Remove drops the role loaded from path. It returns the role name, or
// false if nothing was loaded from path.
func (s *Scripts) Remove(path string) (string, bool) {
	path = filepath.Clean(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := s.byPath[path]
	if !ok {
		return "", false
	}
	delete(s.byPath, path)
	delete(s.roles, name)
	return name, true
}

// Resolve implements role.Source. Every call builds a fresh
// implementation with its own Lua state.
func (s *Scripts) Resolve(id string) (*role.Implementation, error) {
	s.mu.RLock()
	rs, ok := s.roles[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", role.ErrNotFound, id)
	}
	return rs.Build()
}

// Names returns the loaded role names in sorted order.
func (s *Scripts) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.roles))
	for name := range s.roles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PathOf returns the file a role was loaded from.
func (s *Scripts) PathOf(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rs, ok := s.roles[name]
	if !ok {
		return "", false
	}
	return rs.Source(), true
}

// IsScript reports whether path names a role script.
func IsScript(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, ScriptExt) && !strings.HasPrefix(base, ".")
}
