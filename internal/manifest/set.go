package manifest

import (
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/dshills/persona/internal/dispatcher"
	"github.com/dshills/persona/internal/script"
)

// Load reads and parses one manifest file from fsys.
func Load(fsys fs.FS, name string) (*Manifest, error) {
	format, err := FormatFromPath(name)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", name, err)
	}
	return Parse(format, data, name)
}

// Set is a collection of manifests addressed by name. Definitions built
// from a Set resolve extends references within the Set.
type Set struct {
	manifests map[string]*Manifest
	built     map[string]*dispatcher.Definition
	opts      []script.StateOption
}

// NewSet creates an empty set. opts configure the Lua states of
// expression assertions.
func NewSet(opts ...script.StateOption) *Set {
	return &Set{
		manifests: make(map[string]*Manifest),
		built:     make(map[string]*dispatcher.Definition),
		opts:      opts,
	}
}

// LoadDir parses every .toml, .yaml and .yml file directly inside dir.
func LoadDir(fsys fs.FS, dir string, opts ...script.StateOption) (*Set, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading manifest dir %s: %w", dir, err)
	}
	set := NewSet(opts...)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := path.Join(dir, e.Name())
		if _, err := FormatFromPath(p); err != nil {
			continue
		}
		m, err := Load(fsys, p)
		if err != nil {
			return nil, err
		}
		if err := set.Add(m); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// Add inserts a manifest. Names must be unique.
func (s *Set) Add(m *Manifest) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if prev, ok := s.manifests[m.Name]; ok {
		return fmt.Errorf("%w: %s declared in %s and %s", ErrDuplicate, m.Name, prev.Path, m.Path)
	}
	s.manifests[m.Name] = m
	clear(s.built)
	return nil
}

// Get returns the manifest with the given name.
func (s *Set) Get(name string) (*Manifest, bool) {
	m, ok := s.manifests[name]
	return m, ok
}

// Names returns manifest names in sorted order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.manifests))
	for name := range s.manifests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of manifests.
func (s *Set) Len() int {
	return len(s.manifests)
}

// Definition builds the named dispatcher definition, including its
// ancestors. Definitions are cached, so two children of the same parent
// share one parent Definition.
func (s *Set) Definition(name string) (*dispatcher.Definition, error) {
	return s.definition(name, make(map[string]bool))
}

func (s *Set) definition(name string, visiting map[string]bool) (*dispatcher.Definition, error) {
	if def, ok := s.built[name]; ok {
		return def, nil
	}
	m, ok := s.manifests[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParent, name)
	}
	if visiting[name] {
		return nil, fmt.Errorf("%w: %s", ErrCycle, name)
	}
	visiting[name] = true

	var parent *dispatcher.Definition
	if m.Extends != "" {
		p, err := s.definition(m.Extends, visiting)
		if err != nil {
			return nil, fmt.Errorf("%s extends %s: %w", name, m.Extends, err)
		}
		parent = p
	}

	assertions, err := m.buildAssertions(s.opts)
	if err != nil {
		return nil, err
	}
	def := &dispatcher.Definition{
		Name:          m.Name,
		Parent:        parent,
		Roles:         append([]string(nil), m.Roles...),
		Initial:       m.Initial,
		InitialSwitch: m.Switch,
		Assertions:    assertions,
		Init:          m.initializer(),
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	s.built[name] = def
	return def, nil
}
