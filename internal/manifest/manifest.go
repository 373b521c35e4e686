// Package manifest loads declarative dispatcher definitions from TOML and
// YAML files.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/persona/internal/assertion"
	"github.com/dshills/persona/internal/props"
	"github.com/dshills/persona/internal/role"
	"github.com/dshills/persona/internal/script"
)

// Format identifies a manifest encoding.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Manifest declares one dispatcher type.
//
//	name = "Member"
//	roles = ["Profile", "Admin"]
//	initial = ["Profile"]
//
//	[data]
//	level = "user"
//
//	[[assertions]]
//	property = "level"
//	kind = "equal"
//	arg = "admin"
//	enables = ["Admin"]
//	otherwise_disable = ["Admin"]
type Manifest struct {
	Name       string          `toml:"name" yaml:"name"`
	Extends    string          `toml:"extends" yaml:"extends"`
	Roles      []string        `toml:"roles" yaml:"roles"`
	Initial    []string        `toml:"initial" yaml:"initial"`
	Switch     string          `toml:"switch" yaml:"switch"`
	Data       map[string]any  `toml:"data" yaml:"data"`
	Assertions []AssertionSpec `toml:"assertions" yaml:"assertions"`

	// Path is the file the manifest was read from, if any.
	Path string `toml:"-" yaml:"-"`
}

// AssertionSpec declares one property assertion. Either Kind (a builtin
// constraint with optional Arg) or Expr (a Lua expression) must be set.
type AssertionSpec struct {
	Property         string   `toml:"property" yaml:"property"`
	Kind             string   `toml:"kind" yaml:"kind"`
	Arg              any      `toml:"arg" yaml:"arg"`
	Expr             string   `toml:"expr" yaml:"expr"`
	Enables          []string `toml:"enables" yaml:"enables"`
	Disables         []string `toml:"disables" yaml:"disables"`
	OtherwiseEnable  []string `toml:"otherwise_enable" yaml:"otherwise_enable"`
	OtherwiseDisable []string `toml:"otherwise_disable" yaml:"otherwise_disable"`
	Description      string   `toml:"description" yaml:"description"`
}

// Parse decodes a manifest. source names the input in errors.
func Parse(format Format, data []byte, source string) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			perr := &ParseError{Path: source, Message: err.Error(), Err: err}
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				perr.Line, perr.Column = derr.Position()
			}
			return nil, perr
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, &ParseError{Path: source, Message: err.Error(), Err: err}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	m.Path = source
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks names and assertion shapes without building anything.
func (m *Manifest) Validate() error {
	if err := role.CheckName("definition", m.Name); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if m.Extends != "" {
		if err := role.CheckName("parent", m.Extends); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, m.Name, err)
		}
	}
	for _, list := range [][]string{m.Roles, m.Initial} {
		for _, r := range list {
			if err := role.CheckName("role", r); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalid, m.Name, err)
			}
		}
	}
	if m.Switch != "" {
		if err := role.CheckName("role", m.Switch); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, m.Name, err)
		}
	}
	for i, a := range m.Assertions {
		if a.Property == "" {
			return fmt.Errorf("%w: %s: assertion %d has no property", ErrInvalid, m.Name, i)
		}
		if (a.Kind == "") == (a.Expr == "") {
			return fmt.Errorf("%w: %s: assertion %d needs exactly one of kind or expr", ErrInvalid, m.Name, i)
		}
	}
	return nil
}

// buildAssertions turns the declared specs into assertions.
func (m *Manifest) buildAssertions(opts []script.StateOption) ([]assertion.Assertion, error) {
	out := make([]assertion.Assertion, 0, len(m.Assertions))
	for i, spec := range m.Assertions {
		var (
			c   assertion.Constraint
			err error
		)
		if spec.Expr != "" {
			c, err = script.NewExpression(spec.Expr, opts...)
		} else {
			c, err = assertion.NewConstraint(spec.Kind, spec.Arg)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: assertion %d: %w", m.Name, i, err)
		}
		a := assertion.Property(spec.Property, c).
			Enables(spec.Enables...).
			Disables(spec.Disables...).
			OtherwiseEnable(spec.OtherwiseEnable...).
			OtherwiseDisable(spec.OtherwiseDisable...)
		if spec.Description != "" {
			a.Describe(spec.Description)
		}
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("%s: assertion %d: %w", m.Name, i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// initializer seeds the declared data.
func (m *Manifest) initializer() func(*props.Data) {
	if len(m.Data) == 0 {
		return nil
	}
	seed := make(map[string]any, len(m.Data))
	for k, v := range m.Data {
		seed[k] = v
	}
	return func(data *props.Data) {
		for k, v := range seed {
			data.Set(k, v)
		}
	}
}
