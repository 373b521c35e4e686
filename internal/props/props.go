// Package props holds the private data segment owned by a dispatcher.
//
// Role functions receive the dispatcher's Data (never a copy) through their
// execution context, so a write made by one role is visible to every other
// role on the next call.
package props

import (
	"fmt"
	"maps"
	"sort"
)

// Data is a property bag with a mutation counter.
//
// Data is not safe for concurrent use. A dispatcher and its data are owned by
// one logical caller at a time.
type Data struct {
	values   map[string]any
	revision uint64
}

// New creates an empty data segment.
func New() *Data {
	return &Data{values: make(map[string]any)}
}

// FromMap creates a data segment seeded with a copy of m.
func FromMap(m map[string]any) *Data {
	d := New()
	for k, v := range m {
		d.values[k] = v
	}
	return d
}

// Get returns the value for key and whether it is present.
func (d *Data) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Set stores a value and bumps the revision.
func (d *Data) Set(key string, value any) {
	d.values[key] = value
	d.revision++
}

// Has reports whether key is present.
func (d *Data) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Delete removes key. Removing an absent key does not change the revision.
func (d *Data) Delete(key string) {
	if _, ok := d.values[key]; !ok {
		return
	}
	delete(d.values, key)
	d.revision++
}

// Keys returns all property names in sorted order.
func (d *Data) Keys() []string {
	keys := make([]string, 0, len(d.values))
	for k := range d.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of properties.
func (d *Data) Len() int {
	return len(d.values)
}

// Snapshot returns a shallow copy of the properties.
func (d *Data) Snapshot() map[string]any {
	return maps.Clone(d.values)
}

// Replace swaps the whole segment for a copy of m. Used when an object is
// reconstituted outside its normal constructor.
func (d *Data) Replace(m map[string]any) {
	d.values = make(map[string]any, len(m))
	for k, v := range m {
		d.values[k] = v
	}
	d.revision++
}

// Revision returns a counter that increases on every mutation.
func (d *Data) Revision() uint64 {
	return d.revision
}

// String retrieves a string property, or "" when missing or of another type.
func (d *Data) String(key string) string {
	if v, ok := d.values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Int retrieves an integer property. Lua numbers arrive as int64 or float64.
func (d *Data) Int(key string) int {
	if v, ok := d.values[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 0
}

// Bool retrieves a boolean property.
func (d *Data) Bool(key string) bool {
	if v, ok := d.values[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// Format renders the segment as "k=v" pairs for diagnostics.
func (d *Data) Format() string {
	out := ""
	for i, k := range d.Keys() {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%v", k, d.values[k])
	}
	return out
}
