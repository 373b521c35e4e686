package hook

import (
	"sort"
	"sync"
)

// Scope selects which calls a hook observes.
type Scope uint8

const (
	// ScopeExternal matches unhinted calls from outside the dispatcher.
	ScopeExternal Scope = 1 << iota
	// ScopeInternal matches unhinted calls from role functions and
	// dispatcher-own methods.
	ScopeInternal
	// ScopeHinted matches calls that name a role explicitly.
	ScopeHinted

	// ScopeAll matches every call.
	ScopeAll = ScopeExternal | ScopeInternal | ScopeHinted
)

// ScopeOf classifies an invocation.
func ScopeOf(inv *Invocation) Scope {
	switch {
	case inv.Hint != "":
		return ScopeHinted
	case inv.Caller.IsInternal():
		return ScopeInternal
	default:
		return ScopeExternal
	}
}

// Scoped is implemented by hooks that only observe some calls. Hooks
// without it observe every call.
type Scoped interface {
	Scope() Scope
}

type entry struct {
	name     string
	priority int
	scope    Scope
	pre      PreCallHook
	post     PostCallHook
}

// Manager runs call hooks in priority order. One list holds every hook,
// highest priority first; pre-hooks run front to back and post-hooks back
// to front, so the hook that saw a call first sees its outcome last.
type Manager struct {
	mu      sync.RWMutex
	entries []entry
}

// NewManager creates an empty hook manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register adds h for the calls its Scope selects (every call if it has
// none). A hook with the name of a registered one replaces it.
func (m *Manager) Register(h Hook) {
	scope := ScopeAll
	if s, ok := h.(Scoped); ok {
		scope = s.Scope()
	}
	m.RegisterFor(scope, h)
}

// RegisterFor adds h for the calls matching scope, overriding any Scope
// the hook declares. h must implement PreCallHook, PostCallHook or both;
// other values are ignored.
func (m *Manager) RegisterFor(scope Scope, h Hook) {
	e := entry{name: h.Name(), priority: h.Priority(), scope: scope}
	e.pre, _ = h.(PreCallHook)
	e.post, _ = h.(PostCallHook)
	if e.pre == nil && e.post == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.remove(e.name)
	m.entries = append(m.entries, e)
	sort.SliceStable(m.entries, func(i, j int) bool {
		return m.entries[i].priority > m.entries[j].priority
	})
}

// Unregister removes a hook by name.
func (m *Manager) Unregister(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remove(name)
}

func (m *Manager) remove(name string) bool {
	for i, e := range m.entries {
		if e.name == name {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return true
		}
	}
	return false
}

// RunPreCall runs the pre-hooks in scope for inv, highest priority first.
// The first hook to refuse the call stops the chain; the returned
// *CancelError names it and carries the reason it gave through
// Invocation.Reject.
func (m *Manager) RunPreCall(inv *Invocation) error {
	scope := ScopeOf(inv)
	for _, e := range m.snapshot() {
		if e.pre == nil || e.scope&scope == 0 {
			continue
		}
		inv.reason = nil
		if !e.pre.PreCall(inv) {
			return &CancelError{Hook: e.name, Reason: inv.reason}
		}
	}
	return nil
}

// RunPostCall runs the post-hooks in scope for inv, lowest priority first.
// It runs for cancelled and failed calls too.
func (m *Manager) RunPostCall(inv *Invocation, out *Outcome) {
	scope := ScopeOf(inv)
	entries := m.snapshot()
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.post == nil || e.scope&scope == 0 {
			continue
		}
		e.post.PostCall(inv, out)
	}
}

func (m *Manager) snapshot() []entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]entry(nil), m.entries...)
}

// Names returns the registered hook names in pre-call order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.entries))
	for i, e := range m.entries {
		names[i] = e.name
	}
	return names
}

// Len returns the number of registered hooks.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Clear removes all hooks.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
}
