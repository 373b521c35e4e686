package hook_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/dshills/persona/internal/dispatcher/execctx"
	"github.com/dshills/persona/internal/dispatcher/hook"
)

var errValidationFailed = errors.New("validation failed")

// TestPreCallFunc verifies the PreCallFunc adapter works.
func TestPreCallFunc(t *testing.T) {
	called := false
	h := hook.NewPreCallFunc("test-pre", 100, func(inv *hook.Invocation) bool {
		called = true
		return true
	})

	if h.Name() != "test-pre" {
		t.Errorf("expected name 'test-pre', got %q", h.Name())
	}
	if h.Priority() != 100 {
		t.Errorf("expected priority 100, got %d", h.Priority())
	}

	if !h.PreCall(&hook.Invocation{Method: "getTitle"}) {
		t.Error("expected PreCall to return true")
	}
	if !called {
		t.Error("expected PreCall to be called")
	}
}

// TestPreCallFuncNil verifies a nil function never cancels.
func TestPreCallFuncNil(t *testing.T) {
	h := hook.NewPreCallFunc("nil", 0, nil)
	if !h.PreCall(&hook.Invocation{}) {
		t.Error("nil pre-call function must not cancel")
	}
	hook.NewPostCallFunc("nil", 0, nil).PostCall(&hook.Invocation{}, &hook.Outcome{})
}

// TestPostCallFunc verifies the PostCallFunc adapter can modify the outcome.
func TestPostCallFunc(t *testing.T) {
	h := hook.NewPostCallFunc("test-post", 200, func(inv *hook.Invocation, out *hook.Outcome) {
		out.Value = "rewritten"
	})

	out := &hook.Outcome{Value: "original"}
	h.PostCall(&hook.Invocation{Method: "getTitle"}, out)

	if out.Value != "rewritten" {
		t.Errorf("expected rewritten value, got %v", out.Value)
	}
}

// TestManagerOrder verifies pre-hooks run from highest to lowest priority
// and post-hooks in the opposite order.
func TestManagerOrder(t *testing.T) {
	m := hook.NewManager()
	var order []string

	for _, p := range []int{10, 1000, 500} {
		name := fmt.Sprintf("p%d", p)
		m.Register(combined{
			name:     name,
			priority: p,
			pre:      func() { order = append(order, "pre:"+name) },
			post:     func() { order = append(order, "post:"+name) },
		})
	}

	inv := &hook.Invocation{}
	if err := m.RunPreCall(inv); err != nil {
		t.Fatalf("RunPreCall: %v", err)
	}
	m.RunPostCall(inv, &hook.Outcome{})

	want := []string{"pre:p1000", "pre:p500", "pre:p10", "post:p10", "post:p500", "post:p1000"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
	if got := m.Names(); !reflect.DeepEqual(got, []string{"p1000", "p500", "p10"}) {
		t.Errorf("Names() = %v", got)
	}
}

// TestManagerCancel verifies a cancelling hook stops later hooks and is
// named in the error.
func TestManagerCancel(t *testing.T) {
	tests := []struct {
		name   string
		hook   func(inv *hook.Invocation) bool
		reason error
	}{
		{"plain false", func(inv *hook.Invocation) bool { return false }, nil},
		{"with reason", func(inv *hook.Invocation) bool { return inv.Reject(errValidationFailed) }, errValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := hook.NewManager()
			laterCalled := false
			m.Register(hook.NewPreCallFunc("cancel", 100, tt.hook))
			m.Register(hook.NewPreCallFunc("later", 1, func(inv *hook.Invocation) bool {
				laterCalled = true
				return true
			}))

			err := m.RunPreCall(&hook.Invocation{})
			var cancel *hook.CancelError
			if !errors.As(err, &cancel) || cancel.Hook != "cancel" {
				t.Fatalf("expected CancelError from cancel, got %v", err)
			}
			if !errors.Is(err, hook.ErrCancelled) {
				t.Error("CancelError must match ErrCancelled")
			}
			if tt.reason != nil && !errors.Is(err, tt.reason) {
				t.Errorf("CancelError must match its reason, got %v", err)
			}
			if laterCalled {
				t.Error("hooks after a cancelling hook must not run")
			}
		})
	}
}

// TestManagerScopes verifies hooks only see the calls their scope selects.
func TestManagerScopes(t *testing.T) {
	external := &hook.Invocation{Method: "m", Caller: execctx.External}
	internal := &hook.Invocation{Method: "m", Caller: execctx.Caller{Kind: execctx.CallerRole, Role: "Draft"}}
	hinted := &hook.Invocation{Method: "m", Hint: "Draft", Caller: execctx.Caller{Kind: execctx.CallerRole, Role: "Draft"}}

	tests := []struct {
		name  string
		scope hook.Scope
		want  []bool // external, internal, hinted
	}{
		{"all", hook.ScopeAll, []bool{true, true, true}},
		{"external", hook.ScopeExternal, []bool{true, false, false}},
		{"internal", hook.ScopeInternal, []bool{false, true, false}},
		{"hinted", hook.ScopeHinted, []bool{false, false, true}},
		{"escalation", hook.ScopeInternal | hook.ScopeHinted, []bool{false, true, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := hook.NewManager()
			var seen int
			m.RegisterFor(tt.scope, hook.NewPostCallFunc("count", 0, func(inv *hook.Invocation, out *hook.Outcome) {
				seen++
			}))
			for i, inv := range []*hook.Invocation{external, internal, hinted} {
				seen = 0
				m.RunPostCall(inv, &hook.Outcome{})
				if (seen == 1) != tt.want[i] {
					t.Errorf("invocation %d: seen=%d, want %v", i, seen, tt.want[i])
				}
			}
		})
	}

	if hook.ScopeOf(hinted) != hook.ScopeHinted || hook.ScopeOf(external) != hook.ScopeExternal {
		t.Error("ScopeOf misclassified an invocation")
	}
}

// TestManagerReplaceByName verifies registering an existing name replaces it.
func TestManagerReplaceByName(t *testing.T) {
	m := hook.NewManager()
	m.Register(hook.NewPreCallFunc("same", 1, nil))
	m.Register(hook.NewPreCallFunc("same", 2, nil))

	if m.Len() != 1 {
		t.Errorf("expected 1 hook, got %d", m.Len())
	}
}

// TestManagerUnregister verifies removal by name and Clear.
func TestManagerUnregister(t *testing.T) {
	m := hook.NewManager()
	m.Register(hook.NewAuditHook(nil))

	if !m.Unregister("audit") {
		t.Error("expected Unregister to report removal")
	}
	if m.Len() != 0 {
		t.Error("expected no hooks after unregister")
	}
	if m.Unregister("audit") {
		t.Error("second Unregister must report false")
	}

	m.Register(hook.NewTraceHook(0))
	m.Register(hook.NewPreCallFunc("x", 0, nil))
	m.Clear()
	if m.Len() != 0 {
		t.Error("expected empty manager after Clear")
	}
}

type combined struct {
	name      string
	priority  int
	pre, post func()
}

func (c combined) Name() string  { return c.name }
func (c combined) Priority() int { return c.priority }

func (c combined) PreCall(inv *hook.Invocation) bool {
	c.pre()
	return true
}

func (c combined) PostCall(inv *hook.Invocation, out *hook.Outcome) {
	c.post()
}

type recordingLogger struct {
	debug, info, errs []string
}

func (l *recordingLogger) Debug(msg string, kv ...any) { l.debug = append(l.debug, msg) }
func (l *recordingLogger) Info(msg string, kv ...any)  { l.info = append(l.info, msg) }
func (l *recordingLogger) Error(msg string, kv ...any) { l.errs = append(l.errs, msg) }

// TestAuditHook verifies start, completion and failure are logged.
func TestAuditHook(t *testing.T) {
	logger := &recordingLogger{}
	h := hook.NewAuditHook(logger)
	inv := &hook.Invocation{Method: "publish", Caller: execctx.External, Depth: 1}

	h.PreCall(inv)
	h.PostCall(inv, &hook.Outcome{Role: "Draft"})
	h.PostCall(inv, &hook.Outcome{Err: errors.New("boom")})

	if len(logger.debug) != 2 {
		t.Errorf("expected 2 debug entries, got %v", logger.debug)
	}
	if len(logger.errs) != 1 || logger.errs[0] != "call failed" {
		t.Errorf("expected one 'call failed' entry, got %v", logger.errs)
	}
}

// TestValidationHook verifies invalid calls are cancelled and the error is kept.
func TestValidationHook(t *testing.T) {
	h := hook.NewValidationHook("no-args", hook.PriorityValidation, hook.ScopeAll, func(inv *hook.Invocation) error {
		if len(inv.Args) > 1 {
			return errValidationFailed
		}
		return nil
	})

	if !h.PreCall(&hook.Invocation{Args: []any{1}}) {
		t.Error("expected single-arg call to pass")
	}
	if h.PreCall(&hook.Invocation{Args: []any{1, 2}}) {
		t.Error("expected two-arg call to be cancelled")
	}
	if h.Scope() != hook.ScopeAll {
		t.Errorf("Scope() = %v, want ScopeAll", h.Scope())
	}
	if !errors.Is(h.LastError(), errValidationFailed) {
		t.Errorf("expected LastError to be errValidationFailed, got %v", h.LastError())
	}
}

// TestTraceHookBounded verifies the trace keeps only the newest records.
func TestTraceHookBounded(t *testing.T) {
	h := hook.NewTraceHook(2)
	for _, m := range []string{"a", "b", "c"} {
		h.PostCall(&hook.Invocation{Method: m, Caller: execctx.External}, &hook.Outcome{Role: "R"})
	}

	records := h.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Method != "b" || records[1].Method != "c" {
		t.Errorf("unexpected records %+v", records)
	}
	if records[0].Caller != "external" {
		t.Errorf("expected caller 'external', got %q", records[0].Caller)
	}

	h.Clear()
	if len(h.Records()) != 0 {
		t.Error("expected empty trace after Clear")
	}
}
