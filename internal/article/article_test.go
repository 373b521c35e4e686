package article_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dshills/persona/internal/article"
	"github.com/dshills/persona/internal/dispatcher"
	"github.com/dshills/persona/internal/role"
)

func newDispatcher(t *testing.T, def *dispatcher.Definition) *dispatcher.Dispatcher {
	t.Helper()
	d, err := dispatcher.New(def, article.Source(), dispatcher.DefaultConfig())
	if err != nil {
		t.Fatalf("New(%s): %v", def.Name, err)
	}
	return d
}

func fixClock(t *testing.T) {
	t.Helper()
	prev := article.Now
	article.Now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { article.Now = prev })
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"**bold**", "<strong>bold</strong>"},
		{"*em*", "<em>em</em>"},
		{"a\nb", "a<br/>b"},
		{"**B** and *i*\nend", "<strong>B</strong> and <em>i</em><br/>end"},
		{"lone * star", "lone * star"},
	}
	for _, tt := range tests {
		if got := article.Format(tt.in); got != tt.want {
			t.Errorf("Format(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestPublishScenario walks an article from draft to published.
func TestPublishScenario(t *testing.T) {
	fixClock(t)
	d := newDispatcher(t, article.Definition())

	if !reflect.DeepEqual(d.EnabledRoles(), []string{article.RoleDraft}) {
		t.Fatalf("initial roles = %v", d.EnabledRoles())
	}
	if _, err := d.Call("setTitle", "A"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Call("setBody", "**B**\n*c*"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Call("getFormattedBody"); !errors.Is(err, dispatcher.ErrMethodNotImplemented) {
		t.Errorf("getFormattedBody before publish error = %v", err)
	}

	if _, err := d.Call("publish"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !reflect.DeepEqual(d.EnabledRoles(), []string{article.RolePublished}) {
		t.Fatalf("roles after publish = %v", d.EnabledRoles())
	}

	body, err := d.Call("getFormattedBody")
	if err != nil || body != "<strong>B</strong><br/><em>c</em>" {
		t.Errorf("getFormattedBody = %v, %v", body, err)
	}
	if v, _ := d.Call("getTitle"); v != "A" {
		t.Errorf("getTitle = %v, want A", v)
	}
	if v, _ := d.Call("getPublished"); v != "2024-03-09" {
		t.Errorf("getPublished = %v", v)
	}
	if _, err := d.Call("setTitle", "B"); !errors.Is(err, dispatcher.ErrMethodNotImplemented) {
		t.Errorf("setTitle after publish error = %v, want ErrMethodNotImplemented", err)
	}
}

func TestArticleVisibility(t *testing.T) {
	d := newDispatcher(t, article.Definition())

	if _, err := d.Call("getDate"); !errors.Is(err, dispatcher.ErrIllegalVisibility) {
		t.Errorf("getDate error = %v, want ErrIllegalVisibility", err)
	}
	if err := d.Switch(article.RolePublished); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Call("formatBody"); !errors.Is(err, dispatcher.ErrIllegalVisibility) {
		t.Errorf("formatBody error = %v, want ErrIllegalVisibility", err)
	}
}

func TestArticleArguments(t *testing.T) {
	d := newDispatcher(t, article.Definition())
	tests := []struct {
		name string
		args []any
	}{
		{"none", nil},
		{"two", []any{"a", "b"}},
		{"wrong type", []any{42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.Call("setTitle", tt.args...); !errors.Is(err, role.ErrInvalidArgument) {
				t.Errorf("setTitle(%v) error = %v", tt.args, err)
			}
		})
	}
}

func TestSummaryOwnMethod(t *testing.T) {
	d := newDispatcher(t, article.Definition())
	d.Call("setTitle", "Hello")
	d.Call("setBody", "*x*")

	if v, err := d.Call("summary"); err != nil || v != "Hello [Draft]" {
		t.Errorf("draft summary = %v, %v", v, err)
	}
	d.Call("publish")
	if v, err := d.Call("summary"); err != nil || v != "Hello [Published] <em>x</em>" {
		t.Errorf("published summary = %v, %v", v, err)
	}
}

func TestNewsArticle(t *testing.T) {
	d := newDispatcher(t, article.NewsDefinition())

	layers := d.Registry().Layers(article.RoleDraft)
	if len(layers) != 2 || layers[0].Origin() != "Article" || layers[1].Origin() != "NewsArticle" {
		t.Fatalf("Draft layers = %d", len(layers))
	}

	if _, err := d.Call("setHeadline", "  breaking   news "); err != nil {
		t.Fatalf("setHeadline: %v", err)
	}
	if v, _ := d.Call("getTitle"); v != "BREAKING NEWS" {
		t.Errorf("getTitle = %q", v)
	}
	if _, err := d.Call("normalize", "x"); !errors.Is(err, dispatcher.ErrIllegalVisibility) {
		t.Errorf("external normalize error = %v, want ErrIllegalVisibility", err)
	}

	if _, err := d.Call("publish"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Call("setHeadline", "late"); !errors.Is(err, dispatcher.ErrMethodNotImplemented) {
		t.Errorf("setHeadline after publish error = %v", err)
	}
}

func TestMemberRoles(t *testing.T) {
	d := newDispatcher(t, article.MemberDefinition())

	if !reflect.DeepEqual(d.EnabledRoles(), []string{article.RoleProfile}) {
		t.Fatalf("initial roles = %v", d.EnabledRoles())
	}
	if _, err := d.Call("permissions"); !errors.Is(err, dispatcher.ErrMethodNotImplemented) {
		t.Errorf("permissions before promote error = %v", err)
	}

	d.Call("promote")
	if v, err := d.Call("permissions"); err != nil || v != "admin" {
		t.Errorf("permissions = %v, %v", v, err)
	}

	if v, err := d.Call("addKarma", 120); err != nil || v != 120 {
		t.Fatalf("addKarma = %v, %v", v, err)
	}
	if !d.IsEnabled(article.RoleAdmin) || !d.IsEnabled(article.RoleModerator) {
		t.Fatalf("Admin and Moderator must coexist, roles = %v", d.EnabledRoles())
	}
	if v, err := d.Call("hidePost", "p1"); err != nil || v != 1 {
		t.Errorf("hidePost = %v, %v", v, err)
	}

	d.Call("demote")
	if d.IsEnabled(article.RoleAdmin) || !d.IsEnabled(article.RoleModerator) {
		t.Errorf("demote must drop Admin only, roles = %v", d.EnabledRoles())
	}

	d.Call("promote")
	if _, err := d.Call("banMember"); err != nil {
		t.Fatalf("banMember: %v", err)
	}
	if !reflect.DeepEqual(d.EnabledRoles(), []string{article.RoleProfile}) {
		t.Errorf("ban must win over promotion, roles = %v", d.EnabledRoles())
	}
	if _, err := d.Call("ban"); !errors.Is(err, dispatcher.ErrIllegalVisibility) {
		t.Errorf("external ban error = %v, want ErrIllegalVisibility", err)
	}
}
