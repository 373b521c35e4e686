package dispatcher_test

import (
	"fmt"
	"testing"

	"github.com/dshills/persona/internal/dispatcher"
	"github.com/dshills/persona/internal/dispatcher/execctx"
	"github.com/dshills/persona/internal/role"
)

// staticSource resolves roles from a factory table.
type staticSource map[string]role.Factory

func (s staticSource) Resolve(id string) (*role.Implementation, error) {
	f, ok := s[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", role.ErrNotFound, id)
	}
	return f()
}

func factory(b func() *role.Builder) role.Factory {
	return func() (*role.Implementation, error) { return b().Build() }
}

func constant(v any) role.Func {
	return func(ctx *execctx.Context, args ...any) (any, error) { return v, nil }
}

func setter(key string) role.Func {
	return func(ctx *execctx.Context, args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: expected 1 argument, got %d", key, len(args))
		}
		ctx.Set(key, args[0])
		return nil, nil
	}
}

func getter(key string) role.Func {
	return func(ctx *execctx.Context, args ...any) (any, error) {
		v, _ := ctx.Get(key)
		return v, nil
	}
}

func mustNew(t testing.TB, def *dispatcher.Definition, src role.Source) *dispatcher.Dispatcher {
	t.Helper()
	d, err := dispatcher.New(def, src, dispatcher.DefaultConfig())
	if err != nil {
		t.Fatalf("New(%s): %v", def.Name, err)
	}
	return d
}

// articleSource provides Draft and Published roles sharing the title field.
func articleSource() staticSource {
	return staticSource{
		"Draft": factory(func() *role.Builder {
			return role.New("Draft").
				Func("setTitle", role.Public, setter("title")).
				Func("getTitle", role.Public, getter("title")).
				Func("getDate", role.Private, constant("2024-01-01")).
				Func("stamp", role.Public, func(ctx *execctx.Context, args ...any) (any, error) {
					return ctx.Call("getDate")
				}).
				Func("publish", role.Public, func(ctx *execctx.Context, args ...any) (any, error) {
					return nil, ctx.Switch("Published")
				})
		}),
		"Published": factory(func() *role.Builder {
			return role.New("Published").
				Func("getTitle", role.Public, getter("title")).
				Func("render", role.Protected, func(ctx *execctx.Context, args ...any) (any, error) {
					return "<h1>" + ctx.GetString("title") + "</h1>", nil
				}).
				Func("show", role.Public, func(ctx *execctx.Context, args ...any) (any, error) {
					return ctx.Call("render")
				}).
				Func("peekDate", role.Public, func(ctx *execctx.Context, args ...any) (any, error) {
					return ctx.Call("getDate")
				})
		}),
		"Reader": factory(func() *role.Builder {
			return role.New("Reader").
				Func("readTitle", role.Public, getter("title"))
		}),
	}
}

func articleDefinition() *dispatcher.Definition {
	return &dispatcher.Definition{
		Name:    "Article",
		Roles:   []string{"Draft", "Published", "Reader"},
		Initial: []string{"Draft"},
	}
}
