// Package article holds the reference dispatchers: an Article that moves
// from Draft to Published, a NewsArticle that refines the Article draft,
// and a Member whose Admin and Moderator roles follow its data.
package article

import (
	"fmt"
	"strings"
	"time"

	"github.com/dshills/persona/internal/catalog"
	"github.com/dshills/persona/internal/dispatcher"
	"github.com/dshills/persona/internal/dispatcher/execctx"
	"github.com/dshills/persona/internal/props"
	"github.com/dshills/persona/internal/role"
)

// Role names.
const (
	RoleDraft     = "Draft"
	RolePublished = "Published"
	RoleProfile   = "Profile"
	RoleAdmin     = "Admin"
	RoleModerator = "Moderator"
)

// Data keys.
const (
	KeyTitle     = "title"
	KeyBody      = "body"
	KeyPublished = "published"
	KeyName      = "name"
	KeyLevel     = "level"
	KeyKarma     = "karma"
	KeyBanned    = "banned"
	KeyHidden    = "hidden"
)

// Now returns the current date. Tests replace it.
var Now = func() time.Time { return time.Now().UTC() }

// Definition declares the Article dispatcher.
func Definition() *dispatcher.Definition {
	return &dispatcher.Definition{
		Name:    "Article",
		Roles:   []string{RoleDraft, RolePublished},
		Initial: []string{RoleDraft},
		Methods: []dispatcher.OwnMethod{
			{Name: "summary", Visibility: role.Public, Func: summary},
		},
		Init: func(data *props.Data) {
			data.Set(KeyTitle, "")
			data.Set(KeyBody, "")
		},
	}
}

// NewsDefinition declares NewsArticle, which extends Article and layers a
// headline-aware Draft over the Article draft.
func NewsDefinition() *dispatcher.Definition {
	return &dispatcher.Definition{
		Name:   "NewsArticle",
		Parent: Definition(),
		Roles:  []string{RoleDraft},
	}
}

// Source provides every role used by the reference dispatchers.
func Source() catalog.Static {
	return catalog.Static{
		RoleDraft:                  draft,
		RolePublished:              published,
		"NewsArticle." + RoleDraft: newsDraft,
		RoleProfile:                profile,
		RoleAdmin:                  admin,
		RoleModerator:              moderator,
	}
}

// summary is an own method of Article. It reads the state the way any
// caller would, plus the protected formatBody once published.
func summary(ctx *execctx.Context, args ...any) (any, error) {
	state := strings.Join(ctx.EnabledRoles(), ",")
	if !ctx.IsEnabled(RolePublished) {
		return fmt.Sprintf("%s [%s]", ctx.GetString(KeyTitle), state), nil
	}
	body, err := ctx.Call("formatBody")
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("%s [%s] %v", ctx.GetString(KeyTitle), state, body), nil
}

func draft() (*role.Implementation, error) {
	return role.New(RoleDraft).
		Func("setTitle", role.Public, func(ctx *execctx.Context, args ...any) (any, error) {
			title, err := stringArg("setTitle", args)
			if err != nil {
				return nil, err
			}
			ctx.Set(KeyTitle, title)
			return nil, nil
		}).
		Func("setBody", role.Public, func(ctx *execctx.Context, args ...any) (any, error) {
			body, err := stringArg("setBody", args)
			if err != nil {
				return nil, err
			}
			ctx.Set(KeyBody, body)
			return nil, nil
		}).
		Func("getTitle", role.Public, func(ctx *execctx.Context, args ...any) (any, error) {
			return ctx.GetString(KeyTitle), nil
		}).
		Func("publish", role.Public, func(ctx *execctx.Context, args ...any) (any, error) {
			date, err := ctx.Call("getDate")
			if err != nil {
				return nil, err
			}
			ctx.Set(KeyPublished, date)
			return nil, ctx.Switch(RolePublished)
		}).
		Func("getDate", role.Private, func(ctx *execctx.Context, args ...any) (any, error) {
			return Now().Format(time.DateOnly), nil
		}).
		Func("normalize", role.Private, func(ctx *execctx.Context, args ...any) (any, error) {
			s, err := stringArg("normalize", args)
			if err != nil {
				return nil, err
			}
			return strings.Join(strings.Fields(s), " "), nil
		}).
		Build()
}

func newsDraft() (*role.Implementation, error) {
	return role.New(RoleDraft).
		Func("setHeadline", role.Public, func(ctx *execctx.Context, args ...any) (any, error) {
			// normalize is private to the Article level of Draft.
			v, err := ctx.CallRole(RoleDraft, "normalize", args...)
			if err != nil {
				return nil, err
			}
			ctx.Set(KeyTitle, strings.ToUpper(v.(string)))
			return nil, nil
		}).
		Build()
}

func published() (*role.Implementation, error) {
	return role.New(RolePublished).
		Func("getTitle", role.Public, func(ctx *execctx.Context, args ...any) (any, error) {
			return ctx.GetString(KeyTitle), nil
		}).
		Func("getFormattedBody", role.Public, func(ctx *execctx.Context, args ...any) (any, error) {
			return ctx.Call("formatBody")
		}).
		Func("formatBody", role.Protected, func(ctx *execctx.Context, args ...any) (any, error) {
			return Format(ctx.GetString(KeyBody)), nil
		}).
		Func("getPublished", role.Public, func(ctx *execctx.Context, args ...any) (any, error) {
			return ctx.GetString(KeyPublished), nil
		}).
		Build()
}

func stringArg(method string, args []any) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: %s expects 1 argument, got %d", role.ErrInvalidArgument, method, len(args))
	}
	s, ok := args[0].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s expects a string, got %T", role.ErrInvalidArgument, method, args[0])
	}
	return s, nil
}
