package article

import (
	"fmt"

	"github.com/dshills/persona/internal/assertion"
	"github.com/dshills/persona/internal/dispatcher"
	"github.com/dshills/persona/internal/dispatcher/execctx"
	"github.com/dshills/persona/internal/props"
	"github.com/dshills/persona/internal/role"
)

// ModeratorKarma is the karma at which a member becomes a moderator.
const ModeratorKarma = 100

// MemberDefinition declares the Member dispatcher. Admin and Moderator may
// be enabled together; both follow the member's data through assertions.
func MemberDefinition() *dispatcher.Definition {
	return &dispatcher.Definition{
		Name:    "Member",
		Roles:   []string{RoleProfile, RoleAdmin, RoleModerator},
		Initial: []string{RoleProfile},
		Assertions: []assertion.Assertion{
			assertion.Property(KeyLevel, assertion.IsEqual("admin")).
				Enables(RoleAdmin).
				OtherwiseDisable(RoleAdmin).
				Describe("admins get the admin role"),
			assertion.Property(KeyKarma, assertion.Callback("karma >= 100", func(v any, present bool) bool {
				n, ok := v.(int)
				return present && ok && n >= ModeratorKarma
			})).
				Enables(RoleModerator).
				OtherwiseDisable(RoleModerator),
			assertion.Property(KeyBanned, assertion.IsTrue()).
				Disables(RoleAdmin, RoleModerator),
		},
		Init: func(data *props.Data) {
			data.Set(KeyLevel, "user")
			data.Set(KeyKarma, 0)
		},
	}
}

func profile() (*role.Implementation, error) {
	return role.New(RoleProfile).
		Func("setName", role.Public, func(ctx *execctx.Context, args ...any) (any, error) {
			name, err := stringArg("setName", args)
			if err != nil {
				return nil, err
			}
			ctx.Set(KeyName, name)
			return nil, nil
		}).
		Func("promote", role.Public, func(ctx *execctx.Context, args ...any) (any, error) {
			ctx.Set(KeyLevel, "admin")
			return nil, nil
		}).
		Func("demote", role.Public, func(ctx *execctx.Context, args ...any) (any, error) {
			ctx.Set(KeyLevel, "user")
			return nil, nil
		}).
		Func("addKarma", role.Public, func(ctx *execctx.Context, args ...any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("%w: addKarma expects 1 argument", role.ErrInvalidArgument)
			}
			n, ok := args[0].(int)
			if !ok {
				return nil, fmt.Errorf("%w: addKarma expects an int, got %T", role.ErrInvalidArgument, args[0])
			}
			karma := ctx.Data().Int(KeyKarma) + n
			ctx.Set(KeyKarma, karma)
			return karma, nil
		}).
		Func("ban", role.Protected, func(ctx *execctx.Context, args ...any) (any, error) {
			ctx.Set(KeyBanned, true)
			return nil, nil
		}).
		Build()
}

func admin() (*role.Implementation, error) {
	return role.New(RoleAdmin).
		Func("banMember", role.Public, func(ctx *execctx.Context, args ...any) (any, error) {
			return ctx.Call("ban")
		}).
		Func("permissions", role.Public, func(ctx *execctx.Context, args ...any) (any, error) {
			return "admin", nil
		}).
		Build()
}

func moderator() (*role.Implementation, error) {
	return role.New(RoleModerator).
		Func("hidePost", role.Public, func(ctx *execctx.Context, args ...any) (any, error) {
			id, err := stringArg("hidePost", args)
			if err != nil {
				return nil, err
			}
			hidden, _ := ctx.Get(KeyHidden)
			list, _ := hidden.([]string)
			list = append(append([]string(nil), list...), id)
			ctx.Set(KeyHidden, list)
			return len(list), nil
		}).
		Build()
}
