package auth

import (
	"context"

	"github.com/gnetorg/gnet/internal/model"
)

type contextKey struct{}

type AuthContext struct {
	UserID    int64
	Role      model.Role
	SessionID int64
}

func (ac AuthContext) IsAdmin() bool {
	return ac.Role == model.RoleAdmin
}

// IsExecutive reports whether the holder has executive or admin privileges.
func (ac AuthContext) IsExecutive() bool {
	return ac.Role == model.RoleExecutive || ac.Role == model.RoleAdmin
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

func IsAdmin(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	return ok && ac.IsAdmin()
}

// IsExecutive reports whether the caller holds executive or admin privileges.
func IsExecutive(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	return ok && ac.IsExecutive()
}
