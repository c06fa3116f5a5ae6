package auth

import "context"

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRoleKey  contextKey = "user_role"
	UserEmailKey contextKey = "user_email"
)

// Principal is the authenticated caller.
type Principal struct {
	ID    string
	Email string
	Role  Role
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, p.ID)
	ctx = context.WithValue(ctx, UserRoleKey, p.Role)
	ctx = context.WithValue(ctx, UserEmailKey, p.Email)
	return ctx
}

func PrincipalFromContext(ctx context.Context) Principal {
	id, _ := ctx.Value(UserIDKey).(string)
	role, _ := ctx.Value(UserRoleKey).(Role)
	email, _ := ctx.Value(UserEmailKey).(string)
	return Principal{ID: id, Email: email, Role: role}
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RoleFromContext(ctx context.Context) Role {
	r, _ := ctx.Value(UserRoleKey).(Role)
	return r
}
