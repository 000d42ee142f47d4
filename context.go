package gestion

import "context"

type ctxKey string

const (
	ctxKeyIdentity ctxKey = "gestion_identity"
	ctxKeyUserID   ctxKey = "gestion_user_id"
	ctxKeyRoles    ctxKey = "gestion_roles"
)

// WithIdentity stores the authenticated identity snapshot in the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// IdentityFromContext extracts the authenticated identity from the context.
func IdentityFromContext(ctx context.Context) *Identity {
	v, _ := ctx.Value(ctxKeyIdentity).(*Identity)
	return v
}

// WithUserID stores the authenticated user ID in the context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// UserIDFromContext extracts the authenticated user ID from the context.
func UserIDFromContext(ctx context.Context) int64 {
	v, _ := ctx.Value(ctxKeyUserID).(int64)
	return v
}

// WithRoles stores the user's role names in the context.
func WithRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, ctxKeyRoles, roles)
}

// RolesFromContext extracts the user's role names from the context.
func RolesFromContext(ctx context.Context) []string {
	v, _ := ctx.Value(ctxKeyRoles).([]string)
	return v
}
