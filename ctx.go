package auth

import (
	"context"
)

var identityCtxKey = &contextKey{"identity"}
var authCtxKey = &contextKey{"auth"}

type contextKey struct {
	name string
}

// WithContext sets the Identity in the given context
func WithContext(r context.Context, identity *Identity) context.Context {
	return context.WithValue(r, identityCtxKey, identity)
}

// FromContext finds the identity from the context.
func FromContext(ctx context.Context) (*Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(*Identity)
	return raw, ok
}

// WithAuthContext sets the AuthenticatedContext in the given context
func WithAuthContext(r context.Context, actx *AuthenticatedContext) context.Context {
	return context.WithValue(r, authCtxKey, actx)
}

// AuthFromContext extracts the AuthenticatedContext from the standard context
func AuthFromContext(ctx context.Context) (*AuthenticatedContext, bool) {
	raw, ok := ctx.Value(authCtxKey).(*AuthenticatedContext)
	return raw, ok
}

// HasRole is a convenience check against the context's authenticated role.
func HasRole(ctx context.Context, roles ...Role) bool {
	actx, ok := AuthFromContext(ctx)
	if !ok {
		return false
	}
	return RequireRole(actx, roles...) == nil
}
