package authware

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// ContextKeyUser is the router.Context locals key the gate stores the
// authenticated user under.
const ContextKeyUser = "user"

// ContextKeyClaims is the router.Context locals key the gate stores the
// verified claims under.
const ContextKeyClaims = "claims"

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithClaimsContext sets the UserClaims in the given context
func WithClaimsContext(r context.Context, claims *UserClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the UserClaims from the standard context
func GetClaims(ctx context.Context) (*UserClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*UserClaims)
	return raw, ok
}

// GetRouterClaims extracts the UserClaims from the router context
func GetRouterClaims(ctx router.Context, key string) (*UserClaims, bool) {
	if key == "" {
		key = ContextKeyClaims
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(*UserClaims)
	return claims, ok
}

// GetRouterUser extracts the authenticated User from the router context
func GetRouterUser(ctx router.Context) (*User, bool) {
	raw := ctx.Locals(ContextKeyUser)
	if raw == nil {
		return nil, false
	}
	user, ok := raw.(*User)
	return user, ok
}
