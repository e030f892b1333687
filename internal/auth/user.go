// Package auth carries the authenticated-user identity resolved by the
// upstream auth layer; the API itself issues no tokens.
package auth

import "context"

type User struct {
	UserID string
	Email  string
}

type ctxKey struct{}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func UserFrom(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok
}
