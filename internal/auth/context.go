// Package auth resolves the bearer token of a request into the email of the
// logged user.
package auth

import "context"

type ctxKey struct{}

// WithUser stores the authenticated email on the context.
func WithUser(ctx context.Context, email string) context.Context {
	if email == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, email)
}

// UserFromContext returns the authenticated email, if any.
func UserFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(ctxKey{}).(string)
	return email, ok && email != ""
}
