package auth

import (
	"context"

	"github.com/dmitrijs2005/civicreport/internal/roles"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Role   roles.Role
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller stored by WithPrincipal.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
