package middleware

import (
	"context"

	"github.com/angelmondragon/movemarket-backend/pkg/enums"
)

type contextKey string

const ctxPrincipal contextKey = "principal"

// Principal is the authenticated caller behind a request.
type Principal struct {
	Email string
	Role  enums.Role
	// RecipientID is the id notifications for this caller are stored under:
	// the supplier id for suppliers, the email for everyone else.
	RecipientID string
}

// WithPrincipal injects the caller into the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrincipal, p)
}

// PrincipalFromContext returns the caller set by Auth.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(ctxPrincipal).(Principal)
	return p, ok
}
