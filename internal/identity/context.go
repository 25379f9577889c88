package identity

import (
	"context"

	"grocer-be/internal/logger"
)

type contextKey string

const claimsKey contextKey = "identity_claims"

// WithClaims stores the validated token claims in ctx and tags the logger.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, claimsKey, claims)
	return logger.WithUserID(ctx, claims.UserID)
}

func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// UserIDFrom returns the current user id, or false for guests.
func UserIDFrom(ctx context.Context) (string, bool) {
	c, ok := ClaimsFrom(ctx)
	if !ok || c.UserID == "" {
		return "", false
	}
	return c.UserID, true
}
