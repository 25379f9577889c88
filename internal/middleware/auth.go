package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"grocer-be/internal/identity"
	"grocer-be/internal/logger"

	"go.uber.org/zap"
)

// AccessTokenCookie is read when no Authorization header is sent.
const AccessTokenCookie = "access_token"

type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*identity.Claims, error)
}

// TokenFrom returns the bearer token of r, or "" when there is none.
// Non-bearer Authorization schemes are ignored.
func TokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// Auth attaches the session's claims to the request context. Requests
// without a token continue as guests; a token that fails validation is
// rejected with 401.
func Auth(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFrom(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := validator.ValidateSession(r.Context(), token)
			switch {
			case err == nil:
			case errors.Is(err, identity.ErrInvalidToken), errors.Is(err, identity.ErrSessionExpired):
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			default:
				logger.FromCtx(r.Context()).Error("session validation failed", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithClaims(r.Context(), claims)))
		})
	}
}

// RequireUser rejects guests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.UserIDFrom(r.Context()); !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
