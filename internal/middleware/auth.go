package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/holidayhomes/bookingapi/internal/domain/user"
)

type claimsCtxKey struct{}

// TokenVerifier validates session tokens.
type TokenVerifier interface {
	VerifyToken(token string) (*user.Claims, error)
}

// Authenticate returns middleware that requires "Authorization: Bearer <token>"
// and stores the verified claims in the request context. Missing and invalid
// tokens both yield 401.
func Authenticate(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeError(w, http.StatusUnauthorized, "Access denied")
				return
			}

			claims, err := v.VerifyToken(strings.TrimSpace(token))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims returns a copy of ctx carrying the session claims.
func WithClaims(ctx context.Context, c *user.Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, c)
}

// ClaimsFromContext returns the authenticated session claims, or nil.
func ClaimsFromContext(ctx context.Context) *user.Claims {
	c, _ := ctx.Value(claimsCtxKey{}).(*user.Claims)
	return c
}
