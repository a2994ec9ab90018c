package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/holidayhomes/bookingapi/internal/domain"
	"github.com/holidayhomes/bookingapi/internal/domain/user"
)

// TenantParam is the chi URL parameter holding the optional tenant slug.
const TenantParam = "tenant"

type tenantCtxKey struct{}

// TenantAuthorizer decides which tenant a session may act on and checks
// slugs against the known set.
type TenantAuthorizer interface {
	AuthorizeTenantAccess(claims *user.Claims, requested string) (string, error)
	ResolvePublicTenant(candidate string) (string, error)
}

// RequireTenantAccess must run after Authenticate. It resolves the effective
// tenant from the route parameter and the session claims: no claim tenant or
// a mismatch is 403, an unknown slug is 400.
func RequireTenantAccess(a TenantAuthorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, "Access denied")
				return
			}

			requested := chi.URLParam(r, TenantParam)
			slug, err := a.AuthorizeTenantAccess(claims, requested)
			if err != nil {
				slog.Warn("tenant access denied",
					"user", claims.Username, "claim_tenant", claims.Tenant, "requested", requested)
				writeError(w, http.StatusForbidden, "Access denied for this property")
				return
			}

			if _, err := a.ResolvePublicTenant(slug); err != nil {
				writeError(w, http.StatusBadRequest, unknownTenant(slug))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), slug)))
		})
	}
}

// PublicTenant resolves the tenant of an unauthenticated request: the route
// parameter when present, else the default tenant. Unknown slugs are 400.
func PublicTenant(a TenantAuthorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requested := chi.URLParam(r, TenantParam)
			slug, err := a.ResolvePublicTenant(requested)
			if err != nil {
				if !errors.Is(err, domain.ErrValidation) {
					slog.Error("resolve tenant", "error", err)
				}
				writeError(w, http.StatusBadRequest, unknownTenant(requested))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), slug)))
		})
	}
}

// WithTenant returns a copy of ctx carrying the effective tenant slug.
func WithTenant(ctx context.Context, slug string) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, slug)
}

// TenantFromContext returns the effective tenant slug, or "" if none was resolved.
func TenantFromContext(ctx context.Context) string {
	slug, _ := ctx.Value(tenantCtxKey{}).(string)
	return slug
}

func unknownTenant(slug string) string {
	if slug == "" {
		slug = "—"
	}
	return fmt.Sprintf("Unknown property: %s", slug)
}
