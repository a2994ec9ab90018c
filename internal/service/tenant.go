// Package service contains application services.
package service

import (
	"fmt"
	"slices"
	"strings"

	"github.com/holidayhomes/bookingapi/internal/config"
	"github.com/holidayhomes/bookingapi/internal/domain"
	"github.com/holidayhomes/bookingapi/internal/domain/tenant"
)

// TenantRegistry is the read-only set of tenants known to the process.
type TenantRegistry struct {
	tenants map[string]tenant.Tenant
	slugs   []string
	def     string
}

// NewTenantRegistry builds the registry from configuration. Read calendars are
// normalized into one list, and a tenant without an admin address falls back
// to its own mailbox, then to the process-wide sender.
func NewTenantRegistry(cfg *config.Config) (*TenantRegistry, error) {
	r := &TenantRegistry{
		tenants: make(map[string]tenant.Tenant, len(cfg.Tenants)),
		slugs:   cfg.TenantSlugs(),
		def:     cfg.DefaultTenant,
	}

	for _, slug := range r.slugs {
		tc := cfg.Tenants[slug]
		t := tenant.Tenant{
			Slug:            slug,
			DisplayName:     firstNonEmpty(tc.DisplayName, slug),
			LogoURL:         tc.LogoURL,
			AdminEmail:      firstNonEmpty(tc.AdminEmail, tc.EmailUser, cfg.Email.User),
			ReadCalendarIDs: tenant.NormalizeReadCalendars(tc.ReadCalendarID, tc.ReadCalendarIDs),
			WriteCalendarID: strings.TrimSpace(tc.WriteCalendarID),
			CalendarAPIKey:  tc.CalendarAPIKey,
			ServiceAccount: tenant.ServiceAccount{
				Email:      tc.ServiceAccountEmail,
				PrivateKey: tenant.NormalizePrivateKey(tc.ServiceAccountKey),
			},
		}
		t.Sender = tenant.Sender{
			Name:     t.DisplayName,
			Username: tc.EmailUser,
			Password: tc.EmailPassword,
		}
		r.tenants[slug] = t
	}

	if _, ok := r.tenants[r.def]; !ok {
		return nil, fmt.Errorf("default tenant %q is not configured", r.def)
	}
	return r, nil
}

// Resolve returns the tenant with the given slug.
func (r *TenantRegistry) Resolve(slug string) (tenant.Tenant, error) {
	t, ok := r.tenants[slug]
	if !ok {
		return tenant.Tenant{}, fmt.Errorf("tenant %q: %w", slug, domain.ErrNotFound)
	}
	return t, nil
}

// Slugs returns every known slug in sorted order.
func (r *TenantRegistry) Slugs() []string {
	return slices.Clone(r.slugs)
}

// IsValid reports whether slug names a configured tenant.
func (r *TenantRegistry) IsValid(slug string) bool {
	_, ok := r.tenants[slug]
	return ok
}

// Default returns the slug used when a request names no tenant.
func (r *TenantRegistry) Default() string {
	return r.def
}

// All returns every tenant ordered by slug.
func (r *TenantRegistry) All() []tenant.Tenant {
	out := make([]tenant.Tenant, 0, len(r.slugs))
	for _, slug := range r.slugs {
		out = append(out, r.tenants[slug])
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
