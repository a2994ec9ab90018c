package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/holidayhomes/bookingapi/internal/domain"
)

func TestTenantRegistry(t *testing.T) {
	r := newTestRegistry(t)

	if got := strings.Join(r.Slugs(), ","); got != "alpha,beta" {
		t.Errorf("slugs = %q, want alpha,beta", got)
	}
	if r.Default() != "alpha" {
		t.Errorf("default = %q, want alpha", r.Default())
	}
	if !r.IsValid("beta") || r.IsValid("gamma") {
		t.Error("IsValid disagrees with configuration")
	}
	if _, err := r.Resolve("gamma"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("resolve unknown: %v", err)
	}

	alpha, err := r.Resolve("alpha")
	if err != nil {
		t.Fatal(err)
	}
	if len(alpha.ReadCalendarIDs) != 2 {
		t.Errorf("read calendars = %v", alpha.ReadCalendarIDs)
	}
	if strings.Contains(alpha.ServiceAccount.PrivateKey, `\n`) {
		t.Error("private key not normalized")
	}
	if alpha.AdminEmail != "alpha@example.com" {
		t.Errorf("admin email = %q, want tenant mailbox", alpha.AdminEmail)
	}
	if alpha.Sender.Name != "Alpha Cottage" || !alpha.Sender.Configured() {
		t.Errorf("unexpected sender: %+v", alpha.Sender)
	}
}

func TestTenantRegistry_Fallbacks(t *testing.T) {
	r := newTestRegistry(t)

	beta, err := r.Resolve("beta")
	if err != nil {
		t.Fatal(err)
	}
	if beta.AdminEmail != "bookings@example.com" {
		t.Errorf("admin email = %q, want process sender", beta.AdminEmail)
	}
	if beta.Sender.Configured() {
		t.Error("beta has no credentials of its own")
	}
	if beta.HasReadCalendars() {
		t.Error("beta has no read calendars")
	}
}

func TestTenantRegistry_SlugsCopy(t *testing.T) {
	r := newTestRegistry(t)
	s := r.Slugs()
	s[0] = "mutated"
	if r.Slugs()[0] != "alpha" {
		t.Error("Slugs exposes internal state")
	}
}

func TestTenantRegistry_UnknownDefault(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultTenant = "gamma"
	if _, err := NewTenantRegistry(cfg); err == nil {
		t.Fatal("expected error for unknown default tenant")
	}
}

func TestTenantRegistry_DisplayNameFallback(t *testing.T) {
	cfg := testConfig()
	tc := cfg.Tenants["beta"]
	tc.DisplayName = ""
	cfg.Tenants["beta"] = tc

	r, err := NewTenantRegistry(cfg)
	if err != nil {
		t.Fatal(err)
	}
	beta, _ := r.Resolve("beta")
	if beta.DisplayName != "beta" {
		t.Errorf("display name = %q, want slug", beta.DisplayName)
	}
}
