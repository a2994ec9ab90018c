package gcal

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/holidayhomes/bookingapi/internal/config"
	"github.com/holidayhomes/bookingapi/internal/domain"
	"github.com/holidayhomes/bookingapi/internal/domain/tenant"
	portcal "github.com/holidayhomes/bookingapi/internal/port/calendar"
	"github.com/holidayhomes/bookingapi/internal/resilience"
)

var _ portcal.Provider = (*Registry)(nil)

// Registry holds the calendar clients of every tenant. It is built once at
// start-up and read-only afterwards.
type Registry struct {
	readers map[string]*Client
	writers map[string]*Client
}

// NewRegistry builds a reader for each tenant with an API key and a writer for
// each tenant with a service account. Tenants lacking credentials get no
// client and report domain.ErrNotConfigured on use. Extra options are applied
// to every client after the credentials.
func NewRegistry(ctx context.Context, tenants []tenant.Tenant, bcfg config.Breaker, extra ...option.ClientOption) (*Registry, error) {
	r := &Registry{
		readers: make(map[string]*Client, len(tenants)),
		writers: make(map[string]*Client, len(tenants)),
	}

	for i := range tenants {
		t := &tenants[i]
		if t.CalendarAPIKey != "" {
			opts := append([]option.ClientOption{option.WithAPIKey(t.CalendarAPIKey)}, extra...)
			svc, err := calendar.NewService(ctx, opts...)
			if err != nil {
				return nil, fmt.Errorf("calendar reader for %s: %w", t.Slug, err)
			}
			r.readers[t.Slug] = newClient(t.Slug, "read", svc, bcfg)
		}

		if t.HasServiceAccount() {
			jc := &jwt.Config{
				Email:      t.ServiceAccount.Email,
				PrivateKey: []byte(t.ServiceAccount.PrivateKey),
				Scopes:     []string{calendar.CalendarEventsScope},
				TokenURL:   google.JWTTokenURL,
			}
			opts := append([]option.ClientOption{option.WithHTTPClient(jc.Client(context.WithoutCancel(ctx)))}, extra...)
			svc, err := calendar.NewService(ctx, opts...)
			if err != nil {
				return nil, fmt.Errorf("calendar writer for %s: %w", t.Slug, err)
			}
			r.writers[t.Slug] = newClient(t.Slug, "write", svc, bcfg)
		}

		slog.Info("calendar clients ready",
			"tenant", t.Slug,
			"reader", r.readers[t.Slug] != nil,
			"writer", r.writers[t.Slug] != nil,
			"read_calendars", len(t.ReadCalendarIDs),
		)
	}
	return r, nil
}

// Reader returns the tenant's API-key client.
func (r *Registry) Reader(slug string) (portcal.Reader, error) {
	c, ok := r.readers[slug]
	if !ok {
		return nil, fmt.Errorf("%w: No API key configured for '%s'", domain.ErrNotConfigured, slug)
	}
	return c, nil
}

// Writer returns the tenant's service-account client.
func (r *Registry) Writer(slug string) (portcal.Writer, error) {
	c, ok := r.writers[slug]
	if !ok {
		return nil, fmt.Errorf("%w: No service account configured for '%s'", domain.ErrNotConfigured, slug)
	}
	return c, nil
}

func newBreaker(name string, cfg config.Breaker) *resilience.Breaker {
	return resilience.NewBreaker(name, cfg.MaxFailures, cfg.Timeout,
		resilience.WithIgnore(clientError),
		resilience.WithStateChange(func(name string, from, to resilience.State) {
			slog.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		}),
	)
}
