package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	bkotel "github.com/holidayhomes/bookingapi/internal/adapter/otel"
	"github.com/holidayhomes/bookingapi/internal/domain"
	domcal "github.com/holidayhomes/bookingapi/internal/domain/calendar"
	"github.com/holidayhomes/bookingapi/internal/domain/pricing"
	portcal "github.com/holidayhomes/bookingapi/internal/port/calendar"
)

// CalendarService merges availability from a tenant's read calendars and adds
// bookings to its write calendar.
type CalendarService struct {
	tenants  *TenantRegistry
	provider portcal.Provider
	metrics  *bkotel.Metrics
}

// NewCalendarService creates a calendar service.
func NewCalendarService(tenants *TenantRegistry, provider portcal.Provider) *CalendarService {
	return &CalendarService{tenants: tenants, provider: provider}
}

// SetMetrics attaches metric instruments. Nil disables metrics.
func (s *CalendarService) SetMetrics(m *bkotel.Metrics) { s.metrics = m }

// ListEvents reads every configured calendar of the tenant concurrently and
// returns the merged, de-duplicated events in source order. A failing source
// is logged and contributes no events.
func (s *CalendarService) ListEvents(ctx context.Context, slug string, w domcal.Window) ([]domcal.Event, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	t, err := s.tenants.Resolve(slug)
	if err != nil {
		return nil, err
	}
	reader, err := s.provider.Reader(slug)
	if err != nil {
		return nil, err
	}
	if !t.HasReadCalendars() {
		return nil, fmt.Errorf("%w: No read calendars configured for '%s'", domain.ErrNotConfigured, slug)
	}

	results := make([][]domcal.Event, len(t.ReadCalendarIDs))
	errs := make([]error, len(t.ReadCalendarIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, calID := range t.ReadCalendarIDs {
		g.Go(func() error {
			events, err := reader.ListEvents(gctx, calID, w)
			if err != nil {
				errs[i] = err
				slog.ErrorContext(ctx, "calendar source failed",
					"tenant", slug, "calendar", calID, "error", err)
				if s.metrics != nil {
					s.metrics.Add(ctx, s.metrics.CalendarFailures, slug, attribute.String("calendar", calID))
				}
				return nil
			}
			slog.DebugContext(ctx, "calendar source fetched",
				"tenant", slug, "calendar", calID, "events", len(events))
			results[i] = events
			return nil
		})
	}
	_ = g.Wait()

	// At least one source must answer.
	if !slices.Contains(errs, nil) {
		return nil, fmt.Errorf("list events for %s: all %d sources failed: %w", slug, len(errs), errors.Join(errs...))
	}

	var merged []domcal.Event
	for _, events := range results {
		merged = append(merged, events...)
	}
	return domcal.Dedupe(merged), nil
}

// CreateEvent adds an all-day booking to the tenant's write calendar. Dates
// may be plain dates or RFC 3339 timestamps.
func (s *CalendarService) CreateEvent(ctx context.Context, slug string, ev domcal.NewEvent) (domcal.Created, error) {
	if err := ev.Validate(); err != nil {
		return domcal.Created{}, err
	}
	start, err := pricing.ParseStayDate(ev.StartDate)
	if err != nil {
		return domcal.Created{}, err
	}
	end, err := pricing.ParseStayDate(ev.EndDate)
	if err != nil {
		return domcal.Created{}, err
	}

	t, err := s.tenants.Resolve(slug)
	if err != nil {
		return domcal.Created{}, err
	}
	if !t.HasWriteCalendar() {
		return domcal.Created{}, fmt.Errorf("%w: No write calendar configured for '%s'", domain.ErrNotConfigured, slug)
	}
	writer, err := s.provider.Writer(slug)
	if err != nil {
		return domcal.Created{}, err
	}

	ev.StartDate = pricing.FormatDate(start)
	ev.EndDate = pricing.FormatDate(end)
	created, err := writer.InsertEvent(ctx, t.WriteCalendarID, ev)
	if err != nil {
		return domcal.Created{}, fmt.Errorf("add event for %s: %w", slug, err)
	}
	slog.InfoContext(ctx, "calendar event created", "tenant", slug, "event_id", created.ID)
	return created, nil
}
