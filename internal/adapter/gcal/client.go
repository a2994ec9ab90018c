// Package gcal implements the calendar ports on the Google Calendar API.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	bkotel "github.com/holidayhomes/bookingapi/internal/adapter/otel"
	"github.com/holidayhomes/bookingapi/internal/config"
	domcal "github.com/holidayhomes/bookingapi/internal/domain/calendar"
	portcal "github.com/holidayhomes/bookingapi/internal/port/calendar"
	"github.com/holidayhomes/bookingapi/internal/resilience"
)

var (
	_ portcal.Reader = (*Client)(nil)
	_ portcal.Writer = (*Client)(nil)
)

// Client talks to Google Calendar on behalf of one tenant. Each calendar id
// gets its own breaker, so one failing source does not block the others.
type Client struct {
	tenant string
	name   string
	svc    *calendar.Service
	bcfg   config.Breaker

	mu       sync.Mutex
	breakers map[string]*resilience.Breaker
}

// newClient builds a client whose breakers are named
// calendar:<tenant>:<role>:<calendar id>.
func newClient(tenant, role string, svc *calendar.Service, bcfg config.Breaker) *Client {
	return &Client{
		tenant:   tenant,
		name:     "calendar:" + tenant + ":" + role,
		svc:      svc,
		bcfg:     bcfg,
		breakers: make(map[string]*resilience.Breaker),
	}
}

func (c *Client) breaker(calendarID string) *resilience.Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.breakers[calendarID]
	if !ok {
		b = newBreaker(c.name+":"+calendarID, c.bcfg)
		c.breakers[calendarID] = b
	}
	return b
}

// ListEvents returns every event on calendarID inside w, following pages.
func (c *Client) ListEvents(ctx context.Context, calendarID string, w domcal.Window) ([]domcal.Event, error) {
	ctx, span := bkotel.StartCalendarSpan(ctx, "list", c.tenant, calendarID)
	defer span.End()

	var out []domcal.Event
	err := c.breaker(calendarID).Execute(ctx, func(ctx context.Context) error {
		out = out[:0]
		call := c.svc.Events.List(calendarID).Context(ctx)
		if !w.From.IsZero() {
			call = call.TimeMin(w.From.UTC().Format(time.RFC3339))
		}
		if !w.Until.IsZero() {
			call = call.TimeMax(w.Until.UTC().Format(time.RFC3339))
		}
		return call.Pages(ctx, func(page *calendar.Events) error {
			for _, item := range page.Items {
				out = append(out, toEvent(item, calendarID))
			}
			return nil
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list events %s: %w", calendarID, err)
	}
	return out, nil
}

// InsertEvent adds an all-day event. Dates must already be YYYY-MM-DD.
func (c *Client) InsertEvent(ctx context.Context, calendarID string, ev domcal.NewEvent) (domcal.Created, error) {
	ctx, span := bkotel.StartCalendarSpan(ctx, "insert", c.tenant, calendarID)
	defer span.End()

	body := &calendar.Event{
		Summary:     ev.Summary,
		Location:    ev.Location,
		Description: ev.Description,
		Start:       &calendar.EventDateTime{Date: ev.StartDate},
		End:         &calendar.EventDateTime{Date: ev.EndDate},
	}

	var created *calendar.Event
	err := c.breaker(calendarID).Execute(ctx, func(ctx context.Context) error {
		var err error
		created, err = c.svc.Events.Insert(calendarID, body).Context(ctx).Do()
		return err
	})
	if err != nil {
		span.RecordError(err)
		return domcal.Created{}, fmt.Errorf("insert event %s: %w", calendarID, err)
	}
	return domcal.Created{ID: created.Id, HTMLLink: created.HtmlLink}, nil
}

func toEvent(item *calendar.Event, source string) domcal.Event {
	ev := domcal.Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Status:      item.Status,
		HTMLLink:    item.HtmlLink,
		Source:      source,
	}
	if item.Start != nil {
		ev.Start = domcal.EventTime{Date: item.Start.Date, DateTime: item.Start.DateTime, TimeZone: item.Start.TimeZone}
	}
	if item.End != nil {
		ev.End = domcal.EventTime{Date: item.End.Date, DateTime: item.End.DateTime, TimeZone: item.End.TimeZone}
	}
	return ev
}

// clientError reports provider rejections caused by the request itself.
// They do not count against the breaker.
func clientError(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.Code >= 400 && gerr.Code < 500 && gerr.Code != 429
}
