// Package calendar defines the external calendar provider ports.
package calendar

import (
	"context"

	"github.com/holidayhomes/bookingapi/internal/domain/calendar"
)

// Reader lists events from one read calendar.
type Reader interface {
	ListEvents(ctx context.Context, calendarID string, w calendar.Window) ([]calendar.Event, error)
}

// Writer inserts all-day events into a write calendar.
type Writer interface {
	InsertEvent(ctx context.Context, calendarID string, ev calendar.NewEvent) (calendar.Created, error)
}

// Provider hands out the clients built for each tenant at start-up.
// Both methods return domain.ErrNotConfigured when the tenant lacks credentials.
type Provider interface {
	Reader(tenant string) (Reader, error)
	Writer(tenant string) (Writer, error)
}
