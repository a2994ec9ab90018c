// Package calendar defines availability events read from, and bookings written
// to, a tenant's external calendars.
package calendar

import (
	"fmt"
	"time"

	"github.com/holidayhomes/bookingapi/internal/domain"
)

// EventTime is either an all-day date or a timestamp, never both.
type EventTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Key returns the date or timestamp identifying this point in time.
func (t EventTime) Key() string {
	if t.Date != "" {
		return t.Date
	}
	return t.DateTime
}

// Event is one busy period on a read calendar.
type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Status      string    `json:"status,omitempty"`
	HTMLLink    string    `json:"htmlLink,omitempty"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
	Source      string    `json:"source,omitempty"`
}

// Window optionally bounds the events returned by a listing.
type Window struct {
	From  time.Time
	Until time.Time
}

// Validate checks that a bounded window is not inverted.
func (w Window) Validate() error {
	if !w.From.IsZero() && !w.Until.IsZero() && w.Until.Before(w.From) {
		return fmt.Errorf("%w: timeMax must not be before timeMin", domain.ErrValidation)
	}
	return nil
}

// NewEvent is the request to add an all-day booking to the write calendar.
type NewEvent struct {
	Summary     string `json:"summary" validate:"required,max=512"`
	Location    string `json:"location" validate:"max=512"`
	Description string `json:"description" validate:"max=8192"`
	StartDate   string `json:"startDate" validate:"required"`
	EndDate     string `json:"endDate" validate:"required"`
}

// Validate checks required fields; dates are parsed by the caller.
func (e *NewEvent) Validate() error {
	if e.Summary == "" || e.StartDate == "" || e.EndDate == "" {
		return fmt.Errorf("%w: summary, startDate, endDate required", domain.ErrValidation)
	}
	return domain.Validate(e)
}

// Created identifies an event inserted into the write calendar.
type Created struct {
	ID       string `json:"eventId"`
	HTMLLink string `json:"htmlLink"`
}

// Dedupe keeps the first event of every (start, summary) pair, preserving order.
// Events mirrored across booking channels collapse into one.
func Dedupe(events []Event) []Event {
	type key struct{ start, summary string }

	seen := make(map[key]struct{}, len(events))
	out := make([]Event, 0, len(events))
	for i := range events {
		k := key{start: events[i].Start.Key(), summary: events[i].Summary}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, events[i])
	}
	return out
}
