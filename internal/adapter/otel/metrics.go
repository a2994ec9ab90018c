package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "bookingapi"

// Metrics holds the booking API's metric instruments.
type Metrics struct {
	Logins           metric.Int64Counter
	PriceWrites      metric.Int64Counter
	CalendarFailures metric.Int64Counter
	EmailsSent       metric.Int64Counter
	EmailsFailed     metric.Int64Counter
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Logins, err = meter.Int64Counter("bookingapi.logins",
		metric.WithDescription("Login attempts by outcome"))
	if err != nil {
		return nil, err
	}

	m.PriceWrites, err = meter.Int64Counter("bookingapi.price.writes",
		metric.WithDescription("Pricing mutations by operation"))
	if err != nil {
		return nil, err
	}

	m.CalendarFailures, err = meter.Int64Counter("bookingapi.calendar.source_failures",
		metric.WithDescription("Read calendar sources that failed during a listing"))
	if err != nil {
		return nil, err
	}

	m.EmailsSent, err = meter.Int64Counter("bookingapi.emails.sent",
		metric.WithDescription("Emails accepted by the relay"))
	if err != nil {
		return nil, err
	}

	m.EmailsFailed, err = meter.Int64Counter("bookingapi.emails.failed",
		metric.WithDescription("Emails the relay rejected"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Add increments c with tenant and optional extra attributes. A nil Metrics
// or counter is a no-op.
func (m *Metrics) Add(ctx context.Context, c metric.Int64Counter, tenant string, attrs ...attribute.KeyValue) {
	if m == nil || c == nil {
		return
	}
	attrs = append(attrs, attribute.String("tenant", tenant))
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}
