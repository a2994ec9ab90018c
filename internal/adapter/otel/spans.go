package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "bookingapi"

// StartCalendarSpan starts a span for one calendar provider call.
func StartCalendarSpan(ctx context.Context, op, tenant, calendarID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "calendar."+op,
		trace.WithAttributes(
			attribute.String("tenant", tenant),
			attribute.String("calendar.id", calendarID),
		),
	)
}

// StartEmailSpan starts a span for one outgoing email.
func StartEmailSpan(ctx context.Context, tenant, kind string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "email.send",
		trace.WithAttributes(
			attribute.String("tenant", tenant),
			attribute.String("email.kind", kind),
		),
	)
}
