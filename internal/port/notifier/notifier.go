// Package notifier defines the outgoing email port.
package notifier

import (
	"context"

	"github.com/holidayhomes/bookingapi/internal/domain/tenant"
)

// Message is one HTML email.
type Message struct {
	To      []string
	Subject string
	HTML    string
	ReplyTo string
	// Sender overrides the process-wide identity when it carries credentials.
	Sender tenant.Sender
}

// Mailer is the port interface for sending email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
