// Package email provides the SMTP mailer behind the notifier port.
package email

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/holidayhomes/bookingapi/internal/config"
	"github.com/holidayhomes/bookingapi/internal/domain"
	"github.com/holidayhomes/bookingapi/internal/domain/tenant"
	"github.com/holidayhomes/bookingapi/internal/port/notifier"
	"github.com/holidayhomes/bookingapi/internal/resilience"
)

var _ notifier.Mailer = (*Mailer)(nil)

const sendTimeout = 15 * time.Second

// deliverFunc hands a finished message to the relay.
type deliverFunc func(ctx context.Context, client *mail.Client, msg *mail.Msg) error

// Mailer sends HTML email through an implicit-TLS SMTP relay. Each message
// authenticates as its sender: the tenant's own mailbox when configured,
// otherwise the process-wide default identity.
type Mailer struct {
	host     string
	port     int
	fallback tenant.Sender
	breaker  *resilience.Breaker
	deliver  deliverFunc
}

// NewMailer creates a Mailer from the email configuration.
func NewMailer(cfg config.Email, breaker *resilience.Breaker) *Mailer {
	return &Mailer{
		host: cfg.Host,
		port: cfg.Port,
		fallback: tenant.Sender{
			Name:     cfg.DisplayName,
			Username: cfg.User,
			Password: cfg.Password,
		},
		breaker: breaker,
		deliver: func(ctx context.Context, c *mail.Client, m *mail.Msg) error {
			return c.DialAndSendWithContext(ctx, m)
		},
	}
}

// Send delivers msg. Relay failures count against the circuit breaker.
func (m *Mailer) Send(ctx context.Context, msg notifier.Message) error {
	if m.host == "" {
		return fmt.Errorf("smtp host: %w", domain.ErrNotConfigured)
	}
	sender := m.identity(msg.Sender)
	if !sender.Configured() {
		return fmt.Errorf("email sender credentials: %w", domain.ErrNotConfigured)
	}

	mm, err := buildMessage(sender, msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.host,
		mail.WithPort(m.port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(sender.Username),
		mail.WithPassword(sender.Password),
		mail.WithTimeout(sendTimeout),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	send := func(ctx context.Context) error {
		if err := m.deliver(ctx, client, mm); err != nil {
			return fmt.Errorf("smtp send to %v: %w", msg.To, err)
		}
		return nil
	}
	if m.breaker == nil {
		return send(ctx)
	}
	return m.breaker.Execute(ctx, send)
}

// identity picks the tenant's mailbox when it has credentials. A tenant
// mailbox without a display name borrows the default one.
func (m *Mailer) identity(s tenant.Sender) tenant.Sender {
	if !s.Configured() {
		return m.fallback
	}
	if s.Name == "" {
		s.Name = m.fallback.Name
	}
	return s
}

func buildMessage(sender tenant.Sender, msg notifier.Message) (*mail.Msg, error) {
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("%w: email has no recipients", domain.ErrValidation)
	}

	mm := mail.NewMsg()
	if err := mm.FromFormat(sender.Name, sender.Username); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := mm.To(msg.To...); err != nil {
		return nil, fmt.Errorf("%w: invalid recipient: %v", domain.ErrValidation, err)
	}
	if msg.ReplyTo != "" {
		if err := mm.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("%w: invalid reply-to: %v", domain.ErrValidation, err)
		}
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextHTML, msg.HTML)
	return mm, nil
}
