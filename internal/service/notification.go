package service

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	bkotel "github.com/holidayhomes/bookingapi/internal/adapter/otel"
	"github.com/holidayhomes/bookingapi/internal/domain/booking"
	"github.com/holidayhomes/bookingapi/internal/domain/pricing"
	"github.com/holidayhomes/bookingapi/internal/domain/tenant"
	"github.com/holidayhomes/bookingapi/internal/port/notifier"
)

//go:embed templates/*.html
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	missing       = "—"
	guestFallback = "Guest"
)

// NotificationService renders and sends booking and contact emails.
type NotificationService struct {
	tenants *TenantRegistry
	mailer  notifier.Mailer
	metrics *bkotel.Metrics
}

// NewNotificationService creates a notification service.
func NewNotificationService(tenants *TenantRegistry, mailer notifier.Mailer) *NotificationService {
	return &NotificationService{tenants: tenants, mailer: mailer}
}

// SetMetrics attaches metric instruments. Nil disables metrics.
func (s *NotificationService) SetMetrics(m *bkotel.Metrics) { s.metrics = m }

type bookingView struct {
	Property    string
	LogoURL     string
	AdminEmail  string
	Name        string
	ContactName string
	Email       string
	Telephone   string
	Message     string
	CheckIn     string
	CheckOut    string
	Guests      string
	Pets        string
	Total       string
}

type contactView struct {
	Property  string
	Name      string
	Email     string
	Telephone string
	Message   string
}

// SendBookingEmails sends the guest confirmation and the owner notification
// concurrently. Either failure fails the whole call.
func (s *NotificationService) SendBookingEmails(ctx context.Context, slug string, req *booking.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	t, err := s.tenants.Resolve(slug)
	if err != nil {
		return err
	}

	view := bookingView{
		Property:    t.DisplayName,
		LogoURL:     t.LogoURL,
		AdminEmail:  t.AdminEmail,
		Name:        orDefault(req.Name, guestFallback),
		ContactName: orDefault(req.Name, missing),
		Email:       orDefault(req.Email, missing),
		Telephone:   orDefault(req.Telephone, missing),
		Message:     orDefault(req.Message, missing),
		CheckIn:     formatDisplayDate(req.StartDate),
		CheckOut:    formatDisplayDate(req.EndDate),
		Guests:      optionalInt(req.NumberOfPeople),
		Pets:        optionalInt(req.NumberOfPets),
		Total:       missing,
	}
	if req.TotalPrice.Valid {
		view.Total = req.TotalPrice.Decimal.StringFixed(2)
	}

	customerHTML, err := render("booking_customer.html", view)
	if err != nil {
		return err
	}
	adminHTML, err := render("booking_admin.html", view)
	if err != nil {
		return err
	}

	customer := notifier.Message{
		To:      []string{req.Email},
		Subject: "Your Booking Request Confirmation - " + t.DisplayName,
		HTML:    customerHTML,
		ReplyTo: tenantReplyTo(&t),
		Sender:  t.Sender,
	}
	admin := notifier.Message{
		To:      []string{t.AdminEmail},
		Subject: "New Booking Request - " + t.DisplayName,
		HTML:    adminHTML,
		ReplyTo: req.Email,
		Sender:  t.Sender,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.send(gctx, slug, "booking_customer", customer) })
	g.Go(func() error { return s.send(gctx, slug, "booking_admin", admin) })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("send booking emails: %w", err)
	}
	return nil
}

// SendContact forwards a contact-form message to the tenant's admin address.
func (s *NotificationService) SendContact(ctx context.Context, slug string, req *booking.ContactRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	t, err := s.tenants.Resolve(slug)
	if err != nil {
		return err
	}

	html, err := render("contact.html", contactView{
		Property:  t.DisplayName,
		Name:      req.Name,
		Email:     req.Email,
		Telephone: orDefault(req.Telephone, missing),
		Message:   req.Message,
	})
	if err != nil {
		return err
	}

	msg := notifier.Message{
		To:      []string{t.AdminEmail},
		Subject: "New Contact Form Message - " + t.DisplayName,
		HTML:    html,
		ReplyTo: req.Email,
		Sender:  t.Sender,
	}
	if err := s.send(ctx, slug, "contact", msg); err != nil {
		return fmt.Errorf("send contact email: %w", err)
	}
	return nil
}

func (s *NotificationService) send(ctx context.Context, slug, kind string, msg notifier.Message) error {
	ctx, span := bkotel.StartEmailSpan(ctx, slug, kind)
	defer span.End()

	if err := s.mailer.Send(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		slog.ErrorContext(ctx, "email failed", "tenant", slug, "kind", kind, "error", err)
		if s.metrics != nil {
			s.metrics.Add(ctx, s.metrics.EmailsFailed, slug)
		}
		return err
	}
	slog.InfoContext(ctx, "email sent", "tenant", slug, "kind", kind)
	if s.metrics != nil {
		s.metrics.Add(ctx, s.metrics.EmailsSent, slug)
	}
	return nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// tenantReplyTo is the address guests reply to: the tenant's own mailbox,
// else its admin address.
func tenantReplyTo(t *tenant.Tenant) string {
	return firstNonEmpty(t.Sender.Username, t.AdminEmail)
}

// formatDisplayDate renders a stay date as DD/MM/YYYY, leaving values that
// are not dates untouched.
func formatDisplayDate(s string) string {
	d, err := pricing.ParseStayDate(s)
	if err != nil {
		return orDefault(s, missing)
	}
	return d.Format("02/01/2006")
}

func optionalInt(n *int) string {
	if n == nil {
		return missing
	}
	return strconv.Itoa(*n)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
