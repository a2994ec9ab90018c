package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/holidayhomes/bookingapi/internal/middleware"
	"github.com/holidayhomes/bookingapi/internal/port/cache"
)

// RouteConfig carries the per-route middleware settings.
type RouteConfig struct {
	ServiceKey     string
	IdempotencyTTL time.Duration
	Cache          cache.Cache             // nil disables Idempotency-Key replay
	Limiter        *middleware.RateLimiter // nil disables rate limiting
}

// withTenant expands a route into its default-tenant and explicit-tenant
// forms: prefix+suffix and prefix+"/{tenant}"+suffix.
func withTenant(prefix, suffix string) []string {
	return []string{
		prefix + suffix,
		prefix + "/{" + middleware.TenantParam + "}" + suffix,
	}
}

// MountRoutes registers all API routes on the given router.
func MountRoutes(r chi.Router, h *Handlers, rc RouteConfig) {
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		public := r.With(middleware.PublicTenant(h.Auth))
		admin := r.With(middleware.Authenticate(h.Auth), middleware.RequireTenantAccess(h.Auth))

		limited := r
		if rc.Limiter != nil {
			limited = r.With(rc.Limiter.Handler)
		}
		limitedPublic := limited.With(middleware.PublicTenant(h.Auth))

		limited.Post("/login", h.Login)

		// Prices
		for _, p := range withTenant("/prices", "") {
			public.Get(p, h.GetPrices)
			admin.Put(p, h.UpdatePrices)
		}
		for _, p := range withTenant("/prices/standard", "") {
			admin.Put(p, h.SetStandardPrice)
		}
		for _, p := range withTenant("/prices/weekend", "") {
			admin.Put(p, h.SetWeekendPrice)
		}
		for _, p := range withTenant("/prices/date-range", "") {
			admin.Post(p, h.UpsertDateRange)
		}
		for _, p := range withTenant("/prices/date-range", "/{date}") {
			admin.Delete(p, h.DeleteDatePrice)
		}
		admin.Delete("/prices/{"+middleware.TenantParam+"}/{date}", h.DeleteDatePrice)
		for _, p := range withTenant("/prices/cleanup", "") {
			admin.Delete(p, h.CleanupPrices)
		}
		for _, p := range withTenant("/prices/clear-month", "/{month}") {
			admin.Delete(p, h.ClearMonth)
		}
		for _, p := range withTenant("/prices/total", "") {
			public.Post(p, h.ComputeTotal)
		}

		// Calendar
		for _, p := range withTenant("/events", "") {
			public.Get(p, h.ListEvents)
		}
		addEvent := r.With(middleware.ServiceKey(rc.ServiceKey), middleware.PublicTenant(h.Auth))
		for _, p := range withTenant("/add-event", "") {
			addEvent.Post(p, h.AddEvent)
		}

		// Notifications
		sendBooking := limitedPublic
		if rc.Cache != nil {
			sendBooking = limitedPublic.With(middleware.Idempotency(rc.Cache, rc.IdempotencyTTL))
		}
		for _, p := range withTenant("/send-booking-emails", "") {
			sendBooking.Post(p, h.SendBookingEmails)
		}
		for _, p := range withTenant("/contact", "") {
			limitedPublic.Post(p, h.Contact)
		}
	})
}

// NewRouter builds a chi router with the API routes and the given global
// middleware applied in order.
func NewRouter(h *Handlers, rc RouteConfig, mws ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(mws...)
	MountRoutes(r, h, rc)
	return r
}
