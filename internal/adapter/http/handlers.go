package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/holidayhomes/bookingapi/internal/domain/booking"
	domcal "github.com/holidayhomes/bookingapi/internal/domain/calendar"
	"github.com/holidayhomes/bookingapi/internal/domain/pricing"
	"github.com/holidayhomes/bookingapi/internal/domain/user"
	"github.com/holidayhomes/bookingapi/internal/middleware"
	"github.com/holidayhomes/bookingapi/internal/service"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Auth          *service.AuthService
	Pricing       *service.PricingService
	Calendar      *service.CalendarService
	Notifications *service.NotificationService
	DB            Pinger
}

func tenantOf(r *http.Request) string {
	return middleware.TenantFromContext(r.Context())
}

// Login handles POST /api/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.LoginRequest](w, r)
	if !ok {
		return
	}
	resp, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetPrices handles GET /api/prices[/{tenant}].
func (h *Handlers) GetPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.Pricing.GetPrices(r.Context(), tenantOf(r))
	if err != nil {
		writeDomainError(w, r, err, "Error fetching prices")
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

// UpdatePrices handles PUT /api/prices[/{tenant}].
func (h *Handlers) UpdatePrices(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[pricing.UpdatePricesRequest](w, r)
	if !ok {
		return
	}
	if err := h.Pricing.UpdatePrices(r.Context(), tenantOf(r), &req); err != nil {
		writeDomainError(w, r, err, "Error updating prices")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Prices updated"})
}

type priceUpdatedResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// SetStandardPrice handles PUT /api/prices/standard[/{tenant}].
func (h *Handlers) SetStandardPrice(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[pricing.PriceRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	if err := h.Pricing.SetStandardPrice(r.Context(), tenantOf(r), *req.Price); err != nil {
		writeDomainError(w, r, err, "Error updating standard price")
		return
	}
	writeJSON(w, http.StatusOK, priceUpdatedResponse{Message: "Standard price updated", Success: true})
}

// SetWeekendPrice handles PUT /api/prices/weekend[/{tenant}].
func (h *Handlers) SetWeekendPrice(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[pricing.PriceRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	if err := h.Pricing.SetWeekendPrice(r.Context(), tenantOf(r), *req.Price); err != nil {
		writeDomainError(w, r, err, "Error updating weekend price")
		return
	}
	writeJSON(w, http.StatusOK, priceUpdatedResponse{Message: "Weekend price updated", Success: true})
}

type datePricesResponse struct {
	Message    string              `json:"message"`
	DatePrices []pricing.DatePrice `json:"datePrices"`
}

func nonNil(dp []pricing.DatePrice) []pricing.DatePrice {
	if dp == nil {
		return []pricing.DatePrice{}
	}
	return dp
}

// UpsertDateRange handles POST /api/prices/date-range[/{tenant}].
func (h *Handlers) UpsertDateRange(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[pricing.DateRangeRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	dates, err := h.Pricing.UpsertDateRange(r.Context(), tenantOf(r), req.Dates, *req.Price)
	if err != nil {
		writeDomainError(w, r, err, "Error updating date prices")
		return
	}
	writeJSON(w, http.StatusOK, datePricesResponse{Message: "Date prices updated", DatePrices: nonNil(dates)})
}

// DeleteDatePrice handles DELETE /api/prices/date-range[/{tenant}]/{date}
// and DELETE /api/prices/{tenant}/{date}.
func (h *Handlers) DeleteDatePrice(w http.ResponseWriter, r *http.Request) {
	dates, err := h.Pricing.DeleteDateOverride(r.Context(), tenantOf(r), chi.URLParam(r, "date"))
	if err != nil {
		writeDomainError(w, r, err, "Error deleting date price")
		return
	}
	writeJSON(w, http.StatusOK, datePricesResponse{Message: "Date price deleted", DatePrices: nonNil(dates)})
}

type deletedResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

// CleanupPrices handles DELETE /api/prices/cleanup[/{tenant}].
func (h *Handlers) CleanupPrices(w http.ResponseWriter, r *http.Request) {
	n, err := h.Pricing.CleanupPastOverrides(r.Context(), tenantOf(r))
	if err != nil {
		writeDomainError(w, r, err, "Error cleaning up prices")
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Message: "Old prices cleaned up", DeletedCount: n})
}

// ClearMonth handles DELETE /api/prices/clear-month[/{tenant}]/{month}.
func (h *Handlers) ClearMonth(w http.ResponseWriter, r *http.Request) {
	n, err := h.Pricing.ClearMonth(r.Context(), tenantOf(r), chi.URLParam(r, "month"))
	if err != nil {
		writeDomainError(w, r, err, "Error clearing month prices")
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Message: "Month prices cleared", DeletedCount: n})
}

type totalResponse struct {
	Total float64 `json:"total"`
}

// ComputeTotal handles POST /api/prices/total[/{tenant}].
func (h *Handlers) ComputeTotal(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[pricing.TotalRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		writeDomainError(w, r, err, "")
		return
	}
	total, err := h.Pricing.ComputeStayTotal(r.Context(), tenantOf(r), req.StartDate, req.EndDate)
	if err != nil {
		writeDomainError(w, r, err, "Error calculating total price")
		return
	}
	writeJSON(w, http.StatusOK, totalResponse{Total: total.InexactFloat64()})
}

type eventsResponse struct {
	Items []domcal.Event `json:"items"`
}

// ListEvents handles GET /api/events[/{tenant}]?timeMin=&timeMax=.
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private, max-age=0")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	var win domcal.Window
	var err error
	q := r.URL.Query()
	if win.From, err = parseWindowTime(q.Get("timeMin")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid timeMin")
		return
	}
	if win.Until, err = parseWindowTime(q.Get("timeMax")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid timeMax")
		return
	}

	events, err := h.Calendar.ListEvents(r.Context(), tenantOf(r), win)
	if err != nil {
		writeDomainError(w, r, err, "Failed to fetch events")
		return
	}
	if events == nil {
		events = []domcal.Event{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Items: events})
}

// parseWindowTime accepts an RFC 3339 timestamp or a plain date. Empty means
// unbounded.
func parseWindowTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(pricing.DateLayout, s)
}

type eventAddedResponse struct {
	Message  string `json:"message"`
	EventID  string `json:"eventId"`
	HTMLLink string `json:"htmlLink"`
}

// AddEvent handles POST /api/add-event[/{tenant}].
func (h *Handlers) AddEvent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[domcal.NewEvent](w, r)
	if !ok {
		return
	}
	created, err := h.Calendar.CreateEvent(r.Context(), tenantOf(r), req)
	if err != nil {
		writeDomainError(w, r, err, "Failed to add event")
		return
	}
	writeJSON(w, http.StatusOK, eventAddedResponse{
		Message:  "Event added",
		EventID:  created.ID,
		HTMLLink: created.HTMLLink,
	})
}

// SendBookingEmails handles POST /api/send-booking-emails[/{tenant}].
func (h *Handlers) SendBookingEmails(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[booking.Request](w, r)
	if !ok {
		return
	}
	if err := h.Notifications.SendBookingEmails(r.Context(), tenantOf(r), &req); err != nil {
		writeDomainError(w, r, err, "Failed to send emails")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Emails sent successfully"})
}

// Contact handles POST /api/contact[/{tenant}].
func (h *Handlers) Contact(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[booking.ContactRequest](w, r)
	if !ok {
		return
	}
	if err := h.Notifications.SendContact(r.Context(), tenantOf(r), &req); err != nil {
		writeDomainError(w, r, err, "Failed to send message")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Message sent"})
}

type healthResponse struct {
	Status   string `json:"status"`
	Postgres string `json:"postgres"`
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.DB.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Postgres: "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Postgres: "ok"})
}
