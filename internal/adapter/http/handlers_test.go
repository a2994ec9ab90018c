package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	bkhttp "github.com/holidayhomes/bookingapi/internal/adapter/http"
	"github.com/holidayhomes/bookingapi/internal/adapter/ristretto"
	"github.com/holidayhomes/bookingapi/internal/config"
	domcal "github.com/holidayhomes/bookingapi/internal/domain/calendar"
	"github.com/holidayhomes/bookingapi/internal/domain/user"
	"github.com/holidayhomes/bookingapi/internal/middleware"
	"github.com/holidayhomes/bookingapi/internal/service"
)

const testServiceKey = "svc-key"

type testEnv struct {
	router chi.Router
	store  *memStore
	mailer *memMailer
	cal    *fakeCalendar
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Auth.JWTSecret = "test-secret-key-must-be-long-enough"
	cfg.Auth.BcryptCost = 4
	cfg.Email.User = "bookings@example.com"
	cfg.DefaultTenant = "alpha"
	cfg.Tenants = map[string]config.Tenant{
		"alpha": {
			DisplayName:     "Alpha Cottage",
			ReadCalendarIDs: []string{"main@group"},
			WriteCalendarID: "write@group",
			EmailUser:       "alpha@example.com",
		},
		"beta": {DisplayName: "Beta Barn"},
	}
	return &cfg
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()

	tenants, err := service.NewTenantRegistry(cfg)
	if err != nil {
		t.Fatalf("tenant registry: %v", err)
	}
	store := newMemStore()
	mailer := &memMailer{}
	cal := &fakeCalendar{}
	provider := &fakeProvider{cal: cal, configured: map[string]bool{"alpha": true}}

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), 4)
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range []user.AdminUser{
		{ID: "u1", Username: "alice", PasswordHash: string(hash), TenantSlug: "alpha"},
		{ID: "u2", Username: "bob", PasswordHash: string(hash), TenantSlug: "beta"},
	} {
		if err := store.CreateAdminUser(context.Background(), &u); err != nil {
			t.Fatal(err)
		}
	}

	c, err := ristretto.New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)

	h := &bkhttp.Handlers{
		Auth:          service.NewAuthService(store, cfg.Auth, tenants),
		Pricing:       service.NewPricingService(store, cfg.Pricing),
		Calendar:      service.NewCalendarService(tenants, provider),
		Notifications: service.NewNotificationService(tenants, mailer),
		DB:            store,
	}
	router := bkhttp.NewRouter(h, bkhttp.RouteConfig{
		ServiceKey:     testServiceKey,
		IdempotencyTTL: cfg.Idempotency.TTL,
		Cache:          c,
		Limiter:        middleware.NewRateLimiter(1000, 1000),
	})
	return &testEnv{router: router, store: store, mailer: mailer, cal: cal}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, username string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/login", `{"username":"`+username+`","password":"correct-horse"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", username, w.Code, w.Body.String())
	}
	var resp user.LoginResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	return resp.Token
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(w.Body).Decode(&m); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return m
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if m := decodeMap(t, w); m["postgres"] != "ok" {
		t.Errorf("body = %v", m)
	}

	env.store.pingErr = errors.New("connection refused")
	w = env.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/login", `{"username":"alice","password":"correct-horse"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	m := decodeMap(t, w)
	if m["tenant"] != "alpha" || m["displayName"] != "Alpha Cottage" || m["token"] == "" {
		t.Errorf("body = %v", m)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"wrong password", `{"username":"alice","password":"nope"}`, http.StatusUnauthorized},
		{"unknown user", `{"username":"mallory","password":"correct-horse"}`, http.StatusUnauthorized},
		{"missing password", `{"username":"alice"}`, http.StatusBadRequest},
		{"unknown field", `{"username":"alice","password":"x","admin":true}`, http.StatusBadRequest},
		{"malformed", `{"username":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/login", tt.body, nil)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}

	// Both credential failures share one message.
	a := env.do(t, http.MethodPost, "/api/login", `{"username":"alice","password":"nope"}`, nil)
	b := env.do(t, http.MethodPost, "/api/login", `{"username":"mallory","password":"nope"}`, nil)
	if a.Body.String() != b.Body.String() {
		t.Errorf("failure bodies differ: %q vs %q", a.Body.String(), b.Body.String())
	}
}

func TestGetPrices(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/prices", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	m := decodeMap(t, w)
	if m["standardPrice"] != 150.0 || m["weekendPrice"] != 150.0 {
		t.Errorf("defaults = %v", m)
	}
	if dp, ok := m["datePrices"].([]any); !ok || len(dp) != 0 {
		t.Errorf("datePrices = %v, want empty list", m["datePrices"])
	}

	if w := env.do(t, http.MethodGet, "/api/prices/beta", "", nil); w.Code != http.StatusOK {
		t.Errorf("explicit tenant: status = %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/prices/gamma", "", nil)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "Unknown property: gamma") {
		t.Errorf("unknown tenant: %d %s", w.Code, w.Body.String())
	}

	env.store.readErr = errors.New("db down")
	w = env.do(t, http.MethodGet, "/api/prices", "", nil)
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "Error fetching prices") {
		t.Errorf("store failure: %d %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "db down") {
		t.Error("internal error detail leaked to client")
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		method, path string
	}{
		{http.MethodPut, "/api/prices"},
		{http.MethodPut, "/api/prices/standard"},
		{http.MethodPut, "/api/prices/weekend/alpha"},
		{http.MethodPost, "/api/prices/date-range"},
		{http.MethodDelete, "/api/prices/date-range/2025-07-01"},
		{http.MethodDelete, "/api/prices/alpha/2025-07-01"},
		{http.MethodDelete, "/api/prices/cleanup"},
		{http.MethodDelete, "/api/prices/clear-month/2025-07"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if w := env.do(t, tt.method, tt.path, `{}`, nil); w.Code != http.StatusUnauthorized {
				t.Errorf("no token: status = %d, want 401", w.Code)
			}
			if w := env.do(t, tt.method, tt.path, `{}`, bearer("garbage")); w.Code != http.StatusUnauthorized {
				t.Errorf("bad token: status = %d, want 401", w.Code)
			}
		})
	}
}

func TestTenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	bob := env.login(t, "bob")

	w := env.do(t, http.MethodPut, "/api/prices/standard/alpha", `{"price":999}`, bearer(bob))
	if w.Code != http.StatusForbidden {
		t.Fatalf("cross-tenant write: status = %d, want 403", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Access denied for this property") {
		t.Errorf("body = %s", w.Body.String())
	}

	// No explicit tenant writes to bob's own property.
	w = env.do(t, http.MethodPut, "/api/prices/standard", `{"price":80}`, bearer(bob))
	if w.Code != http.StatusOK {
		t.Fatalf("own-tenant write: %d %s", w.Code, w.Body.String())
	}
	if p := env.store.standard["beta"]; !p.Equal(decimal.NewFromInt(80)) {
		t.Errorf("beta price = %s, want 80", p)
	}
	if _, ok := env.store.standard["alpha"]; ok {
		t.Error("alpha price must be untouched")
	}
}

func TestPriceManagement(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice")
	auth := bearer(token)

	w := env.do(t, http.MethodPut, "/api/prices/standard", `{"price":120}`, auth)
	if m := decodeMap(t, w); w.Code != http.StatusOK || m["message"] != "Standard price updated" || m["success"] != true {
		t.Fatalf("standard: %d %v", w.Code, m)
	}
	w = env.do(t, http.MethodPut, "/api/prices/weekend/alpha", `{"price":"180.50"}`, auth)
	if w.Code != http.StatusOK {
		t.Fatalf("weekend: %d %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPut, "/api/prices/standard", `{"price":-1}`, auth); w.Code != http.StatusBadRequest {
		t.Errorf("negative price: status = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodPut, "/api/prices/standard", `{"price":100000000}`, auth); w.Code != http.StatusBadRequest {
		t.Errorf("price over column range: status = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodPut, "/api/prices/weekend", `{"price":99.999}`, auth); w.Code != http.StatusBadRequest {
		t.Errorf("price with three decimals: status = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodPut, "/api/prices/standard", `{}`, auth); w.Code != http.StatusBadRequest {
		t.Errorf("missing price: status = %d, want 400", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/prices/date-range",
		`{"dates":["2030-07-01","2030-07-02","2030-07-03"],"price":200}`, auth)
	m := decodeMap(t, w)
	if w.Code != http.StatusOK || m["message"] != "Date prices updated" {
		t.Fatalf("date range: %d %v", w.Code, m)
	}
	if dp := m["datePrices"].([]any); len(dp) != 3 {
		t.Errorf("datePrices = %v", dp)
	}

	w = env.do(t, http.MethodPost, "/api/prices/date-range", `{"dates":["2030-07-04","07/05/2030"],"price":200}`, auth)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d, want 400", w.Code)
	}
	if n := len(env.store.dates["alpha"]); n != 3 {
		t.Errorf("overrides = %d, want 3 (rejected batch must not be applied)", n)
	}

	w = env.do(t, http.MethodDelete, "/api/prices/date-range/2030-07-02", "", auth)
	m = decodeMap(t, w)
	if w.Code != http.StatusOK || m["message"] != "Date price deleted" || len(m["datePrices"].([]any)) != 2 {
		t.Errorf("delete: %d %v", w.Code, m)
	}
	w = env.do(t, http.MethodDelete, "/api/prices/alpha/2030-07-03", "", auth)
	if m := decodeMap(t, w); w.Code != http.StatusOK || len(m["datePrices"].([]any)) != 1 {
		t.Errorf("delete with tenant: %d %v", w.Code, m)
	}

	w = env.do(t, http.MethodGet, "/api/prices/alpha", "", nil)
	m = decodeMap(t, w)
	if m["standardPrice"] != 120.0 || m["weekendPrice"] != 180.5 {
		t.Errorf("prices = %v", m)
	}
}

func TestBulkUpdateAndMonthOperations(t *testing.T) {
	env := newTestEnv(t)
	auth := bearer(env.login(t, "alice"))

	w := env.do(t, http.MethodPut, "/api/prices",
		`{"standardPrice":110,"datePrices":{"2020-01-01":90,"2030-08-01":300,"2030-08-15":310}}`, auth)
	if m := decodeMap(t, w); w.Code != http.StatusOK || m["message"] != "Prices updated" {
		t.Fatalf("bulk: %d %v", w.Code, m)
	}
	if w := env.do(t, http.MethodPut, "/api/prices", `{}`, auth); w.Code != http.StatusBadRequest {
		t.Errorf("empty bulk: status = %d, want 400", w.Code)
	}

	w = env.do(t, http.MethodDelete, "/api/prices/cleanup", "", auth)
	m := decodeMap(t, w)
	if w.Code != http.StatusOK || m["deletedCount"] != 1.0 || m["message"] != "Old prices cleaned up" {
		t.Errorf("cleanup: %d %v", w.Code, m)
	}

	w = env.do(t, http.MethodDelete, "/api/prices/clear-month/alpha/2030-08", "", auth)
	m = decodeMap(t, w)
	if w.Code != http.StatusOK || m["deletedCount"] != 2.0 || m["message"] != "Month prices cleared" {
		t.Errorf("clear month: %d %v", w.Code, m)
	}

	w = env.do(t, http.MethodDelete, "/api/prices/clear-month/2030-13", "", auth)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "Invalid month format") {
		t.Errorf("bad month: %d %s", w.Code, w.Body.String())
	}
}

func TestComputeTotal(t *testing.T) {
	env := newTestEnv(t)
	auth := bearer(env.login(t, "alice"))
	env.do(t, http.MethodPut, "/api/prices/standard", `{"price":100}`, auth)
	env.do(t, http.MethodPost, "/api/prices/date-range", `{"dates":["2030-07-02"],"price":250}`, auth)

	tests := []struct {
		name string
		body string
		want float64
	}{
		{"single night", `{"startDate":"2030-07-01","endDate":"2030-07-01"}`, 100},
		{"with override", `{"startDate":"2030-07-01","endDate":"2030-07-03"}`, 450},
		{"timestamps", `{"startDate":"2030-07-01T00:00:00.000Z","endDate":"2030-07-02T00:00:00.000Z"}`, 350},
		{"inverted", `{"startDate":"2030-07-03","endDate":"2030-07-01"}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/prices/total", tt.body, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", w.Code, w.Body.String())
			}
			if m := decodeMap(t, w); m["total"] != tt.want {
				t.Errorf("total = %v, want %v", m["total"], tt.want)
			}
		})
	}

	if w := env.do(t, http.MethodPost, "/api/prices/total", `{"startDate":"2030-07-01"}`, nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing end date: status = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/prices/total/beta", `{"startDate":"2030-07-01","endDate":"2030-07-01"}`, nil); w.Code != http.StatusOK {
		t.Errorf("explicit tenant: status = %d", w.Code)
	}
}

func TestListEvents(t *testing.T) {
	env := newTestEnv(t)
	env.cal.events = []domcal.Event{
		{ID: "e1", Summary: "Booked", Start: domcal.EventTime{Date: "2030-07-01"}, End: domcal.EventTime{Date: "2030-07-05"}},
	}

	w := env.do(t, http.MethodGet, "/api/events?timeMin=2030-07-01T00:00:00Z&timeMax=2030-08-01", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Errorf("Cache-Control = %q", cc)
	}
	m := decodeMap(t, w)
	if items := m["items"].([]any); len(items) != 1 {
		t.Errorf("items = %v", items)
	}

	w = env.do(t, http.MethodGet, "/api/events/beta", "", nil)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "No API key configured for 'beta'") {
		t.Errorf("unconfigured tenant: %d %s", w.Code, w.Body.String())
	}

	if w := env.do(t, http.MethodGet, "/api/events?timeMin=yesterday", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad timeMin: status = %d, want 400", w.Code)
	}
}

func TestAddEvent(t *testing.T) {
	env := newTestEnv(t)
	body := `{"summary":"Booking: Smith","startDate":"2030-08-01","endDate":"2030-08-05"}`

	if w := env.do(t, http.MethodPost, "/api/add-event", body, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", w.Code)
	}

	key := map[string]string{middleware.HeaderServiceKey: testServiceKey}
	w := env.do(t, http.MethodPost, "/api/add-event", body, key)
	m := decodeMap(t, w)
	if w.Code != http.StatusOK || m["eventId"] != "evt-42" || m["message"] != "Event added" {
		t.Fatalf("add event: %d %v", w.Code, m)
	}
	if len(env.cal.inserted) != 1 {
		t.Errorf("inserted = %d, want 1", len(env.cal.inserted))
	}

	w = env.do(t, http.MethodPost, "/api/add-event", `{"summary":"x"}`, key)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "summary, startDate, endDate required") {
		t.Errorf("missing dates: %d %s", w.Code, w.Body.String())
	}
}

func TestSendBookingEmails(t *testing.T) {
	env := newTestEnv(t)
	body := `{"name":"Jane","email":"jane@example.com","startDate":"2030-07-01","endDate":"2030-07-08","totalPrice":700}`

	w := env.do(t, http.MethodPost, "/api/send-booking-emails", body, nil)
	if m := decodeMap(t, w); w.Code != http.StatusOK || m["message"] != "Emails sent successfully" {
		t.Fatalf("send: %d %v", w.Code, m)
	}
	if env.mailer.count() != 2 {
		t.Errorf("sent = %d, want 2", env.mailer.count())
	}

	w = env.do(t, http.MethodPost, "/api/send-booking-emails", `{"email":"nope","startDate":"2030-07-01","endDate":"2030-07-02"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid email: status = %d, want 400", w.Code)
	}

	env.mailer.fail = true
	w = env.do(t, http.MethodPost, "/api/send-booking-emails", body, nil)
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "Failed to send emails") {
		t.Errorf("smtp failure: %d %s", w.Code, w.Body.String())
	}
}

func TestSendBookingEmailsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	body := `{"email":"jane@example.com","startDate":"2030-07-01","endDate":"2030-07-08"}`
	hdr := map[string]string{"Idempotency-Key": "booking-123"}

	first := env.do(t, http.MethodPost, "/api/send-booking-emails", body, hdr)
	if first.Code != http.StatusOK {
		t.Fatalf("first: %d %s", first.Code, first.Body.String())
	}
	second := env.do(t, http.MethodPost, "/api/send-booking-emails", body, hdr)
	if second.Code != http.StatusOK || second.Header().Get("Idempotent-Replayed") != "true" {
		t.Errorf("replay: %d replayed=%q", second.Code, second.Header().Get("Idempotent-Replayed"))
	}
	if env.mailer.count() != 2 {
		t.Errorf("sent = %d, want 2 (one booking)", env.mailer.count())
	}
}

func TestContact(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/contact/beta", `{"name":"Sam","email":"sam@example.com","message":"Hello"}`, nil)
	if m := decodeMap(t, w); w.Code != http.StatusOK || m["message"] != "Message sent" {
		t.Fatalf("contact: %d %v", w.Code, m)
	}

	w = env.do(t, http.MethodPost, "/api/contact", `{"name":"Sam","email":"sam@example.com"}`, nil)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "name, email, and message are required") {
		t.Errorf("missing message: %d %s", w.Code, w.Body.String())
	}
}

func TestRateLimitedRoutes(t *testing.T) {
	env := newTestEnv(t)
	limiter := middleware.NewRateLimiter(0.001, 1)

	cfg := testConfig()
	tenants, err := service.NewTenantRegistry(cfg)
	if err != nil {
		t.Fatal(err)
	}
	handlers := &bkhttp.Handlers{
		Auth:          service.NewAuthService(env.store, cfg.Auth, tenants),
		Pricing:       service.NewPricingService(env.store, cfg.Pricing),
		Calendar:      service.NewCalendarService(tenants, &fakeProvider{cal: env.cal}),
		Notifications: service.NewNotificationService(tenants, env.mailer),
		DB:            env.store,
	}
	router := bkhttp.NewRouter(handlers, bkhttp.RouteConfig{Limiter: limiter})

	send := func(path, body string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.RemoteAddr = "203.0.113.7:4000"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	contact := `{"name":"Sam","email":"sam@example.com","message":"Hi"}`
	if code := send("/api/contact", contact); code != http.StatusOK {
		t.Fatalf("first: %d", code)
	}
	if code := send("/api/contact", contact); code != http.StatusTooManyRequests {
		t.Errorf("second: %d, want 429", code)
	}

	// Reads are not limited.
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/api/prices", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("prices: %d", w.Code)
		}
	}
}
