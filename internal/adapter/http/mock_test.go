package http_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/holidayhomes/bookingapi/internal/domain"
	domcal "github.com/holidayhomes/bookingapi/internal/domain/calendar"
	"github.com/holidayhomes/bookingapi/internal/domain/pricing"
	"github.com/holidayhomes/bookingapi/internal/domain/user"
	portcal "github.com/holidayhomes/bookingapi/internal/port/calendar"
	"github.com/holidayhomes/bookingapi/internal/port/database"
	"github.com/holidayhomes/bookingapi/internal/port/notifier"
)

var (
	_ database.Store   = (*memStore)(nil)
	_ notifier.Mailer  = (*memMailer)(nil)
	_ portcal.Provider = (*fakeProvider)(nil)
)

// memStore implements database.Store in memory.
type memStore struct {
	mu       sync.Mutex
	standard map[string]decimal.Decimal
	dates    map[string]map[time.Time]decimal.Decimal
	users    map[string]user.AdminUser
	pingErr  error
	readErr  error
}

func newMemStore() *memStore {
	return &memStore{
		standard: make(map[string]decimal.Decimal),
		dates:    make(map[string]map[time.Time]decimal.Decimal),
		users:    make(map[string]user.AdminUser),
	}
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func (m *memStore) GetStandardPrice(_ context.Context, key string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return decimal.Zero, m.readErr
	}
	p, ok := m.standard[key]
	if !ok {
		return decimal.Zero, domain.ErrNotFound
	}
	return p, nil
}

func (m *memStore) UpsertStandardPrice(_ context.Context, key string, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.standard[key] = price
	return nil
}

func (m *memStore) ListDatePrices(ctx context.Context, tenant string) ([]pricing.DatePrice, error) {
	return m.ListDatePricesBetween(ctx, tenant, time.Time{}, time.Time{})
}

func (m *memStore) ListDatePricesBetween(_ context.Context, tenant string, from, until time.Time) ([]pricing.DatePrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := []pricing.DatePrice{}
	for d, p := range m.dates[tenant] {
		if (!from.IsZero() && d.Before(from)) || (!until.IsZero() && !d.Before(until)) {
			continue
		}
		out = append(out, pricing.DatePrice{Date: d, Price: p})
	}
	slices.SortFunc(out, func(a, b pricing.DatePrice) int { return a.Date.Compare(b.Date) })
	return out, nil
}

func (m *memStore) UpsertDatePrices(_ context.Context, tenant string, prices []pricing.DatePrice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dates[tenant] == nil {
		m.dates[tenant] = make(map[time.Time]decimal.Decimal)
	}
	for _, p := range prices {
		m.dates[tenant][p.Date] = p.Price
	}
	return nil
}

func (m *memStore) DeleteDatePrice(_ context.Context, tenant string, date time.Time) (int64, error) {
	return m.deleteWhere(tenant, func(d time.Time) bool { return d.Equal(date) }), nil
}

func (m *memStore) DeleteDatePricesBetween(_ context.Context, tenant string, from, until time.Time) (int64, error) {
	return m.deleteWhere(tenant, func(d time.Time) bool { return !d.Before(from) && d.Before(until) }), nil
}

func (m *memStore) DeleteDatePricesBefore(_ context.Context, tenant string, before time.Time) (int64, error) {
	return m.deleteWhere(tenant, func(d time.Time) bool { return d.Before(before) }), nil
}

func (m *memStore) deleteWhere(tenant string, match func(time.Time) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for d := range m.dates[tenant] {
		if match(d) {
			delete(m.dates[tenant], d)
			n++
		}
	}
	return n
}

func (m *memStore) CreateAdminUser(_ context.Context, u *user.AdminUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Username]; ok {
		return domain.ErrConflict
	}
	m.users[u.Username] = *u
	return nil
}

func (m *memStore) GetAdminUserByUsername(_ context.Context, username string) (*user.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (m *memStore) ListAdminUsers(context.Context) ([]user.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]user.AdminUser, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memStore) UpdateAdminPassword(_ context.Context, username, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash = hash
	m.users[username] = u
	return nil
}

// memMailer records sent messages. fail makes every send return an error.
type memMailer struct {
	mu   sync.Mutex
	sent []notifier.Message
	fail bool
}

func (m *memMailer) Send(_ context.Context, msg notifier.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp: connection refused")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *memMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// fakeCalendar serves the same events for every calendar id.
type fakeCalendar struct {
	mu       sync.Mutex
	events   []domcal.Event
	inserted []domcal.NewEvent
}

func (f *fakeCalendar) ListEvents(context.Context, string, domcal.Window) ([]domcal.Event, error) {
	return f.events, nil
}

func (f *fakeCalendar) InsertEvent(_ context.Context, _ string, ev domcal.NewEvent) (domcal.Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, ev)
	return domcal.Created{ID: "evt-42", HTMLLink: "https://calendar.example/evt-42"}, nil
}

// fakeProvider serves the calendar to the tenants listed in configured.
type fakeProvider struct {
	cal        *fakeCalendar
	configured map[string]bool
}

func (p *fakeProvider) Reader(slug string) (portcal.Reader, error) {
	if !p.configured[slug] {
		return nil, fmt.Errorf("%w: No API key configured for '%s'", domain.ErrNotConfigured, slug)
	}
	return p.cal, nil
}

func (p *fakeProvider) Writer(slug string) (portcal.Writer, error) {
	if !p.configured[slug] {
		return nil, fmt.Errorf("%w: No service account configured for '%s'", domain.ErrNotConfigured, slug)
	}
	return p.cal, nil
}
