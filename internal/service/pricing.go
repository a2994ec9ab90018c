package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	bkotel "github.com/holidayhomes/bookingapi/internal/adapter/otel"
	"github.com/holidayhomes/bookingapi/internal/config"
	"github.com/holidayhomes/bookingapi/internal/domain"
	"github.com/holidayhomes/bookingapi/internal/domain/pricing"
	"github.com/holidayhomes/bookingapi/internal/port/database"
)

// PricingService manages nightly rates and computes stay totals.
type PricingService struct {
	store        database.Store
	defaultPrice decimal.Decimal
	maxStayDays  int
	metrics      *bkotel.Metrics
	now          func() time.Time
}

// NewPricingService creates a pricing service.
func NewPricingService(store database.Store, cfg config.Pricing) *PricingService {
	def := pricing.DefaultStandardPrice
	if cfg.DefaultStandardPrice > 0 {
		def = decimal.NewFromFloat(cfg.DefaultStandardPrice)
	}
	maxStay := cfg.MaxStayDays
	if maxStay <= 0 {
		maxStay = 731
	}
	return &PricingService{
		store:        store,
		defaultPrice: def,
		maxStayDays:  maxStay,
		now:          time.Now,
	}
}

// SetMetrics attaches metric instruments. Nil disables metrics.
func (s *PricingService) SetMetrics(m *bkotel.Metrics) { s.metrics = m }

// GetPrices returns the standard and weekend rates plus every date override.
func (s *PricingService) GetPrices(ctx context.Context, tenant string) (*pricing.Prices, error) {
	standard, err := s.standardPrice(ctx, tenant)
	if err != nil {
		return nil, err
	}

	weekend, err := s.store.GetStandardPrice(ctx, pricing.WeekendKey(tenant))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		weekend = standard
	case err != nil:
		return nil, fmt.Errorf("get weekend price: %w", err)
	}

	dates, err := s.store.ListDatePrices(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list date prices: %w", err)
	}

	return &pricing.Prices{
		StandardPrice: standard,
		WeekendPrice:  weekend,
		DatePrices:    dates,
	}, nil
}

// SetStandardPrice replaces the tenant's standard nightly rate.
func (s *PricingService) SetStandardPrice(ctx context.Context, tenant string, price decimal.Decimal) error {
	if err := pricing.CheckPrice("price", price); err != nil {
		return err
	}
	if err := s.upsertStandard(ctx, tenant, tenant, price); err != nil {
		return fmt.Errorf("set standard price: %w", err)
	}
	s.recordWrite(ctx, tenant, "standard")
	return nil
}

// SetWeekendPrice replaces the tenant's weekend nightly rate.
func (s *PricingService) SetWeekendPrice(ctx context.Context, tenant string, price decimal.Decimal) error {
	if err := pricing.CheckPrice("price", price); err != nil {
		return err
	}
	if err := s.upsertStandard(ctx, tenant, pricing.WeekendKey(tenant), price); err != nil {
		return fmt.Errorf("set weekend price: %w", err)
	}
	s.recordWrite(ctx, tenant, "weekend")
	return nil
}

// upsertStandard retries once when a concurrent writer wins the insert race.
func (s *PricingService) upsertStandard(ctx context.Context, tenant, key string, price decimal.Decimal) error {
	err := s.store.UpsertStandardPrice(ctx, key, price)
	if errors.Is(err, domain.ErrConflict) {
		slog.WarnContext(ctx, "standard price conflict, retrying", "tenant", tenant, "key", key)
		err = s.store.UpsertStandardPrice(ctx, key, price)
	}
	return err
}

// UpsertDateRange sets one price on every listed date. All dates are parsed
// before anything is written, and the batch is applied atomically. It returns
// the tenant's full override set.
func (s *PricingService) UpsertDateRange(ctx context.Context, tenant string, dates []string, price decimal.Decimal) ([]pricing.DatePrice, error) {
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: dates is required", domain.ErrValidation)
	}
	if err := pricing.CheckPrice("price", price); err != nil {
		return nil, err
	}

	seen := make(map[time.Time]struct{}, len(dates))
	batch := make([]pricing.DatePrice, 0, len(dates))
	for _, raw := range dates {
		d, err := pricing.ParseDate(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		batch = append(batch, pricing.DatePrice{Date: d, Price: price})
	}

	if err := s.upsertDates(ctx, tenant, batch); err != nil {
		return nil, err
	}
	s.recordWrite(ctx, tenant, "date_range")
	return s.listDates(ctx, tenant)
}

func (s *PricingService) upsertDates(ctx context.Context, tenant string, batch []pricing.DatePrice) error {
	err := s.store.UpsertDatePrices(ctx, tenant, batch)
	if errors.Is(err, domain.ErrConflict) {
		slog.WarnContext(ctx, "date price conflict, retrying", "tenant", tenant, "dates", len(batch))
		err = s.store.UpsertDatePrices(ctx, tenant, batch)
	}
	if err != nil {
		return fmt.Errorf("upsert date prices: %w", err)
	}
	return nil
}

// DeleteDateOverride removes one override. A missing override is not an error.
func (s *PricingService) DeleteDateOverride(ctx context.Context, tenant, date string) ([]pricing.DatePrice, error) {
	d, err := pricing.ParseDate(date)
	if err != nil {
		return nil, err
	}
	n, err := s.store.DeleteDatePrice(ctx, tenant, d)
	if err != nil {
		return nil, fmt.Errorf("delete date price: %w", err)
	}
	if n > 0 {
		s.recordWrite(ctx, tenant, "delete")
	}
	return s.listDates(ctx, tenant)
}

// ClearMonth removes every override in the YYYY-MM month and returns how many
// were deleted.
func (s *PricingService) ClearMonth(ctx context.Context, tenant, month string) (int64, error) {
	ym, err := pricing.ParseYearMonth(month)
	if err != nil {
		return 0, err
	}
	from, until := ym.Bounds()
	n, err := s.store.DeleteDatePricesBetween(ctx, tenant, from, until)
	if err != nil {
		return 0, fmt.Errorf("clear month %s: %w", ym, err)
	}
	s.recordWrite(ctx, tenant, "clear_month")
	return n, nil
}

// CleanupPastOverrides removes overrides dated before today (UTC).
func (s *PricingService) CleanupPastOverrides(ctx context.Context, tenant string) (int64, error) {
	today := pricing.Truncate(s.now())
	n, err := s.store.DeleteDatePricesBefore(ctx, tenant, today)
	if err != nil {
		return 0, fmt.Errorf("cleanup past overrides: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "removed past price overrides", "tenant", tenant, "count", n)
		s.recordWrite(ctx, tenant, "cleanup")
	}
	return n, nil
}

// ComputeStayTotal sums the nightly rate of every date from start to end,
// both inclusive. Overrides win over the standard price. An inverted range
// costs nothing.
func (s *PricingService) ComputeStayTotal(ctx context.Context, tenant, start, end string) (decimal.Decimal, error) {
	from, err := pricing.ParseStayDate(start)
	if err != nil {
		return decimal.Zero, err
	}
	to, err := pricing.ParseStayDate(end)
	if err != nil {
		return decimal.Zero, err
	}
	if to.Before(from) {
		return decimal.Zero, nil
	}

	days := int(to.Sub(from).Hours()/24) + 1
	if days > s.maxStayDays {
		return decimal.Zero, fmt.Errorf("%w: stay must not exceed %d days", domain.ErrValidation, s.maxStayDays)
	}

	standard, err := s.standardPrice(ctx, tenant)
	if err != nil {
		return decimal.Zero, err
	}
	overrides, err := s.store.ListDatePricesBetween(ctx, tenant, from, to.AddDate(0, 0, 1))
	if err != nil {
		return decimal.Zero, fmt.Errorf("list date prices: %w", err)
	}
	byDate := make(map[time.Time]decimal.Decimal, len(overrides))
	for _, o := range overrides {
		byDate[pricing.Truncate(o.Date)] = o.Price
	}

	total := decimal.Zero
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if p, ok := byDate[d]; ok {
			total = total.Add(p)
			continue
		}
		total = total.Add(standard)
	}
	return total, nil
}

// UpdatePrices applies the bulk form: an optional standard price and a set
// of per-date prices, validated up front.
func (s *PricingService) UpdatePrices(ctx context.Context, tenant string, req *pricing.UpdatePricesRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	if req.StandardPrice != nil {
		if err := s.SetStandardPrice(ctx, tenant, *req.StandardPrice); err != nil {
			return err
		}
	}

	if len(req.DatePrices) == 0 {
		return nil
	}
	batch := make([]pricing.DatePrice, 0, len(req.DatePrices))
	for raw, p := range req.DatePrices {
		d, err := pricing.ParseDate(raw)
		if err != nil {
			return err
		}
		batch = append(batch, pricing.DatePrice{Date: d, Price: p})
	}
	if err := s.upsertDates(ctx, tenant, batch); err != nil {
		return err
	}
	s.recordWrite(ctx, tenant, "bulk")
	return nil
}

func (s *PricingService) standardPrice(ctx context.Context, tenant string) (decimal.Decimal, error) {
	p, err := s.store.GetStandardPrice(ctx, tenant)
	if errors.Is(err, domain.ErrNotFound) {
		return s.defaultPrice, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get standard price: %w", err)
	}
	return p, nil
}

func (s *PricingService) listDates(ctx context.Context, tenant string) ([]pricing.DatePrice, error) {
	dates, err := s.store.ListDatePrices(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list date prices: %w", err)
	}
	return dates, nil
}

func (s *PricingService) recordWrite(ctx context.Context, tenant, op string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Add(ctx, s.metrics.PriceWrites, tenant, attribute.String("op", op))
}
