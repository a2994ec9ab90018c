// Package pricing defines nightly rates, per-date overrides and the request
// schemas of the pricing endpoints.
package pricing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/holidayhomes/bookingapi/internal/domain"
)

// DateLayout is the wire and storage format of a calendar date.
const DateLayout = "2006-01-02"

// weekendKeySuffix is appended to a tenant slug to form the synthetic
// standard_price key that holds the tenant's weekend rate.
const weekendKeySuffix = "_weekend"

// DefaultStandardPrice is returned when a tenant has no standard price row yet.
// Client UIs rely on this exact value.
var DefaultStandardPrice = decimal.NewFromInt(150)

// WeekendKey returns the standard_price key holding tenant's weekend rate.
func WeekendKey(tenant string) string {
	return tenant + weekendKeySuffix
}

// DatePrice is a nightly rate that overrides the standard price for one date.
type DatePrice struct {
	Date  time.Time
	Price decimal.Decimal
}

type datePriceJSON struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// MarshalJSON renders the date as YYYY-MM-DD and the price as a JSON number.
func (d DatePrice) MarshalJSON() ([]byte, error) {
	return json.Marshal(datePriceJSON{Date: FormatDate(d.Date), Price: d.Price.InexactFloat64()})
}

// Prices is the full pricing view of one tenant.
type Prices struct {
	StandardPrice decimal.Decimal
	WeekendPrice  decimal.Decimal
	DatePrices    []DatePrice
}

type pricesJSON struct {
	StandardPrice float64     `json:"standardPrice"`
	WeekendPrice  float64     `json:"weekendPrice"`
	DatePrices    []DatePrice `json:"datePrices"`
}

// MarshalJSON renders prices as JSON numbers and never emits a null list.
func (p Prices) MarshalJSON() ([]byte, error) {
	dp := p.DatePrices
	if dp == nil {
		dp = []DatePrice{}
	}
	return json.Marshal(pricesJSON{
		StandardPrice: p.StandardPrice.InexactFloat64(),
		WeekendPrice:  p.WeekendPrice.InexactFloat64(),
		DatePrices:    dp,
	})
}

// ParseDate parses a strict YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, use YYYY-MM-DD", domain.ErrValidation, s)
	}
	return t, nil
}

// ParseStayDate accepts a calendar date or an RFC 3339 timestamp and returns
// the UTC calendar date it falls on.
func ParseStayDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Truncate(t), nil
	}
	return time.Time{}, fmt.Errorf("%w: Invalid date format", domain.ErrValidation)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Truncate returns UTC midnight of the calendar date t falls on in UTC.
func Truncate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// YearMonth is a calendar month, as used by clear-month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses a strict YYYY-MM value.
func ParseYearMonth(s string) (YearMonth, error) {
	if len(s) != len("2006-01") {
		return YearMonth{}, fmt.Errorf("%w: Invalid month format. Use YYYY-MM", domain.ErrValidation)
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: Invalid month format. Use YYYY-MM", domain.ErrValidation)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

// Bounds returns the first day of the month and the first day of the next one.
func (ym YearMonth) Bounds() (from, until time.Time) {
	from = time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}
