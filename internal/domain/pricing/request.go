package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/holidayhomes/bookingapi/internal/domain"
)

// PriceRequest sets the standard or weekend rate.
type PriceRequest struct {
	Price *decimal.Decimal `json:"price" validate:"required"`
}

// Validate checks that a storable price is present.
func (r *PriceRequest) Validate() error {
	if err := domain.Validate(r); err != nil {
		return err
	}
	return CheckPrice("price", *r.Price)
}

// DateRangeRequest sets one price on many dates.
type DateRangeRequest struct {
	Dates []string         `json:"dates" validate:"required,min=1,max=731,dive,isodate"`
	Price *decimal.Decimal `json:"price" validate:"required"`
}

// Validate checks every date and the price before anything is written.
func (r *DateRangeRequest) Validate() error {
	if err := domain.Validate(r); err != nil {
		return err
	}
	return CheckPrice("price", *r.Price)
}

// UpdatePricesRequest is the bulk form: an optional standard price plus a
// map of date to price.
type UpdatePricesRequest struct {
	StandardPrice *decimal.Decimal           `json:"standardPrice"`
	DatePrices    map[string]decimal.Decimal `json:"datePrices" validate:"omitempty,max=731,dive,keys,isodate,endkeys"`
}

// Validate requires at least one of the two parts.
func (r *UpdatePricesRequest) Validate() error {
	if r.StandardPrice == nil && len(r.DatePrices) == 0 {
		return fmt.Errorf("%w: No price data provided", domain.ErrValidation)
	}
	if err := domain.Validate(r); err != nil {
		return err
	}
	if r.StandardPrice != nil {
		if err := CheckPrice("standardPrice", *r.StandardPrice); err != nil {
			return err
		}
	}
	for date, p := range r.DatePrices {
		if err := CheckPrice("datePrices["+date+"]", p); err != nil {
			return err
		}
	}
	return nil
}

// TotalRequest asks for the cost of a stay; both ends are inclusive.
type TotalRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Validate checks that both dates are present.
func (r *TotalRequest) Validate() error {
	if r.StartDate == "" || r.EndDate == "" {
		return fmt.Errorf("%w: startDate and endDate required", domain.ErrValidation)
	}
	return nil
}

// MaxPrice is the largest value a NUMERIC(10,2) price column holds.
var MaxPrice = decimal.RequireFromString("99999999.99")

// CheckPrice rejects prices the store cannot hold exactly: negatives,
// anything above MaxPrice and anything with more than two decimal places.
func CheckPrice(field string, p decimal.Decimal) error {
	switch {
	case p.IsNegative():
		return fmt.Errorf("%w: %s must not be negative", domain.ErrValidation, field)
	case p.GreaterThan(MaxPrice):
		return fmt.Errorf("%w: %s must be at most %s", domain.ErrValidation, field, MaxPrice.StringFixed(2))
	case !p.Equal(p.Truncate(2)):
		return fmt.Errorf("%w: %s must have at most 2 decimal places", domain.ErrValidation, field)
	}
	return nil
}
