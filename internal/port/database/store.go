// Package database defines the database store port (interface).
package database

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/holidayhomes/bookingapi/internal/domain/pricing"
	"github.com/holidayhomes/bookingapi/internal/domain/user"
)

// Store is the port interface for database operations. Every price call is
// scoped by a tenant key; date ranges are half-open [from, until).
type Store interface {
	Ping(ctx context.Context) error

	// Standard prices (the weekend rate lives under pricing.WeekendKey)
	GetStandardPrice(ctx context.Context, key string) (decimal.Decimal, error)
	UpsertStandardPrice(ctx context.Context, key string, price decimal.Decimal) error

	// Date price overrides
	ListDatePrices(ctx context.Context, tenant string) ([]pricing.DatePrice, error)
	ListDatePricesBetween(ctx context.Context, tenant string, from, until time.Time) ([]pricing.DatePrice, error)
	UpsertDatePrices(ctx context.Context, tenant string, prices []pricing.DatePrice) error
	DeleteDatePrice(ctx context.Context, tenant string, date time.Time) (int64, error)
	DeleteDatePricesBetween(ctx context.Context, tenant string, from, until time.Time) (int64, error)
	DeleteDatePricesBefore(ctx context.Context, tenant string, before time.Time) (int64, error)

	// Admin users
	CreateAdminUser(ctx context.Context, u *user.AdminUser) error
	GetAdminUserByUsername(ctx context.Context, username string) (*user.AdminUser, error)
	ListAdminUsers(ctx context.Context) ([]user.AdminUser, error)
	UpdateAdminPassword(ctx context.Context, username, passwordHash string) error
}
