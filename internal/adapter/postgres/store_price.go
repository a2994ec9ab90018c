package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/holidayhomes/bookingapi/internal/domain/pricing"
)

const upsertDatePriceSQL = `
	INSERT INTO date_prices (property_id, date, price, updated_at)
	VALUES ($1, $2, $3::numeric, now())
	ON CONFLICT (property_id, date) DO UPDATE SET price = EXCLUDED.price, updated_at = now()`

// --- Standard prices ---

func (s *Store) GetStandardPrice(ctx context.Context, key string) (decimal.Decimal, error) {
	var v string
	err := s.pool.QueryRow(ctx,
		`SELECT value::text FROM standard_price WHERE property_id = $1`, key).Scan(&v)
	if err != nil {
		return decimal.Zero, notFoundWrap(err, "get standard price %s", key)
	}
	return parseNumeric(v)
}

func (s *Store) UpsertStandardPrice(ctx context.Context, key string, price decimal.Decimal) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO standard_price (property_id, value, updated_at)
		VALUES ($1, $2::numeric, now())
		ON CONFLICT (property_id) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, price.String())
	if err != nil {
		return conflictWrap(err, "upsert standard price %s", key)
	}
	return nil
}

// --- Date price overrides ---

func (s *Store) ListDatePrices(ctx context.Context, tenant string) ([]pricing.DatePrice, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT date, price::text FROM date_prices WHERE property_id = $1 ORDER BY date`, tenant)
	if err != nil {
		return nil, fmt.Errorf("list date prices: %w", err)
	}
	return collectDatePrices(rows)
}

func (s *Store) ListDatePricesBetween(ctx context.Context, tenant string, from, until time.Time) ([]pricing.DatePrice, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date, price::text FROM date_prices
		WHERE property_id = $1 AND date >= $2 AND date < $3
		ORDER BY date`, tenant, from, until)
	if err != nil {
		return nil, fmt.Errorf("list date prices between: %w", err)
	}
	return collectDatePrices(rows)
}

// UpsertDatePrices writes every override in one transaction; a failure on
// any date rolls back the whole batch.
func (s *Store) UpsertDatePrices(ctx context.Context, tenant string, prices []pricing.DatePrice) error {
	if len(prices) == 0 {
		return nil
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range prices {
			batch.Queue(upsertDatePriceSQL, tenant, p.Date, p.Price.String())
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return conflictWrap(err, "upsert %d date prices", len(prices))
	}
	return nil
}

func (s *Store) DeleteDatePrice(ctx context.Context, tenant string, date time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM date_prices WHERE property_id = $1 AND date = $2`, tenant, date)
	if err != nil {
		return 0, fmt.Errorf("delete date price: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteDatePricesBetween(ctx context.Context, tenant string, from, until time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM date_prices WHERE property_id = $1 AND date >= $2 AND date < $3`, tenant, from, until)
	if err != nil {
		return 0, fmt.Errorf("delete date prices between: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteDatePricesBefore(ctx context.Context, tenant string, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM date_prices WHERE property_id = $1 AND date < $2`, tenant, before)
	if err != nil {
		return 0, fmt.Errorf("delete date prices before: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectDatePrices(rows pgx.Rows) ([]pricing.DatePrice, error) {
	defer rows.Close()

	var out []pricing.DatePrice
	for rows.Next() {
		dp, err := scanDatePrice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, dp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate date prices: %w", err)
	}
	return orEmpty(out), nil
}

func scanDatePrice(row scannable) (pricing.DatePrice, error) {
	var (
		dp    pricing.DatePrice
		price string
	)
	if err := row.Scan(&dp.Date, &price); err != nil {
		return dp, fmt.Errorf("scan date price: %w", err)
	}
	p, err := parseNumeric(price)
	if err != nil {
		return dp, err
	}
	dp.Date = pricing.Truncate(dp.Date)
	dp.Price = p
	return dp, nil
}
