package pg

import (
	"context"
	"errors"

	"github.com/macrohuang/invest-log/internal/application"
	"github.com/macrohuang/invest-log/internal/domain"

	"github.com/jackc/pgx/v5"
)

// Ensure RateRepo implements application.RateStore.
var _ application.RateStore = (*RateRepo)(nil)

type RateRepo struct{ db *DB }

func NewRateRepo(db *DB) *RateRepo { return &RateRepo{db: db} }

func (r *RateRepo) List(ctx context.Context) ([]domain.ExchangeRate, error) {
	const q = `
        SELECT id, from_currency, to_currency, rate::float8, source, updated_at
        FROM exchange_rates
        ORDER BY from_currency`
	rows, err := r.db.querier(ctx).Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ExchangeRate
	for rows.Next() {
		var e domain.ExchangeRate
		if err := rows.Scan(&e.ID, &e.FromCurrency, &e.ToCurrency, &e.Rate, &e.Source, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *RateRepo) RateToCNY(ctx context.Context, fromCurrency string) (float64, error) {
	const q = `
        SELECT rate::float8 FROM exchange_rates
        WHERE from_currency=$1 AND to_currency='CNY'`
	var rate float64
	err := r.db.querier(ctx).QueryRow(ctx, q, fromCurrency).Scan(&rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, application.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return rate, nil
}

func (r *RateRepo) Upsert(ctx context.Context, fromCurrency string, rate float64, source string) error {
	const up = `
        INSERT INTO exchange_rates(from_currency, to_currency, rate, source, updated_at)
        VALUES ($1, 'CNY', $2, $3, NOW())
        ON CONFLICT (from_currency, to_currency) DO UPDATE
          SET rate=EXCLUDED.rate, source=EXCLUDED.source, updated_at=EXCLUDED.updated_at`
	_, err := r.db.querier(ctx).Exec(ctx, up, fromCurrency, rate, source)
	return err
}
