package pg

import (
	"context"
	"errors"

	"github.com/macrohuang/invest-log/internal/application"
	"github.com/macrohuang/invest-log/internal/domain"
	"github.com/macrohuang/invest-log/internal/infrastructure/logx"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Ensure PriceRepo implements application.PriceStore.
var _ application.PriceStore = (*PriceRepo)(nil)

type PriceRepo struct{ db *DB }

func NewPriceRepo(db *DB) *PriceRepo { return &PriceRepo{db: db} }

func (r *PriceRepo) GetLatest(ctx context.Context, symbol, currency string) (domain.LatestPrice, error) {
	const q = `
        SELECT symbol, currency, price::float8, source, updated_at
        FROM latest_prices WHERE symbol=$1 AND currency=$2`
	var out domain.LatestPrice
	err := r.db.querier(ctx).QueryRow(ctx, q, symbol, currency).
		Scan(&out.Symbol, &out.Currency, &out.Price, &out.Source, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LatestPrice{}, application.ErrNotFound
	}
	if err != nil {
		return domain.LatestPrice{}, err
	}
	return out, nil
}

func (r *PriceRepo) Upsert(ctx context.Context, p domain.LatestPrice) error {
	const up = `
        INSERT INTO latest_prices(symbol, currency, price, source, updated_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (symbol, currency) DO UPDATE
          SET price=EXCLUDED.price, source=EXCLUDED.source, updated_at=EXCLUDED.updated_at`
	log := logx.L().With(
		zap.String("repo", "price"),
		zap.String("operation", "Upsert"),
		zap.String("symbol", p.Symbol),
		zap.String("currency", p.Currency),
		zap.Float64("price", p.Price),
		zap.String("source", p.Source),
	)
	log.Info("sql.exec_start")
	tag, err := r.db.querier(ctx).Exec(ctx, up, p.Symbol, p.Currency, p.Price, p.Source)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return err
	}
	log.Info("sql.exec_success", zap.Int64("rows_affected", tag.RowsAffected()))
	return nil
}
