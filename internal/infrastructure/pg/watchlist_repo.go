package pg

import (
	"context"

	"github.com/macrohuang/invest-log/internal/application"
	"github.com/macrohuang/invest-log/internal/domain"
)

// Ensure WatchlistRepo implements application.WatchlistStore.
var _ application.WatchlistStore = (*WatchlistRepo)(nil)

type WatchlistRepo struct{ db *DB }

func NewWatchlistRepo(db *DB) *WatchlistRepo { return &WatchlistRepo{db: db} }

// ListAutoUpdate returns the auto-update symbols of a currency, each with the
// timestamp of its stored price so the sweep can skip fresh ones.
func (r *WatchlistRepo) ListAutoUpdate(ctx context.Context, currency string) ([]domain.WatchItem, error) {
	const q = `
        SELECT s.symbol, s.currency, s.asset_type, s.auto_update, lp.updated_at
        FROM symbols s
        LEFT JOIN latest_prices lp
          ON lp.symbol = s.symbol AND lp.currency = s.currency
        WHERE s.currency=$1 AND s.auto_update
        ORDER BY s.symbol`
	rows, err := r.db.querier(ctx).Query(ctx, q, currency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.WatchItem
	for rows.Next() {
		var item domain.WatchItem
		if err := rows.Scan(&item.Symbol, &item.Currency, &item.AssetType, &item.AutoUpdate, &item.PriceUpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *WatchlistRepo) Upsert(ctx context.Context, item domain.WatchItem) error {
	const up = `
        INSERT INTO symbols(symbol, currency, asset_type, auto_update)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (symbol, currency) DO UPDATE
          SET asset_type=EXCLUDED.asset_type, auto_update=EXCLUDED.auto_update`
	_, err := r.db.querier(ctx).Exec(ctx, up, item.Symbol, item.Currency, item.AssetType, item.AutoUpdate)
	return err
}

func (r *WatchlistRepo) SetAutoUpdate(ctx context.Context, symbol, currency string, enabled bool) error {
	const up = `UPDATE symbols SET auto_update=$3 WHERE symbol=$1 AND currency=$2`
	tag, err := r.db.querier(ctx).Exec(ctx, up, symbol, currency, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return application.ErrNotFound
	}
	return nil
}
