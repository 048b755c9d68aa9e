package pg

import (
	"context"

	"github.com/macrohuang/invest-log/internal/application"
	"github.com/macrohuang/invest-log/internal/domain"
)

// Ensure OpLogRepo implements application.OperationLogStore.
var _ application.OperationLogStore = (*OpLogRepo)(nil)

type OpLogRepo struct{ db *DB }

func NewOpLogRepo(db *DB) *OpLogRepo { return &OpLogRepo{db: db} }

func (r *OpLogRepo) Append(ctx context.Context, e domain.OperationLog) (int64, error) {
	const ins = `
        INSERT INTO operation_logs(operation_type, symbol, currency, details, price_fetched)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`
	var id int64
	err := r.db.querier(ctx).
		QueryRow(ctx, ins, e.Operation, e.Symbol, e.Currency, e.Details, e.PriceFetched).
		Scan(&id)
	return id, err
}

func (r *OpLogRepo) List(ctx context.Context, limit int) ([]domain.OperationLog, error) {
	const q = `
        SELECT id, operation_type, symbol, currency, details, price_fetched::float8, created_at
        FROM operation_logs
        ORDER BY created_at DESC, id DESC
        LIMIT $1`
	rows, err := r.db.querier(ctx).Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.OperationLog
	for rows.Next() {
		var e domain.OperationLog
		if err := rows.Scan(&e.ID, &e.Operation, &e.Symbol, &e.Currency, &e.Details, &e.PriceFetched, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
