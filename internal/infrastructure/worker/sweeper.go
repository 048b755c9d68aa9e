package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/macrohuang/invest-log/internal/application"
	"github.com/macrohuang/invest-log/internal/infrastructure/metrics"
)

// PriceSweeper is the slice of the price updater the sweep loop needs.
type PriceSweeper interface {
	UpdateAllPrices(ctx context.Context, currency string) (int, []string, error)
}

// RateRefresher pulls fresh FX rates ahead of each sweep round so HKD and
// USD conversions use current numbers.
type RateRefresher interface {
	Refresh(ctx context.Context) (int, []string, error)
}

var _ application.Worker = (*Sweeper)(nil)

// Sweeper periodically refreshes exchange rates and every auto-update symbol
// on the watchlist. The first round runs immediately on Start.
type Sweeper struct {
	Prices     PriceSweeper
	Rates      RateRefresher
	Currencies []string
	Interval   time.Duration
	Log        *zap.Logger
}

func (w *Sweeper) Start(ctx context.Context) {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	if w.Interval <= 0 {
		w.Interval = 10 * time.Minute
	}
	if len(w.Currencies) == 0 {
		w.Currencies = []string{"CNY"}
	}

	t := time.NewTicker(w.Interval)
	defer t.Stop()

	log.Info("sweeper_started",
		zap.Duration("interval", w.Interval),
		zap.Strings("currencies", w.Currencies),
	)
	w.sweep(ctx, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper_stopped")
			return
		case <-t.C:
			w.sweep(ctx, log)
		}
	}
}

func (w *Sweeper) sweep(ctx context.Context, log *zap.Logger) {
	if w.Rates != nil {
		updated, failures, err := w.Rates.Refresh(ctx)
		switch {
		case err != nil:
			log.Warn("rate_refresh_failed", zap.Error(err))
		case len(failures) > 0:
			log.Warn("rate_refresh_partial", zap.Int("updated", updated), zap.Strings("failures", failures))
		default:
			log.Info("rate_refresh_done", zap.Int("updated", updated))
		}
	}

	for _, currency := range w.Currencies {
		if ctx.Err() != nil {
			return
		}
		updated, failures, err := w.Prices.UpdateAllPrices(ctx, currency)
		status := "ok"
		switch {
		case err != nil:
			status = "error"
			log.Warn("sweep_failed", zap.String("currency", currency), zap.Error(err))
		case len(failures) > 0:
			status = "partial"
			log.Warn("sweep_partial",
				zap.String("currency", currency),
				zap.Int("updated", updated),
				zap.Strings("failures", failures),
			)
		default:
			log.Info("sweep_done", zap.String("currency", currency), zap.Int("updated", updated))
		}
		metrics.SweepRuns.WithLabelValues(currency, status).Inc()
		metrics.SweepSymbolsUpdated.WithLabelValues(currency).Add(float64(updated))
	}
}
