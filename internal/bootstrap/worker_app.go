package bootstrap

import (
	"context"

	"github.com/macrohuang/invest-log/internal/application"
	"github.com/macrohuang/invest-log/internal/config"
	"github.com/macrohuang/invest-log/internal/infrastructure/logx"
	"github.com/macrohuang/invest-log/internal/infrastructure/worker"
)

type WorkerApp func(ctx context.Context) error

// InitWorkerApp assembles the sweep loop runner plus its cleanup.
func InitWorkerApp(ctx context.Context) (WorkerApp, func(), error) {
	cfg := config.Load()
	repos, cleanup, err := BuildRepos(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	// Sweeps originate here, so there is no duplicate request to deduplicate.
	svcs := BuildServices(cfg, repos, application.NoopIdempotency{})

	sw := &worker.Sweeper{
		Prices:     svcs.Updater,
		Rates:      svcs.Rates,
		Currencies: cfg.SweepCurrencies,
		Interval:   cfg.SweepInterval,
		Log:        logx.L(),
	}
	runner := func(ctx context.Context) error {
		sw.Start(ctx)
		return nil
	}
	return runner, cleanup, nil
}
