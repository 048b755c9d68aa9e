package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/macrohuang/invest-log/internal/application"
	"github.com/macrohuang/invest-log/internal/config"
	"github.com/macrohuang/invest-log/internal/infrastructure/fx"
	httpserver "github.com/macrohuang/invest-log/internal/infrastructure/http"
	"github.com/macrohuang/invest-log/internal/infrastructure/httpx"
	"github.com/macrohuang/invest-log/internal/infrastructure/logx"
	"github.com/macrohuang/invest-log/internal/infrastructure/metrics"
	"github.com/macrohuang/invest-log/internal/infrastructure/pg"
	"github.com/macrohuang/invest-log/internal/infrastructure/provider"
	redisstore "github.com/macrohuang/invest-log/internal/infrastructure/redis"
)

// userAgent identifies outbound FX refresh calls.
const userAgent = "InvestLog/1.0"

type Repos struct {
	DB     *pg.DB
	Prices *pg.PriceRepo
	OpLogs *pg.OpLogRepo
	Rates  *pg.RateRepo
	Watch  *pg.WatchlistRepo
	UoW    application.UnitOfWork
}

type Services struct {
	Quotes  *application.QuoteService
	Updater *application.PriceUpdater
	Rates   *application.RatesService
	Idem    application.IdempotencyStore
}

// BuildRepos connects to postgres, runs migrations and hands back the repos.
func BuildRepos(ctx context.Context, cfg config.Config) (Repos, func(), error) {
	log := logx.L()
	if cfg.DatabaseURL == "" {
		return Repos{}, func() {}, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return Repos{}, func() {}, err
	}
	if err := pg.RunMigrations(ctx, db); err != nil {
		db.Close()
		return Repos{}, func() {}, err
	}
	cleanup := func() {
		log.Info("closing pg")
		db.Close()
	}
	return Repos{
		DB:     db,
		Prices: pg.NewPriceRepo(db),
		OpLogs: pg.NewOpLogRepo(db),
		Rates:  pg.NewRateRepo(db),
		Watch:  pg.NewWatchlistRepo(db),
		UoW:    &pg.UnitOfWork{Pool: db.Pool},
	}, cleanup, nil
}

// BuildRedis builds the idempotency store. IDEMPOTENCY_BACKEND=none falls
// back to the no-op store.
func BuildRedis(cfg config.Config) (application.IdempotencyStore, func()) {
	if cfg.IdemBackend != "redis" {
		return application.NoopIdempotency{}, func() {}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return redisstore.New(rdb, cfg.RedisTTL), func() { _ = rdb.Close() }
}

// BuildServices wires the quote pipeline: the FX rate service feeds the
// provider registry its HKD and USD conversions, quotes feed the updater.
func BuildServices(cfg config.Config, repos Repos, idem application.IdempotencyStore) Services {
	rates := application.NewRatesService(repos.Rates, repos.OpLogs, buildFXProviders(cfg)...)
	quotes := application.NewQuoteService(buildRegistry(cfg, rates), application.QuoteConfig{
		CacheTTL:      cfg.QuoteCacheTTL,
		FailThreshold: cfg.FailThreshold,
		FailWindow:    cfg.FailWindow,
		Cooldown:      cfg.Cooldown,
	}, application.WithMetrics(metrics.Recorder{}))
	updater := application.NewPriceUpdater(quotes, repos.Prices, repos.OpLogs, repos.Watch, repos.UoW)
	return Services{Quotes: quotes, Updater: updater, Rates: rates, Idem: idem}
}

func buildRegistry(cfg config.Config, rates application.RateSource) application.ChainRegistry {
	switch cfg.QuoteProvider {
	case "fake":
		return provider.NewFake(cfg.FakeQuotePrice)
	default:
		return provider.NewRegistry(provider.NewClient(cfg.QuoteHTTPTimeout), rates)
	}
}

func buildFXProviders(cfg config.Config) []application.FXRateProvider {
	client := &httpx.Client{
		HTTP:      &http.Client{Timeout: cfg.QuoteHTTPTimeout},
		UserAgent: userAgent,
	}
	return []application.FXRateProvider{fx.NewFrankfurter(client), fx.NewOpenERAPI(client)}
}

// InitAPI assembles the full HTTP handler plus its cleanup.
func InitAPI(ctx context.Context) (http.Handler, func(), error) {
	cfg := config.Load()
	repos, closePG, err := BuildRepos(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	idem, closeRedis := BuildRedis(cfg)
	svcs := BuildServices(cfg, repos, idem)

	srv := httpserver.NewServer(svcs.Updater, svcs.Rates, repos.Prices, repos.OpLogs, svcs.Idem)
	srv.SetReadyCheck(repos.DB.Ping)
	cleanup := func() {
		closeRedis()
		closePG()
	}
	return httpserver.NewRouter(srv), cleanup, nil
}
