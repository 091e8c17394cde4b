package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/cardscout/internal/adapter/chromedp_fetcher"
	"github.com/user/cardscout/internal/adapter/colly_fetcher"
	"github.com/user/cardscout/internal/adapter/memory"
	"github.com/user/cardscout/internal/adapter/postgres"
	redisadapter "github.com/user/cardscout/internal/adapter/redis"
	"github.com/user/cardscout/internal/adapter/sqlite"
	"github.com/user/cardscout/internal/delivery/http/handler"
	"github.com/user/cardscout/internal/discovery"
	"github.com/user/cardscout/internal/entity"
	"github.com/user/cardscout/internal/extraction"
	"github.com/user/cardscout/internal/proxy"
	"github.com/user/cardscout/internal/repository"
	"github.com/user/cardscout/internal/usecase"
	"github.com/user/cardscout/pkg/config"
	"github.com/user/cardscout/pkg/logger"
)

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	sites  []*discovery.Site

	inventory repository.InventoryRepository
	failures  repository.FailureRepository
	summaries repository.SummaryRepository
	locks     repository.SiteLockRepository
	queue     repository.QueueRepository
	markers   repository.ExtractionMarkerRepository
	checks    map[string]handler.HealthCheck

	fetchers usecase.Fetchers
	closers  []func()
}

func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, err
	}
	if opts.sitesFile != "" {
		cfg.SitesFile = opts.sitesFile
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: log, checks: map[string]handler.HealthCheck{}}
	a.closers = append(a.closers, func() { _ = log.Sync() })

	a.sites, err = config.LoadSites(cfg.SitesFile)
	if err != nil {
		a.Close()
		return nil, err
	}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openRedis(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.buildFetchers()

	log.Info("cardscout initialized",
		zap.String("store", cfg.Store),
		zap.Bool("redis", cfg.RedisAddr != ""),
		zap.Int("sites", len(a.sites)),
	)
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Store {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, a.cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("unable to connect to database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("unable to connect to database: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		a.inventory = postgres.NewInventoryRepo(pool)
		a.failures = postgres.NewFailureRepo(pool)
		a.logger.Info("PostgreSQL connection pool established")

	case config.StoreSQLite:
		db, err := sqlite.Open(a.cfg.SQLitePath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		a.inventory = sqlite.NewInventoryRepo(db)
		a.failures = sqlite.NewFailureRepo(db)
		a.logger.Info("SQLite database opened", zap.String("path", a.cfg.SQLitePath))

	default:
		a.inventory = memory.NewInventoryRepo()
		a.failures = memory.NewFailureRepo()
		a.logger.Warn("using in-memory inventory; nothing is persisted")
	}
	return nil
}

func (a *app) openRedis(ctx context.Context) error {
	if a.cfg.RedisAddr == "" {
		a.locks = memory.NewSiteLockRepo()
		a.summaries = memory.NewSummaryRepo()
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("unable to connect to redis: %w", err)
	}

	a.locks = redisadapter.NewSiteLockRepo(rdb)
	a.summaries = redisadapter.NewSummaryRepo(rdb)
	a.queue = redisadapter.NewQueueRepo(rdb)
	a.markers = redisadapter.NewMarkerRepo(rdb)
	a.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	a.logger.Info("Redis connection established")
	return nil
}

func (a *app) buildFetchers() {
	proxies := proxy.NewManager(a.cfg.ProxyList(), a.cfg.UserAgentList())
	rendered := chromedp_fetcher.NewLazyFetcher(chromedp_fetcher.Options{
		Headless: a.cfg.Headless,
		ExecPath: a.cfg.ChromePath,
		Proxies:  proxies,
	}, a.logger.Named("chromedp"))
	a.closers = append(a.closers, rendered.Close)

	a.fetchers = usecase.Fetchers{
		entity.FetcherRendered: rendered,
		entity.FetcherStatic:   colly_fetcher.NewFetcher(proxies, a.logger.Named("colly")),
	}
}

func (a *app) discoverer() usecase.Discoverer {
	return usecase.NewDiscoveryUseCase(usecase.DiscoveryDeps{
		Fetchers:  a.fetchers,
		Inventory: a.inventory,
		Failures:  a.failures,
		Locks:     a.locks,
		Queue:     a.queue,
		Summaries: a.summaries,
	}, usecase.DiscoveryConfig{
		FetchTimeout:       a.cfg.FetchTimeout,
		MaxConcurrency:     a.cfg.MaxConcurrency,
		PolitenessInterval: a.cfg.PolitenessInterval,
		SiteLockTTL:        a.cfg.SiteLockTTL,
	}, a.logger.Named("discovery"))
}

func (a *app) extractor() usecase.Extractor {
	return usecase.NewExtractionUseCase(usecase.ExtractionDeps{
		Fetchers:  a.fetchers,
		Inventory: a.inventory,
		Markers:   a.markers,
		Queue:     a.queue,
		Parsers:   extraction.NewRegistry(config.Definitions(a.sites)),
	}, a.sites, usecase.ExtractionConfig{
		FetchTimeout: a.cfg.FetchTimeout,
		TTL:          a.cfg.ExtractionTTL,
		Interval:     a.cfg.ExtractionInterval,
	}, a.logger.Named("extraction"))
}

func (a *app) inventoryManager() usecase.InventoryManager {
	return usecase.NewInventoryManager(a.inventory, a.failures, a.summaries)
}

// selectSites returns every site, or only the named one.
func (a *app) selectSites(name string) ([]*discovery.Site, error) {
	if name == "" {
		return a.sites, nil
	}
	for _, s := range a.sites {
		if s.Name() == name {
			return []*discovery.Site{s}, nil
		}
	}
	return nil, fmt.Errorf("unknown site %q", name)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

var errNoSiteSucceeded = errors.New("no site discovery pass succeeded")
