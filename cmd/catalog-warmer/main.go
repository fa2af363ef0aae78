package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/angelmondragon/catalogo-presupuesto/internal/catalog"
	"github.com/angelmondragon/catalogo-presupuesto/internal/companies"
	"github.com/angelmondragon/catalogo-presupuesto/internal/cron"
	"github.com/angelmondragon/catalogo-presupuesto/internal/notion"
	"github.com/angelmondragon/catalogo-presupuesto/internal/products"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/config"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/httpretry"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/instance"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/logger"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/metrics"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	once := flag.Bool("once", false, "run a single warm cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "catalog-warmer"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "catalog-warmer"

	logg = logger.New(logger.Options{
		ServiceName: "catalog-warmer",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if !cfg.Notion.Configured() {
		logg.Error(context.Background(), "notion credentials missing", errors.New("NOTION_TOKEN, NOTION_COMPANIES_DB_ID and NOTION_PRODUCTS_DB_ID are required"))
		os.Exit(1)
	}

	// the warmed entries are only visible to the API through the shared cache
	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	catalogMetrics := metrics.NewCatalogMetrics(prometheus.DefaultRegisterer)
	notionHTTP := httpretry.New(
		httpretry.WithMaxRetries(cfg.HTTP.MaxRetries),
		httpretry.WithTimeout(cfg.HTTP.AttemptTimeout),
		httpretry.WithBackoffBase(cfg.HTTP.BackoffBase),
		httpretry.WithObserver(catalogMetrics.UpstreamObserver("notion")),
	)
	notionClient := notion.NewClient(cfg.Notion, notionHTTP, notion.WithPageSize(cfg.Catalog.PageSize))

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Companies:   companies.NewResolver(notionClient, logg),
		Products:    products.NewResolver(notionClient, logg),
		Cache:       catalog.NewRedisCache(redisClient, cfg.Catalog.CacheTTL, logg),
		Logger:      logg,
		Metrics:     catalogMetrics,
		CurrentSlug: cfg.Catalog.CompanySlug,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	job, err := cron.NewCatalogWarmJob(cron.CatalogWarmParams{
		Refresher: catalogService,
		Slugs:     cfg.Catalog.Slugs(),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create warm job", err)
		os.Exit(1)
	}
	registry, err := cron.NewRegistry(job)
	if err != nil {
		logg.Error(context.Background(), "failed to register warm job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockName(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create warm lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Catalog.WarmInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create warm scheduler", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
		"interval":    service.Interval().String(),
		"companies":   cfg.Catalog.Slugs(),
	})

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "warm cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting catalog warmer")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "catalog warmer stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "catalog warmer shutting down gracefully")
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "catalog-warmer:" + env
}
