package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/catalogo-presupuesto/api/routes"
	"github.com/angelmondragon/catalogo-presupuesto/internal/cart"
	"github.com/angelmondragon/catalogo-presupuesto/internal/catalog"
	"github.com/angelmondragon/catalogo-presupuesto/internal/companies"
	"github.com/angelmondragon/catalogo-presupuesto/internal/cron"
	"github.com/angelmondragon/catalogo-presupuesto/internal/keys"
	"github.com/angelmondragon/catalogo-presupuesto/internal/notion"
	"github.com/angelmondragon/catalogo-presupuesto/internal/orders"
	"github.com/angelmondragon/catalogo-presupuesto/internal/products"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/config"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/httpretry"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/logger"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/metrics"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if !cfg.Notion.Configured() {
		logg.Warn(context.Background(), "notion credentials missing; catalog requests will fail with CONFIG_ERROR")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "redis not configured; using in-process caches and no rate limiting")
	}

	catalogMetrics := metrics.NewCatalogMetrics(prometheus.DefaultRegisterer)

	notionHTTP := httpretry.New(
		httpretry.WithMaxRetries(cfg.HTTP.MaxRetries),
		httpretry.WithTimeout(cfg.HTTP.AttemptTimeout),
		httpretry.WithBackoffBase(cfg.HTTP.BackoffBase),
		httpretry.WithObserver(catalogMetrics.UpstreamObserver("notion")),
	)
	notionClient := notion.NewClient(cfg.Notion, notionHTTP, notion.WithPageSize(cfg.Catalog.PageSize))
	companyResolver := companies.NewResolver(notionClient, logg)
	productResolver := products.NewResolver(notionClient, logg)

	var (
		catalogCache catalog.Cache
		sessions     cart.Sessions
	)
	if redisClient != nil {
		catalogCache = catalog.NewRedisCache(redisClient, cfg.Catalog.CacheTTL, logg)
		sessions = cart.NewRedisSessions(redisClient, cfg.Catalog.CartTTL)
	} else {
		catalogCache = catalog.NewMemoryCache(cfg.Catalog.CacheTTL, nil)
		sessions = cart.NewMemorySessions(cfg.Catalog.CartTTL, nil)
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Companies:   companyResolver,
		Products:    productResolver,
		Cache:       catalogCache,
		Logger:      logg,
		Metrics:     catalogMetrics,
		CurrentSlug: cfg.Catalog.CompanySlug,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	keyValidator := keys.NewValidator(companyResolver,
		keys.WithTTL(cfg.Catalog.KeyTTL),
		keys.WithLogger(logg),
	)

	webhookHTTP := httpretry.New(
		httpretry.WithMaxRetries(cfg.Webhook.MaxRetries),
		httpretry.WithTimeout(cfg.Webhook.Timeout),
		httpretry.WithBackoffBase(cfg.HTTP.BackoffBase),
		httpretry.WithObserver(catalogMetrics.UpstreamObserver("webhook")),
	)
	orderService, err := orders.NewService(orders.ServiceParams{
		Keys:    keyValidator,
		Sender:  orders.NewWebhookClient(cfg.Webhook.URL, webhookHTTP),
		Logger:  logg,
		Metrics: catalogMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create presupuesto service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"serviceKind": cfg.Service.Kind,
	})

	if cfg.Catalog.WarmInAPI {
		if err := startWarmer(ctx, cfg, logg, catalogService); err != nil {
			logg.Error(ctx, "failed to start in-process catalog warmer", err)
			os.Exit(1)
		}
	}

	handler := routes.NewRouter(routes.Deps{
		Config:   cfg,
		Logger:   logg,
		Redis:    redisClient,
		Catalog:  catalogService,
		Keys:     keyValidator,
		Orders:   orderService,
		Sessions: sessions,
		Gatherer: prometheus.DefaultGatherer,
	})
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			_ = redisClient.Close()
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	err = multierr.Combine(server.Shutdown(shutdownCtx), redisClient.Close())
	if err != nil {
		logg.Error(shutdownCtx, "api shutdown incomplete", err)
		os.Exit(1)
	}
	logg.Info(shutdownCtx, "api server shut down gracefully")
}

// startWarmer keeps catalogs hot from inside the API process, for deployments without
// a separate catalog-warmer.
func startWarmer(ctx context.Context, cfg *config.Config, logg *logger.Logger, svc *catalog.Service) error {
	job, err := cron.NewCatalogWarmJob(cron.CatalogWarmParams{
		Refresher: svc,
		Slugs:     cfg.Catalog.Slugs(),
		Logger:    logg,
	})
	if err != nil {
		return err
	}
	registry, err := cron.NewRegistry(job)
	if err != nil {
		return err
	}
	scheduler, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     cron.NewMemoryLock(),
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Catalog.WarmInterval,
	})
	if err != nil {
		return err
	}
	go func() {
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "in-process catalog warmer stopped", err)
		}
	}()
	return nil
}
