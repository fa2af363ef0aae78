package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/catalogo-presupuesto/api/controllers"
	cartcontrollers "github.com/angelmondragon/catalogo-presupuesto/api/controllers/cart"
	"github.com/angelmondragon/catalogo-presupuesto/api/middleware"
	"github.com/angelmondragon/catalogo-presupuesto/internal/cart"
	"github.com/angelmondragon/catalogo-presupuesto/internal/catalog"
	"github.com/angelmondragon/catalogo-presupuesto/internal/keys"
	"github.com/angelmondragon/catalogo-presupuesto/internal/orders"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/config"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/logger"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/redis"
)

// Deps are the services the HTTP surface is built from. Redis is optional.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Redis    *redis.Client
	Catalog  *catalog.Service
	Keys     *keys.Validator
	Orders   orders.Service
	Sessions cart.Sessions
	Gatherer prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.ClientIP(cfg.App.TrustedProxyHops),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins...),
	)

	// A nil *redis.Client must not become a non-nil interface.
	var (
		pinger      controllers.Pinger
		rateStore   middleware.RateLimitStore
		replayStore middleware.IdempotencyStore
	)
	if deps.Redis != nil {
		pinger = deps.Redis
		rateStore = deps.Redis
		replayStore = deps.Redis
	}

	presupuestoPolicy := middleware.NewRateLimitPolicy(
		"presupuesto",
		cfg.RateLimit.PresupuestoWindow,
		cfg.RateLimit.PresupuestoIPLimit,
		cfg.RateLimit.PresupuestoCompanyLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, pinger, logg))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	var keyForgetter controllers.KeyForgetter
	if deps.Keys != nil {
		keyForgetter = deps.Keys
	}
	var invalidator controllers.CatalogInvalidator
	var catalogSvc controllers.CatalogService
	if deps.Catalog != nil {
		invalidator = deps.Catalog
		catalogSvc = deps.Catalog
	}

	r.Post("/revalidate", controllers.Revalidate(controllers.RevalidateParams{
		Secret:  cfg.Revalidate.Secret,
		Catalog: invalidator,
		Keys:    keyForgetter,
		Logger:  logg,
	}))

	r.With(
		middleware.RateLimit(presupuestoPolicy, rateStore, logg),
		middleware.Idempotency(replayStore, logg),
	).Post("/api/presupuesto", controllers.SubmitPresupuesto(deps.Orders, logg))

	cartDeps := cartcontrollers.Deps{Catalog: catalogSvc, Sessions: deps.Sessions, Logger: logg}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog", controllers.CatalogCurrent(catalogSvc, logg))
		r.Get("/catalog/{slug}", controllers.CatalogBySlug(catalogSvc, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(cartDeps))
			r.Delete("/", cartcontrollers.CartClear(cartDeps))
			r.Put("/items/{productId}", cartcontrollers.CartSetQuantity(cartDeps))
			r.Post("/items/{productId}/increment", cartcontrollers.CartIncrement(cartDeps))
			r.Post("/items/{productId}/decrement", cartcontrollers.CartDecrement(cartDeps))
		})
	})

	return r
}
