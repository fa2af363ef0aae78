package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	Service    ServiceConfig
	Notion     NotionConfig
	Catalog    CatalogConfig
	HTTP       HTTPConfig
	Webhook    WebhookConfig
	Revalidate RevalidateConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Catalog.CompanySlug = strings.TrimSpace(cfg.Catalog.CompanySlug)
	if cfg.Catalog.CompanySlug == "" {
		cfg.Catalog.CompanySlug = DefaultCompanySlug
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"CATALOG_APP_ENV" default:"dev"`
	Port         string   `envconfig:"CATALOG_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"CATALOG_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"CATALOG_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"CATALOG_CORS_ORIGINS"`

	// TrustedProxyHops is how many reverse proxies append to X-Forwarded-For in front of
	// the API; 0 means the header is ignored.
	TrustedProxyHops int `envconfig:"CATALOG_TRUSTED_PROXY_HOPS" default:"0"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CATALOG_SERVICE_KIND" default:"api"`
}

// NotionConfig holds the document-database credentials. The token and database ids are
// optional at load time; the client reports a CONFIG_ERROR when it is used without them.
type NotionConfig struct {
	Token             string `envconfig:"NOTION_TOKEN"`
	Version           string `envconfig:"NOTION_VERSION" default:"2022-06-28"`
	BaseURL           string `envconfig:"NOTION_BASE_URL" default:"https://api.notion.com/v1"`
	CompaniesDatabase string `envconfig:"NOTION_COMPANIES_DB_ID"`
	ProductsDatabase  string `envconfig:"NOTION_PRODUCTS_DB_ID"`
}

// Configured reports whether every credential needed to reach the catalog is present.
func (n NotionConfig) Configured() bool {
	return strings.TrimSpace(n.Token) != "" &&
		strings.TrimSpace(n.CompaniesDatabase) != "" &&
		strings.TrimSpace(n.ProductsDatabase) != ""
}

type CatalogConfig struct {
	CompanySlug  string        `envconfig:"CATALOG_COMPANY_SLUG"`
	CacheTTL     time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"1h"`
	KeyTTL       time.Duration `envconfig:"CATALOG_KEY_TTL" default:"1h"`
	PageSize     int           `envconfig:"CATALOG_PAGE_SIZE" default:"100"`
	WarmInterval time.Duration `envconfig:"CATALOG_WARM_INTERVAL" default:"50m"`
	WarmSlugs    []string      `envconfig:"CATALOG_WARM_SLUGS"`
	WarmInAPI    bool          `envconfig:"CATALOG_WARM_IN_API" default:"false"`
	CartTTL      time.Duration `envconfig:"CATALOG_CART_TTL" default:"720h"`
}

// Slugs returns the companies the warmer keeps hot; the current company is always included.
func (c CatalogConfig) Slugs() []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, s := range append([]string{c.CompanySlug}, c.WarmSlugs...) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

type HTTPConfig struct {
	AttemptTimeout time.Duration `envconfig:"CATALOG_HTTP_ATTEMPT_TIMEOUT" default:"5s"`
	MaxRetries     int           `envconfig:"CATALOG_HTTP_MAX_RETRIES" default:"3"`
	BackoffBase    time.Duration `envconfig:"CATALOG_HTTP_BACKOFF_BASE" default:"1s"`
}

type WebhookConfig struct {
	URL        string        `envconfig:"PRESUPUESTO_WEBHOOK_URL"`
	Timeout    time.Duration `envconfig:"PRESUPUESTO_WEBHOOK_TIMEOUT" default:"10s"`
	MaxRetries int           `envconfig:"PRESUPUESTO_WEBHOOK_MAX_RETRIES" default:"1"`
}

type RevalidateConfig struct {
	Secret string `envconfig:"REVALIDATE_SECRET"`
}

// RedisConfig is optional: with neither URL nor address set the service runs on
// in-process caches and skips rate limiting.
type RedisConfig struct {
	URL          string        `envconfig:"CATALOG_REDIS_URL"`
	Address      string        `envconfig:"CATALOG_REDIS_ADDR"`
	Password     string        `envconfig:"CATALOG_REDIS_PASSWORD"`
	DB           int           `envconfig:"CATALOG_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CATALOG_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CATALOG_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CATALOG_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CATALOG_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CATALOG_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type RateLimitConfig struct {
	PresupuestoWindow       time.Duration `envconfig:"CATALOG_RATE_LIMIT_PRESUPUESTO_WINDOW" default:"5m"`
	PresupuestoIPLimit      int           `envconfig:"CATALOG_RATE_LIMIT_PRESUPUESTO_IP_LIMIT" default:"20"`
	PresupuestoCompanyLimit int           `envconfig:"CATALOG_RATE_LIMIT_PRESUPUESTO_COMPANY_LIMIT" default:"60"`
}
