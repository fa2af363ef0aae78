package config

const (
	// EnvPrefix scopes envconfig lookups; each field's explicit name is the fallback key.
	EnvPrefix = "CATALOG"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	// DefaultCompanySlug is the company shown when CATALOG_COMPANY_SLUG is unset.
	DefaultCompanySlug = "demo"

	EnvAppEnv            = "CATALOG_APP_ENV"
	EnvPort              = "CATALOG_APP_PORT"
	EnvCompanySlug       = "CATALOG_COMPANY_SLUG"
	EnvCacheTTL          = "CATALOG_CACHE_TTL"
	EnvWarmSlugs         = "CATALOG_WARM_SLUGS"
	EnvNotionToken       = "NOTION_TOKEN"
	EnvNotionCompaniesDB = "NOTION_COMPANIES_DB_ID"
	EnvNotionProductsDB  = "NOTION_PRODUCTS_DB_ID"
	EnvWebhookURL        = "PRESUPUESTO_WEBHOOK_URL"
	EnvRevalidateSecret  = "REVALIDATE_SECRET"
	EnvRedisURL          = "CATALOG_REDIS_URL"
	EnvHTTPMaxRetries    = "CATALOG_HTTP_MAX_RETRIES"
)
