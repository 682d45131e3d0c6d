package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	StoreDriverRedis  = "redis"
	StoreDriverSQL    = "sql"
	StoreDriverMemory = "memory"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv           = "STOREFRONT_APP_ENV"
	EnvPort             = "STOREFRONT_APP_PORT"
	EnvBackendURL       = "STOREFRONT_BACKEND_URL"
	EnvBackendTimeout   = "STOREFRONT_BACKEND_TIMEOUT"
	EnvCartSyncDebounce = "STOREFRONT_CART_SYNC_DEBOUNCE"
	EnvCartStorageKey   = "STOREFRONT_CART_STORAGE_KEY"
	EnvSessionIdleTTL   = "STOREFRONT_SESSION_IDLE_TTL"
	EnvStoreDriver      = "STOREFRONT_STORE_DRIVER"
	EnvRedisURL         = "STOREFRONT_REDIS_URL"
	EnvRedisAddr        = "STOREFRONT_REDIS_ADDR"
	EnvDBDSN            = "STOREFRONT_DB_DSN"
	EnvDBDriver         = "STOREFRONT_DB_DRIVER"
)
