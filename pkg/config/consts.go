package config

// EnvPrefix is applied by envconfig to every variable below.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (tests, error
// messages).
const (
	EnvAppEnv     = "GOLDENLEAF_APP_ENV"
	EnvPort       = "GOLDENLEAF_APP_PORT"
	EnvDBDSN      = "GOLDENLEAF_DB_DSN"
	EnvDBHost     = "GOLDENLEAF_DB_HOST"
	EnvDBUser     = "GOLDENLEAF_DB_USER"
	EnvDBName     = "GOLDENLEAF_DB_NAME"
	EnvRedisURL   = "GOLDENLEAF_REDIS_URL"
	EnvCronSecret = "GOLDENLEAF_CRON_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
