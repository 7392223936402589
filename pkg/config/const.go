package config

// EnvPrefix namespaces every configuration variable.
const EnvPrefix = "IMMOFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "IMMOFLOW_APP_ENV"
	EnvPort      = "IMMOFLOW_APP_PORT"
	EnvDBDSN     = "IMMOFLOW_DB_DSN"
	EnvDBHost    = "IMMOFLOW_DB_HOST"
	EnvDBUser    = "IMMOFLOW_DB_USER"
	EnvDBName    = "IMMOFLOW_DB_NAME"
	EnvRedisURL  = "IMMOFLOW_REDIS_URL"
	EnvJWTSecret = "IMMOFLOW_JWT_SECRET"
	EnvJWTIssuer = "IMMOFLOW_JWT_ISSUER"
	EnvReturnURL = "IMMOFLOW_BILLING_RETURN_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
