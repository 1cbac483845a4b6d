package config

// EnvPrefix is handed to envconfig; every field carries an explicit key so the
// prefix only matters for fields without one.
const EnvPrefix = "LUHIVE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "LUHIVE_APP_ENV"
	EnvPort                   = "LUHIVE_APP_PORT"
	EnvPublicBaseURL          = "LUHIVE_PUBLIC_BASE_URL"
	EnvCORSOrigins            = "LUHIVE_CORS_ORIGINS"
	EnvDBDSN                  = "LUHIVE_DB_DSN"
	EnvDBHost                 = "LUHIVE_DB_HOST"
	EnvDBUser                 = "LUHIVE_DB_USER"
	EnvDBName                 = "LUHIVE_DB_NAME"
	EnvDBPassword             = "LUHIVE_DB_PASSWORD"
	EnvRedisURL               = "LUHIVE_REDIS_URL"
	EnvJWTSecret              = "LUHIVE_JWT_SECRET"
	EnvJWTIssuer              = "LUHIVE_JWT_ISSUER"
	EnvJWTExpMins             = "LUHIVE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "LUHIVE_REFRESH_TOKEN_TTL_MINUTES"
	EnvSMTPHost               = "LUHIVE_SMTP_HOST"
	EnvRemindersSecret        = "LUHIVE_REMINDERS_DISPATCH_SECRET"
	EnvRemindersBatchSize     = "LUHIVE_REMINDERS_BATCH_SIZE"
	EnvVerificationTokenTTL   = "LUHIVE_VERIFICATION_TOKEN_TTL"
	EnvBroadcastSendInterval  = "LUHIVE_BROADCAST_SEND_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
