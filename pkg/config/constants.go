package config

// EnvPrefix is handed to envconfig; every field carries its full name in the tag.
const EnvPrefix = "SOCSHIFT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	AuthModeFirebase = "firebase"
	AuthModeLocal    = "local"

	ValidationModeRetry  = "retry"
	ValidationModeReject = "reject"
	ValidationModeWarn   = "warn"
)

const (
	EnvAppEnv                    = "SOCSHIFT_APP_ENV"
	EnvPort                      = "SOCSHIFT_APP_PORT"
	EnvLogLevel                  = "SOCSHIFT_LOG_LEVEL"
	EnvTimezone                  = "SOCSHIFT_TIMEZONE"
	EnvAuthMode                  = "SOCSHIFT_AUTH_MODE"
	EnvJWTSecret                 = "SOCSHIFT_JWT_SECRET"
	EnvGCPProjectID              = "SOCSHIFT_GCP_PROJECT_ID"
	EnvRedisURL                  = "SOCSHIFT_REDIS_URL"
	EnvGeminiAPIKey              = "SOCSHIFT_GEMINI_API_KEY"
	EnvScheduleValidationMode    = "SOCSHIFT_SCHEDULE_VALIDATION_MODE"
	EnvScheduleRegenerateWeekday = "SOCSHIFT_SCHEDULE_REGENERATE_WEEKDAY"
	EnvCoverageAlertDays         = "SOCSHIFT_SCHEDULE_COVERAGE_ALERT_DAYS"
	EnvPubSubActivityTopic       = "SOCSHIFT_PUBSUB_ACTIVITY_TOPIC"
	EnvPubSubActivitySub         = "SOCSHIFT_PUBSUB_ACTIVITY_SUBSCRIPTION"
)
