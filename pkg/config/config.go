package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	Auth     AuthConfig
	JWT      JWTConfig
	GCP      GCPConfig
	Firebase FirebaseConfig
	Redis    RedisConfig
	Gemini   GeminiConfig
	Schedule ScheduleConfig
	Eventing EventingConfig
	PubSub   PubSubConfig
	BigQuery BigQueryConfig
	CORS     CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if !c.Auth.IsLocal() && !c.Auth.IsFirebase() {
		return fmt.Errorf("%s must be %q or %q", EnvAuthMode, AuthModeFirebase, AuthModeLocal)
	}
	if c.Auth.IsLocal() {
		if c.App.IsProd() {
			return fmt.Errorf("%s=%s is not allowed in production", EnvAuthMode, AuthModeLocal)
		}
		if c.JWT.Secret == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvJWTSecret, EnvAuthMode, AuthModeLocal)
		}
	}
	if _, err := c.App.Location(); err != nil {
		return fmt.Errorf("invalid %s: %w", EnvTimezone, err)
	}
	switch c.Schedule.ValidationMode {
	case ValidationModeRetry, ValidationModeReject, ValidationModeWarn:
	default:
		return fmt.Errorf("%s must be one of %s, %s, %s", EnvScheduleValidationMode, ValidationModeRetry, ValidationModeReject, ValidationModeWarn)
	}
	if _, err := c.Schedule.Weekday(); err != nil {
		return err
	}
	if d := c.Schedule.CoverageAlertDays; d != 7 && d != 14 {
		return fmt.Errorf("%s must be 7 or 14", EnvCoverageAlertDays)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"SOCSHIFT_APP_ENV" required:"true"`
	Port         string `envconfig:"SOCSHIFT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SOCSHIFT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOCSHIFT_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"SOCSHIFT_LOG_FORMAT" default:"json"`
	Timezone     string `envconfig:"SOCSHIFT_TIMEZONE" default:"UTC"`
	// IdempotencyTTL is how long a replayable response is kept per key.
	IdempotencyTTL time.Duration `envconfig:"SOCSHIFT_HTTP_IDEMPOTENCY_TTL" default:"24h"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Location resolves the team's timezone, used to decide what "today" means.
func (a AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(a.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

type ServiceConfig struct {
	Kind string `envconfig:"SOCSHIFT_SERVICE_KIND" default:"api"`
}

type AuthConfig struct {
	Mode string `envconfig:"SOCSHIFT_AUTH_MODE" default:"firebase"`
}

func (a AuthConfig) IsLocal() bool {
	return strings.EqualFold(strings.TrimSpace(a.Mode), AuthModeLocal)
}

func (a AuthConfig) IsFirebase() bool {
	return strings.EqualFold(strings.TrimSpace(a.Mode), AuthModeFirebase)
}

// JWTConfig is only used in local auth mode, where the API mints its own
// HS256 tokens instead of verifying Firebase ID tokens.
type JWTConfig struct {
	Secret            string `envconfig:"SOCSHIFT_JWT_SECRET"`
	Issuer            string `envconfig:"SOCSHIFT_JWT_ISSUER" default:"socshift-local"`
	ExpirationMinutes int    `envconfig:"SOCSHIFT_JWT_EXPIRATION_MINUTES" default:"60"`
}

// TTL is the lifetime of a locally minted token.
func (j JWTConfig) TTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SOCSHIFT_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SOCSHIFT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SOCSHIFT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type FirebaseConfig struct {
	DatabaseID string `envconfig:"SOCSHIFT_FIRESTORE_DATABASE_ID" default:"(default)"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SOCSHIFT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SOCSHIFT_REDIS_ADDR"`
	Password     string        `envconfig:"SOCSHIFT_REDIS_PASSWORD"`
	DB           int           `envconfig:"SOCSHIFT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SOCSHIFT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SOCSHIFT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SOCSHIFT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SOCSHIFT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SOCSHIFT_REDIS_WRITE_TIMEOUT" default:"5s"`
	// Namespace prefixes every key so environments can share one instance.
	Namespace string `envconfig:"SOCSHIFT_REDIS_NAMESPACE" default:"soc"`
}

type GeminiConfig struct {
	APIKey      string        `envconfig:"SOCSHIFT_GEMINI_API_KEY"`
	Model       string        `envconfig:"SOCSHIFT_GEMINI_MODEL" default:"gemini-2.5-flash"`
	Temperature float32       `envconfig:"SOCSHIFT_GEMINI_TEMPERATURE" default:"0.2"`
	Timeout     time.Duration `envconfig:"SOCSHIFT_GEMINI_TIMEOUT" default:"90s"`
}

type ScheduleConfig struct {
	ValidationMode    string        `envconfig:"SOCSHIFT_SCHEDULE_VALIDATION_MODE" default:"retry"`
	GenerateLimit     int           `envconfig:"SOCSHIFT_SCHEDULE_GENERATE_LIMIT" default:"5"`
	GenerateWindow    time.Duration `envconfig:"SOCSHIFT_SCHEDULE_GENERATE_WINDOW" default:"10m"`
	RegenerateWeekday string        `envconfig:"SOCSHIFT_SCHEDULE_REGENERATE_WEEKDAY" default:"Sunday"`
	CoverageAlertDays int           `envconfig:"SOCSHIFT_SCHEDULE_COVERAGE_ALERT_DAYS" default:"7"`
	CronInterval      time.Duration `envconfig:"SOCSHIFT_CRON_INTERVAL" default:"24h"`
	CronJobTimeout    time.Duration `envconfig:"SOCSHIFT_CRON_JOB_TIMEOUT" default:"10m"`
}

// Weekday parses RegenerateWeekday.
func (s ScheduleConfig) Weekday() (time.Weekday, error) {
	value := strings.TrimSpace(s.RegenerateWeekday)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), value) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("invalid %s %q", EnvScheduleRegenerateWeekday, s.RegenerateWeekday)
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SOCSHIFT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	MaxAttempts    int           `envconfig:"SOCSHIFT_EVENTING_MAX_ATTEMPTS" default:"10"`
}

type PubSubConfig struct {
	ActivityTopic        string `envconfig:"SOCSHIFT_PUBSUB_ACTIVITY_TOPIC"`
	ActivitySubscription string `envconfig:"SOCSHIFT_PUBSUB_ACTIVITY_SUBSCRIPTION"`
	// MaxOutstanding bounds unacked messages held by the activity worker.
	MaxOutstanding int `envconfig:"SOCSHIFT_PUBSUB_MAX_OUTSTANDING" default:"100"`
}

// Enabled reports whether activity events should be published.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.ActivityTopic) != ""
}

type BigQueryConfig struct {
	Dataset       string `envconfig:"SOCSHIFT_BIGQUERY_DATASET" default:"socshift"`
	ActivityTable string `envconfig:"SOCSHIFT_BIGQUERY_ACTIVITY_TABLE" default:"activity_events"`
	Enabled       bool   `envconfig:"SOCSHIFT_BIGQUERY_ENABLED" default:"false"`
	// MaxBytesBilled caps a single analytics query; zero leaves the project default.
	MaxBytesBilled int64 `envconfig:"SOCSHIFT_BIGQUERY_MAX_BYTES_BILLED" default:"1073741824"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SOCSHIFT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	MaxAgeSeconds  int      `envconfig:"SOCSHIFT_CORS_MAX_AGE_SECONDS" default:"300"`
}
