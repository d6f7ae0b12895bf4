package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Dashboard     DashboardConfig
	Notifications NotificationsConfig
	Events        EventsConfig
	Exports       ExportsConfig
	Service       ServiceHistoryConfig
	DTR           DTRConfig
}

type DatabaseConfig struct {
	URL          string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DashboardConfig governs dashboard cache tuning.
type DashboardConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// NotificationsConfig tunes the unread counter cache.
type NotificationsConfig struct {
	CacheTTL time.Duration
}

// EventsConfig toggles publishing of domain events to Kafka.
type EventsConfig struct {
	Enabled          bool
	Brokers          []string
	ClientID         string
	ApplicationTopic string
	MaxRetries       int
	PublishTimeout   time.Duration
	BufferSize       int
}

// ExportsConfig configures background DTR/roster exports.
type ExportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

// ServiceHistoryConfig holds the length of a completed scholar term.
type ServiceHistoryConfig struct {
	PeriodMonths int
}

// DTRConfig names the time zone offices keep their time records in. A work
// day is the calendar day of the time in, read in that zone.
type DTRConfig struct {
	TimeZone string
}

// Location resolves TimeZone, falling back to UTC when it is empty or unknown.
func (c DTRConfig) Location() *time.Location {
	if c.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		URL:          v.GetString("DATABASE_URL"),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:      v.GetString("REDIS_HOST"),
		Port:      v.GetInt("REDIS_PORT"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Dashboard = DashboardConfig{
		CacheEnabled: v.GetBool("ENABLE_DASHBOARD_CACHE"),
		CacheTTL:     parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Notifications = NotificationsConfig{
		CacheTTL: parseDuration(v.GetString("NOTIFICATION_CACHE_TTL"), time.Minute),
	}

	cfg.Events = EventsConfig{
		Enabled:          v.GetBool("ENABLE_EVENTS"),
		Brokers:          splitAndTrim(v.GetString("KAFKA_BROKERS")),
		ClientID:         v.GetString("KAFKA_CLIENT_ID"),
		ApplicationTopic: v.GetString("KAFKA_TOPIC_APPLICATIONS"),
		MaxRetries:       v.GetInt("EVENTS_MAX_RETRIES"),
		PublishTimeout:   parseDuration(v.GetString("EVENTS_PUBLISH_TIMEOUT"), 5*time.Second),
		BufferSize:       v.GetInt("EVENTS_BUFFER_SIZE"),
	}

	cfg.Exports = ExportsConfig{
		Enabled:           v.GetBool("ENABLE_EXPORTS"),
		StorageDir:        v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		WorkerConcurrency: v.GetInt("EXPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("EXPORTS_WORKER_RETRIES"),
	}

	cfg.Service = ServiceHistoryConfig{
		PeriodMonths: v.GetInt("SERVICE_PERIOD_MONTHS"),
	}
	if cfg.Service.PeriodMonths <= 0 {
		cfg.Service.PeriodMonths = 6
	}

	cfg.DTR = DTRConfig{TimeZone: strings.TrimSpace(v.GetString("DTR_TIMEZONE"))}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const (
	devJWTSecret    = "dev_secret"
	devExportSecret = "dev_exports_secret"
)

// Validate rejects settings that cannot work, and development secrets in production.
func (c *Config) Validate() error {
	var problems []string
	if !strings.HasPrefix(c.APIPrefix, "/") {
		problems = append(problems, "API_PREFIX must start with '/'")
	}
	if c.JWT.Secret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		problems = append(problems, "KAFKA_BROKERS is required when ENABLE_EVENTS is set")
	}
	if c.Exports.Enabled && c.Exports.SignedURLSecret == "" {
		problems = append(problems, "EXPORTS_SIGNED_URL_SECRET is required when ENABLE_EXPORTS is set")
	}
	if c.DTR.TimeZone != "" {
		if _, err := time.LoadLocation(c.DTR.TimeZone); err != nil {
			problems = append(problems, fmt.Sprintf("DTR_TIMEZONE %q is not a known time zone", c.DTR.TimeZone))
		}
	}
	if c.Env == EnvProduction {
		if c.JWT.Secret == devJWTSecret {
			problems = append(problems, "JWT_SECRET must be changed in production")
		}
		if c.Exports.Enabled && c.Exports.SignedURLSecret == devExportSecret {
			problems = append(problems, "EXPORTS_SIGNED_URL_SECRET must be changed in production")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sasm_ims")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "sasm")

	v.SetDefault("JWT_SECRET", devJWTSecret)
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_DASHBOARD_CACHE", true)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")
	v.SetDefault("NOTIFICATION_CACHE_TTL", "1m")

	v.SetDefault("ENABLE_EVENTS", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_CLIENT_ID", "sasm-ims-api")
	v.SetDefault("KAFKA_TOPIC_APPLICATIONS", "sasm.applications")
	v.SetDefault("EVENTS_MAX_RETRIES", 3)
	v.SetDefault("EVENTS_PUBLISH_TIMEOUT", "5s")
	v.SetDefault("EVENTS_BUFFER_SIZE", 1024)

	v.SetDefault("ENABLE_EXPORTS", false)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", devExportSecret)
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("EXPORTS_WORKER_RETRIES", 3)

	v.SetDefault("SERVICE_PERIOD_MONTHS", 6)
	v.SetDefault("DTR_TIMEZONE", "Asia/Manila")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
