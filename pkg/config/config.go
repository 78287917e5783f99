package config

import (
	"errors"
	"strings"
	"time"

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
	CORS          CORSConfig
	Log           LogConfig
	Reservations  ReservationsConfig
	Sweeper       SweeperConfig
	ScheduleCache ScheduleCacheConfig
}

type DatabaseConfig struct {
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
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ReservationsConfig tunes the time-driven reservation transitions.
type ReservationsConfig struct {
	// ResponseWindow is how long a teacher has to act on a new
	// reservation before it is auto-expired.
	ResponseWindow time.Duration
	// AutoCompleteAfter is how long a reservation stays overdue before
	// it is presumed completed.
	AutoCompleteAfter time.Duration
}

// SweeperConfig controls the periodic expiration sweeps. Cron specs are
// evaluated in Timezone, not server-local time.
type SweeperConfig struct {
	Enabled          bool
	Timezone         string
	ExpireSpec       string
	OverdueSpec      string
	AutoCompleteSpec string
}

// ScheduleCacheConfig governs the teacher-schedule read cache.
type ScheduleCacheConfig struct {
	Enabled bool
	TTL     time.Duration
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
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
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Reservations = ReservationsConfig{
		ResponseWindow:    parseDuration(v.GetString("RESERVATION_RESPONSE_WINDOW"), 24*time.Hour),
		AutoCompleteAfter: parseDuration(v.GetString("RESERVATION_AUTOCOMPLETE_AFTER"), 24*time.Hour),
	}

	cfg.Sweeper = SweeperConfig{
		Enabled:          v.GetBool("ENABLE_SWEEPER"),
		Timezone:         v.GetString("SWEEP_TIMEZONE"),
		ExpireSpec:       v.GetString("SWEEP_EXPIRE_SPEC"),
		OverdueSpec:      v.GetString("SWEEP_OVERDUE_SPEC"),
		AutoCompleteSpec: v.GetString("SWEEP_AUTOCOMPLETE_SPEC"),
	}

	cfg.ScheduleCache = ScheduleCacheConfig{
		Enabled: v.GetBool("ENABLE_SCHEDULE_CACHE"),
		TTL:     parseDuration(v.GetString("SCHEDULE_CACHE_TTL"), 5*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tutor_market")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RESERVATION_RESPONSE_WINDOW", "24h")
	v.SetDefault("RESERVATION_AUTOCOMPLETE_AFTER", "24h")

	v.SetDefault("ENABLE_SWEEPER", true)
	v.SetDefault("SWEEP_TIMEZONE", "Asia/Taipei")
	v.SetDefault("SWEEP_EXPIRE_SPEC", "*/10 * * * *")
	v.SetDefault("SWEEP_OVERDUE_SPEC", "0 * * * *")
	v.SetDefault("SWEEP_AUTOCOMPLETE_SPEC", "0 0 * * *")

	v.SetDefault("ENABLE_SCHEDULE_CACHE", false)
	v.SetDefault("SCHEDULE_CACHE_TTL", "5m")
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
