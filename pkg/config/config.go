package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Cooldown backends supported by the report intake limiter.
const (
	CooldownBackendMemory = "memory"
	CooldownBackendRedis  = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Reports    ReportsConfig
	Resolver   ResolverConfig
	Timeline   TimelineConfig
	Assignment AssignmentConfig
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ReportsConfig tunes crowd report intake.
type ReportsConfig struct {
	Cooldown            time.Duration
	CooldownEvictFactor int
	CooldownBackend     string
	FingerprintSecret   string
}

// ResolverConfig holds the representative date scoring constants.
type ResolverConfig struct {
	OfficialBonus int
	MaxPasses     int
}

// TimelineConfig governs timeline caching and fan-out.
type TimelineConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	Fanout       int
	PDFFontPath  string
}

// AssignmentConfig configures the background batch promotion worker.
type AssignmentConfig struct {
	Workers   int
	Retries   int
	BatchSize int
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
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	evictFactor := v.GetInt("REPORT_COOLDOWN_EVICT_FACTOR")
	if evictFactor <= 0 {
		evictFactor = 10
	}
	cfg.Reports = ReportsConfig{
		Cooldown:            parseDuration(v.GetString("REPORT_COOLDOWN"), 30*time.Second),
		CooldownEvictFactor: evictFactor,
		CooldownBackend:     strings.ToLower(v.GetString("REPORT_COOLDOWN_BACKEND")),
		FingerprintSecret:   v.GetString("REPORT_FINGERPRINT_SECRET"),
	}

	cfg.Resolver = ResolverConfig{
		OfficialBonus: v.GetInt("RESOLVER_OFFICIAL_BONUS"),
		MaxPasses:     v.GetInt("RESOLVER_MAX_PASSES"),
	}

	cfg.Timeline = TimelineConfig{
		CacheEnabled: v.GetBool("TIMELINE_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("TIMELINE_CACHE_TTL"), 10*time.Minute),
		Fanout:       v.GetInt("TIMELINE_FANOUT"),
		PDFFontPath:  strings.TrimSpace(v.GetString("EXPORT_PDF_FONT_PATH")),
	}

	cfg.Assignment = AssignmentConfig{
		Workers:   v.GetInt("ASSIGNMENT_WORKERS"),
		Retries:   v.GetInt("ASSIGNMENT_RETRIES"),
		BatchSize: v.GetInt("ASSIGNMENT_BATCH_SIZE"),
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
	v.SetDefault("DB_NAME", "recruit_timeline")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "recruit-timeline")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REPORT_COOLDOWN", "30s")
	v.SetDefault("REPORT_COOLDOWN_EVICT_FACTOR", 10)
	v.SetDefault("REPORT_COOLDOWN_BACKEND", CooldownBackendMemory)
	v.SetDefault("REPORT_FINGERPRINT_SECRET", "dev_fingerprint_secret")

	v.SetDefault("RESOLVER_OFFICIAL_BONUS", 5)
	v.SetDefault("RESOLVER_MAX_PASSES", 5)

	v.SetDefault("TIMELINE_CACHE_ENABLED", false)
	v.SetDefault("TIMELINE_CACHE_TTL", "10m")
	v.SetDefault("TIMELINE_FANOUT", 4)

	v.SetDefault("ASSIGNMENT_WORKERS", 1)
	v.SetDefault("ASSIGNMENT_RETRIES", 3)
	v.SetDefault("ASSIGNMENT_BATCH_SIZE", 100)
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
