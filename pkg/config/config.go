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

	Redis   RedisConfig
	CORS    CORSConfig
	Log     LogConfig
	Data    DataConfig
	Matcher MatcherConfig
	Runs    RunsConfig
	Bundles BundlesConfig
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

// DataConfig points at the static dataset directories (rooms, mappings,
// QP PDFs, remark templates) loaded at startup.
type DataConfig struct {
	BaseDir         string
	DefaultCategory string
}

// MatcherConfig selects how PDF-derived subject names are resolved against
// the mapping table.
type MatcherConfig struct {
	Strategy       string
	FuzzyThreshold float64
}

// RunsConfig controls seating run result caching.
type RunsConfig struct {
	ResultTTL time.Duration
}

// BundlesConfig tunes QP bundle assembly and download links.
type BundlesConfig struct {
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	WorkerConcurrency int
	WorkerRetries     int
	MaxSourcePages    int
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

	cfg.Data = DataConfig{
		BaseDir:         v.GetString("DATA_BASE_DIR"),
		DefaultCategory: v.GetString("DATA_DEFAULT_CATEGORY"),
	}

	cfg.Matcher = MatcherConfig{
		Strategy:       v.GetString("MATCHER_STRATEGY"),
		FuzzyThreshold: v.GetFloat64("MATCHER_FUZZY_THRESHOLD"),
	}

	cfg.Runs = RunsConfig{
		ResultTTL: parseDuration(v.GetString("RUNS_RESULT_TTL"), 2*time.Hour),
	}

	cfg.Bundles = BundlesConfig{
		StorageDir:        v.GetString("BUNDLES_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("BUNDLES_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("BUNDLES_SIGNED_URL_TTL"), 24*time.Hour),
		WorkerConcurrency: v.GetInt("BUNDLES_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("BUNDLES_WORKER_RETRIES"),
		MaxSourcePages:    v.GetInt("BUNDLES_MAX_SOURCE_PAGES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DATA_BASE_DIR", "./data")
	v.SetDefault("DATA_DEFAULT_CATEGORY", "UG")

	v.SetDefault("MATCHER_STRATEGY", "exact")
	v.SetDefault("MATCHER_FUZZY_THRESHOLD", 0.7)

	v.SetDefault("RUNS_RESULT_TTL", "2h")

	v.SetDefault("BUNDLES_STORAGE_DIR", "./bundles")
	v.SetDefault("BUNDLES_SIGNED_URL_SECRET", "dev_bundles_secret")
	v.SetDefault("BUNDLES_SIGNED_URL_TTL", "24h")
	v.SetDefault("BUNDLES_WORKER_CONCURRENCY", 1)
	v.SetDefault("BUNDLES_WORKER_RETRIES", 3)
	v.SetDefault("BUNDLES_MAX_SOURCE_PAGES", 0)
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
