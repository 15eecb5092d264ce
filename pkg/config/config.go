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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database        DatabaseConfig
	Redis           RedisConfig
	CORS            CORSConfig
	Log             LogConfig
	Catalog         CatalogConfig
	Recommendations RecommendationConfig
	Sessions        SessionConfig
	Ingestion       IngestionConfig
	LLM             LLMConfig
	Advisor         AdvisorConfig
}

type DatabaseConfig struct {
	Enabled      bool
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

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CatalogConfig points at the curriculum definition. An empty path selects the
// embedded LILEI curriculum.
type CatalogConfig struct {
	Path string
}

// RecommendationConfig bounds the credit cap accepted by the recommendation engine.
type RecommendationConfig struct {
	DefaultCreditCap int
	MaxCreditCap     int
}

// SessionConfig governs student session lifetime and token signing.
type SessionConfig struct {
	TokenSecret   string
	TTL           time.Duration
	SweepSchedule string
	CacheEnabled  bool
}

// IngestionConfig tunes transcript upload processing.
type IngestionConfig struct {
	Workers        int
	QueueSize      int
	MaxUploadBytes int64
	MinTextChars   int
	Timeout        time.Duration
}

// LLMConfig configures the text-understanding service used for transcripts
// and course descriptions.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// AdvisorConfig governs course description enrichment.
type AdvisorConfig struct {
	CacheTTL time.Duration
	Fallback string
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
		Enabled:      v.GetBool("ENABLE_INGESTION_AUDIT"),
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
		Enabled:  v.GetBool("ENABLE_REDIS"),
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

	cfg.Catalog = CatalogConfig{Path: v.GetString("CATALOG_PATH")}

	maxCap := v.GetInt("CREDIT_CAP_MAX")
	if maxCap <= 0 {
		maxCap = 21
	}
	defaultCap := v.GetInt("CREDIT_CAP_DEFAULT")
	if defaultCap <= 0 || defaultCap > maxCap {
		defaultCap = maxCap
	}
	cfg.Recommendations = RecommendationConfig{
		DefaultCreditCap: defaultCap,
		MaxCreditCap:     maxCap,
	}

	cfg.Sessions = SessionConfig{
		TokenSecret:   v.GetString("SESSION_TOKEN_SECRET"),
		TTL:           parseDuration(v.GetString("SESSION_TTL"), 12*time.Hour),
		SweepSchedule: v.GetString("SESSION_SWEEP_SCHEDULE"),
		CacheEnabled:  v.GetBool("ENABLE_SESSION_CACHE"),
	}

	maxUpload := v.GetInt64("INGESTION_MAX_UPLOAD_BYTES")
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}
	cfg.Ingestion = IngestionConfig{
		Workers:        v.GetInt("INGESTION_WORKERS"),
		QueueSize:      v.GetInt("INGESTION_QUEUE_SIZE"),
		MaxUploadBytes: maxUpload,
		MinTextChars:   v.GetInt("INGESTION_MIN_TEXT_CHARS"),
		Timeout:        parseDuration(v.GetString("INGESTION_TIMEOUT"), 2*time.Minute),
	}

	cfg.LLM = LLMConfig{
		APIKey:  v.GetString("LLM_API_KEY"),
		BaseURL: v.GetString("LLM_BASE_URL"),
		Model:   v.GetString("LLM_MODEL"),
		Timeout: parseDuration(v.GetString("LLM_TIMEOUT"), 90*time.Second),
	}

	cfg.Advisor = AdvisorConfig{
		CacheTTL: parseDuration(v.GetString("ADVISOR_CACHE_TTL"), 24*time.Hour),
		Fallback: v.GetString("ADVISOR_FALLBACK_TEXT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("ENABLE_INGESTION_AUDIT", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "malla")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CATALOG_PATH", "")
	v.SetDefault("CREDIT_CAP_DEFAULT", 21)
	v.SetDefault("CREDIT_CAP_MAX", 21)

	v.SetDefault("SESSION_TOKEN_SECRET", "dev_session_secret")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("SESSION_SWEEP_SCHEDULE", "@every 10m")
	v.SetDefault("ENABLE_SESSION_CACHE", false)

	v.SetDefault("INGESTION_WORKERS", 2)
	v.SetDefault("INGESTION_QUEUE_SIZE", 16)
	v.SetDefault("INGESTION_MAX_UPLOAD_BYTES", 10*1024*1024)
	v.SetDefault("INGESTION_MIN_TEXT_CHARS", 50)
	v.SetDefault("INGESTION_TIMEOUT", "2m")

	v.SetDefault("LLM_API_KEY", "")
	v.SetDefault("LLM_BASE_URL", "https://generativelanguage.googleapis.com")
	v.SetDefault("LLM_MODEL", "gemini-3-flash-preview")
	v.SetDefault("LLM_TIMEOUT", "90s")

	v.SetDefault("ADVISOR_CACHE_TTL", "24h")
	v.SetDefault("ADVISOR_FALLBACK_TEXT", "No study recommendations are available right now.")
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
