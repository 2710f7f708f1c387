package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment tags recognized in APP_ENV.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Cache    CacheConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Quota    QuotaConfig
	LLM      LLMConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// CacheConfig selects the cache backend. An empty URL means the in-process
// backend outside production and a startup failure in production.
type CacheConfig struct {
	RedisURL   string
	MaxEntries int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	RefreshTokenTTLHours  int
	BcryptCost            int
}

// QuotaConfig holds per-tier daily request quotas. Analysis operations carry
// their own, lower quotas reflecting the cost of LLM-backed endpoints.
type QuotaConfig struct {
	Free          int
	Tier1         int
	Tier2         int
	AnalysisFree  int
	AnalysisTier1 int
	AnalysisTier2 int
	Anonymous     int
}

// LLMConfig points at the chat-completion provider the agents call.
type LLMConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	TimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("APP_ENV", EnvDevelopment)
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return nil, fmt.Errorf("invalid APP_ENV: %q", env)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "gtm-advisor"),
			Env:                   env,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Cache: CacheConfig{
			RedisURL:   os.Getenv("REDIS_URL"),
			MaxEntries: getEnvAsInt("CACHE_MAX_ENTRIES", 10000),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 30),
			RefreshTokenTTLHours:  getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_HOURS", 168),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Quota: QuotaConfig{
			Free:          getEnvAsInt("QUOTA_FREE", 50),
			Tier1:         getEnvAsInt("QUOTA_TIER1", 500),
			Tier2:         getEnvAsInt("QUOTA_TIER2", 5000),
			AnalysisFree:  getEnvAsInt("QUOTA_ANALYSIS_FREE", 3),
			AnalysisTier1: getEnvAsInt("QUOTA_ANALYSIS_TIER1", 25),
			AnalysisTier2: getEnvAsInt("QUOTA_ANALYSIS_TIER2", 200),
			Anonymous:     getEnvAsInt("QUOTA_ANONYMOUS", 20),
		},
		LLM: LLMConfig{
			BaseURL:        getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:         os.Getenv("LLM_API_KEY"),
			Model:          getEnv("LLM_MODEL", "gpt-4o-mini"),
			TimeoutSeconds: getEnvAsInt("LLM_TIMEOUT_SECONDS", 60),
		},
	}

	if cfg.App.Env == EnvProduction && cfg.Auth.JWTSecret == "dev-secret" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET must be set in production")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsProduction reports whether the service runs with production policies.
func (a AppConfig) IsProduction() bool {
	return a.Env == EnvProduction
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the access token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token lifetime.
func (a AuthConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(a.RefreshTokenTTLHours) * time.Hour
}

// Timeout returns the outbound LLM request timeout.
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
