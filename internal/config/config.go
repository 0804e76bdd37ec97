package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const minJWTSecretLength = 32

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Security  SecurityConfig
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

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines session and login parameters.
type AuthConfig struct {
	JWTSecret             string
	SessionTTLMinutes     int
	SessionMaxAgeMinutes  int
	BcryptCost            int
	AllowLoopbackMismatch bool
}

// RateLimitConfig tunes the login limiter and the global API throttle.
type RateLimitConfig struct {
	Backend                string
	LoginMaxAttempts       int
	LoginWindowMinutes     int
	CleanupIntervalSeconds int
	APIMaxRequests         int
	APIWindowSeconds       int
}

// SecurityConfig holds response header policy.
type SecurityConfig struct {
	ContentSecurityPolicy string
	ReferrerPolicy        string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	env := getEnv("APP_ENV", "development")
	production := strings.EqualFold(env, "production")

	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		if production {
			return nil, errors.New("AUTH_JWT_SECRET must be set in production")
		}
		secret = "dev-only-secret-do-not-use-in-production"
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "school-portal"),
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
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             secret,
			SessionTTLMinutes:     getEnvAsInt("AUTH_SESSION_TTL_MINUTES", 24*60),
			SessionMaxAgeMinutes:  getEnvAsInt("AUTH_SESSION_MAX_AGE_MINUTES", 24*60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AllowLoopbackMismatch: getEnvAsBool("AUTH_ALLOW_LOOPBACK_MISMATCH", !production),
		},
		RateLimit: RateLimitConfig{
			Backend:                strings.ToLower(getEnv("RATE_LIMIT_BACKEND", "memory")),
			LoginMaxAttempts:       getEnvAsInt("RATE_LIMIT_LOGIN_MAX_ATTEMPTS", 5),
			LoginWindowMinutes:     getEnvAsInt("RATE_LIMIT_LOGIN_WINDOW_MINUTES", 15),
			CleanupIntervalSeconds: getEnvAsInt("RATE_LIMIT_CLEANUP_INTERVAL_SECONDS", 300),
			APIMaxRequests:         getEnvAsInt("RATE_LIMIT_API_MAX_REQUESTS", 100),
			APIWindowSeconds:       getEnvAsInt("RATE_LIMIT_API_WINDOW_SECONDS", 60),
		},
		Security: SecurityConfig{
			ContentSecurityPolicy: getEnv("SECURITY_CSP", defaultCSP),
			ReferrerPolicy:        getEnv("SECURITY_REFERRER_POLICY", "strict-origin-when-cross-origin"),
		},
	}

	if cfg.RateLimit.Backend != "memory" && cfg.RateLimit.Backend != "redis" {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BACKEND %q", cfg.RateLimit.Backend)
	}

	return cfg, nil
}

const defaultCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data: https:; font-src 'self' data:; connect-src 'self'; frame-ancestors 'none'"

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsProduction reports whether the service runs with production hardening.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SessionTTL is the lifetime written into the token's exp claim.
func (a AuthConfig) SessionTTL() time.Duration {
	return minutesOr(a.SessionTTLMinutes, 24*time.Hour)
}

// SessionMaxAge bounds the token age measured from iat, regardless of exp.
func (a AuthConfig) SessionMaxAge() time.Duration {
	return minutesOr(a.SessionMaxAgeMinutes, 24*time.Hour)
}

// WeakSecret reports whether the JWT secret is shorter than recommended.
func (a AuthConfig) WeakSecret() bool {
	return len(a.JWTSecret) < minJWTSecretLength
}

// LoginWindow returns the sliding window used for login throttling.
func (r RateLimitConfig) LoginWindow() time.Duration {
	return minutesOr(r.LoginWindowMinutes, 15*time.Minute)
}

// CleanupInterval returns how often the in-memory store evicts stale keys.
func (r RateLimitConfig) CleanupInterval() time.Duration {
	if r.CleanupIntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(r.CleanupIntervalSeconds) * time.Second
}

// APIWindow returns the global API throttle window.
func (r RateLimitConfig) APIWindow() time.Duration {
	if r.APIWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(r.APIWindowSeconds) * time.Second
}

func minutesOr(minutes int, fallback time.Duration) time.Duration {
	if minutes <= 0 {
		return fallback
	}
	return time.Duration(minutes) * time.Minute
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
