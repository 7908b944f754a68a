package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the orchestrator.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Orchestrator OrchestratorConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name    string
	Env     string
	Host    string
	Port    string
	Version string
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

// AuthConfig defines authentication parameters for the ops endpoints.
type AuthConfig struct {
	JWTSecret string
}

// OrchestratorConfig controls tick cadence and the overlap guard.
type OrchestratorConfig struct {
	TickIntervalSeconds int
	TickTimeoutSeconds  int
	LeaseTTLSeconds     int
	TicketBaseURL       string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "ops-orchestrator"),
			Env:     getEnv("APP_ENV", "development"),
			Host:    getEnv("APP_HOST", "0.0.0.0"),
			Port:    getEnv("APP_PORT", "8081"),
			Version: getEnv("APP_VERSION", "dev"),
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
			JWTSecret: getEnv("AUTH_JWT_SECRET", "dev-secret"),
		},
		Orchestrator: OrchestratorConfig{
			TickIntervalSeconds: getEnvAsInt("ORCH_TICK_INTERVAL_SECONDS", 60),
			TickTimeoutSeconds:  getEnvAsInt("ORCH_TICK_TIMEOUT_SECONDS", 120),
			LeaseTTLSeconds:     getEnvAsInt("ORCH_LEASE_TTL_SECONDS", 240),
			TicketBaseURL:       getEnv("ORCH_TICKET_BASE_URL", "https://ops.example.com/tickets"),
		},
	}

	if cfg.Orchestrator.TickIntervalSeconds <= 0 {
		return nil, fmt.Errorf("ORCH_TICK_INTERVAL_SECONDS must be positive")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// TickInterval returns the configured cadence between ticks.
func (o OrchestratorConfig) TickInterval() time.Duration {
	return time.Duration(o.TickIntervalSeconds) * time.Second
}

// TickTimeout returns the per-tick deadline; zero disables it.
func (o OrchestratorConfig) TickTimeout() time.Duration {
	if o.TickTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(o.TickTimeoutSeconds) * time.Second
}

// LeaseTTL returns how long the tick lease is held before expiring on its own.
func (o OrchestratorConfig) LeaseTTL() time.Duration {
	if o.LeaseTTLSeconds <= 0 {
		return 4 * time.Minute
	}
	return time.Duration(o.LeaseTTLSeconds) * time.Second
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
