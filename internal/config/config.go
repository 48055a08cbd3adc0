package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	defaultSessionTTL = 7 * 24 * time.Hour
)

type Config struct {
	AppEnv   string
	HTTPAddr string
	LogLevel string

	DatabaseURL string

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	SessionKeyPrefix string

	SecretToken string
	JWTIssuer   string
	JWTAudience string
	SessionTTL  time.Duration

	LoginRateLimitRPM int
	APIRateLimitRPM   int

	ShutdownTimeout          time.Duration
	ShutdownHTTPDrainTimeout time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
}

// LoadError tags a failed Load with the stage that rejected it: env_file,
// parse or validation.
type LoadError struct {
	Stage string
	Err   error
}

func (e *LoadError) Error() string { return e.Err.Error() }

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads the process environment, after merging an optional .env file
// underneath it. Values already present in the environment win. Every
// outcome is counted on config.load.events.
func Load() (cfg *Config, err error) {
	defer func() {
		profile := os.Getenv("APP_ENV")
		if cfg != nil {
			profile = cfg.AppEnv
		}
		recordLoad(context.Background(), profile, err)
	}()

	if err := loadEnvFile(os.Getenv("ENV_FILE")); err != nil {
		return nil, &LoadError{Stage: "env_file", Err: err}
	}
	loaded, err := fromEnv()
	if err != nil {
		return nil, &LoadError{Stage: "parse", Err: err}
	}
	if err := loaded.Validate(); err != nil {
		return nil, &LoadError{Stage: "validation", Err: err}
	}
	return loaded, nil
}

var loadCounter = sync.OnceValue(func() metric.Int64Counter {
	counter, err := otel.Meter("admin-dashboard/config").Int64Counter("config.load.events")
	if err != nil {
		return nil
	}
	return counter
})

func recordLoad(ctx context.Context, profile string, err error) {
	counter := loadCounter()
	if counter == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", loadProfile(profile)),
		attribute.String("outcome", outcome),
		attribute.String("stage", loadStage(err)),
	))
}

func loadProfile(profile string) string {
	if v := strings.ToLower(strings.TrimSpace(profile)); v != "" {
		return v
	}
	return "unknown"
}

func loadStage(err error) string {
	if err == nil {
		return "none"
	}
	var le *LoadError
	if errors.As(err, &le) {
		return le.Stage
	}
	return "load"
}

func loadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func fromEnv() (*Config, error) {
	var err error
	cfg := &Config{
		AppEnv:                   strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		DatabaseURL:              getEnv("DATABASE_URL", "sqlite://dashboard.db"),
		RedisAddr:                getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		SessionKeyPrefix:         getEnv("SESSION_KEY_PREFIX", "session"),
		SecretToken:              os.Getenv("SECRET_TOKEN"),
		JWTIssuer:                getEnv("JWT_ISSUER", "admin-dashboard"),
		JWTAudience:              getEnv("JWT_AUDIENCE", "admin-dashboard"),
		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "admin-dashboard"),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
	cfg.OTELEnvironment = getEnv("OTEL_ENVIRONMENT", cfg.AppEnv)

	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", defaultSessionTTL); err != nil {
		return nil, err
	}
	if cfg.LoginRateLimitRPM, err = getInt("LOGIN_RATE_LIMIT_RPM", 10); err != nil {
		return nil, err
	}
	if cfg.APIRateLimitRPM, err = getInt("API_RATE_LIMIT_RPM", 600); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownHTTPDrainTimeout, err = getDuration("SHUTDOWN_HTTP_DRAIN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.OTELExporterOTLPInsecure, err = getBool("OTEL_EXPORTER_OTLP_INSECURE", true); err != nil {
		return nil, err
	}
	if cfg.OTELMetricsEnabled, err = getBool("OTEL_METRICS_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OTELTracingEnabled, err = getBool("OTEL_TRACING_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OTELLogsEnabled, err = getBool("OTEL_LOGS_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OTELMetricsExportInterval, err = getDuration("OTEL_METRICS_EXPORT_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.OTELTraceSamplingRatio, err = getFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var problems []string
	switch c.AppEnv {
	case EnvDevelopment, EnvProduction:
	default:
		problems = append(problems, fmt.Sprintf("APP_ENV must be %q or %q", EnvDevelopment, EnvProduction))
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if strings.TrimSpace(c.RedisAddr) == "" {
		problems = append(problems, "REDIS_ADDR is required")
	}
	if c.SessionTTL <= 0 {
		problems = append(problems, "SESSION_TTL must be positive")
	}
	if c.IsProduction() && len(c.SecretToken) < 32 {
		problems = append(problems, "SECRET_TOKEN must be at least 32 bytes in production")
	}
	if c.LoginRateLimitRPM <= 0 || c.APIRateLimitRPM <= 0 {
		problems = append(problems, "rate limits must be positive")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		problems = append(problems, "OTEL_TRACE_SAMPLING_RATIO must be within [0,1]")
	}
	if len(problems) > 0 {
		return fmt.Errorf("validate config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.AppEnv == EnvProduction }

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}
