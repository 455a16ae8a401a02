package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env"

	"github.com/eaglepoint-labs/elevator-group-control/internal/constants"
	"github.com/eaglepoint-labs/elevator-group-control/internal/domain"
)

// Config is the application configuration, loaded from the environment.
type Config struct {
	// Environment and basic settings
	Environment string `env:"ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`

	// Server configuration
	Port            int           `env:"PORT" envDefault:"6660"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	ShutdownGrace   time.Duration `env:"SERVER_SHUTDOWN_GRACE" envDefault:"2s"`

	// Building / car-bank configuration (spec §6 tunables)
	NumCars        int           `env:"N_CARS" envDefault:"4"`
	MinFloor       int           `env:"MIN_FLOOR" envDefault:"-4"`
	MaxFloor       int           `env:"MAX_FLOOR" envDefault:"40"`
	Capacity       int           `env:"CAPACITY" envDefault:"18"`
	FloorTime      time.Duration `env:"FLOOR_TIME" envDefault:"200ms"`
	Dwell          time.Duration `env:"DWELL" envDefault:"500ms"`
	SchedulePeriod time.Duration `env:"SCHEDULE_PERIOD" envDefault:"5000ms"`
	MotionPeriod   time.Duration `env:"MOTION_PERIOD" envDefault:"5000ms"`
	WaitCap        int           `env:"WAIT_CAP" envDefault:"30"`
	MaxCars        int           `env:"MAX_CARS" envDefault:"64"`
	CarNamePrefix  string        `env:"CAR_NAME_PREFIX" envDefault:"car"`

	RequestTimeout     time.Duration `env:"BUS_REQUEST_TIMEOUT" envDefault:"5s"`
	HealthCheckTimeout time.Duration `env:"HEALTH_CHECK_TIMEOUT" envDefault:"2s"`

	// HTTP Configuration
	RateLimitRPM       int           `env:"RATE_LIMIT_RPM" envDefault:"100"`
	RateLimitWindow    time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	RateLimitCleanup   time.Duration `env:"RATE_LIMIT_CLEANUP" envDefault:"5m"`
	MaxRequestSize     int64         `env:"MAX_REQUEST_SIZE" envDefault:"1048576"`
	RequestTimeoutHTTP time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	CORSEnabled        bool          `env:"CORS_ENABLED" envDefault:"true"`
	CORSMaxAge         time.Duration `env:"CORS_MAX_AGE" envDefault:"12h"`
	CORSAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Monitoring
	MetricsEnabled       bool          `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsPath          string        `env:"METRICS_PATH" envDefault:"/metrics"`
	StatusUpdateInterval time.Duration `env:"STATUS_UPDATE_INTERVAL" envDefault:"1s"`
	HealthEnabled        bool          `env:"HEALTH_ENABLED" envDefault:"true"`
	HealthPath           string        `env:"HEALTH_PATH" envDefault:"/health"`
	StructuredLogging    bool          `env:"STRUCTURED_LOGGING" envDefault:"true"`
	LogRequestDetails    bool          `env:"LOG_REQUEST_DETAILS" envDefault:"false"`
	CorrelationIDHeader  string        `env:"CORRELATION_ID_HEADER" envDefault:"X-Request-ID"`
	TracingEnabled       bool          `env:"TRACING_ENABLED" envDefault:"false"`

	// Circuit Breaker (guards calls into the bus, see internal/resilience)
	CircuitBreakerEnabled       bool          `env:"CIRCUIT_BREAKER_ENABLED" envDefault:"true"`
	CircuitBreakerMaxFailures   int           `env:"CIRCUIT_BREAKER_MAX_FAILURES" envDefault:"5"`
	CircuitBreakerResetTimeout  time.Duration `env:"CIRCUIT_BREAKER_RESET_TIMEOUT" envDefault:"30s"`
	CircuitBreakerHalfOpenLimit int           `env:"CIRCUIT_BREAKER_HALF_OPEN_LIMIT" envDefault:"3"`

	// WebSocket
	WebSocketEnabled        bool          `env:"WEBSOCKET_ENABLED" envDefault:"true"`
	WebSocketPath           string        `env:"WEBSOCKET_PATH" envDefault:"/ws/status"`
	WebSocketWriteTimeout   time.Duration `env:"WEBSOCKET_WRITE_TIMEOUT" envDefault:"5s"`
	WebSocketReadTimeout    time.Duration `env:"WEBSOCKET_READ_TIMEOUT" envDefault:"60s"`
	WebSocketPingInterval   time.Duration `env:"WEBSOCKET_PING_INTERVAL" envDefault:"30s"`
	WebSocketMaxConnections int           `env:"WEBSOCKET_MAX_CONNECTIONS" envDefault:"1000"`
	WebSocketBufferSize     int           `env:"WEBSOCKET_BUFFER_SIZE" envDefault:"1024"`
}

// InitConfig loads configuration from the environment, applies
// environment-specific overrides, and validates the result.
func InitConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	applyEnvironmentDefaults(&cfg)

	if err := validateConfiguration(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func applyEnvironmentDefaults(cfg *Config) {
	switch cfg.Environment {
	case "development", "dev":
		applyDevelopmentDefaults(cfg)
	case "testing", "test":
		applyTestingDefaults(cfg)
	case "production", "prod":
		applyProductionDefaults(cfg)
	}
}

func applyDevelopmentDefaults(cfg *Config) {
	if cfg.LogLevel == "INFO" {
		cfg.LogLevel = "DEBUG"
	}
	cfg.LogRequestDetails = true
}

func applyTestingDefaults(cfg *Config) {
	cfg.LogLevel = "WARN"

	// Fast motion timing so acceptance tests don't wait on real-world floor
	// travel times.
	cfg.FloorTime = 10 * time.Millisecond
	cfg.Dwell = 10 * time.Millisecond
	cfg.SchedulePeriod = 200 * time.Millisecond
	cfg.MotionPeriod = 200 * time.Millisecond

	cfg.RequestTimeout = 200 * time.Millisecond
	cfg.HealthCheckTimeout = 200 * time.Millisecond

	cfg.ReadTimeout = 2 * time.Second
	cfg.WriteTimeout = 2 * time.Second
	cfg.IdleTimeout = 10 * time.Second
	cfg.RequestTimeoutHTTP = 1 * time.Second

	cfg.MetricsEnabled = false
	cfg.WebSocketEnabled = false
	cfg.LogRequestDetails = false

	cfg.RateLimitRPM = 1000
	cfg.MaxCars = 5
	cfg.WebSocketMaxConnections = 5
	cfg.MaxRequestSize = 256 * 1024

	cfg.CircuitBreakerMaxFailures = 1
	cfg.CircuitBreakerResetTimeout = 5 * time.Second
}

func applyProductionDefaults(cfg *Config) {
	cfg.LogLevel = "WARN"
	cfg.LogRequestDetails = false

	cfg.RateLimitRPM = 30

	cfg.ReadTimeout = 15 * time.Second
	cfg.WriteTimeout = 15 * time.Second
	cfg.IdleTimeout = 60 * time.Second
	cfg.RequestTimeoutHTTP = 10 * time.Second

	cfg.RequestTimeout = 3 * time.Second
	cfg.HealthCheckTimeout = 1 * time.Second

	cfg.WebSocketMaxConnections = 5000
	cfg.WebSocketWriteTimeout = 2 * time.Second
	cfg.WebSocketReadTimeout = 30 * time.Second
	cfg.WebSocketPingInterval = 15 * time.Second

	cfg.CircuitBreakerMaxFailures = 2
	cfg.CircuitBreakerResetTimeout = 10 * time.Second

	cfg.CORSAllowedOrigins = "https://app.example.com"
	cfg.MaxRequestSize = 512 * 1024
	cfg.MaxCars = 200
}

func validateConfiguration(cfg *Config) error {
	if cfg.MinFloor >= cfg.MaxFloor {
		return domain.NewValidationError("min floor must be less than max floor", nil).
			WithContext("min_floor", cfg.MinFloor).
			WithContext("max_floor", cfg.MaxFloor)
	}
	if cfg.MinFloor < constants.MinAllowedFloor {
		return domain.NewValidationError("min floor is below system minimum", nil).
			WithContext("min_floor", cfg.MinFloor).
			WithContext("system_minimum", constants.MinAllowedFloor)
	}
	if cfg.MaxFloor > constants.MaxAllowedFloor {
		return domain.NewValidationError("max floor exceeds system maximum", nil).
			WithContext("max_floor", cfg.MaxFloor).
			WithContext("system_maximum", constants.MaxAllowedFloor)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return domain.NewValidationError("port must be between 1 and 65535", nil).
			WithContext("port", cfg.Port)
	}
	if cfg.FloorTime <= 0 {
		return domain.NewValidationError("floor time must be positive", nil).
			WithContext("duration", cfg.FloorTime)
	}
	if cfg.NumCars <= 0 || cfg.NumCars > cfg.MaxCars {
		return domain.NewValidationError("num cars must be between 1 and max cars", nil).
			WithContext("num_cars", cfg.NumCars).
			WithContext("max_cars", cfg.MaxCars)
	}
	if cfg.Capacity <= 0 || cfg.Capacity > 1000 {
		return domain.NewValidationError("capacity must be between 1 and 1000", nil).
			WithContext("capacity", cfg.Capacity)
	}
	if cfg.WaitCap <= 0 || cfg.WaitCap > 10000 {
		return domain.NewValidationError("wait cap must be between 1 and 10000", nil).
			WithContext("wait_cap", cfg.WaitCap)
	}

	return validateEnvironmentSpecificConfig(cfg)
}

func validateEnvironmentSpecificConfig(cfg *Config) error {
	if cfg.IsProduction() {
		if cfg.CORSAllowedOrigins == "*" {
			return domain.NewValidationError("CORS wildcard not allowed in production", nil).
				WithContext("environment", cfg.Environment)
		}
		if cfg.RateLimitRPM > 100 {
			return domain.NewValidationError("rate limit too high for production", nil).
				WithContext("environment", cfg.Environment).
				WithContext("rate_limit", cfg.RateLimitRPM)
		}
	}

	if cfg.IsTesting() {
		if cfg.WebSocketEnabled {
			return domain.NewValidationError("WebSocket should be disabled in testing environment", nil).
				WithContext("environment", cfg.Environment)
		}
		if cfg.MetricsEnabled {
			return domain.NewValidationError("metrics should be disabled in testing environment", nil).
				WithContext("environment", cfg.Environment)
		}
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// IsTesting returns true if running in testing environment
func (c *Config) IsTesting() bool {
	return c.Environment == "testing" || c.Environment == "test"
}

// GetEnvironmentInfo returns environment information for logging/debugging
func (c *Config) GetEnvironmentInfo() map[string]interface{} {
	return map[string]interface{}{
		"environment":             c.Environment,
		"log_level":               c.LogLevel,
		"port":                    c.Port,
		"metrics_enabled":         c.MetricsEnabled,
		"websocket_enabled":       c.WebSocketEnabled,
		"circuit_breaker_enabled": c.CircuitBreakerEnabled,
		"num_cars":                c.NumCars,
	}
}
