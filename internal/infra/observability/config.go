// Package observability provides telemetry infrastructure for the car-dispatch
// service: OpenTelemetry tracing/metrics wiring plus the structured-log
// fields every request carries, using OpenTelemetry standards throughout.
package observability

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ObservabilityConfig contains configuration for all observability components
type ObservabilityConfig struct {
	// Core settings
	Enabled     bool   `env:"OBSERVABILITY_ENABLED" envDefault:"true"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"car-dispatch"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Version     string `env:"SERVICE_VERSION" envDefault:"1.0.0"`

	// OpenTelemetry settings
	OTel OTelConfig `envPrefix:"OTEL_"`

	// Metrics configuration
	Metrics MetricsConfig `envPrefix:"METRICS_"`

	// Logging configuration
	Logging LoggingConfig `envPrefix:"LOGGING_"`

	// Tracing configuration
	Tracing TracingConfig `envPrefix:"TRACING_"`
}

// OTelConfig contains OpenTelemetry-specific configuration
type OTelConfig struct {
	Enabled            bool          `env:"ENABLED" envDefault:"true"`
	ExporterType       string        `env:"EXPORTER_TYPE" envDefault:"prometheus"` // prometheus, otlp
	ExporterEndpoint   string        `env:"EXPORTER_ENDPOINT" envDefault:""`       // OTLP endpoint
	ExporterTimeout    time.Duration `env:"EXPORTER_TIMEOUT" envDefault:"10s"`
	BatchTimeout       time.Duration `env:"BATCH_TIMEOUT" envDefault:"5s"`
	MaxExportBatchSize int           `env:"MAX_EXPORT_BATCH_SIZE" envDefault:"512"`
	ExportInterval     time.Duration `env:"EXPORT_INTERVAL" envDefault:"5s"`
	ResourceAttributes string        `env:"RESOURCE_ATTRIBUTES" envDefault:""`
	Insecure           bool          `env:"INSECURE" envDefault:"false"`
	SamplingRatio      float64       `env:"SAMPLING_RATIO" envDefault:"1.0"`
}

// MetricsConfig contains metrics-specific configuration
type MetricsConfig struct {
	Enabled        bool   `env:"ENABLED" envDefault:"true"`
	Port           int    `env:"PORT" envDefault:"8080"`
	Path           string `env:"PATH" envDefault:"/metrics"`
	Namespace      string `env:"NAMESPACE" envDefault:"dispatch"`
	CustomLabels   string `env:"CUSTOM_LABELS" envDefault:""`
	DisableBuiltIn bool   `env:"DISABLE_BUILTIN" envDefault:"false"`
}

// LoggingConfig contains logging-specific configuration
type LoggingConfig struct {
	Enabled         bool          `env:"ENABLED" envDefault:"true"`
	Level           string        `env:"LEVEL" envDefault:"info"`
	Format          string        `env:"FORMAT" envDefault:"json"`
	Output          string        `env:"OUTPUT" envDefault:"stdout"`
	AddSource       bool          `env:"ADD_SOURCE" envDefault:"false"`
	SampleRate      int           `env:"SAMPLE_RATE" envDefault:"1"`
	FlushInterval   time.Duration `env:"FLUSH_INTERVAL" envDefault:"5s"`
	StructuredExtra string        `env:"STRUCTURED_EXTRA" envDefault:""`
}

// TracingConfig contains tracing-specific configuration
type TracingConfig struct {
	Enabled       bool          `env:"ENABLED" envDefault:"true"`
	SamplingRatio float64       `env:"SAMPLING_RATIO" envDefault:"1.0"`
	MaxAttributes int           `env:"MAX_ATTRIBUTES" envDefault:"64"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"10s"`
	BatchSize     int           `env:"BATCH_SIZE" envDefault:"128"`
}

// LoadObservabilityConfig loads observability configuration from environment variables
func LoadObservabilityConfig() (*ObservabilityConfig, error) {
	config := &ObservabilityConfig{
		Enabled:     getBoolEnv("OBSERVABILITY_ENABLED", true),
		ServiceName: getStringEnv("SERVICE_NAME", "car-dispatch"),
		Environment: getStringEnv("ENVIRONMENT", "development"),
		Version:     getStringEnv("SERVICE_VERSION", "1.0.0"),
	}

	if err := loadOTelConfig(&config.OTel); err != nil {
		return nil, fmt.Errorf("failed to load OpenTelemetry config: %w", err)
	}
	if err := loadMetricsConfig(&config.Metrics); err != nil {
		return nil, fmt.Errorf("failed to load metrics config: %w", err)
	}
	if err := loadLoggingConfig(&config.Logging); err != nil {
		return nil, fmt.Errorf("failed to load logging config: %w", err)
	}
	if err := loadTracingConfig(&config.Tracing); err != nil {
		return nil, fmt.Errorf("failed to load tracing config: %w", err)
	}

	return config, nil
}

func loadOTelConfig(cfg *OTelConfig) error {
	cfg.Enabled = getBoolEnv("OTEL_ENABLED", true)
	cfg.ExporterType = getStringEnv("OTEL_EXPORTER_TYPE", "prometheus")
	cfg.ExporterEndpoint = getStringEnv("OTEL_EXPORTER_ENDPOINT", "")
	cfg.ExporterTimeout = getDurationEnv("OTEL_EXPORTER_TIMEOUT", 10*time.Second)
	cfg.BatchTimeout = getDurationEnv("OTEL_BATCH_TIMEOUT", 5*time.Second)
	cfg.MaxExportBatchSize = getIntEnv("OTEL_MAX_EXPORT_BATCH_SIZE", 512)
	cfg.ExportInterval = getDurationEnv("OTEL_EXPORT_INTERVAL", 5*time.Second)
	cfg.ResourceAttributes = getStringEnv("OTEL_RESOURCE_ATTRIBUTES", "")
	cfg.Insecure = getBoolEnv("OTEL_INSECURE", false)
	cfg.SamplingRatio = getFloat64Env("OTEL_SAMPLING_RATIO", 1.0)
	return nil
}

func loadMetricsConfig(cfg *MetricsConfig) error {
	cfg.Enabled = getBoolEnv("METRICS_ENABLED", true)
	cfg.Port = getIntEnv("METRICS_PORT", 8080)
	cfg.Path = getStringEnv("METRICS_PATH", "/metrics")
	cfg.Namespace = getStringEnv("METRICS_NAMESPACE", "dispatch")
	cfg.CustomLabels = getStringEnv("METRICS_CUSTOM_LABELS", "")
	cfg.DisableBuiltIn = getBoolEnv("METRICS_DISABLE_BUILTIN", false)
	return nil
}

func loadLoggingConfig(cfg *LoggingConfig) error {
	cfg.Enabled = getBoolEnv("LOGGING_ENABLED", true)
	cfg.Level = getStringEnv("LOGGING_LEVEL", "info")
	cfg.Format = getStringEnv("LOGGING_FORMAT", "json")
	cfg.Output = getStringEnv("LOGGING_OUTPUT", "stdout")
	cfg.AddSource = getBoolEnv("LOGGING_ADD_SOURCE", false)
	cfg.SampleRate = getIntEnv("LOGGING_SAMPLE_RATE", 1)
	cfg.FlushInterval = getDurationEnv("LOGGING_FLUSH_INTERVAL", 5*time.Second)
	cfg.StructuredExtra = getStringEnv("LOGGING_STRUCTURED_EXTRA", "")
	return nil
}

func loadTracingConfig(cfg *TracingConfig) error {
	cfg.Enabled = getBoolEnv("TRACING_ENABLED", true)
	cfg.SamplingRatio = getFloat64Env("TRACING_SAMPLING_RATIO", 1.0)
	cfg.MaxAttributes = getIntEnv("TRACING_MAX_ATTRIBUTES", 64)
	cfg.Timeout = getDurationEnv("TRACING_TIMEOUT", 10*time.Second)
	cfg.BatchSize = getIntEnv("TRACING_BATCH_SIZE", 128)
	return nil
}

// Utility functions for environment variable parsing
func getStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloat64Env(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetResourceAttributes returns OpenTelemetry resource attributes
func (c *ObservabilityConfig) GetResourceAttributes() map[string]string {
	attrs := map[string]string{
		"service.name":           c.ServiceName,
		"service.version":        c.Version,
		"deployment.environment": c.Environment,
	}

	if c.OTel.ResourceAttributes != "" {
		pairs := strings.Split(c.OTel.ResourceAttributes, ",")
		for _, pair := range pairs {
			parts := strings.SplitN(pair, "=", 2)
			if len(parts) == 2 {
				attrs[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
			}
		}
	}

	return attrs
}

// GetCustomLabels returns custom labels as a map
func (c *MetricsConfig) GetCustomLabels() map[string]string {
	labels := make(map[string]string)

	if c.CustomLabels != "" {
		pairs := strings.Split(c.CustomLabels, ",")
		for _, pair := range pairs {
			parts := strings.SplitN(pair, "=", 2)
			if len(parts) == 2 {
				labels[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
			}
		}
	}

	return labels
}

// Validate validates the observability configuration
func (c *ObservabilityConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.ServiceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}

	if c.OTel.SamplingRatio < 0.0 || c.OTel.SamplingRatio > 1.0 {
		return fmt.Errorf("OpenTelemetry sampling ratio must be between 0.0 and 1.0")
	}

	if c.Tracing.SamplingRatio < 0.0 || c.Tracing.SamplingRatio > 1.0 {
		return fmt.Errorf("tracing sampling ratio must be between 0.0 and 1.0")
	}

	return nil
}
