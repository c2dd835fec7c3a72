package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Record store; empty keeps records in memory.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// DHL DE
	DHLDEUsername     string   `envconfig:"DHL_DE_USERNAME"`
	DHLDEPassword     string   `envconfig:"DHL_DE_PASSWORD"`
	DHLDEAPIUser      string   `envconfig:"DHL_DE_API_USER"`
	DHLDEAPISignature string   `envconfig:"DHL_DE_API_SIGNATURE"`
	DHLDEAccountNo    string   `envconfig:"DHL_DE_ACCOUNT_NO"`
	DHLDEEnvironment  string   `envconfig:"DHL_DE_ENVIRONMENT" default:"sandbox"`
	DHLDEProducts     []string `envconfig:"DHL_DE_PRODUCTS"`
	DHLDEEnabled      bool     `envconfig:"DHL_DE_ENABLED" default:"true"`
	DHLDEUseMock      bool     `envconfig:"DHL_DE_USE_MOCK" default:"false"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"ordaro-shipping"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from a .env file when present and the environment.
func Load() (*Config, error) {
	// Absence of a .env file is not an error.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("dhl_de.enabled", c.DHLDEEnabled),
		attribute.String("dhl_de.environment", c.DHLDEEnvironment),
	}
}
