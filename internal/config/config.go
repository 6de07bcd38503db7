// Package config provides bridge configuration loaded from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Config holds cad-bridge configuration.
type Config struct {
	// COMMS: connect to standalone NATS at COMMSURL.
	COMMSURL  string `envconfig:"COMMS_URL" default:"nats://127.0.0.1:4222"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"cad-bridge"`

	// Subject overrides (empty = commsutil defaults)
	OperationSubject string `envconfig:"BRIDGE_OPERATION_SUBJECT"`
	EventSubject     string `envconfig:"BRIDGE_EVENT_SUBJECT"`
	PublishEvents    bool   `envconfig:"BRIDGE_PUBLISH_EVENTS" default:"true"`

	// Bridge
	RequestTimeout        time.Duration `envconfig:"BRIDGE_REQUEST_TIMEOUT" default:"30s"`
	WakeInterval          time.Duration `envconfig:"BRIDGE_WAKE_INTERVAL" default:"100ms"`
	MaxConcurrentRequests int64         `envconfig:"BRIDGE_MAX_CONCURRENT_REQUESTS" default:"64"`

	// Design seed
	DesignFile string `envconfig:"BRIDGE_DESIGN_FILE"`

	// Operation journal (empty DATABASE_URL disables it)
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// HTTP endpoint (BRIDGE_HTTP_ADDR preferred, e.g. "0.0.0.0:8080")
	HTTPAddr           string        `envconfig:"BRIDGE_HTTP_ADDR"`
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"8080"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	return &c, nil
}

// ValidateForServe checks required config when running the bridge server.
func (c *Config) ValidateForServe() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - BRIDGE_REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.WakeInterval <= 0 {
		return fmt.Errorf("%s - BRIDGE_WAKE_INTERVAL must be positive", logPrefix)
	}
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("%s - BRIDGE_MAX_CONCURRENT_REQUESTS must be positive", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config for journal commands (migrate, ensure-db, clear).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}

// JournalEnabled reports whether operations are journaled to Postgres.
func (c *Config) JournalEnabled() bool {
	return c.DatabaseURL != ""
}

// HTTPListenAddr returns the HTTP listen address.
func (c *Config) HTTPListenAddr() string {
	if c.HTTPAddr != "" {
		return c.HTTPAddr
	}
	return fmt.Sprintf(":%d", c.HTTPPort)
}
