package config

import (
	"os"
	"testing"
	"time"
)

var configEnvVars = []string{
	"COMMS_URL", "SERVICE_NAME",
	"BRIDGE_OPERATION_SUBJECT", "BRIDGE_EVENT_SUBJECT", "BRIDGE_PUBLISH_EVENTS",
	"BRIDGE_REQUEST_TIMEOUT", "BRIDGE_WAKE_INTERVAL", "BRIDGE_MAX_CONCURRENT_REQUESTS",
	"BRIDGE_DESIGN_FILE",
	"DATABASE_URL", "RUN_MIGRATIONS", "MIGRATION_PATH",
	"BRIDGE_HTTP_ADDR", "HTTP_PORT", "HEALTH_CHECK_TIMEOUT", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range configEnvVars {
		if val, ok := os.LookupEnv(env); ok {
			os.Unsetenv(env)
			t.Cleanup(func() { os.Setenv(env, val) })
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("config:config_test - unexpected error: %v", err)
	}

	if cfg.COMMSURL != "nats://127.0.0.1:4222" {
		t.Errorf("config:config_test - COMMSURL = %q, want %q", cfg.COMMSURL, "nats://127.0.0.1:4222")
	}
	if cfg.COMMSName != "cad-bridge" {
		t.Errorf("config:config_test - COMMSName = %q, want %q", cfg.COMMSName, "cad-bridge")
	}
	if cfg.OperationSubject != "" || cfg.EventSubject != "" {
		t.Errorf("config:config_test - subjects = %q/%q, want empty", cfg.OperationSubject, cfg.EventSubject)
	}
	if !cfg.PublishEvents {
		t.Error("config:config_test - expected PublishEvents=true by default")
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("config:config_test - RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
	if cfg.WakeInterval != 100*time.Millisecond {
		t.Errorf("config:config_test - WakeInterval = %v, want 100ms", cfg.WakeInterval)
	}
	if cfg.MaxConcurrentRequests != 64 {
		t.Errorf("config:config_test - MaxConcurrentRequests = %d, want 64", cfg.MaxConcurrentRequests)
	}
	if cfg.DesignFile != "" {
		t.Errorf("config:config_test - DesignFile = %q, want empty", cfg.DesignFile)
	}
	if cfg.DatabaseURL != "" || cfg.JournalEnabled() {
		t.Errorf("config:config_test - journal should be disabled by default")
	}
	if cfg.RunMigrations {
		t.Error("config:config_test - expected RunMigrations=false by default")
	}
	if cfg.MigrationPath != "migrations" {
		t.Errorf("config:config_test - MigrationPath = %q, want %q", cfg.MigrationPath, "migrations")
	}
	if cfg.HTTPPort != 8080 || cfg.HTTPListenAddr() != ":8080" {
		t.Errorf("config:config_test - HTTP listen addr = %q, want :8080", cfg.HTTPListenAddr())
	}
	if cfg.HealthCheckTimeout != 5*time.Second {
		t.Errorf("config:config_test - HealthCheckTimeout = %v, want 5s", cfg.HealthCheckTimeout)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("config:config_test - LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if err := cfg.ValidateForServe(); err != nil {
		t.Errorf("config:config_test - defaults should validate: %v", err)
	}
	if err := cfg.ValidateForDB(); err == nil {
		t.Error("config:config_test - ValidateForDB should require DATABASE_URL")
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	overrides := map[string]string{
		"COMMS_URL":                      "nats://custom:4222",
		"SERVICE_NAME":                   "test-bridge",
		"BRIDGE_OPERATION_SUBJECT":       "custom.ops",
		"BRIDGE_EVENT_SUBJECT":           "custom.done",
		"BRIDGE_PUBLISH_EVENTS":          "false",
		"BRIDGE_REQUEST_TIMEOUT":         "10s",
		"BRIDGE_WAKE_INTERVAL":           "25ms",
		"BRIDGE_MAX_CONCURRENT_REQUESTS": "8",
		"BRIDGE_DESIGN_FILE":             "/tmp/design.json",
		"DATABASE_URL":                   "postgres://test@localhost/cad_journal",
		"RUN_MIGRATIONS":                 "true",
		"MIGRATION_PATH":                 "/tmp/migrations",
		"BRIDGE_HTTP_ADDR":               "127.0.0.1:9999",
		"HTTP_PORT":                      "9090",
		"HEALTH_CHECK_TIMEOUT":           "10s",
		"LOG_LEVEL":                      "debug",
	}
	for key, val := range overrides {
		t.Setenv(key, val)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("config:config_test - unexpected error: %v", err)
	}

	if cfg.COMMSURL != "nats://custom:4222" {
		t.Errorf("config:config_test - COMMSURL = %q", cfg.COMMSURL)
	}
	if cfg.COMMSName != "test-bridge" {
		t.Errorf("config:config_test - COMMSName = %q", cfg.COMMSName)
	}
	if cfg.OperationSubject != "custom.ops" || cfg.EventSubject != "custom.done" {
		t.Errorf("config:config_test - subjects = %q/%q", cfg.OperationSubject, cfg.EventSubject)
	}
	if cfg.PublishEvents {
		t.Error("config:config_test - expected PublishEvents=false")
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("config:config_test - RequestTimeout = %v, want 10s", cfg.RequestTimeout)
	}
	if cfg.WakeInterval != 25*time.Millisecond {
		t.Errorf("config:config_test - WakeInterval = %v, want 25ms", cfg.WakeInterval)
	}
	if cfg.MaxConcurrentRequests != 8 {
		t.Errorf("config:config_test - MaxConcurrentRequests = %d, want 8", cfg.MaxConcurrentRequests)
	}
	if cfg.DesignFile != "/tmp/design.json" {
		t.Errorf("config:config_test - DesignFile = %q", cfg.DesignFile)
	}
	if !cfg.JournalEnabled() || cfg.ValidateForDB() != nil {
		t.Error("config:config_test - journal should be enabled")
	}
	if !cfg.RunMigrations {
		t.Error("config:config_test - expected RunMigrations=true")
	}
	if cfg.MigrationPath != "/tmp/migrations" {
		t.Errorf("config:config_test - MigrationPath = %q", cfg.MigrationPath)
	}
	if cfg.HTTPListenAddr() != "127.0.0.1:9999" {
		t.Errorf("config:config_test - BRIDGE_HTTP_ADDR should win over HTTP_PORT, got %q", cfg.HTTPListenAddr())
	}
	if cfg.HealthCheckTimeout != 10*time.Second {
		t.Errorf("config:config_test - HealthCheckTimeout = %v, want 10s", cfg.HealthCheckTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("config:config_test - LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("BRIDGE_REQUEST_TIMEOUT", "soon")
	if _, err := LoadConfig(); err == nil {
		t.Error("config:config_test - expected error for an unparsable duration")
	}
}

func TestValidateForServe(t *testing.T) {
	valid := Config{
		RequestTimeout:        time.Second,
		WakeInterval:          time.Millisecond,
		MaxConcurrentRequests: 1,
		HealthCheckTimeout:    time.Second,
	}
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"request timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"wake interval", func(c *Config) { c.WakeInterval = -time.Millisecond }},
		{"concurrency", func(c *Config) { c.MaxConcurrentRequests = 0 }},
		{"health timeout", func(c *Config) { c.HealthCheckTimeout = 0 }},
	}

	if err := valid.ValidateForServe(); err != nil {
		t.Fatalf("config:config_test - valid config rejected: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if err := c.ValidateForServe(); err == nil {
				t.Errorf("config:config_test - expected %s to be rejected", tt.name)
			}
		})
	}
}

func TestLoadConfig_LogLevels(t *testing.T) {
	clearEnv(t)
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Setenv("LOG_LEVEL", level)
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("config:config_test - unexpected error for level %q: %v", level, err)
		}
		if cfg.LogLevel != level {
			t.Errorf("config:config_test - LogLevel = %q, want %q", cfg.LogLevel, level)
		}
	}
}
