package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_ShutdownTimeout(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_Dispatcher(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Dispatcher.DriverTimeout != 30*time.Second {
		t.Errorf("Expected default driver timeout 30s, got %v", cfg.Dispatcher.DriverTimeout)
	}
	if cfg.Dispatcher.BrokerTimeout != 60*time.Second {
		t.Errorf("Expected default broker timeout 60s, got %v", cfg.Dispatcher.BrokerTimeout)
	}
	if cfg.Dispatcher.MemoryLimit == 0 {
		t.Error("Expected a nonzero default memory limit")
	}
	if cfg.Dispatcher.MaxPreparedStmts != 1000 {
		t.Errorf("Expected default max_prepared_stmts 1000, got %d", cfg.Dispatcher.MaxPreparedStmts)
	}
}

func TestApplyDefaults_Broker(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Broker.SocketPath == "" {
		t.Error("Expected a default broker socket path")
	}
	if cfg.Broker.ASID != 1 {
		t.Errorf("Expected default as_id 1, got %d", cfg.Broker.ASID)
	}
	if cfg.Broker.HandshakeTimeout != 5*time.Second {
		t.Errorf("Expected default handshake timeout 5s, got %v", cfg.Broker.HandshakeTimeout)
	}
}

func TestApplyDefaults_Admin(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Admin.Username != "dba" {
		t.Errorf("Expected default admin username 'dba', got %q", cfg.Admin.Username)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "DEBUG",
			Format: "json",
			Output: "/var/log/rim.log",
		},
		ShutdownTimeout: 60 * time.Second,
		Admin: AdminConfig{
			Username: "customdba",
		},
	}

	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected explicit level 'DEBUG' to be preserved, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected explicit format 'json' to be preserved, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "/var/log/rim.log" {
		t.Errorf("Expected explicit output to be preserved, got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 60*time.Second {
		t.Errorf("Expected explicit timeout 60s to be preserved, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Admin.Username != "customdba" {
		t.Errorf("Expected explicit admin username to be preserved, got %q", cfg.Admin.Username)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Default config should be valid, got error: %v", err)
	}
}

func TestGetDefaultConfig_HasRequiredFields(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level == "" {
		t.Error("Default config missing logging level")
	}
	if cfg.Broker.SocketPath == "" {
		t.Error("Default config missing broker socket path")
	}
	if cfg.Admin.Username == "" {
		t.Error("Default config missing admin username")
	}
	if cfg.Database.DSN == "" {
		t.Error("Default config missing database dsn")
	}
}
