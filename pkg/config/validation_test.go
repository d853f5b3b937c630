package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	err := Validate(cfg)
	if err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidDatabaseDriver(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Database.Driver = "mysql"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unsupported database driver")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidMetricsPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Port = 70000 // Out of range

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for port out of range")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}
}

func TestValidate_MissingBrokerSocketPath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Broker.SocketPath = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for missing broker socket path")
	}
	errStr := strings.ToLower(err.Error())
	if !strings.Contains(errStr, "socketpath") {
		t.Errorf("Expected error about broker socket path, got: %v", err)
	}
}

func TestValidate_InvalidASID(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Broker.ASID = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for as_id <= 0")
	}
}

func TestValidate_TelemetryEnabledWithoutEndpoint(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for telemetry enabled without endpoint")
	}
}

func TestValidate_TelemetrySampleRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = "localhost:4317"
	cfg.Telemetry.SampleRate = 1.5 // Out of range (should be 0.0-1.0)

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for sample rate out of range")
	}
}

func TestValidate_ReplicationEnabledWithoutSecret(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Replication.Enabled = true
	cfg.Replication.SharedKeySecret = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for replication enabled without a shared secret")
	}
}

func TestValidate_PersistentCacheRequiresDir(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.CatalogMirror.OIDCacheKind = "persistent"
	cfg.CatalogMirror.OIDCacheDir = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for persistent oid cache without a directory")
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	// Test that validation accepts both uppercase and lowercase log levels
	testCases := []string{"info", "INFO", "debug", "DEBUG", "warn", "WARN", "error", "ERROR"}

	for _, level := range testCases {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level

		err := Validate(cfg)
		if err != nil {
			t.Errorf("Validation failed for level %q: %v", level, err)
		}

		// Validation should NOT normalize - level should remain as-is
		if cfg.Logging.Level != level {
			t.Errorf("Expected level to remain %q after validation, got %q", level, cfg.Logging.Level)
		}
	}

	// Test that normalization happens in ApplyDefaults
	cfg := &Config{Logging: LoggingConfig{Level: "info"}}
	ApplyDefaults(cfg)
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected ApplyDefaults to normalize 'info' to 'INFO', got %q", cfg.Logging.Level)
	}
}
