package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields, after loading from file and environment.
//
// Default strategy: zero values (0, "", false) are replaced with
// defaults; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyDatabaseDefaults(&cfg.Database)
	applyMetricsDefaults(&cfg.Metrics)
	applyBrokerDefaults(&cfg.Broker)
	applyCatalogMirrorDefaults(&cfg.CatalogMirror)
	applyDispatcherDefaults(&cfg.Dispatcher)
	applyReplicationDefaults(&cfg.Replication)
	applyAdminDefaults(&cfg.Admin)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyLoggingDefaults sets logging defaults and normalizes the level.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"}
	}
}

// applyDatabaseDefaults sets heap store connection defaults.
func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	if cfg.DSN == "" {
		if cfg.Driver == "sqlite" {
			cfg.DSN = "rim.db"
		}
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = time.Hour
	}
}

// applyMetricsDefaults sets Prometheus metrics server defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyBrokerDefaults sets broker handoff listener defaults.
func applyBrokerDefaults(cfg *BrokerConfig) {
	if cfg.SocketPath == "" {
		cfg.SocketPath = "/tmp/rim_cas.sock"
	}
	if cfg.ApplServerShmKey == 0 {
		cfg.ApplServerShmKey = 1
	}
	if cfg.ASID == 0 {
		cfg.ASID = 1
	}
	if cfg.BrokerName == "" {
		cfg.BrokerName = "rim_broker1"
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}
}

// applyCatalogMirrorDefaults sets class-oid cache defaults.
func applyCatalogMirrorDefaults(cfg *CatalogMirrorConfig) {
	if cfg.OIDCacheKind == "" {
		cfg.OIDCacheKind = "memory"
	}
}

// applyDispatcherDefaults sets request-dispatch timeout and
// resource-limit defaults.
func applyDispatcherDefaults(cfg *DispatcherConfig) {
	if cfg.DriverTimeout == 0 {
		cfg.DriverTimeout = 30 * time.Second
	}
	if cfg.BrokerTimeout == 0 {
		cfg.BrokerTimeout = 60 * time.Second
	}
	if cfg.MemoryLimit == 0 {
		cfg.MemoryLimit = 256 << 20 // 256MiB
	}
	if cfg.MaxPreparedStmts == 0 {
		cfg.MaxPreparedStmts = 1000
	}
}

// applyReplicationDefaults sets replication shared-key defaults.
func applyReplicationDefaults(cfg *ReplicationConfig) {
	if cfg.KeyTTL == 0 {
		cfg.KeyTTL = time.Hour
	}
}

// applyAdminDefaults sets bootstrap DBA account defaults.
func applyAdminDefaults(cfg *AdminConfig) {
	if cfg.Username == "" {
		cfg.Username = "dba"
	}
}

// GetDefaultConfig returns a Config with every field set to its
// default value, suitable for running without a config file.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
