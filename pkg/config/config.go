package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rimdb/rim/internal/bytesize"
)

// Config represents the rim CAS/CRE server configuration.
//
// This structure captures the static configuration of one rim server
// process: a Request Dispatcher (C7) serving one database connection
// over a broker-handed-off socket, backed by a catalog table mirror
// (C4) and a relational heap store.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (RIM_*) (highest priority)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// The --config flag only selects the file; no flag overrides a value.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for a connection's
	// dispatch loop to drain during graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Database configures the relational heap store backing the
	// catalog and user tables (C4, heapstore).
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Broker configures the broker handoff listener this CAS process
	// accepts client connections from (spec §4.6).
	Broker BrokerConfig `mapstructure:"broker" yaml:"broker"`

	// CatalogMirror tunes the class-oid cache used by the catalog
	// table mirror (spec §4.4).
	CatalogMirror CatalogMirrorConfig `mapstructure:"catalog_mirror" yaml:"catalog_mirror"`

	// Dispatcher configures request-dispatch timeouts, the memory
	// limit that triggers a CAS restart, and the prepared-statement
	// ceiling (spec §4.7, §5).
	Dispatcher DispatcherConfig `mapstructure:"dispatcher" yaml:"dispatcher"`

	// Replication configures the shared-key validator used by the
	// replication-broker client type (spec §4.6).
	Replication ReplicationConfig `mapstructure:"replication" yaml:"replication"`

	// Admin contains the bootstrap DBA account created by 'rim init'.
	Admin AdminConfig `mapstructure:"admin" yaml:"admin"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format.
	// Valid values: text, json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written.
	// Valid values: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing. When
// enabled, trace data is exported to an OTLP-compatible collector.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled.
	// Default: false (opt-in).
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Enabled true" yaml:"endpoint"`

	// Insecure controls whether to use an insecure (non-TLS) connection.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration.
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect.
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server. When
// Enabled is false, no metrics are collected.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// DatabaseConfig configures the relational heap store a CAS process
// connects to (heapstore/sqlstore for sqlite, heapstore/pgxstore for
// the Postgres stats hot path).
type DatabaseConfig struct {
	// Driver selects the heap store backend.
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite postgres" yaml:"driver"`

	// DSN is the driver-specific data source name (a file path for
	// sqlite, a connection string for postgres).
	DSN string `mapstructure:"dsn" validate:"required" yaml:"dsn"`

	// MaxOpenConns caps the connection pool size.
	MaxOpenConns int `mapstructure:"max_open_conns" validate:"omitempty,gte=0" yaml:"max_open_conns"`

	// MaxIdleConns caps idle connections kept open in the pool.
	MaxIdleConns int `mapstructure:"max_idle_conns" validate:"omitempty,gte=0" yaml:"max_idle_conns"`

	// ConnMaxLifetime bounds how long a pooled connection may be reused.
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// BrokerConfig configures the broker handoff listener this CAS
// instance accepts client connections from (spec §4.6).
type BrokerConfig struct {
	// SocketPath is the UNIX-domain socket the broker dials to hand
	// off an accepted client connection.
	SocketPath string `mapstructure:"socket_path" validate:"required" yaml:"socket_path"`

	// ApplServerShmKey is the shared-memory segment key this CAS
	// process attaches to for broker slot state and ACL data
	// (original_source APPL_SERVER_SHM_KEY).
	ApplServerShmKey int `mapstructure:"appl_server_shm_key" validate:"required" yaml:"appl_server_shm_key"`

	// ASID is this CAS process's index into the broker's AS slot
	// table (original_source AS_ID).
	ASID int `mapstructure:"as_id" validate:"required,gt=0" yaml:"as_id"`

	// BrokerName identifies the owning broker in logs and in minted
	// replication claims.
	BrokerName string `mapstructure:"broker_name" validate:"required" yaml:"broker_name"`

	// KeepConAuto mirrors the broker's keep_con==AUTO setting: only
	// then does the dispatcher restart the process on a memory-limit
	// breach (spec §4.7 step 1).
	KeepConAuto bool `mapstructure:"keep_con_auto" yaml:"keep_con_auto"`

	// HandshakeTimeout bounds how long RecvClientFD waits for the
	// broker handoff to complete.
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" validate:"omitempty,gt=0" yaml:"handshake_timeout"`
}

// CatalogMirrorConfig tunes the class-oid -> row-oid cache the catalog
// table mirror consults on every class lookup (spec §4.4).
type CatalogMirrorConfig struct {
	// OIDCacheKind selects the cache backend: "memory" (process-local,
	// rebuilt lazily after a restart) or "persistent" (badger-backed,
	// survives a restart).
	OIDCacheKind string `mapstructure:"oid_cache_kind" validate:"required,oneof=memory persistent" yaml:"oid_cache_kind"`

	// OIDCacheDir is the badger data directory, required when
	// OIDCacheKind is "persistent".
	OIDCacheDir string `mapstructure:"oid_cache_dir" validate:"required_if=OIDCacheKind persistent" yaml:"oid_cache_dir,omitempty"`
}

// DispatcherConfig configures the request dispatcher's timeout and
// resource-limit behavior (spec §4.7, §5).
type DispatcherConfig struct {
	// DriverTimeout is the client driver's requested statement timeout.
	DriverTimeout time.Duration `mapstructure:"driver_timeout" yaml:"driver_timeout"`

	// BrokerTimeout is the broker-configured ceiling on statement
	// execution; EffectiveTimeout takes min(DriverTimeout, BrokerTimeout).
	BrokerTimeout time.Duration `mapstructure:"broker_timeout" yaml:"broker_timeout"`

	// MemoryLimit restarts the CAS process once process heap usage
	// exceeds it and no holdable results would be lost (spec §4.7
	// step 1). ApplyDefaults replaces zero with 256MiB.
	MemoryLimit bytesize.ByteSize `mapstructure:"memory_limit" yaml:"memory_limit,omitempty"`

	// MaxPreparedStmts bounds the statement and cursor handle table
	// (C8). ApplyDefaults replaces zero with 1000.
	MaxPreparedStmts int `mapstructure:"max_prepared_stmts" validate:"omitempty,gte=0" yaml:"max_prepared_stmts"`
}

// ReplicationConfig configures the shared-key validator used by the
// replication-broker client type, which authenticates with an
// HMAC-signed key instead of a username/password pair (spec §4.6).
type ReplicationConfig struct {
	// Enabled controls whether the replication-broker client type is
	// accepted on this CAS instance.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// SharedKeySecret is the HMAC secret the broker publishes to CAS
	// via shared memory at startup, used to verify replication keys.
	SharedKeySecret string `mapstructure:"shared_key_secret" validate:"required_if=Enabled true" yaml:"shared_key_secret,omitempty"`

	// KeyTTL bounds the lifetime of a minted replication shared key.
	KeyTTL time.Duration `mapstructure:"key_ttl" validate:"omitempty,gt=0" yaml:"key_ttl"`
}

// AdminConfig contains the bootstrap DBA account configuration used by
// 'rim init' to pre-configure the first database user.
type AdminConfig struct {
	// Username is the bootstrap DBA username.
	Username string `mapstructure:"username" yaml:"username"`

	// PasswordHash is the bcrypt hash of the bootstrap password,
	// generated by auth.HashPassword.
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash,omitempty"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (RIM_*)
//  2. Configuration file
//  3. Default values
//
// When no configuration file is found, Load returns the defaults and
// environment variables are not applied.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, returning a user-friendly error with
// setup instructions if no config file is found at configPath (or the
// default location when configPath is empty).
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  rim init\n\n"+
				"Or specify a custom config file:\n"+
				"  rim <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  rim init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: config files may carry a replication secret or password hash.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures viper with environment variable and config
// file search settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the RIM_ prefix, e.g. RIM_LOGGING_LEVEL=DEBUG.
	v.SetEnvPrefix("RIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. Returns
// (fileFound, error).
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns the combined mapstructure decode hook for
// ByteSize and time.Duration.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize,
// so config files can use human-readable sizes like "256Mi" or "1Gi".
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings to time.Duration, so config
// files can use human-readable durations like "30s" or "5m".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path: XDG_CONFIG_HOME
// if set, otherwise ~/.config, falling back to "." if the home
// directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "rim")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "rim")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for
// the init command).
func GetConfigDir() string {
	return getConfigDir()
}

// InitConfig writes a default configuration file to the default
// location, refusing to overwrite an existing one unless force is
// true. It returns the path written.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path,
// refusing to overwrite an existing file unless force is true.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}
	return SaveConfig(GetDefaultConfig(), path)
}
