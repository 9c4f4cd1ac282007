// Package config loads and validates duraqd's configuration.
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
)

// Config represents the duraqd broker configuration.
//
// Configuration sources, in order of precedence:
//  1. CLI flags (highest priority)
//  2. Environment variables (DURAQ_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing and profiling.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Server contains process-wide settings: listen address, shutdown
	// behavior, the metrics endpoint, and the admin HTTP API.
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Storage configures the durable per-queue journal.
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Session controls per-connection reliable-read limits and timeouts.
	Session SessionConfig `mapstructure:"session" yaml:"session"`

	// Availability controls the broker-wide read/write admission gate.
	Availability AvailabilityConfig `mapstructure:"availability" yaml:"availability"`

	// Audit configures the optional session audit log.
	Audit AuditConfig `mapstructure:"audit" yaml:"audit"`

	// Archive configures optional S3 cold-storage archival of expired items.
	Archive ArchiveConfig `mapstructure:"archive" yaml:"archive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use an insecure (non-TLS) connection.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration.
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// ServerConfig contains process-wide server settings.
type ServerConfig struct {
	// ListenAddr is the address the memcache-protocol listener binds to.
	ListenAddr string `mapstructure:"listen_addr" validate:"required" yaml:"listen_addr"`

	// ShutdownTimeout bounds how long graceful shutdown waits for in-flight
	// sessions to finish before forcing close.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// ShutdownDelay is the grace period between marking the broker
	// quiescent and closing the listener, giving load balancers time to
	// stop routing new connections.
	ShutdownDelay time.Duration `mapstructure:"shutdown_delay" yaml:"shutdown_delay"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// AdminAPI contains the HTTP admin API server configuration.
	AdminAPI AdminAPIConfig `mapstructure:"admin_api" yaml:"admin_api"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// AdminAPIConfig configures the chi-based admin HTTP API.
type AdminAPIConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// JWTSecret signs and verifies bearer tokens for mutating endpoints.
	// Required when Enabled is true.
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret,omitempty"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// StorageConfig configures the durable per-queue journal.
type StorageConfig struct {
	// Path is the directory holding each queue's journal file.
	Path string `mapstructure:"path" validate:"required" yaml:"path"`

	// FsyncMode selects the durability/throughput tradeoff for writes.
	// Valid values: sync, never, grouped.
	FsyncMode string `mapstructure:"fsync_mode" validate:"required,oneof=sync never grouped" yaml:"fsync_mode"`

	// GroupedFsyncInterval is the maximum time a write waits in the
	// grouped-fsync queue before a flush is forced. Only used when
	// FsyncMode is "grouped".
	GroupedFsyncInterval time.Duration `mapstructure:"grouped_fsync_interval" yaml:"grouped_fsync_interval"`

	// GroupedFsyncMaxBatch caps how many pending writes accumulate before
	// a flush is forced, regardless of GroupedFsyncInterval.
	GroupedFsyncMaxBatch int `mapstructure:"grouped_fsync_max_batch" validate:"omitempty,min=1" yaml:"grouped_fsync_max_batch"`
}

// SessionConfig controls per-connection reliable-read behavior.
type SessionConfig struct {
	// MaxOpenReads bounds how many unconfirmed reliable reads a single
	// session may hold open per queue at once.
	MaxOpenReads int `mapstructure:"max_open_reads" validate:"omitempty,min=1" yaml:"max_open_reads"`

	// DefaultMaxWait is used when a "get"/"t=" option omits an explicit
	// timeout for an open reliable read.
	DefaultMaxWait time.Duration `mapstructure:"default_max_wait" yaml:"default_max_wait"`
}

// AvailabilityConfig controls the broker-wide read/write admission gate.
type AvailabilityConfig struct {
	// Writable gates whether "set" is currently accepted.
	Writable bool `mapstructure:"writable" yaml:"writable"`

	// Readable gates whether "get"/"gets" are currently accepted.
	Readable bool `mapstructure:"readable" yaml:"readable"`
}

// AuditConfig configures the optional session audit log.
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Driver selects the GORM dialector: sqlite or postgres.
	Driver string `mapstructure:"driver" validate:"omitempty,oneof=sqlite postgres" yaml:"driver"`

	// DSN is the connection string (file path for sqlite, DSN for postgres).
	DSN string `mapstructure:"dsn" yaml:"dsn"`

	// MigrationsPath optionally points at an on-disk golang-migrate source;
	// when empty the embedded migrations are used.
	MigrationsPath string `mapstructure:"migrations_path" yaml:"migrations_path,omitempty"`
}

// ArchiveConfig configures optional S3 cold-storage archival of items swept
// by flush_expired/flush_all_expired.
type ArchiveConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	Bucket string `mapstructure:"bucket" validate:"required_if=Enabled true" yaml:"bucket,omitempty"`
	Region string `mapstructure:"region" yaml:"region,omitempty"`
	Prefix string `mapstructure:"prefix" yaml:"prefix,omitempty"`

	// Endpoint overrides the S3 endpoint, for S3-compatible object stores.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`

	MaxRetries int `mapstructure:"max_retries" validate:"omitempty,min=0" yaml:"max_retries"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !found {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when the
// configuration file is missing.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  duraqd init\n\n"+
				"Or specify a custom config file:\n"+
				"  duraqd <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  duraqd init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("DURAQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind every config key so DURAQ_* values reach Unmarshal even when
	// the key is absent from the config file.
	var bind func(t reflect.Type, prefix string)
	bind = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			key := prefix + f.Tag.Get("mapstructure")
			if f.Type.Kind() == reflect.Struct {
				bind(f.Type, key+".")
				continue
			}
			_ = v.BindEnv(key)
		}
	}
	bind(reflect.TypeOf(Config{}), "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

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

// durationDecodeHook converts strings like "30s" to time.Duration.
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

// getConfigDir returns the configuration directory path.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "duraq")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "duraq")
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

// GetConfigDir returns the configuration directory path (exposed for the
// init command).
func GetConfigDir() string {
	return getConfigDir()
}

// InitConfig writes a sample configuration file, built from defaults, to
// the default location. It refuses to overwrite an existing file unless
// force is true.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	return path, InitConfigToPath(path, force)
}

// InitConfigToPath writes a sample configuration file to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
		}
	}

	cfg := GetDefaultConfig()
	return SaveConfig(cfg, path)
}
