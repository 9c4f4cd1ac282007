package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Called after loading from file and environment so that zero
// values are replaced with sensible defaults while explicit values are
// preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyServerDefaults(&cfg.Server)
	applyStorageDefaults(&cfg.Storage)
	applySessionDefaults(&cfg.Session)
	applyAvailabilityDefaults(&cfg.Availability)
	applyAuditDefaults(&cfg.Audit)
	applyArchiveDefaults(&cfg.Archive)
}

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

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"}
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":11300"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.ShutdownDelay == 0 {
		cfg.ShutdownDelay = 100 * time.Millisecond
	}

	applyMetricsDefaults(&cfg.Metrics)
	applyAdminAPIDefaults(&cfg.AdminAPI)
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyAdminAPIDefaults(cfg *AdminAPIConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.FsyncMode == "" {
		cfg.FsyncMode = "grouped"
	}
	if cfg.GroupedFsyncInterval == 0 {
		cfg.GroupedFsyncInterval = 5 * time.Millisecond
	}
	if cfg.GroupedFsyncMaxBatch == 0 {
		cfg.GroupedFsyncMaxBatch = 256
	}
	// Path has no default; it is required and must be configured.
}

func applySessionDefaults(cfg *SessionConfig) {
	if cfg.MaxOpenReads == 0 {
		cfg.MaxOpenReads = 100
	}
	if cfg.DefaultMaxWait == 0 {
		cfg.DefaultMaxWait = 0 // no wait unless a caller explicitly asks for one
	}
}

func applyAvailabilityDefaults(cfg *AvailabilityConfig) {
	// Broker starts fully available unless the operator configures
	// otherwise; false/false would mean a broker that refuses all
	// requests at startup, which is never what an absent config file
	// should mean.
	if !cfg.Writable && !cfg.Readable {
		cfg.Writable = true
		cfg.Readable = true
	}
}

func applyAuditDefaults(cfg *AuditConfig) {
	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	if cfg.Enabled && cfg.DSN == "" && cfg.Driver == "sqlite" {
		cfg.DSN = "/var/lib/duraq/audit.db"
	}
}

func applyArchiveDefaults(cfg *ArchiveConfig) {
	if cfg.Prefix == "" {
		cfg.Prefix = "archive/"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
// Useful for generating sample configuration files and for tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Storage: StorageConfig{
			Path: "/var/lib/duraq/journal",
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
