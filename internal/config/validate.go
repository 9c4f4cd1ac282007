package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a Config against its struct tags and cross-field
// invariants that tags alone cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Server.AdminAPI.Enabled && cfg.Server.AdminAPI.JWTSecret == "" {
		return fmt.Errorf("server.admin_api.jwt_secret is required when server.admin_api.enabled is true")
	}

	if cfg.Audit.Enabled && cfg.Audit.DSN == "" {
		return fmt.Errorf("audit.dsn is required when audit.enabled is true")
	}

	if cfg.Storage.FsyncMode == "grouped" && cfg.Storage.GroupedFsyncMaxBatch < 1 {
		return fmt.Errorf("storage.grouped_fsync_max_batch must be at least 1 in grouped fsync mode")
	}

	return nil
}
