package config

import "fmt"

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"json": true, "text": true,
}

var validFreshnessModes = map[string]bool{
	"poll": true, "watch": true,
}

// Validate checks the configuration for internal consistency. It assumes
// ApplyDefaults has already run.
func Validate(cfg *Config) error {
	if cfg.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address must not be empty")
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive, got %d", cfg.Server.MaxBodyBytes)
	}

	if cfg.Engine.RefreshTimeout <= 0 {
		return fmt.Errorf("engine.refresh_timeout must be positive, got %s", cfg.Engine.RefreshTimeout)
	}
	if cfg.Engine.ValidateTimeout <= 0 {
		return fmt.Errorf("engine.validate_timeout must be positive, got %s", cfg.Engine.ValidateTimeout)
	}

	if !validFreshnessModes[cfg.Freshness.Mode] {
		return fmt.Errorf("freshness.mode must be poll or watch, got %q", cfg.Freshness.Mode)
	}
	if cfg.Freshness.Interval < MinPollInterval {
		return fmt.Errorf("freshness.interval must be at least %s, got %s", MinPollInterval, cfg.Freshness.Interval)
	}
	if cfg.Freshness.DebounceInterval <= 0 {
		return fmt.Errorf("freshness.debounce_interval must be positive, got %s", cfg.Freshness.DebounceInterval)
	}

	if !validLogLevels[cfg.Telemetry.Logging.Level] {
		return fmt.Errorf("telemetry.logging.level must be one of debug, info, warn, error; got %q", cfg.Telemetry.Logging.Level)
	}
	if !validLogFormats[cfg.Telemetry.Logging.Format] {
		return fmt.Errorf("telemetry.logging.format must be json or text, got %q", cfg.Telemetry.Logging.Format)
	}

	if cfg.History.Enabled {
		if cfg.History.SQLitePath == "" {
			return fmt.Errorf("history.sqlite_path must not be empty when history is enabled")
		}
		if cfg.History.RetentionDays <= 0 {
			return fmt.Errorf("history.retention_days must be positive, got %d", cfg.History.RetentionDays)
		}
	}

	return nil
}
