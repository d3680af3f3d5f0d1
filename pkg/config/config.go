package config

import "time"

// Config is the root configuration for a warden instance.
type Config struct {
	// Server configures the HTTP API listener.
	Server ServerConfig `yaml:"server"`

	// Engine configures snapshot building and validation budgets.
	Engine EngineConfig `yaml:"engine"`

	// Freshness configures change detection for watched project files.
	Freshness FreshnessConfig `yaml:"freshness"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// History configures optional persistence of validation runs.
	History HistoryConfig `yaml:"history"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes"`
	// MaxBodyBytes caps diff payload size on the validation endpoints.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// EngineConfig contains snapshot and validation settings.
type EngineConfig struct {
	// ProjectRoot is the directory all watched paths resolve against.
	ProjectRoot string `yaml:"project_root"`

	// PolicyFile is the guardrail policy, relative to ProjectRoot unless
	// absolute.
	PolicyFile string `yaml:"policy_file"`

	// RefreshTimeout bounds a snapshot rebuild. A rebuild that exceeds it
	// is abandoned and the previous snapshot stays live.
	RefreshTimeout time.Duration `yaml:"refresh_timeout"`

	// ValidateTimeout bounds a single diff validation.
	ValidateTimeout time.Duration `yaml:"validate_timeout"`
}

// FreshnessConfig controls how changes to watched files are detected.
type FreshnessConfig struct {
	// Enabled starts background change detection with the server.
	Enabled bool `yaml:"enabled"`

	// Mode selects the detection strategy: "poll" (content digest on an
	// interval) or "watch" (filesystem notifications).
	Mode string `yaml:"mode"`

	// Interval is the poll period. Values below the floor are clamped.
	Interval time.Duration `yaml:"interval"`

	// DebounceInterval is the quiet period for watch mode.
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// TelemetryConfig groups observability settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
	Path      string `yaml:"path"`

	// DurationBuckets are histogram buckets in seconds for refresh and
	// validation durations.
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// HistoryConfig contains optional validation history persistence settings.
// History is off by default; the engine itself persists nothing.
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	SQLitePath    string `yaml:"sqlite_path"`
	RetentionDays int    `yaml:"retention_days"`

	// PruneSchedule is a cron expression for retention enforcement.
	PruneSchedule string `yaml:"prune_schedule"`
}
