package config

import "time"

// Default values applied when the configuration file omits a field.
const (
	DefaultListenAddress   = "127.0.0.1:8787"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20
	DefaultMaxBodyBytes    = 8 << 20

	DefaultPolicyFile      = "architecture-policy.yml"
	DefaultRefreshTimeout  = 5 * time.Second
	DefaultValidateTimeout = 8 * time.Second

	DefaultFreshnessMode    = "poll"
	DefaultPollInterval     = 1 * time.Second
	MinPollInterval         = 200 * time.Millisecond
	DefaultDebounceInterval = 250 * time.Millisecond

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "warden"
	DefaultMetricsSubsystem = "guardrails"
	DefaultMetricsPath      = "/metrics"

	DefaultRetentionDays = 30
	DefaultPruneSchedule = "0 3 * * *"
)

// ApplyDefaults fills in zero-valued fields with their defaults. Interval
// floors are enforced here so a too-aggressive poll setting degrades to the
// minimum instead of failing validation.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}

	if cfg.Engine.ProjectRoot == "" {
		cfg.Engine.ProjectRoot = "."
	}
	if cfg.Engine.PolicyFile == "" {
		cfg.Engine.PolicyFile = DefaultPolicyFile
	}
	if cfg.Engine.RefreshTimeout == 0 {
		cfg.Engine.RefreshTimeout = DefaultRefreshTimeout
	}
	if cfg.Engine.ValidateTimeout == 0 {
		cfg.Engine.ValidateTimeout = DefaultValidateTimeout
	}

	if cfg.Freshness.Mode == "" {
		cfg.Freshness.Mode = DefaultFreshnessMode
	}
	if cfg.Freshness.Interval == 0 {
		cfg.Freshness.Interval = DefaultPollInterval
	}
	if cfg.Freshness.Interval < MinPollInterval {
		cfg.Freshness.Interval = MinPollInterval
	}
	if cfg.Freshness.DebounceInterval == 0 {
		cfg.Freshness.DebounceInterval = DefaultDebounceInterval
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 8}
	}

	if cfg.History.SQLitePath == "" {
		cfg.History.SQLitePath = "warden-history.db"
	}
	if cfg.History.RetentionDays == 0 {
		cfg.History.RetentionDays = DefaultRetentionDays
	}
	if cfg.History.PruneSchedule == "" {
		cfg.History.PruneSchedule = DefaultPruneSchedule
	}
}
