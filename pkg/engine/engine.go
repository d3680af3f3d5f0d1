package engine

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"archguard-hq/warden/pkg/config"
	"archguard-hq/warden/pkg/policy"
	"archguard-hq/warden/pkg/rules"
	"archguard-hq/warden/pkg/telemetry/metrics"
	"archguard-hq/warden/pkg/topology"
)

// Refresh statuses reported on the wire.
const (
	StatusRefreshed      = "refreshed"
	StatusRefreshTimeout = "refresh_timeout"
)

// RefreshResult is the outcome of one snapshot rebuild.
type RefreshResult struct {
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	OK         string `json:"ok"`
}

// ValidateResult is the outcome of one diff validation.
type ValidateResult struct {
	OK         bool              `json:"ok"`
	Violations []rules.Violation `json:"violations"`
	DurationMS int64             `json:"duration_ms"`
}

// Engine owns the live snapshot and the rebuild/validation deadlines.
type Engine struct {
	cfg       config.EngineConfig
	logger    *slog.Logger
	collector *metrics.Collector

	current atomic.Pointer[Snapshot]
}

// New creates an Engine and builds the initial snapshot synchronously so
// callers never observe a nil snapshot. collector may be nil.
func New(cfg config.EngineConfig, collector *metrics.Collector) *Engine {
	e := &Engine{
		cfg:       cfg,
		logger:    slog.Default().With("component", "engine"),
		collector: collector,
	}
	e.current.Store(e.build())
	return e
}

// Snapshot returns the live snapshot. The returned value is immutable.
func (e *Engine) Snapshot() *Snapshot {
	return e.current.Load()
}

// SnapshotBuiltAt reports when the live snapshot was built.
func (e *Engine) SnapshotBuiltAt() time.Time {
	return e.current.Load().BuiltAt
}

// PolicyPath returns the absolute path of the policy document.
func (e *Engine) PolicyPath() string {
	if filepath.IsAbs(e.cfg.PolicyFile) {
		return e.cfg.PolicyFile
	}
	return filepath.Join(e.cfg.ProjectRoot, e.cfg.PolicyFile)
}

// Root returns the project root all watched paths resolve against.
func (e *Engine) Root() string {
	return e.cfg.ProjectRoot
}

// WatchedFiles returns the files whose content determines snapshot
// freshness: the policy document, the resolved manifests, and the docs the
// policy references. Paths are absolute.
func (e *Engine) WatchedFiles() []string {
	snap := e.Snapshot()
	files := []string{e.PolicyPath()}
	for _, rel := range snap.Topology.ManifestFiles {
		files = append(files, filepath.Join(e.cfg.ProjectRoot, rel))
	}
	for _, rel := range snap.Policy.DocsFiles {
		files = append(files, filepath.Join(e.cfg.ProjectRoot, rel))
	}
	return files
}

// Refresh rebuilds the snapshot under the refresh deadline. On success the
// new snapshot is published atomically. On timeout the rebuild is abandoned,
// its eventual result discarded, and the previous snapshot stays live.
func (e *Engine) Refresh(ctx context.Context) RefreshResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RefreshTimeout)
	defer cancel()

	done := make(chan *Snapshot, 1)
	go func() {
		done <- e.build()
	}()

	select {
	case snap := <-done:
		e.current.Store(snap)
		dur := time.Since(start)
		e.logger.Info("snapshot refreshed",
			"duration_ms", dur.Milliseconds(),
			"services", len(snap.Topology.Services),
			"digest", snap.Digest,
		)
		if e.collector != nil {
			e.collector.RecordRefresh("ok", dur)
		}
		return RefreshResult{Status: StatusRefreshed, DurationMS: dur.Milliseconds(), OK: "true"}

	case <-ctx.Done():
		dur := time.Since(start)
		e.logger.Warn("snapshot refresh abandoned",
			"duration_ms", dur.Milliseconds(),
			"budget", e.cfg.RefreshTimeout,
		)
		if e.collector != nil {
			e.collector.RecordRefresh("timeout", dur)
		}
		return RefreshResult{Status: StatusRefreshTimeout, DurationMS: dur.Milliseconds(), OK: "false"}
	}
}

// ValidateDiff runs the rule battery over a unified diff against the live
// snapshot, bounded by the validation deadline. A validation that exceeds
// the deadline is abandoned and reported as a single timeout violation
// rather than a partial result.
func (e *Engine) ValidateDiff(ctx context.Context, diffText string) ValidateResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ValidateTimeout)
	defer cancel()

	snap := e.Snapshot()
	done := make(chan rules.Result, 1)
	go func() {
		done <- snap.Validator.ValidateDiff(diffText)
	}()

	select {
	case res := <-done:
		dur := time.Since(start)
		status := "ok"
		if !res.OK {
			status = "violations"
		}
		if e.collector != nil {
			e.collector.RecordValidation(status, dur, violationTypes(res.Violations))
		}
		return ValidateResult{OK: res.OK, Violations: res.Violations, DurationMS: dur.Milliseconds()}

	case <-ctx.Done():
		dur := time.Since(start)
		e.logger.Warn("diff validation abandoned",
			"duration_ms", dur.Milliseconds(),
			"budget", e.cfg.ValidateTimeout,
		)
		timeoutViolation := rules.Violation{
			Type:    rules.TypeTimeout,
			Message: "Validation exceeded the time budget and was abandoned.",
		}
		if e.collector != nil {
			e.collector.RecordValidation("timeout", dur, []string{rules.TypeTimeout})
		}
		return ValidateResult{
			OK:         false,
			Violations: []rules.Violation{timeoutViolation},
			DurationMS: dur.Milliseconds(),
		}
	}
}

// build constructs a fresh snapshot from disk. It never fails: a broken or
// missing policy degrades to an empty one, and unreadable manifests simply
// contribute nothing to the topology.
func (e *Engine) build() *Snapshot {
	pol, err := policy.Load(e.PolicyPath())
	if err != nil {
		e.logger.Warn("policy load degraded", "error", err)
	}

	topo := topology.NewBuilder(e.cfg.ProjectRoot).Build(pol)

	snap := &Snapshot{
		Policy:    pol,
		Topology:  topo,
		Validator: rules.New(pol),
		BuiltAt:   time.Now(),
	}
	snap.Digest = DigestFiles(watchedFilesFor(e.cfg.ProjectRoot, e.PolicyPath(), pol, topo))
	return snap
}

// watchedFilesFor resolves the watch set for a specific policy/topology pair
// rather than the live snapshot, so a snapshot's digest always reflects its
// own inputs.
func watchedFilesFor(root, policyPath string, pol *policy.Policy, topo *topology.Topology) []string {
	files := []string{policyPath}
	for _, rel := range topo.ManifestFiles {
		files = append(files, filepath.Join(root, rel))
	}
	for _, rel := range pol.DocsFiles {
		files = append(files, filepath.Join(root, rel))
	}
	return files
}

func violationTypes(violations []rules.Violation) []string {
	types := make([]string, 0, len(violations))
	for _, v := range violations {
		types = append(types, v.Type)
	}
	return types
}
