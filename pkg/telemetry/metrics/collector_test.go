package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"archguard-hq/warden/pkg/config"
)

func enabledConfig() *config.MetricsConfig {
	return &config.MetricsConfig{Enabled: true}
}

func TestRecordRefresh(t *testing.T) {
	c := NewCollector(enabledConfig(), nil, nil)

	c.RecordRefresh("ok", 120*time.Millisecond)
	c.RecordRefresh("ok", 80*time.Millisecond)
	c.RecordRefresh("timeout", 5*time.Second)

	if got := testutil.ToFloat64(c.refreshTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("refresh_total{status=ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.refreshTotal.WithLabelValues("timeout")); got != 1 {
		t.Errorf("refresh_total{status=timeout} = %v, want 1", got)
	}
}

func TestRecordValidation(t *testing.T) {
	c := NewCollector(enabledConfig(), nil, nil)

	c.RecordValidation("violations", 40*time.Millisecond, []string{"blocked_import", "blocked_import", "redis_cache"})
	c.RecordValidation("ok", 10*time.Millisecond, nil)

	if got := testutil.ToFloat64(c.validationsTotal.WithLabelValues("violations")); got != 1 {
		t.Errorf("validations_total{status=violations} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.violationsTotal.WithLabelValues("blocked_import")); got != 2 {
		t.Errorf("violations_total{type=blocked_import} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.violationsTotal.WithLabelValues("redis_cache")); got != 1 {
		t.Errorf("violations_total{type=redis_cache} = %v, want 1", got)
	}
}

func TestRecordDisabled(t *testing.T) {
	c := NewCollector(&config.MetricsConfig{Enabled: false}, nil, nil)

	c.RecordRefresh("ok", time.Millisecond)
	c.RecordValidation("violations", time.Millisecond, []string{"blocked_import"})

	if got := testutil.ToFloat64(c.refreshTotal.WithLabelValues("ok")); got != 0 {
		t.Errorf("disabled collector recorded refresh, count = %v", got)
	}
	if got := testutil.ToFloat64(c.violationsTotal.WithLabelValues("blocked_import")); got != 0 {
		t.Errorf("disabled collector recorded violation, count = %v", got)
	}
}

func TestSnapshotAgeGauge(t *testing.T) {
	built := time.Now().Add(-30 * time.Second)
	c := NewCollector(enabledConfig(), nil, func() time.Time { return built })

	age := testutil.ToFloat64(c.snapshotAge)
	if age < 29 || age > 60 {
		t.Errorf("snapshot_age_seconds = %v, want about 30", age)
	}

	zero := NewCollector(enabledConfig(), nil, func() time.Time { return time.Time{} })
	if got := testutil.ToFloat64(zero.snapshotAge); got != 0 {
		t.Errorf("snapshot_age_seconds for zero build time = %v, want 0", got)
	}
}

func TestSnapshotAgeOptional(t *testing.T) {
	c := NewCollector(enabledConfig(), nil, nil)
	if c.snapshotAge != nil {
		t.Error("snapshot age gauge registered without a build-time source")
	}

	names, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range names {
		if mf.GetName() == "warden_guardrails_snapshot_age_seconds" {
			t.Error("snapshot_age_seconds present in registry")
		}
	}
}

func TestRegistryContainsCollectorMetrics(t *testing.T) {
	c := NewCollector(enabledConfig(), nil, nil)
	c.RecordRefresh("ok", time.Millisecond)

	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	found := false
	for _, mf := range families {
		if mf.GetName() == "warden_guardrails_refresh_total" {
			found = true
		}
	}
	if !found {
		t.Error("warden_guardrails_refresh_total missing from registry")
	}
}
