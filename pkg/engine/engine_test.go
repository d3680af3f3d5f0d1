package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"archguard-hq/warden/pkg/config"
	"archguard-hq/warden/pkg/rules"
)

const testPolicyDoc = `
services:
  svc: {}
  owner:
    allowed_db_access: true

validator:
  blocked_db_imports: [sqlalchemy]

compose_files:
  - docker-compose.yml

service_dirs:
  svc: svc
  owner: owner
`

const testComposeDoc = `
services:
  svc:
    image: example/svc:latest
    ports:
      - "8080:8000"
`

func newTestRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	write := func(rel, content string) {
		if err := os.WriteFile(filepath.Join(root, rel), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	write("architecture-policy.yml", testPolicyDoc)
	write("docker-compose.yml", testComposeDoc)
	return root
}

func newTestEngine(t *testing.T, root string) *Engine {
	t.Helper()
	return New(config.EngineConfig{
		ProjectRoot:     root,
		PolicyFile:      "architecture-policy.yml",
		RefreshTimeout:  5 * time.Second,
		ValidateTimeout: 8 * time.Second,
	}, nil)
}

func TestNewBuildsInitialSnapshot(t *testing.T) {
	e := newTestEngine(t, newTestRoot(t))

	snap := e.Snapshot()
	if snap == nil {
		t.Fatal("initial snapshot is nil")
	}
	if snap.BuiltAt.IsZero() {
		t.Error("BuiltAt not set")
	}
	if snap.Digest == "" {
		t.Error("Digest not set")
	}
	if _, ok := snap.Topology.Services["svc"]; !ok {
		t.Errorf("topology missing svc: %v", snap.Topology.Services)
	}
}

func TestRefreshPublishesNewSnapshot(t *testing.T) {
	root := newTestRoot(t)
	e := newTestEngine(t, root)
	before := e.Snapshot()

	updated := testComposeDoc + "  added-svc:\n    image: example/added:latest\n"
	if err := os.WriteFile(filepath.Join(root, "docker-compose.yml"), []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite compose: %v", err)
	}

	res := e.Refresh(context.Background())
	// the literal is the wire contract, so pin it rather than the constant
	if res.Status != "refreshed" || res.OK != "true" {
		t.Fatalf("refresh = %+v, want status \"refreshed\"", res)
	}

	after := e.Snapshot()
	if after == before {
		t.Fatal("refresh did not publish a new snapshot")
	}
	if after.Digest == before.Digest {
		t.Error("digest unchanged after input edit")
	}
	if _, ok := after.Topology.Services["added-svc"]; !ok {
		t.Errorf("new service not visible: %v", after.Topology.Services)
	}
}

func TestRefreshTimeoutKeepsPreviousSnapshot(t *testing.T) {
	root := newTestRoot(t)
	e := New(config.EngineConfig{
		ProjectRoot:     root,
		PolicyFile:      "architecture-policy.yml",
		RefreshTimeout:  time.Nanosecond,
		ValidateTimeout: 8 * time.Second,
	}, nil)
	before := e.Snapshot()

	res := e.Refresh(context.Background())
	if res.Status != StatusRefreshTimeout {
		t.Fatalf("status = %q, want %q", res.Status, StatusRefreshTimeout)
	}
	if res.OK != "false" {
		t.Errorf("ok = %q, want \"false\"", res.OK)
	}
	if e.Snapshot() != before {
		t.Error("abandoned refresh replaced the live snapshot")
	}
}

func TestValidateDiff(t *testing.T) {
	e := newTestEngine(t, newTestRoot(t))

	res := e.ValidateDiff(context.Background(), "")
	if !res.OK || len(res.Violations) != 0 {
		t.Fatalf("empty diff = %+v, want ok with no violations", res)
	}
	if res.Violations == nil {
		t.Error("violations should be empty, not nil")
	}

	diff := "diff --git a/svc/db.py b/svc/db.py\n" +
		"--- a/svc/db.py\n" +
		"+++ b/svc/db.py\n" +
		"@@ -0,0 +1,1 @@\n" +
		"+import sqlalchemy\n"
	res = e.ValidateDiff(context.Background(), diff)
	if res.OK {
		t.Fatal("blocked import passed validation")
	}
	if len(res.Violations) != 1 || res.Violations[0].Type != rules.TypeBlockedImport {
		t.Fatalf("violations = %+v, want one blocked_import", res.Violations)
	}
}

func TestValidateDiffTimeout(t *testing.T) {
	root := newTestRoot(t)
	e := New(config.EngineConfig{
		ProjectRoot:     root,
		PolicyFile:      "architecture-policy.yml",
		RefreshTimeout:  5 * time.Second,
		ValidateTimeout: time.Nanosecond,
	}, nil)

	// a diff big enough that validation cannot finish in the same instant
	// the already-expired deadline fires
	var b strings.Builder
	b.WriteString("diff --git a/svc/big.py b/svc/big.py\n")
	b.WriteString("--- a/svc/big.py\n")
	b.WriteString("+++ b/svc/big.py\n")
	b.WriteString("@@ -0,0 +1,20000 @@\n")
	for i := 0; i < 20000; i++ {
		b.WriteString("+value = os.getenv(\"SOME_KEY\")\n")
	}

	res := e.ValidateDiff(context.Background(), b.String())
	if res.OK {
		t.Fatal("timed-out validation reported ok")
	}
	if len(res.Violations) != 1 || res.Violations[0].Type != rules.TypeTimeout {
		t.Fatalf("violations = %+v, want a single timeout violation", res.Violations)
	}
}

func TestDigestFiles(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.yml")
	if err := os.WriteFile(path, []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}

	first := DigestFiles([]string{path})
	if first == "" {
		t.Fatal("empty digest")
	}
	if again := DigestFiles([]string{path}); again != first {
		t.Error("digest not stable for unchanged content")
	}

	if err := os.WriteFile(path, []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}
	if changed := DigestFiles([]string{path}); changed == first {
		t.Error("digest unchanged after edit")
	}

	missing := DigestFiles([]string{filepath.Join(root, "absent.yml")})
	if missing == "" || missing == first {
		t.Error("missing file should digest via sentinel")
	}

	// order independence
	other := filepath.Join(root, "b.yml")
	if err := os.WriteFile(other, []byte("three"), 0o644); err != nil {
		t.Fatal(err)
	}
	if DigestFiles([]string{path, other}) != DigestFiles([]string{other, path}) {
		t.Error("digest depends on path order")
	}
}

func TestWatchedFiles(t *testing.T) {
	root := newTestRoot(t)
	e := newTestEngine(t, root)

	files := e.WatchedFiles()
	want := map[string]bool{
		filepath.Join(root, "architecture-policy.yml"): true,
		filepath.Join(root, "docker-compose.yml"):      true,
	}
	for _, f := range files {
		delete(want, f)
	}
	if len(want) != 0 {
		t.Errorf("watched files %v missing %v", files, want)
	}
}

func TestPollerRefreshesOnChange(t *testing.T) {
	root := newTestRoot(t)
	e := newTestEngine(t, root)
	before := e.Snapshot().Digest

	p := NewPoller(e, 50*time.Millisecond) // clamped up to the floor
	p.Start(context.Background())
	defer p.Stop()

	updated := testComposeDoc + "  added-svc:\n    image: example/added:latest\n"
	if err := os.WriteFile(filepath.Join(root, "docker-compose.yml"), []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite compose: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if e.Snapshot().Digest != before {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("poller never picked up the change")
}

func TestPollerStopIdempotent(t *testing.T) {
	e := newTestEngine(t, newTestRoot(t))
	p := NewPoller(e, time.Second)
	p.Start(context.Background())
	p.Stop()
	p.Stop()
}
