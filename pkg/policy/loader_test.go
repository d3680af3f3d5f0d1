package policy

import (
	"os"
	"path/filepath"
	"testing"
)

const samplePolicy = `
services:
  backend-orchestrator:
    blocked_imports: [langchain, openai]
    blocked_env_vars: [DATABASE_URL]
    redis_db: 2
    description: API gateway
  memory-engine:
    allowed_db_access: true

validator:
  blocked_db_imports: [sqlalchemy, psycopg2]
  gateway_service: backend-orchestrator
  reserved_sqlalchemy_identifiers: [metadata]
  redis_cache:
    ttl_required_outside_db: true
    key_prefix_per_service:
      backend-orchestrator: "bo:"

migrations_allowed_services: [memory-engine]

multi_tenant:
  forbidden_patterns: ["set search_path"]

compose_files:
  - docker-compose.yml

service_dirs:
  backend-orchestrator: backend-orchestrator
  memory-engine: memory-engine
`

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "architecture-policy.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing policy fixture: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	p, err := Load(writePolicy(t, samplePolicy))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	rule, ok := p.Service("backend-orchestrator")
	if !ok {
		t.Fatal("backend-orchestrator missing from services")
	}
	if rule.RedisDB == nil || *rule.RedisDB != 2 {
		t.Errorf("redis_db = %v, want 2", rule.RedisDB)
	}
	if rule.AllowedDBAccess {
		t.Error("gateway unexpectedly marked as db owner")
	}
	if len(rule.BlockedImports) != 2 {
		t.Errorf("blocked_imports = %v, want two entries", rule.BlockedImports)
	}

	if !p.AllowsDBAccess("memory-engine") {
		t.Error("memory-engine should own db access")
	}
	if p.AllowsDBAccess("unknown-service") {
		t.Error("unknown service granted db access")
	}

	if p.Validator.GatewayService != "backend-orchestrator" {
		t.Errorf("gateway_service = %q", p.Validator.GatewayService)
	}
	if p.Validator.RedisCache.TTLRequiredOutsideDB == nil || !*p.Validator.RedisCache.TTLRequiredOutsideDB {
		t.Error("ttl_required_outside_db not parsed")
	}
}

func TestLoadMissingFileDegrades(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "no-such-policy.yml"))
	if err != nil {
		t.Fatalf("missing policy should not error, got %v", err)
	}
	if p == nil {
		t.Fatal("missing policy returned nil")
	}
	if p.Services == nil || p.ServiceDirs == nil {
		t.Error("maps not normalized on empty policy")
	}
	if len(p.Validator.MockForbiddenTerms) == 0 {
		t.Error("mock term defaults not applied")
	}
}

func TestLoadBrokenDocumentDegrades(t *testing.T) {
	p, err := Load(writePolicy(t, "services: [unclosed"))
	if err == nil {
		t.Fatal("broken yaml should surface an error")
	}
	if p == nil {
		t.Fatal("broken yaml returned nil policy")
	}
	if len(p.Services) != 0 {
		t.Errorf("broken yaml produced services: %v", p.Services)
	}
}

func TestKeyPrefix(t *testing.T) {
	p, err := Load(writePolicy(t, samplePolicy))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := p.KeyPrefix("backend-orchestrator"); got != "bo:" {
		t.Errorf("explicit prefix = %q, want bo:", got)
	}
	if got := p.KeyPrefix("memory-engine"); got != "memory-engine:" {
		t.Errorf("default prefix = %q, want memory-engine:", got)
	}
}

func TestLiteralReturnForbiddenDefault(t *testing.T) {
	p := applyDefaults(&Policy{})
	if !p.LiteralReturnForbidden() {
		t.Error("literal-return check should default on")
	}

	off := false
	p.Validator.ForbidLiteralReturnInExcept = &off
	if p.LiteralReturnForbidden() {
		t.Error("explicit false not honored")
	}
}

func TestTTLRequiredDefault(t *testing.T) {
	p := applyDefaults(&Policy{})
	if !p.TTLRequired() {
		t.Error("ttl check should default on when redis_cache is omitted")
	}

	off := false
	p.Validator.RedisCache.TTLRequiredOutsideDB = &off
	if p.TTLRequired() {
		t.Error("explicit false not honored")
	}
}
