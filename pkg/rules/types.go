package rules

// Violation type identifiers. These are stable wire values: callers and
// dashboards key on them.
const (
	TypeBlockedImport         = "blocked_import"
	TypeBlockedDBAccess       = "blocked_db_access"
	TypeBlockedMigration      = "blocked_migration"
	TypeMultiTenantViolation  = "multi_tenant_violation"
	TypeReservedIdentifier    = "sqlalchemy_reserved_identifier"
	TypeHardcodedEnvFallback  = "hardcoded_env_fallback"
	TypeMockDataUsage         = "mock_data_usage"
	TypeSilentFailureReturn   = "silent_failure_literal_return"
	TypeRedisTTLRequired      = "redis_ttl_required"
	TypeRedisKeyNotNamespaced = "redis_key_not_namespaced"
	TypeRedisPersistentCmd    = "redis_persistent_cmd_not_allowed"
	TypeMissingInvalidation   = "missing_cache_invalidation_after_db_write"

	TypeComposeBlockedEnv         = "compose_blocked_env"
	TypeComposeBlockedDBAccess    = "compose_blocked_db_access"
	TypeComposeEnvFileAdded       = "compose_env_file_added"
	TypeComposeRedisDBMismatch    = "compose_redis_db_mismatch"
	TypeComposeRedisURLDBMismatch = "compose_redis_url_db_mismatch"

	TypeTimeout = "timeout"
)

// Violation is one reported guardrail breach.
type Violation struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	File     string `json:"file,omitempty"`
	Evidence string `json:"evidence,omitempty"`
}

// Result is the outcome of validating one diff. OK is true iff Violations is
// empty.
type Result struct {
	OK         bool        `json:"ok"`
	Violations []Violation `json:"violations"`
}

// NewResult wraps a violation list, normalizing nil to an empty slice so the
// JSON shape is stable.
func NewResult(violations []Violation) Result {
	if violations == nil {
		violations = []Violation{}
	}
	return Result{OK: len(violations) == 0, Violations: violations}
}
