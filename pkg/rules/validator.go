package rules

import (
	"log/slog"
	"path"
	"strings"

	"archguard-hq/warden/pkg/diffparse"
	"archguard-hq/warden/pkg/policy"
	"archguard-hq/warden/pkg/topology"
)

// Validator is the compiled rule battery for one policy snapshot. It is
// immutable after New and safe for concurrent use; a policy refresh builds a
// new Validator rather than touching a live one.
type Validator struct {
	policy *policy.Policy
	logger *slog.Logger

	// manifestFiles is the literal (non-glob) policy manifest list for exact
	// path matching.
	manifestFiles map[string]bool

	rules []namedRule
}

// namedRule pairs a check with its identifier for logging.
type namedRule struct {
	name string
	fn   func(*fileContext) []Violation
}

// fileContext is the per-file input every plain rule receives.
type fileContext struct {
	validator *Validator
	path      string
	service   string
	added     []string
}

// New compiles a Validator from a policy snapshot.
func New(pol *policy.Policy) *Validator {
	v := &Validator{
		policy:        pol,
		logger:        slog.Default().With("component", "rules"),
		manifestFiles: make(map[string]bool, len(pol.ComposeFiles)),
	}
	for _, f := range pol.ComposeFiles {
		v.manifestFiles[f] = true
	}

	// Registration order is fixed; each rule is independent and a failure in
	// one never suppresses the rest.
	v.rules = []namedRule{
		{"blocked_imports", v.checkBlockedImports},
		{"blocked_db_urls", v.checkBlockedDBURLs},
		{"migrations", v.checkMigrations},
		{"multi_tenant", v.checkMultiTenant},
		{"reserved_identifiers", v.checkReservedIdentifiers},
		{"env_fallbacks", v.checkHardcodedEnvFallbacks},
		{"mock_data", v.checkMockDataUsage},
		{"silent_failure", v.checkLiteralReturnInExcept},
		{"redis_usage", v.checkRedisUsage},
	}
	return v
}

// ValidateDiff runs the full battery over a unified diff and aggregates
// violations across all changed files.
func (v *Validator) ValidateDiff(diffText string) Result {
	var violations []Violation
	for _, change := range diffparse.Parse(diffText) {
		violations = append(violations, v.validateFile(change)...)
	}
	return NewResult(violations)
}

// validateFile routes one file: manifests go exclusively through the
// structural scanner, everything else through the plain rule set.
func (v *Validator) validateFile(change diffparse.FileChange) []Violation {
	if v.isManifestPath(change.Path) {
		return v.scanManifest(change.Path, change.Added)
	}

	ctx := &fileContext{
		validator: v,
		path:      change.Path,
		service:   topology.ServiceForPath(v.policy.ServiceDirs, change.Path),
		added:     change.Added,
	}

	var violations []Violation
	for _, rule := range v.rules {
		violations = append(violations, v.runRule(rule, ctx)...)
	}
	return violations
}

// runRule executes one check with panic containment: a bug in a single
// pattern must not blank out the findings of every other rule for the file.
func (v *Validator) runRule(rule namedRule, ctx *fileContext) (out []Violation) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("rule panicked, skipping",
				"rule", rule.name,
				"file", ctx.path,
				"panic", r,
			)
			out = nil
		}
	}()
	return rule.fn(ctx)
}

// isManifestPath reports whether a changed file is a topology manifest:
// listed verbatim in the policy, a docker-compose*.yml|yaml, or a
// compose.yml|yaml.
func (v *Validator) isManifestPath(p string) bool {
	if v.manifestFiles[p] {
		return true
	}
	if strings.Contains(p, "docker-compose") &&
		(strings.HasSuffix(p, ".yml") || strings.HasSuffix(p, ".yaml")) {
		return true
	}
	base := path.Base(p)
	return base == "compose.yml" || base == "compose.yaml"
}
