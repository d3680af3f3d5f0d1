package policy

// ServiceRule is the policy contract for one named service. It serializes
// to JSON with the same field names it carries in the policy document, so
// contract lookups mirror the document on the wire.
type ServiceRule struct {
	// BlockedImports are module names this service may never import.
	BlockedImports []string `yaml:"blocked_imports" json:"blocked_imports"`

	// BlockedEnvVars are environment variable names this service may not
	// declare in a manifest.
	BlockedEnvVars []string `yaml:"blocked_env_vars" json:"blocked_env_vars"`

	// AllowedDBAccess marks the service as a database owner. Only owners may
	// reference connection strings or run persistent Redis commands.
	AllowedDBAccess bool `yaml:"allowed_db_access" json:"allowed_db_access"`

	// RedisDB is the Redis logical database this service must use, when set.
	RedisDB *int `yaml:"redis_db" json:"redis_db,omitempty"`

	// Description is free-form documentation surfaced by the contract lookup.
	Description string `yaml:"description" json:"description,omitempty"`
}

// RedisRules configures the cache-usage checks.
type RedisRules struct {
	// TTLRequiredOutsideDB requires an expiry on cache writes in services
	// that do not own the database. Nil means enabled.
	TTLRequiredOutsideDB *bool `yaml:"ttl_required_outside_db"`

	// ClientImports are import paths recognized as Redis client libraries.
	ClientImports []string `yaml:"redis_client_imports"`

	// InvalidationCalls are method names that count as cache invalidation.
	InvalidationCalls []string `yaml:"invalidation_calls"`

	// DBWriteHints are substrings that mark a database write site.
	DBWriteHints []string `yaml:"db_write_hints"`

	// DisallowedPersistentCmds are commands that suggest persisting domain
	// state in Redis, forbidden outside DB-owning services.
	DisallowedPersistentCmds []string `yaml:"disallowed_persistent_cmds_outside_db"`

	// KeyPrefixPerService maps service name to its required cache key prefix.
	// Services without an entry default to "<service>:".
	KeyPrefixPerService map[string]string `yaml:"key_prefix_per_service"`
}

// ValidatorSettings are the global knobs shared by all checks.
type ValidatorSettings struct {
	// BlockedDBImports are database driver modules blocked in every service
	// that is not a database owner.
	BlockedDBImports []string `yaml:"blocked_db_imports"`

	// BlockedLLMImportsGateway are LLM client modules blocked specifically in
	// the gateway service named by GatewayService.
	BlockedLLMImportsGateway []string `yaml:"blocked_llm_imports_gateway"`

	// GatewayService names the service the LLM import block applies to.
	GatewayService string `yaml:"gateway_service"`

	// ComposeBlockedEnvForServices adds manifest-only blocked env vars per
	// service, on top of the per-service BlockedEnvVars.
	ComposeBlockedEnvForServices map[string][]string `yaml:"compose_blocked_env_for_services"`

	// SensitiveEnvKeys are environment keys that must never carry a default
	// in an environment-read call.
	SensitiveEnvKeys []string `yaml:"sensitive_env_keys_for_fallback"`

	// ReservedIdentifiers are ORM-reserved names (e.g. "metadata") that must
	// not be assigned or used as column names.
	ReservedIdentifiers []string `yaml:"reserved_sqlalchemy_identifiers"`

	// MockForbiddenTerms are placeholder-data terms forbidden in runtime code.
	MockForbiddenTerms []string `yaml:"mock_data_forbidden_terms"`

	// MockAllowedPathSubstrings are path fragments where mock terms are fine.
	MockAllowedPathSubstrings []string `yaml:"mock_data_allowed_path_substrings"`

	// ForbidLiteralReturnInExcept enables the swallowed-exception check.
	ForbidLiteralReturnInExcept *bool `yaml:"forbid_literal_return_in_except"`

	// RedisCache configures the cache-usage checks.
	RedisCache RedisRules `yaml:"redis_cache"`
}

// MultiTenant holds the tenant-isolation patterns.
type MultiTenant struct {
	// ForbiddenPatterns are substrings that indicate non-tenant-safe SQL.
	ForbiddenPatterns []string `yaml:"forbidden_patterns"`
}

// Policy is the full declarative rule document.
//
// It is read-only after Load; the engine swaps in a fresh Policy on refresh
// rather than mutating the live one.
type Policy struct {
	Services map[string]ServiceRule `yaml:"services"`

	Validator ValidatorSettings `yaml:"validator"`

	MigrationsAllowedServices []string `yaml:"migrations_allowed_services"`

	MultiTenant MultiTenant `yaml:"multi_tenant"`

	// ComposeFiles are manifest paths or glob patterns, relative to the repo
	// root, merged into the service topology.
	ComposeFiles []string `yaml:"compose_files"`

	// DocsFiles are reference documents included in the freshness digest and
	// the system overview.
	DocsFiles []string `yaml:"docs_files"`

	// ServiceDirs maps a repository directory prefix to the service that owns
	// it, used to attribute changed files to services.
	ServiceDirs map[string]string `yaml:"service_dirs"`
}

// Service returns the rule contract for a service, and whether it exists.
func (p *Policy) Service(name string) (ServiceRule, bool) {
	rule, ok := p.Services[name]
	return rule, ok
}

// AllowsDBAccess reports whether the named service owns the database.
// Unknown services do not.
func (p *Policy) AllowsDBAccess(name string) bool {
	return p.Services[name].AllowedDBAccess
}

// KeyPrefix returns the required Redis key prefix for a service.
func (p *Policy) KeyPrefix(service string) string {
	if prefix, ok := p.Validator.RedisCache.KeyPrefixPerService[service]; ok && prefix != "" {
		return prefix
	}
	return service + ":"
}

// TTLRequired reports whether non-DB services must set an expiry on cache
// writes. It defaults to enabled when the policy does not say otherwise.
func (p *Policy) TTLRequired() bool {
	if p.Validator.RedisCache.TTLRequiredOutsideDB == nil {
		return true
	}
	return *p.Validator.RedisCache.TTLRequiredOutsideDB
}

// LiteralReturnForbidden reports whether the swallowed-exception check is on.
// It defaults to enabled when the policy does not say otherwise.
func (p *Policy) LiteralReturnForbidden() bool {
	if p.Validator.ForbidLiteralReturnInExcept == nil {
		return true
	}
	return *p.Validator.ForbidLiteralReturnInExcept
}
