package policy

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Default term and path lists applied when the policy document leaves the
// mock-data section empty. These mirror the long-standing engine defaults so
// a minimal policy still gets the anti-pattern checks.
var (
	defaultMockTerms = []string{
		"use_mock", "mock", "fake", "placeholder", "stub", "dummy", "sample_data",
	}

	defaultMockAllowedPaths = []string{
		"/tests/", "/test/", "/__tests__/", "/fixtures/", "/examples/", "/scripts/", "/migrations/",
	}
)

// Load reads the policy document at path.
//
// A missing file or unreadable document degrades to an empty Policy instead
// of failing: the validator then simply has nothing to enforce, which is the
// conservative outcome. Parse errors are reported but still yield the empty
// Policy, so a broken policy edit cannot take the engine down.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("policy document missing, using empty policy", "path", path)
			return applyDefaults(&Policy{}), nil
		}
		return applyDefaults(&Policy{}), fmt.Errorf("failed to read policy %q: %w", path, err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return applyDefaults(&Policy{}), fmt.Errorf("failed to parse policy %q: %w", path, err)
	}

	return applyDefaults(&p), nil
}

// applyDefaults fills the built-in term lists and normalizes nil maps so the
// rest of the engine never branches on missing sections.
func applyDefaults(p *Policy) *Policy {
	if p.Services == nil {
		p.Services = map[string]ServiceRule{}
	}
	if p.ServiceDirs == nil {
		p.ServiceDirs = map[string]string{}
	}
	if p.Validator.ComposeBlockedEnvForServices == nil {
		p.Validator.ComposeBlockedEnvForServices = map[string][]string{}
	}
	if p.Validator.RedisCache.KeyPrefixPerService == nil {
		p.Validator.RedisCache.KeyPrefixPerService = map[string]string{}
	}
	if len(p.Validator.MockForbiddenTerms) == 0 {
		p.Validator.MockForbiddenTerms = append([]string(nil), defaultMockTerms...)
	}
	if len(p.Validator.MockAllowedPathSubstrings) == 0 {
		p.Validator.MockAllowedPathSubstrings = append([]string(nil), defaultMockAllowedPaths...)
	}
	return p
}
