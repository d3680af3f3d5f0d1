package rules

import (
	"path"
	"regexp"
	"strings"
)

// checkMockDataUsage flags placeholder-data terms in runtime source files.
// Test, fixture, example, script and migration paths are allow-listed, as
// are legitimate mocking-library imports.
func (v *Validator) checkMockDataUsage(ctx *fileContext) []Violation {
	if !hasSuffixAny(ctx.path, ".py", ".js", ".ts", ".tsx") {
		return nil
	}
	if v.isMockAllowedPath(ctx.path) {
		return nil
	}
	terms := v.policy.Validator.MockForbiddenTerms
	if len(terms) == 0 {
		return nil
	}

	escaped := make([]string, len(terms))
	for i, t := range terms {
		escaped[i] = regexp.QuoteMeta(strings.ToLower(t))
	}
	termRe := regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)

	var out []Violation
	for _, line := range ctx.added {
		s := strings.TrimSpace(line)
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		// unittest.mock imports are fine even in runtime files
		if strings.Contains(strings.ReplaceAll(s, " ", ""), "unittest.mock") ||
			strings.HasPrefix(s, "from unittest import mock") {
			continue
		}
		if termRe.MatchString(s) {
			out = append(out, Violation{
				Type:     TypeMockDataUsage,
				Message:  "Detected mock/fake/placeholder data usage in runtime code. Do NOT use mock data; fail clearly instead.",
				File:     ctx.path,
				Evidence: s,
			})
		}
	}
	return out
}

// isMockAllowedPath reports whether a path is allow-listed for mock terms,
// either by policy substring or by conventional test-file naming.
func (v *Validator) isMockAllowedPath(p string) bool {
	low := strings.ToLower(strings.ReplaceAll(p, `\`, "/"))
	for _, sub := range v.policy.Validator.MockAllowedPathSubstrings {
		if strings.Contains(low, strings.ToLower(sub)) {
			return true
		}
	}
	base := path.Base(low)
	return strings.HasPrefix(base, "test_") ||
		strings.HasSuffix(base, "_test.py") ||
		strings.Contains(base, ".spec.") ||
		strings.Contains(base, ".test.")
}
