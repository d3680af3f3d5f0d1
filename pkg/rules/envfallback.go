package rules

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	getenvRe     = regexp.MustCompile(`os\.getenv\(\s*['"]([A-Za-z_][A-Za-z0-9_]*)['"]\s*,\s*([^)]+)\)`)
	environGetRe = regexp.MustCompile(`os\.environ\.get\(\s*['"]([A-Za-z_][A-Za-z0-9_]*)['"]\s*,\s*([^)]+)\)`)
	stringLitRe  = regexp.MustCompile(`^\s*['"].*['"]\s*$`)
)

// checkHardcodedEnvFallbacks flags environment reads that supply a default.
// Sensitive keys may never carry one; other keys are flagged when the default
// is a string literal. Python sources only.
func (v *Validator) checkHardcodedEnvFallbacks(ctx *fileContext) []Violation {
	if !hasSuffixAny(ctx.path, ".py", ".pyi") {
		return nil
	}

	sensitive := map[string]bool{}
	for _, key := range v.policy.Validator.SensitiveEnvKeys {
		sensitive[strings.ToUpper(key)] = true
	}

	var out []Violation
	for _, line := range ctx.added {
		m := getenvRe.FindStringSubmatch(line)
		if m == nil {
			m = environGetRe.FindStringSubmatch(line)
		}
		if m == nil {
			continue
		}
		key := strings.TrimSpace(m[1])
		defaultExpr := strings.TrimSpace(m[2])

		if sensitive[strings.ToUpper(key)] || stringLitRe.MatchString(defaultExpr) {
			out = append(out, Violation{
				Type:     TypeHardcodedEnvFallback,
				Message:  fmt.Sprintf("Avoid default value in environment read for %q. Require config and fail fast instead of hardcoding.", key),
				File:     ctx.path,
				Evidence: strings.TrimSpace(line),
			})
		}
	}
	return out
}
