package rules

import "strings"

// sqlPublicHints mark references to the shared "public" schema, which is
// never tenant-safe.
var sqlPublicHints = []string{
	`schema="public"`,
	`schema='public'`,
	`.schema('public')`,
	"create schema public",
	"drop schema public",
}

// checkMultiTenant flags added lines matching the policy's forbidden-pattern
// list or a public-schema SQL hint. One violation per line at most.
func (v *Validator) checkMultiTenant(ctx *fileContext) []Violation {
	patterns := make([]string, 0, len(v.policy.MultiTenant.ForbiddenPatterns)+len(sqlPublicHints))
	for _, p := range v.policy.MultiTenant.ForbiddenPatterns {
		patterns = append(patterns, strings.ToLower(p))
	}
	patterns = append(patterns, sqlPublicHints...)

	var out []Violation
	for _, line := range ctx.added {
		low := strings.ToLower(line)
		for _, pat := range patterns {
			if strings.Contains(low, pat) {
				out = append(out, Violation{
					Type:     TypeMultiTenantViolation,
					Message:  "Forbidden reference to public schema or non-tenant-safe SQL detected.",
					File:     ctx.path,
					Evidence: strings.TrimSpace(line),
				})
				break
			}
		}
	}
	return out
}
