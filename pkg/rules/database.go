package rules

import (
	"fmt"
	"sort"
	"strings"
)

// dbURLHints are the connection-string schemes that mark direct database
// configuration.
var dbURLHints = []string{
	"postgresql://",
	"postgresql+asyncpg://",
	"postgres://",
}

// checkBlockedDBURLs flags connection strings added in services that do not
// own the database.
func (v *Validator) checkBlockedDBURLs(ctx *fileContext) []Violation {
	if ctx.service == "" || v.policy.AllowsDBAccess(ctx.service) {
		return nil
	}

	var out []Violation
	for _, line := range ctx.added {
		low := strings.ToLower(line)
		if strings.Contains(low, "database_url") || containsAny(low, dbURLHints) {
			out = append(out, Violation{
				Type:     TypeBlockedDBAccess,
				Message:  fmt.Sprintf("Direct database URL/config detected in %q, which is not allowed.", ctx.service),
				File:     ctx.path,
				Evidence: strings.TrimSpace(line),
			})
		}
	}
	return out
}

// Migration tooling markers.
var (
	migrationImports  = []string{"alembic"}
	migrationDirHints = []string{"migrations", "alembic"}
)

// checkMigrations restricts migration directories and migration-tool imports
// to the policy-allowed services.
func (v *Validator) checkMigrations(ctx *fileContext) []Violation {
	allowed := v.policy.MigrationsAllowedServices
	if ctx.service != "" {
		for _, svc := range allowed {
			if svc == ctx.service {
				return nil
			}
		}
	}

	sorted := append([]string(nil), allowed...)
	sort.Strings(sorted)

	if containsAny(ctx.path, migrationDirHints) {
		return []Violation{{
			Type:     TypeBlockedMigration,
			Message:  fmt.Sprintf("Migrations are only allowed in services %v.", sorted),
			File:     ctx.path,
			Evidence: ctx.path,
		}}
	}

	var out []Violation
	for _, line := range ctx.added {
		if containsAny(line, migrationImports) {
			out = append(out, Violation{
				Type:     TypeBlockedMigration,
				Message:  fmt.Sprintf("Migration tooling usage is restricted to %v.", sorted),
				File:     ctx.path,
				Evidence: strings.TrimSpace(line),
			})
		}
	}
	return out
}

// containsAny reports whether s contains any of the needles.
func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
