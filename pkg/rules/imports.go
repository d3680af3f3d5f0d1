package rules

import (
	"fmt"
	"regexp"
	"strings"
)

var fromImportRe = regexp.MustCompile(`^from\s+([A-Za-z0-9_\.]+)\s+import\s+.+$`)

// checkBlockedImports flags added import statements whose module matches the
// service's blocked set, the global blocked DB drivers, or the gateway-only
// LLM block list. A prefix segment match counts: blocking "sqlalchemy" also
// blocks "sqlalchemy.orm".
func (v *Validator) checkBlockedImports(ctx *fileContext) []Violation {
	if ctx.service == "" {
		return nil
	}

	blocked := map[string]bool{}
	if rule, ok := v.policy.Service(ctx.service); ok {
		for _, mod := range rule.BlockedImports {
			blocked[mod] = true
		}
	}
	for _, mod := range v.policy.Validator.BlockedDBImports {
		blocked[mod] = true
	}
	if ctx.service == v.policy.Validator.GatewayService {
		for _, mod := range v.policy.Validator.BlockedLLMImportsGateway {
			blocked[mod] = true
		}
	}
	if len(blocked) == 0 {
		return nil
	}

	var out []Violation
	for _, line := range ctx.added {
		stripped := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(stripped, "import "):
			for _, part := range strings.Split(stripped[len("import "):], ",") {
				name := strings.TrimSpace(strings.SplitN(strings.TrimSpace(part), " as ", 2)[0])
				if mod := matchBlockedModule(name, blocked); mod != "" {
					out = append(out, Violation{
						Type:     TypeBlockedImport,
						Message:  fmt.Sprintf("Import %q is not allowed in service %q.", mod, ctx.service),
						File:     ctx.path,
						Evidence: stripped,
					})
					break
				}
			}
		case strings.HasPrefix(stripped, "from "):
			m := fromImportRe.FindStringSubmatch(stripped)
			if m == nil {
				continue
			}
			if mod := matchBlockedModule(m[1], blocked); mod != "" {
				out = append(out, Violation{
					Type:     TypeBlockedImport,
					Message:  fmt.Sprintf("Import %q is not allowed in service %q.", mod, ctx.service),
					File:     ctx.path,
					Evidence: stripped,
				})
			}
		}
	}
	return out
}

// matchBlockedModule returns the blocked module an import name falls under,
// or "" when none does.
func matchBlockedModule(name string, blocked map[string]bool) string {
	for mod := range blocked {
		if name == mod || strings.HasPrefix(name, mod+".") {
			return mod
		}
	}
	return ""
}
