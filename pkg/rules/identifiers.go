package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// checkReservedIdentifiers flags assignments to, or columns named after, an
// ORM-reserved identifier such as "metadata". Python sources only.
func (v *Validator) checkReservedIdentifiers(ctx *fileContext) []Violation {
	if !hasSuffixAny(ctx.path, ".py", ".pyi") {
		return nil
	}
	reserved := v.policy.Validator.ReservedIdentifiers
	if len(reserved) == 0 {
		return nil
	}

	escaped := make([]string, len(reserved))
	for i, name := range reserved {
		escaped[i] = regexp.QuoteMeta(strings.ToLower(name))
	}
	alternation := strings.Join(escaped, "|")
	assignRe := regexp.MustCompile(`(?i)\b(` + alternation + `)\s*=`)
	columnRe := regexp.MustCompile(`(?i)Column\s*\(\s*['"](` + alternation + `)['"]\s*[,)]`)

	var out []Violation
	for _, line := range ctx.added {
		if assignRe.MatchString(line) {
			out = append(out, Violation{
				Type:     TypeReservedIdentifier,
				Message:  fmt.Sprintf("Use of reserved identifier detected; rename to avoid shadowing (reserved: %s).", strings.Join(reserved, ", ")),
				File:     ctx.path,
				Evidence: strings.TrimSpace(line),
			})
			continue
		}
		if columnRe.MatchString(line) {
			out = append(out, Violation{
				Type:     TypeReservedIdentifier,
				Message:  "Column named with a reserved identifier; use a different column/attribute name.",
				File:     ctx.path,
				Evidence: strings.TrimSpace(line),
			})
		}
	}
	return out
}

// hasSuffixAny reports whether s ends with any of the suffixes.
func hasSuffixAny(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
