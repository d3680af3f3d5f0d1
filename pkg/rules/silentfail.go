package rules

import (
	"regexp"
	"strings"
)

// Literal-return patterns for the two language families the battery covers.
var (
	literalReturnPyRe = regexp.MustCompile(`^\s*return\s+(\{.*\}|\[.*\]|['"].*['"]|None|True|False|\d+)[\s#]*$`)
	literalReturnJSRe = regexp.MustCompile(`^\s*return\s+(\{.*\}|\[.*\]|['"].*['"]|null|true|false|\d+)[\s/]*.*$`)
)

// exceptLookahead is how many added lines after an exception-handler header
// are scanned for a literal return.
const exceptLookahead = 6

// checkLiteralReturnInExcept flags a literal value returned shortly after an
// except/catch header: the classic swallowed exception that hides an outage
// behind fabricated data.
func (v *Validator) checkLiteralReturnInExcept(ctx *fileContext) []Violation {
	if !v.policy.LiteralReturnForbidden() {
		return nil
	}
	isPy := hasSuffixAny(ctx.path, ".py")
	isJS := hasSuffixAny(ctx.path, ".js", ".ts", ".tsx")
	if !isPy && !isJS {
		return nil
	}

	var out []Violation
	for i, line := range ctx.added {
		s := strings.TrimSpace(line)
		handler := (isPy && (strings.HasPrefix(s, "except ") || s == "except:")) ||
			(isJS && (strings.Contains(s, "catch(") || strings.HasPrefix(s, "catch ")))
		if !handler {
			continue
		}

		limit := i + 1 + exceptLookahead
		if limit > len(ctx.added) {
			limit = len(ctx.added)
		}
		for j := i + 1; j < limit; j++ {
			next := strings.TrimRight(ctx.added[j], "\n")
			if (isPy && literalReturnPyRe.MatchString(next)) ||
				(isJS && literalReturnJSRe.MatchString(next)) {
				out = append(out, Violation{
					Type:     TypeSilentFailureReturn,
					Message:  "Do not return literal values from exception handlers. Raise a clear domain error or surface the outage.",
					File:     ctx.path,
					Evidence: strings.TrimSpace(next),
				})
				break
			}
		}
	}
	return out
}
