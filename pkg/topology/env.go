package topology

import (
	"fmt"
	"sort"
	"strings"
)

// extractEnv normalizes the two manifest environment syntaxes into one map.
// List entries are "KEY=VALUE" or a bare "KEY" (declared without a value,
// kept as nil); mapping entries keep their value stringified.
func extractEnv(raw any) map[string]*string {
	env := map[string]*string{}
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if key, val, found := strings.Cut(s, "="); found {
				val := val
				env[key] = &val
			} else {
				env[s] = nil
			}
		}
	case map[string]any:
		for key, val := range v {
			if val == nil {
				env[key] = nil
				continue
			}
			s := fmt.Sprintf("%v", val)
			env[key] = &s
		}
	}
	return env
}

// stringList stringifies a manifest list field, tolerating scalar entries of
// any YAML type (port numbers arrive as ints).
func stringList(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			// long-form port mapping; keep the published port if present
			if pub, ok := v["published"]; ok {
				out = append(out, fmt.Sprintf("%v", pub))
			}
		default:
			out = append(out, fmt.Sprintf("%v", v))
		}
	}
	return out
}

// dependsOnList handles both the list form and the conditional map form of
// depends_on.
func dependsOnList(raw any) []string {
	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case map[string]any:
		out := make([]string, 0, len(v))
		for name := range v {
			out = append(out, name)
		}
		sort.Strings(out)
		return out
	}
	return nil
}
