package topology

import "strings"

// ServiceForPath resolves the service that owns a repository path by
// longest-prefix match against the policy's directory map. Returns "" when
// no directory claims the path.
func ServiceForPath(dirs map[string]string, path string) string {
	path = strings.TrimPrefix(strings.TrimPrefix(path, "./"), "/")

	best := ""
	bestLen := -1
	for dir, svc := range dirs {
		prefix := strings.TrimSuffix(dir, "/") + "/"
		if strings.HasPrefix(path, prefix) && len(prefix) > bestLen {
			best = svc
			bestLen = len(prefix)
		}
	}
	return best
}
