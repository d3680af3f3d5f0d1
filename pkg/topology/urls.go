package topology

import (
	"fmt"
	"sort"
	"strings"
)

// ServiceURLs is the derived smoke-test surface for one service.
type ServiceURLs struct {
	Ports        []string `json:"ports"`
	BaseURLs     []string `json:"base_urls"`
	InternalURLs []string `json:"internal_urls"`
	CommonPaths  []string `json:"common_paths"`
}

// commonProbePaths are the endpoints services conventionally expose.
var commonProbePaths = []string{"/health", "/docs", "/openapi.json"}

// ServiceURLs derives base URLs from published ports and collects any
// env values that already look like http(s) URLs.
func (t *Topology) ServiceURLs() map[string]ServiceURLs {
	out := make(map[string]ServiceURLs, len(t.Matrix))
	for name, entry := range t.Matrix {
		hostPorts := extractHostPorts(entry.Ports)
		baseURLs := make([]string, 0, len(hostPorts))
		for _, hp := range hostPorts {
			baseURLs = append(baseURLs, fmt.Sprintf("http://localhost:%s", hp))
		}

		var internal []string
		seen := map[string]bool{}
		for _, v := range entry.Env {
			if v == nil {
				continue
			}
			if strings.HasPrefix(*v, "http://") || strings.HasPrefix(*v, "https://") {
				if !seen[*v] {
					seen[*v] = true
					internal = append(internal, *v)
				}
			}
		}
		sort.Strings(internal)

		out[name] = ServiceURLs{
			Ports:        entry.Ports,
			BaseURLs:     baseURLs,
			InternalURLs: internal,
			CommonPaths:  commonProbePaths,
		}
	}
	return out
}

// extractHostPorts pulls the host side out of compose port mappings.
// "8080:80", "127.0.0.1:8080:80/tcp" and bare "8080" all yield "8080".
func extractHostPorts(ports []string) []string {
	set := map[string]bool{}
	for _, p := range ports {
		s, _, _ := strings.Cut(p, "/")
		parts := strings.Split(s, ":")
		var host string
		switch len(parts) {
		case 1:
			host = parts[0]
		case 2:
			host = parts[0]
		default:
			host = parts[len(parts)-2]
		}
		if host != "" && isDigits(host) {
			set[host] = true
		}
	}
	out := make([]string, 0, len(set))
	for hp := range set {
		out = append(out, hp)
	}
	sort.Strings(out)
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
