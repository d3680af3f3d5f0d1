package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// scanState is the structural position of the manifest scanner. The scanner
// reconstructs hierarchy from indentation alone because it only ever sees the
// added lines of a diff, never the surrounding document.
type scanState int

const (
	// stateOutside: not inside an added services: block.
	stateOutside scanState = iota
	// stateInServices: under services:, no service header seen yet.
	stateInServices
	// stateInService: under a named service header.
	stateInService
)

// Top-level manifest keys that are never service names.
var topLevelIgnores = map[string]bool{
	"services": true, "version": true, "volumes": true,
	"networks": true, "configs": true, "secrets": true,
}

// Known per-service fields. Anything else under a service is still treated
// as a field of that service, just an unrecognized one.
var serviceFieldIgnores = map[string]bool{
	"image": true, "build": true, "command": true, "entrypoint": true,
	"environment": true, "env_file": true, "ports": true, "volumes": true,
	"depends_on": true, "restart": true, "healthcheck": true, "deploy": true,
	"labels": true, "container_name": true, "networks": true, "logging": true,
	"extra_hosts": true, "user": true, "working_dir": true, "secrets": true,
	"configs": true, "expose": true, "stop_grace_period": true,
	"stop_signal": true, "ulimits": true, "cap_add": true, "cap_drop": true,
	"privileged": true,
}

var (
	servicesHeaderRe = regexp.MustCompile(`^\s*services:\s*$`)
	bareKeyRe        = regexp.MustCompile(`^\s*([A-Za-z0-9_-]+):\s*$`)
	envHeaderRe      = regexp.MustCompile(`^\s*environment\s*:\s*$`)
	envListItemRe    = regexp.MustCompile(`^\s*-\s*([A-Za-z_][A-Za-z0-9_]*)\s*=`)
	envDictItemRe    = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	inlineEnvListRe  = regexp.MustCompile(`^\s*environment\s*:\s*\[(.*)\]\s*$`)
	inlineEnvDictRe  = regexp.MustCompile(`^\s*environment\s*:\s*\{(.*)\}\s*$`)

	redisURLPathDBRe  = regexp.MustCompile(`rediss?://[^\s]*?/(\d+)`)
	redisURLQueryDBRe = regexp.MustCompile(`[?&]db=(\d+)`)
)

// composeScanner walks the added lines of one manifest file.
type composeScanner struct {
	validator *Validator
	path      string

	state          scanState
	servicesIndent int
	service        string
	serviceIndent  int
	inEnv          bool
	envIndent      int

	violations []Violation
}

// scanManifest attributes each added environment line to a service and runs
// the env/DB checks on the attributed triples.
//
// Attribution only works when the enclosing services:/service headers were
// themselves added by the diff. A line whose headers are unchanged context
// has no structural home and is dropped, never guessed; that coverage gap is
// inherent to diff-only analysis and pinned by tests.
func (v *Validator) scanManifest(path string, added []string) []Violation {
	s := &composeScanner{validator: v, path: path, state: stateOutside}
	for _, raw := range added {
		s.line(strings.TrimRight(raw, "\n"))
	}
	return s.violations
}

// line advances the state machine by one added line.
func (s *composeScanner) line(line string) {
	if servicesHeaderRe.MatchString(line) {
		s.state = stateInServices
		s.servicesIndent = indentOf(line)
		s.service = ""
		s.inEnv = false
		return
	}

	if s.state != stateOutside {
		ind := indentOf(line)
		trimmed := strings.TrimSpace(line)

		// dedent to or past the services block closes it entirely
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") && ind <= s.servicesIndent {
			s.state = stateOutside
			s.service = ""
			s.inEnv = false
		}

		if m := bareKeyRe.FindStringSubmatch(line); m != nil {
			if s.handleKey(m[1], ind) {
				return
			}
		}
	}

	if s.service == "" {
		return
	}

	if m := inlineEnvListRe.FindStringSubmatch(line); m != nil {
		s.inlineList(m[1], line)
		return
	}
	if m := inlineEnvDictRe.FindStringSubmatch(line); m != nil {
		s.inlineDict(m[1], line)
		return
	}

	if envHeaderRe.MatchString(line) {
		s.inEnv = true
		s.envIndent = indentOf(line)
		return
	}
	if s.inEnv && strings.TrimSpace(line) != "" && indentOf(line) <= s.envIndent {
		s.inEnv = false
	}
	if !s.inEnv {
		return
	}

	if m := envListItemRe.FindStringSubmatch(line); m != nil {
		value := ""
		if _, after, found := strings.Cut(line, "="); found {
			value = strings.TrimSpace(after)
		}
		s.envEntry(m[1], value, line)
		return
	}
	if m := envDictItemRe.FindStringSubmatch(line); m != nil {
		value := ""
		if _, after, found := strings.Cut(line, ":"); found {
			value = strings.TrimSpace(after)
		}
		s.envEntry(m[1], value, line)
	}
}

// handleKey processes a bare "key:" line. It returns true when the line was
// consumed as structure (service header or field).
func (s *composeScanner) handleKey(key string, ind int) bool {
	if topLevelIgnores[key] || strings.HasPrefix(key, "x-") {
		s.service = ""
		s.inEnv = false
		return true
	}
	if s.state == stateOutside || ind <= s.servicesIndent {
		return false
	}

	switch {
	case s.service == "":
		// first service header under services:
		s.state = stateInService
		s.service = key
		s.serviceIndent = ind
		s.inEnv = false
	case ind == s.serviceIndent:
		// sibling service replaces the current one
		s.service = key
		s.inEnv = false
	case ind > s.serviceIndent:
		// field of the current service
		if serviceFieldIgnores[key] {
			if key == "env_file" && !s.validator.policy.AllowsDBAccess(s.service) {
				s.violations = append(s.violations, Violation{
					Type:     TypeComposeEnvFileAdded,
					Message:  fmt.Sprintf("'env_file' added under service %q. External env files may conceal DB URLs; this service cannot own DB configs.", s.service),
					File:     s.path,
					Evidence: key + ":",
				})
			}
			s.inEnv = key == "environment"
			if s.inEnv {
				s.envIndent = ind
			}
		} else {
			s.inEnv = false
		}
	}
	return true
}

// inlineList handles environment: ["K=V", "FOO=bar"].
func (s *composeScanner) inlineList(inner, line string) {
	for _, tok := range strings.Split(inner, ",") {
		t := strings.Trim(strings.TrimSpace(tok), `"'`)
		if t == "" {
			continue
		}
		key, value, found := strings.Cut(t, "=")
		if !found {
			value = ""
		}
		s.envEntry(key, value, line)
	}
}

// inlineDict handles environment: {K: v, FOO: bar}.
func (s *composeScanner) inlineDict(inner, line string) {
	for _, tok := range strings.Split(inner, ",") {
		pair := strings.TrimSpace(tok)
		key, value, found := strings.Cut(pair, ":")
		if !found {
			continue
		}
		key = strings.Trim(strings.TrimSpace(key), `"'`)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		s.envEntry(key, value, line)
	}
}

// envEntry runs the checks for one attributed (service, key, value) triple.
func (s *composeScanner) envEntry(key, value, line string) {
	pol := s.validator.policy
	rule, _ := pol.Service(s.service)
	evidence := strings.TrimSpace(line)

	blocked := map[string]bool{}
	for _, name := range rule.BlockedEnvVars {
		blocked[name] = true
	}
	for _, name := range pol.Validator.ComposeBlockedEnvForServices[s.service] {
		blocked[name] = true
	}

	if blocked[key] {
		s.violations = append(s.violations, Violation{
			Type:     TypeComposeBlockedEnv,
			Message:  fmt.Sprintf("Environment variable %q is not allowed for service %q.", key, s.service),
			File:     s.path,
			Evidence: evidence,
		})
	}

	low := strings.ToLower(value)
	if !rule.AllowedDBAccess && (strings.Contains(low, "database_url") || containsAny(low, dbURLHints)) {
		s.violations = append(s.violations, Violation{
			Type:     TypeComposeBlockedDBAccess,
			Message:  fmt.Sprintf("Database URL detected in environment for service %q, which is not allowed.", s.service),
			File:     s.path,
			Evidence: evidence,
		})
	}

	if rule.RedisDB == nil {
		return
	}
	expected := *rule.RedisDB
	keyUp := strings.ToUpper(strings.TrimSpace(key))

	if strings.HasSuffix(keyUp, "REDIS_DB") {
		if actual, err := strconv.Atoi(strings.Trim(strings.TrimSpace(value), `"'`)); err == nil && actual != expected {
			s.violations = append(s.violations, Violation{
				Type:     TypeComposeRedisDBMismatch,
				Message:  fmt.Sprintf("Service %q must use REDIS_DB=%d per policy.", s.service, expected),
				File:     s.path,
				Evidence: evidence,
			})
		}
	}
	if strings.HasSuffix(keyUp, "REDIS_URL") {
		if actual, ok := redisDBFromURL(value); ok && actual != expected {
			s.violations = append(s.violations, Violation{
				Type:     TypeComposeRedisURLDBMismatch,
				Message:  fmt.Sprintf("Service %q REDIS_URL must reference DB %d per policy.", s.service, expected),
				File:     s.path,
				Evidence: evidence,
			})
		}
	}
}

// redisDBFromURL extracts the logical database from a redis:// URL, either
// the trailing /<n> path segment or a ?db=<n> query parameter.
func redisDBFromURL(raw string) (int, bool) {
	u := strings.Trim(strings.TrimSpace(raw), `"'`)
	if m := redisURLPathDBRe.FindStringSubmatch(u); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	if m := redisURLQueryDBRe.FindStringSubmatch(u); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	return 0, false
}

// indentOf counts leading spaces.
func indentOf(s string) int {
	return len(s) - len(strings.TrimLeft(s, " "))
}
