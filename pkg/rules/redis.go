package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// Lookahead windows for the cache rules, in added lines.
const (
	expireLookahead       = 4
	invalidationLookahead = 14
)

// cacheMethodNames are the calls that mark a variable as a cache client once
// a Redis import has been seen in the diff.
var cacheMethodNames = map[string]bool{
	"set": true, "setex": true, "psetex": true, "hset": true, "zadd": true,
	"xadd": true, "lpush": true, "rpush": true, "sadd": true, "expire": true,
	"pexpire": true, "delete": true, "unlink": true, "publish": true,
}

// extraInvalidationCalls extend the policy's invalidation list with the
// common helper names.
var extraInvalidationCalls = []string{
	"delete_many", "delete_pattern", "del_pattern", "invalidate", "clear",
}

var (
	clientAssignRes = []*regexp.Regexp{
		regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(?:[A-Za-z_][A-Za-z0-9_]*\.)?Redis\s*\(`),
		regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*aioredis\.(?:from_url|Redis)\s*\(`),
		regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*redis\.asyncio\.(?:from_url|Redis)\s*\(`),
		regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*[A-Za-z_][A-Za-z0-9_]*\.pipeline\s*\(`),
	}
	callVarRe = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*)\(`)
	varSetRe  = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\.set\s*\(`)
	// Literal first argument to a client call, tolerating f/r/b/u prefixes.
	modKeyLitRe = regexp.MustCompile(`\bredis\.[A-Za-z_][A-Za-z0-9_]*\s*\(\s*[fFrRbBuU]*(?:'([^']+)'|"([^"]+)")`)
)

// redisScan is the per-file working state for the cache rules: which
// variables look like client handles, and whether the diff imports a client
// library at all. The variable heuristic is deliberately light; it exists to
// avoid flagging unrelated .set() calls, not to be a type checker.
type redisScan struct {
	hasImportHint bool
	clientVars    map[string]bool
}

// checkRedisUsage enforces the cache-usage contract: TTLs outside DB owners,
// namespaced literal keys, no persistent structures outside DB owners, and
// invalidation near DB writes inside them. Python sources only.
func (v *Validator) checkRedisUsage(ctx *fileContext) []Violation {
	if ctx.service == "" || !hasSuffixAny(ctx.path, ".py", ".pyi") {
		return nil
	}
	rule, _ := v.policy.Service(ctx.service)
	scan := v.collectClients(ctx.added)

	var out []Violation
	if v.policy.TTLRequired() && !rule.AllowedDBAccess {
		out = append(out, v.checkTTL(ctx, scan)...)
	}
	out = append(out, v.checkKeyNamespacing(ctx, scan)...)
	if !rule.AllowedDBAccess {
		out = append(out, v.checkPersistentCmds(ctx, scan)...)
	}
	if rule.AllowedDBAccess {
		out = append(out, v.checkCacheInvalidation(ctx, scan)...)
	}
	return out
}

// collectClients finds the import hint and likely client variables.
func (v *Validator) collectClients(added []string) *redisScan {
	clients := append([]string{"redis", "redis.asyncio", "aioredis"},
		v.policy.Validator.RedisCache.ClientImports...)

	scan := &redisScan{clientVars: map[string]bool{}}
	for _, line := range added {
		s := strings.TrimSpace(line)
		for _, c := range clients {
			if strings.HasPrefix(s, "import "+c) || strings.HasPrefix(s, "from "+c+" ") {
				scan.hasImportHint = true
				break
			}
		}
		if scan.hasImportHint {
			break
		}
	}

	for _, line := range added {
		for _, re := range clientAssignRes {
			if m := re.FindStringSubmatch(line); m != nil {
				scan.clientVars[m[1]] = true
			}
		}
		if scan.hasImportHint {
			if m := callVarRe.FindStringSubmatch(strings.ReplaceAll(line, " ", "")); m != nil && cacheMethodNames[m[2]] {
				scan.clientVars[m[1]] = true
			}
		}
	}
	return scan
}

// checkTTL flags cache writes without an expiry and without an expire-family
// call on the same client within the lookahead window.
func (v *Validator) checkTTL(ctx *fileContext, scan *redisScan) []Violation {
	var out []Violation
	for i, line := range ctx.added {
		s := strings.TrimSpace(line)
		compact := strings.ReplaceAll(s, " ", "")

		// module-style: redis.set(...)
		if strings.Contains(compact, "redis.") && strings.Contains(compact, ".set(") &&
			!strings.Contains(compact, "setex(") &&
			!strings.Contains(compact, "ex=") && !strings.Contains(compact, "px=") {
			if !v.expireFollows(ctx.added, i, "redis") {
				out = append(out, v.ttlViolation(ctx, s))
			}
			continue
		}

		// var-style: <client>.set(...)
		m := varSetRe.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		name := m[1]
		if !scan.hasImportHint && !scan.clientVars[name] {
			continue
		}
		if strings.Contains(compact, "setex(") ||
			strings.Contains(compact, "ex=") || strings.Contains(compact, "px=") {
			continue
		}
		if !v.expireFollows(ctx.added, i, name) {
			out = append(out, v.ttlViolation(ctx, s))
		}
	}
	return out
}

// expireFollows reports whether an expire-family call on the given receiver
// appears within the lookahead window after index i.
func (v *Validator) expireFollows(added []string, i int, receiver string) bool {
	limit := i + 1 + expireLookahead
	if limit > len(added) {
		limit = len(added)
	}
	for j := i + 1; j < limit; j++ {
		seg := strings.ReplaceAll(added[j], " ", "")
		for _, call := range []string{".expire(", ".pexpire(", ".expireat(", ".pexpireat("} {
			if strings.Contains(seg, receiver+call) {
				return true
			}
		}
	}
	return false
}

func (v *Validator) ttlViolation(ctx *fileContext, evidence string) Violation {
	return Violation{
		Type:     TypeRedisTTLRequired,
		Message:  fmt.Sprintf("Service %q must set a TTL when writing to Redis (use ex=/px=, setex, or expire immediately after set).", ctx.service),
		File:     ctx.path,
		Evidence: evidence,
	}
}

// checkKeyNamespacing flags literal cache keys that do not start with the
// service's required prefix.
func (v *Validator) checkKeyNamespacing(ctx *fileContext, scan *redisScan) []Violation {
	prefix := v.policy.KeyPrefix(ctx.service)

	var out []Violation
	flag := func(line string) {
		out = append(out, Violation{
			Type:     TypeRedisKeyNotNamespaced,
			Message:  fmt.Sprintf("Redis key should be namespaced with %q for service %q.", prefix+"*", ctx.service),
			File:     ctx.path,
			Evidence: strings.TrimSpace(line),
		})
	}

	for _, line := range ctx.added {
		if lit := firstLiteralArg(modKeyLitRe, line); lit != "" && !strings.HasPrefix(lit, prefix) {
			flag(line)
		}
	}

	if len(scan.clientVars) == 0 && !scan.hasImportHint {
		return out
	}
	for name := range scan.clientVars {
		if name == "redis" {
			continue // module style above already covers it
		}
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) +
			`\.[A-Za-z_][A-Za-z0-9_]*\s*\(\s*[fFrRbBuU]*(?:'([^']+)'|"([^"]+)")`)
		for _, line := range ctx.added {
			if lit := firstLiteralArg(re, line); lit != "" && !strings.HasPrefix(lit, prefix) {
				flag(line)
			}
		}
	}
	return out
}

// firstLiteralArg extracts the quoted literal from a client-call match.
func firstLiteralArg(re *regexp.Regexp, line string) string {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

// checkPersistentCmds flags persistent-structure commands outside DB owners.
func (v *Validator) checkPersistentCmds(ctx *fileContext, scan *redisScan) []Violation {
	cmds := v.policy.Validator.RedisCache.DisallowedPersistentCmds
	if len(cmds) == 0 {
		return nil
	}

	var out []Violation
	for _, line := range ctx.added {
		compact := strings.ReplaceAll(line, " ", "")
		for _, cmd := range cmds {
			if strings.Contains(compact, "redis."+cmd+"(") {
				out = append(out, v.persistentViolation(ctx, cmd, line))
				continue
			}
			re := regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\.` + regexp.QuoteMeta(cmd) + `\s*\(`)
			if m := re.FindStringSubmatch(line); m != nil &&
				(scan.hasImportHint || scan.clientVars[m[1]]) {
				out = append(out, v.persistentViolation(ctx, cmd, line))
			}
		}
	}
	return out
}

func (v *Validator) persistentViolation(ctx *fileContext, cmd, line string) Violation {
	return Violation{
		Type:     TypeRedisPersistentCmd,
		Message:  fmt.Sprintf("Command %q suggests persisting domain state in Redis. Use the database as source of truth and cache with TTL only (service %q).", cmd, ctx.service),
		File:     ctx.path,
		Evidence: strings.TrimSpace(line),
	}
}

// checkCacheInvalidation requires an invalidation call within the forward
// window after each DB-write hint, for DB-owning services.
func (v *Validator) checkCacheInvalidation(ctx *fileContext, scan *redisScan) []Violation {
	hints := v.policy.Validator.RedisCache.DBWriteHints
	if len(hints) == 0 {
		return nil
	}

	invCalls := map[string]bool{}
	for _, c := range v.policy.Validator.RedisCache.InvalidationCalls {
		invCalls[c] = true
	}
	for _, c := range extraInvalidationCalls {
		invCalls[c] = true
	}
	var modPatterns []string
	for c := range invCalls {
		if c != "cache_invalidate" {
			modPatterns = append(modPatterns, "redis."+c+"(")
		}
	}

	var out []Violation
	for i, line := range ctx.added {
		if !containsAny(line, hints) {
			continue
		}
		if v.invalidationFollows(ctx.added, i, modPatterns, invCalls, scan) {
			continue
		}
		out = append(out, Violation{
			Type:     TypeMissingInvalidation,
			Message:  fmt.Sprintf("DB write detected in %q but no cache invalidation nearby; delete/expire/publish or cache_invalidate after commit.", ctx.service),
			File:     ctx.path,
			Evidence: strings.TrimSpace(line),
		})
	}
	return out
}

// invalidationFollows scans the forward window (including the hint line) for
// any invalidation form.
func (v *Validator) invalidationFollows(added []string, i int, modPatterns []string, invCalls map[string]bool, scan *redisScan) bool {
	limit := i + invalidationLookahead
	if limit > len(added) {
		limit = len(added)
	}
	for j := i; j < limit; j++ {
		seg := added[j]
		if containsAny(seg, modPatterns) || strings.Contains(seg, "cache_invalidate(") {
			return true
		}
		if m := callVarRe.FindStringSubmatch(strings.ReplaceAll(seg, " ", "")); m != nil &&
			(scan.hasImportHint || scan.clientVars[m[1]]) && invCalls[m[2]] {
			return true
		}
	}
	return false
}
