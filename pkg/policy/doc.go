// Package policy loads the declarative guardrail policy document.
//
// A Policy is an immutable snapshot of per-service rules (blocked imports,
// blocked environment variables, database and Redis permissions) plus the
// global validator settings shared by every check. It is pure data: all
// behavior lives in the rules package. A refresh always produces a new
// Policy value; nothing mutates a Policy after Load returns it.
package policy
