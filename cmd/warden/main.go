// Warden is an architecture-guardrail engine for multi-service projects.
//
// It validates unified diffs against a declarative policy (forbidden
// imports, database ownership, migrations, multi-tenancy, cache usage,
// manifest hygiene), maintains a merged view of the project's compose
// topology, and serves both over HTTP and a stdio tool protocol.
//
// Usage:
//
//	# Start the API server with background freshness detection
//	warden serve
//
//	# Validate a diff from a file or stdin
//	warden validate change.patch
//	git diff | warden validate
//
//	# Speak the stdio tool protocol
//	warden tool
//
//	# Show version information
//	warden version
package main

func main() {
	Execute()
}
