// Package rules implements the guardrail rule battery.
//
// A Validator is built from a policy snapshot and checks the added lines of
// a unified diff. Manifest files route through an indentation-driven
// structural scanner that attributes environment lines to services; every
// other file runs an ordered registry of independent plain-file checks.
// Checks produce Violation values, never errors: a finding is data, and a
// panic inside one check is contained so it cannot blank out the findings of
// the others.
//
// The checks are deliberately heuristic. They match line text, not a parsed
// AST, and they only ever see lines the diff added. A manifest line whose
// enclosing service header is unchanged context cannot be attributed and is
// dropped rather than guessed; the same trade-off makes the code-smell checks
// defeatable by reformatting. That fidelity is part of the contract: the
// policy semantics were defined over diffs, and the tests pin the gaps.
package rules
