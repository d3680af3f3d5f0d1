// Package diffparse converts unified-diff text into per-file change records.
//
// The records carry only the text of added and removed lines, never their
// positions: the downstream checks are defined over line content alone, which
// keeps them robust against truncated or hand-edited diffs at the cost of the
// diff-only visibility gap documented in the rules package.
package diffparse
