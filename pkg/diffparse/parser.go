package diffparse

import (
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// FileChange is one changed file extracted from a unified diff. Added and
// Removed hold the line text with the leading +/- marker stripped, in diff
// order. No line numbers or context lines are retained.
type FileChange struct {
	Path    string
	Added   []string
	Removed []string
}

// Parse converts unified-diff text into an ordered list of FileChanges.
//
// Well-formed diffs go through the go-diff parser. Anything it rejects falls
// back to a lenient line scanner that never fails: malformed hunks, missing
// headers or a truncated tail at worst lose lines, they never raise. Both
// paths produce identical records for a well-formed diff.
func Parse(text string) []FileChange {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	fileDiffs, err := diff.ParseMultiFileDiff([]byte(text))
	if err != nil {
		return scanLenient(text)
	}

	changes := make([]FileChange, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		name := fd.NewName
		if name == "" || name == "/dev/null" {
			name = fd.OrigName
		}
		ch := FileChange{Path: stripGitPrefix(name)}
		for _, hunk := range fd.Hunks {
			for _, line := range strings.Split(string(hunk.Body), "\n") {
				switch {
				case strings.HasPrefix(line, "+"):
					ch.Added = append(ch.Added, line[1:])
				case strings.HasPrefix(line, "-"):
					ch.Removed = append(ch.Removed, line[1:])
				}
			}
		}
		changes = append(changes, ch)
	}
	return changes
}

// scanLenient is the tolerant fallback parser. A "diff " line closes any open
// record, a "+++ b/<path>" line opens a new one, and +/- lines accumulate.
// A record still open at end of input is flushed.
func scanLenient(text string) []FileChange {
	var changes []FileChange
	var current *FileChange

	flush := func() {
		if current != nil {
			changes = append(changes, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "diff "):
			flush()
		case strings.HasPrefix(line, "+++ "):
			flush()
			path := stripGitPrefix(strings.TrimSpace(line[4:]))
			if path != "" && path != "/dev/null" {
				current = &FileChange{Path: path}
			}
		case strings.HasPrefix(line, "--- "):
			// old-file header, recognized but not retained
		case strings.HasPrefix(line, "+"):
			if current != nil {
				current.Added = append(current.Added, line[1:])
			}
		case strings.HasPrefix(line, "-"):
			if current != nil {
				current.Removed = append(current.Removed, line[1:])
			}
		}
	}
	flush()
	return changes
}

// stripGitPrefix removes the conventional a/ and b/ markers git puts in
// front of paths in diff headers.
func stripGitPrefix(name string) string {
	if strings.HasPrefix(name, "a/") || strings.HasPrefix(name, "b/") {
		return name[2:]
	}
	return name
}
