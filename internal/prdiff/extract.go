// Package prdiff turns a unified diff into the line ranges that a pull
// request added to each file, counted in the post-change version.
package prdiff

import (
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/team-mirai-volunteer/manifesto-notify-bot/internal/store"
)

// ExtractChangedFiles parses a unified diff (possibly covering several
// files) and returns one range per hunk that added lines. Ranges from
// separate hunks are never merged, even when adjacent. Deletion-only hunks
// and binary diffs produce nothing.
func ExtractChangedFiles(diffText string) ([]store.ChangedFileRange, error) {
	if strings.TrimSpace(diffText) == "" {
		return []store.ChangedFileRange{}, nil
	}

	fileDiffs, err := diff.ParseMultiFileDiff([]byte(diffText))
	if err != nil {
		return nil, fmt.Errorf("parse diff: %w", err)
	}

	ranges := []store.ChangedFileRange{}
	for _, fd := range fileDiffs {
		path := newPath(fd)
		if path == "" {
			continue
		}
		for _, hunk := range fd.Hunks {
			if r, ok := hunkAddedRange(path, hunk); ok {
				ranges = append(ranges, r)
			}
		}
	}
	return ranges, nil
}

// newPath returns the post-change path, taken from the b/ side. Deleted
// files have no post-change path.
func newPath(fd *diff.FileDiff) string {
	name := fd.NewName
	if name == "" || name == "/dev/null" {
		return ""
	}
	return strings.TrimPrefix(name, "b/")
}

// hunkAddedRange walks the hunk body with a line counter positioned at the
// hunk's new-file start. Added lines advance the counter and extend the
// range, context lines only advance it, and removed lines leave it alone
// because they do not exist in the new file.
func hunkAddedRange(path string, hunk *diff.Hunk) (store.ChangedFileRange, bool) {
	counter := int(hunk.NewStartLine)
	first, last := 0, 0

	lines := strings.Split(string(hunk.Body), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for _, line := range lines {
		if line == "" {
			// Blank context line whose leading space was trimmed.
			counter++
			continue
		}
		switch line[0] {
		case '+':
			if first == 0 {
				first = counter
			}
			last = counter
			counter++
		case '-':
			// Pure deletion: not present in the new file.
		case '\\':
			// "\ No newline at end of file" marker.
		default:
			counter++
		}
	}

	if first == 0 {
		return store.ChangedFileRange{}, false
	}
	return store.ChangedFileRange{Path: path, StartLine: first, EndLine: last}, true
}
