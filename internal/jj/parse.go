package jj

import (
	"fmt"
	"regexp"
	"strings"
)

// parseResolveOutput parses "change_id commit_id" lines from the resolve
// template. Exactly one line is required.
func parseResolveOutput(revset, out string) (Rev, error) {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	switch len(lines) {
	case 0:
		return Rev{}, fmt.Errorf("revset %q: %w", revset, ErrNotFound)
	case 1:
	default:
		return Rev{}, fmt.Errorf("revset %q: %w (%d revisions)", revset, ErrAmbiguous, len(lines))
	}
	fields := strings.Fields(lines[0])
	if len(fields) != 2 {
		return Rev{}, fmt.Errorf("revset %q: unexpected log output %q", revset, lines[0])
	}
	return Rev{ChangeID: fields[0], CommitID: fields[1]}, nil
}

// duplicatedRe matches the stderr line jj duplicate prints:
//
//	Duplicated 1a2b3c4d as zyxwvuts 9f8e7d6c some description
var duplicatedRe = regexp.MustCompile(`(?m)^Duplicated\s+\S+\s+as\s+(\S+)\s+(\S+)`)

// parseDuplicateOutput extracts the new change and commit ID from jj
// duplicate's stderr.
func parseDuplicateOutput(stderr string) (Rev, error) {
	m := duplicatedRe.FindStringSubmatch(stderr)
	if m == nil {
		return Rev{}, fmt.Errorf("jj duplicate: cannot find duplicated revision in output %q", strings.TrimSpace(stderr))
	}
	return Rev{ChangeID: m[1], CommitID: m[2]}, nil
}

// parseWorkspaceList parses "name: path" lines from jj workspace list.
// The current-workspace marker and malformed lines are skipped.
func parseWorkspaceList(out string) []Workspace {
	var workspaces []Workspace
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, path, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		name = strings.TrimSuffix(strings.TrimSpace(name), " (current)")
		workspaces = append(workspaces, Workspace{Name: name, Path: strings.TrimSpace(path)})
	}
	return workspaces
}

// revsetString quotes s as a revset string literal.
func revsetString(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
