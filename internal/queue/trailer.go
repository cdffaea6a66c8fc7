package queue

import (
	"fmt"
	"strings"
)

// Values of the jjq-failure trailer.
const (
	FailureConflicts = "conflicts"
	FailureCheck     = "check"
)

// trailerPrefix marks jjq metadata lines in commit descriptions.
const trailerPrefix = "jjq-"

// Failure is the context recorded on a failed landing attempt. It is encoded
// as jjq-<key>: <value> trailer lines in the failed revision's description,
// co-locating the forensics with the object they describe.
type Failure struct {
	Candidate       string // change ID of the queued candidate
	CandidateCommit string // commit ID of the candidate at run time
	Trunk           string // trunk commit ID the landing was attempted against
	Workspace       string // preserved sandbox workspace path
	Failure         string // FailureConflicts or FailureCheck
	Strategy        string // landing strategy in effect
}

// FormatFailure renders the full description of a failed revision: a
// summary line naming the sequence ID and reason, then the trailer block.
func FormatFailure(id int, reason string, f Failure) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Failed: merge %s (%s)\n\n", PadID(id), reason)
	writeTrailer(&b, "candidate", f.Candidate)
	writeTrailer(&b, "candidate-commit", f.CandidateCommit)
	writeTrailer(&b, "trunk", f.Trunk)
	writeTrailer(&b, "workspace", f.Workspace)
	writeTrailer(&b, "failure", f.Failure)
	writeTrailer(&b, "strategy", f.Strategy)
	return b.String()
}

func writeTrailer(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "%s%s: %s\n", trailerPrefix, key, value)
}

// ParseTrailers extracts jjq-<key>: <value> lines from a description.
// The jjq- prefix is stripped, the line split on the first ": ", and both
// sides trimmed. Non-trailer lines are ignored.
func ParseTrailers(description string) map[string]string {
	trailers := make(map[string]string)
	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, trailerPrefix) {
			continue
		}
		key, value, ok := strings.Cut(line[len(trailerPrefix):], ": ")
		if !ok {
			continue
		}
		trailers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return trailers
}

// ParseFailure reads the failure context back out of a failed revision's
// description. Absent trailers leave zero values.
func ParseFailure(description string) Failure {
	t := ParseTrailers(description)
	return Failure{
		Candidate:       t["candidate"],
		CandidateCommit: t["candidate-commit"],
		Trunk:           t["trunk"],
		Workspace:       t["workspace"],
		Failure:         t["failure"],
		Strategy:        t["strategy"],
	}
}
