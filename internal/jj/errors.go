package jj

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for revset resolution. Wrap with %w so callers can test
// them with errors.Is.
var (
	// ErrNotFound means a revset matched no revisions.
	ErrNotFound = errors.New("no revisions matched")

	// ErrAmbiguous means a revset matched more than one revision where
	// exactly one was required.
	ErrAmbiguous = errors.New("more than one revision matched")
)

// ExecError is returned when a jj subprocess exits non-zero. It carries the
// captured stderr verbatim.
type ExecError struct {
	Args   []string // jj arguments, without the leading "jj"
	Stderr string
	Err    error // the underlying exec error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("jj %s: %v", strings.Join(e.Args, " "), e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += "\n" + s
	}
	return msg
}

func (e *ExecError) Unwrap() error { return e.Err }
