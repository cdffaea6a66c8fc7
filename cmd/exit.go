package cmd

import (
	"errors"
	"fmt"
)

// Process exit codes. These are programmatic contract: scripts key off them.
const (
	exitSuccess  = 0
	exitConflict = 1  // merge conflict, check failure, trunk moved, or run lock busy
	exitPartial  = 2  // batch: at least one merged and at least one failed
	exitLockBusy = 3  // sequence-ID lock contention during push
	exitUsage    = 10 // bad arguments, missing item, duplicate push
)

// exitError attaches a process exit code to an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageErrf(format string, args ...any) error {
	return &exitError{code: exitUsage, err: fmt.Errorf(format, args...)}
}

func conflictErrf(format string, args ...any) error {
	return &exitError{code: exitConflict, err: fmt.Errorf(format, args...)}
}

func partialErrf(format string, args ...any) error {
	return &exitError{code: exitPartial, err: fmt.Errorf(format, args...)}
}

func lockBusyErrf(format string, args ...any) error {
	return &exitError{code: exitLockBusy, err: fmt.Errorf(format, args...)}
}

// ExitCode maps an error returned by Execute to a process exit code.
// Internal errors (jj failures, I/O) default to the conflict code.
func ExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitConflict
}
