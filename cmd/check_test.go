package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/paulsmith/jjq/internal/jj"
)

func TestCheck_Pass(t *testing.T) {
	f := newFakeRunner().initialized(map[string]string{
		"config/check_command": "true",
	})
	f.revs["@"] = jj.Rev{ChangeID: "wwwwwwww", CommitID: "commitw1"}
	a := newTestApp(t, f)

	var out bytes.Buffer
	if err := executeCheck(a, "@", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "check passed") {
		t.Errorf("output: %q", out.String())
	}
	// The sandbox is always discarded.
	if !f.called("workspace-add jjq-check-") {
		t.Errorf("expected a check sandbox: %v", f.calls)
	}
	if !f.called("workspace-forget jjq-check-") {
		t.Error("check sandbox not forgotten")
	}
}

func TestCheck_Fail(t *testing.T) {
	f := newFakeRunner().initialized(map[string]string{
		"config/check_command": "exit 5",
	})
	f.revs["@"] = jj.Rev{ChangeID: "wwwwwwww", CommitID: "commitw1"}
	a := newTestApp(t, f)

	err := executeCheck(a, "@", &bytes.Buffer{})
	if ExitCode(err) != exitConflict {
		t.Fatalf("expected conflict exit, got %v (code %d)", err, ExitCode(err))
	}
	if !strings.Contains(err.Error(), "status 5") {
		t.Errorf("error: %v", err)
	}
	if !f.called("workspace-forget jjq-check-") {
		t.Error("check sandbox must be discarded on failure too")
	}
}

func TestCheck_NoCommandConfigured(t *testing.T) {
	f := newFakeRunner().initialized(nil)
	f.revs["@"] = jj.Rev{ChangeID: "wwwwwwww", CommitID: "commitw1"}
	a := newTestApp(t, f)

	err := executeCheck(a, "@", &bytes.Buffer{})
	if ExitCode(err) != exitUsage {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestCheck_BadRevset(t *testing.T) {
	f := newFakeRunner().initialized(map[string]string{
		"config/check_command": "true",
	})
	a := newTestApp(t, f)

	err := executeCheck(a, "missing", &bytes.Buffer{})
	if ExitCode(err) != exitUsage {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestExitCode_Mapping(t *testing.T) {
	if got := ExitCode(nil); got != exitSuccess {
		t.Errorf("nil: %d", got)
	}
	if got := ExitCode(usageErrf("x")); got != exitUsage {
		t.Errorf("usage: %d", got)
	}
	if got := ExitCode(conflictErrf("x")); got != exitConflict {
		t.Errorf("conflict: %d", got)
	}
	if got := ExitCode(partialErrf("x")); got != exitPartial {
		t.Errorf("partial: %d", got)
	}
	if got := ExitCode(lockBusyErrf("x")); got != exitLockBusy {
		t.Errorf("lock busy: %d", got)
	}
	if got := ExitCode(bytes.ErrTooLarge); got != exitConflict {
		t.Errorf("internal error should default to 1, got %d", got)
	}
}
