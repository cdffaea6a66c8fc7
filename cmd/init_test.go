package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/paulsmith/jjq/internal/meta"
)

func TestInit(t *testing.T) {
	f := newFakeRunner()
	a := newTestApp(t, f)

	var out bytes.Buffer
	err := executeInit(a, "main", "make test", meta.StrategyRebase, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "initialized (trunk main, strategy rebase)") {
		t.Errorf("output: %q", out.String())
	}
	if f.files["last_id"] != "0" {
		t.Errorf("last_id: %q", f.files["last_id"])
	}
	if f.files["config/trunk_bookmark"] != "main" {
		t.Errorf("trunk: %q", f.files["config/trunk_bookmark"])
	}
	if f.files["config/check_command"] != "make test" {
		t.Errorf("check: %q", f.files["config/check_command"])
	}
	if f.files["config/strategy"] != "rebase" {
		t.Errorf("strategy: %q", f.files["config/strategy"])
	}
	if _, ok := f.bookmarks[meta.Bookmark]; !ok {
		t.Error("metadata head bookmark missing")
	}

	// Initialization is one-shot.
	err = executeInit(a, "main", "", meta.StrategyRebase, &bytes.Buffer{})
	if ExitCode(err) != exitUsage {
		t.Fatalf("expected usage error on re-init, got %v", err)
	}
}

func TestInit_NoCheckCommandHint(t *testing.T) {
	f := newFakeRunner()
	a := newTestApp(t, f)

	var out bytes.Buffer
	if err := executeInit(a, "trunk", "", meta.StrategyMerge, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "no check command set") {
		t.Errorf("output: %q", out.String())
	}
	if _, ok := f.files["config/check_command"]; ok {
		t.Error("check_command should not be written when empty")
	}
}

func TestInit_InvalidStrategy(t *testing.T) {
	a := newTestApp(t, newFakeRunner())
	err := executeInit(a, "main", "", "squash", &bytes.Buffer{})
	if ExitCode(err) != exitUsage {
		t.Fatalf("expected usage error, got %v", err)
	}
}
