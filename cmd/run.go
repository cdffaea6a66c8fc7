package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/paulsmith/jjq/internal/jj"
	"github.com/paulsmith/jjq/internal/lock"
	"github.com/paulsmith/jjq/internal/meta"
	"github.com/paulsmith/jjq/internal/queue"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Land the next queued revision onto trunk",
	Long: `Run selects the lowest-numbered queue entry, builds the landed revision in
a sandbox workspace, runs the check command against it, and advances trunk if
the check passes. Failures become jjq/failed/ entries with the sandbox
preserved for inspection. With --all, run keeps going until the queue drains;
it stops early when another run holds the lock, when trunk moves during a run,
or at the first failure with --stop-on-failure.`,
	Args: exactArgs(0),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("all", false, "Process queue entries until the queue is empty")
	runCmd.Flags().Bool("stop-on-failure", false, "With --all, stop at the first failed entry")
}

// runOutcome is the terminal state of one run pipeline pass.
type runOutcome int

const (
	outcomeMerged runOutcome = iota
	outcomeEmpty
	outcomeBusy
	outcomeFailed     // conflicts or check failure; item moved to failed
	outcomeTrunkMoved // queue entry retained
)

func runRun(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	stopOnFailure, _ := cmd.Flags().GetBool("stop-on-failure")

	a, err := newApp()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if all {
		return executeRunAll(a, stopOnFailure, w)
	}

	outcome, err := executeRunOnce(a, w)
	if err != nil {
		return err
	}
	switch outcome {
	case outcomeBusy:
		return conflictErrf("another run is in progress")
	case outcomeFailed:
		return conflictErrf("landing failed; see 'jjq status'")
	case outcomeTrunkMoved:
		return conflictErrf("trunk moved during the run; queue entry retained")
	}
	return nil
}

// executeRunAll drains the queue, accumulating outcomes. The run lock is
// reacquired for every item, so other processes can interleave.
func executeRunAll(a *app, stopOnFailure bool, w io.Writer) error {
	merged, failed := 0, 0
	for {
		outcome, err := executeRunOnce(a, w)
		if err != nil {
			return err
		}
		switch outcome {
		case outcomeMerged:
			merged++
			continue
		case outcomeEmpty:
			// "Nothing to do" is success; only failure counts decide
			// otherwise.
		case outcomeBusy:
			// No forward progress is possible while another run holds
			// the lock.
			return conflictErrf("another run is in progress")
		case outcomeFailed:
			failed++
			if stopOnFailure {
				fmt.Fprintf(w, "jjq: processed %d item(s), %d failed\n", merged, failed)
				return conflictErrf("stopping at first failure")
			}
			continue
		case outcomeTrunkMoved:
			// The entry is retained; rerun against the new trunk rather
			// than looping in-process.
			fmt.Fprintf(w, "jjq: processed %d item(s), %d failed\n", merged, failed)
			if merged > 0 {
				return partialErrf("trunk moved during the run; queue entry retained")
			}
			return conflictErrf("trunk moved during the run; queue entry retained")
		}
		break
	}
	if failed > 0 {
		fmt.Fprintf(w, "jjq: processed %d item(s), %d failed\n", merged, failed)
		if merged > 0 {
			return partialErrf("%d item(s) failed", failed)
		}
		return conflictErrf("%d item(s) failed", failed)
	}
	if merged > 0 {
		fmt.Fprintf(w, "jjq: processed %d item(s)\n", merged)
	}
	return nil
}

// executeRunOnce advances the state machine for the lowest-numbered queue
// entry. It returns an outcome for every terminal state the caller decides
// exit codes over, and an error only for usage and internal failures.
func executeRunOnce(a *app, w io.Writer) (runOutcome, error) {
	if err := requireInit(a); err != nil {
		return 0, err
	}

	// SELECTING: lowest sequence ID wins.
	entries, err := queue.ListEntries(a.runner, queue.QueuePrefix)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "jjq: queue is empty")
		return outcomeEmpty, nil
	}
	item := entries[0]

	// LOCKED: everything past this point holds the run lock.
	guard, err := a.locks.Acquire(lock.Run)
	if err != nil {
		return 0, err
	}
	if guard == nil {
		return outcomeBusy, nil
	}
	defer guard.Release()

	// PREPARED: configuration, trunk witness, candidate identity, sandbox.
	trunk, err := a.store.TrunkBookmark()
	if err != nil {
		return 0, err
	}
	checkCommand, ok, err := a.store.CheckCommand()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, usageErrf("no check command configured (set one with 'jjq config check_command <cmd>')")
	}
	strategy, err := a.store.Strategy()
	if err != nil {
		return 0, err
	}
	trunkBefore, err := a.runner.Resolve(trunk)
	if err != nil {
		return 0, err
	}
	cand, err := a.runner.Resolve(item.Bookmark)
	if err != nil {
		return 0, err
	}
	candDesc, err := a.runner.Description(item.Bookmark)
	if err != nil {
		return 0, err
	}

	sandbox, err := os.MkdirTemp("", "jjq-run-")
	if err != nil {
		return 0, fmt.Errorf("creating sandbox directory: %w", err)
	}
	wsName := queue.WorkspaceName(item.ID)
	workRev := wsName + "@"

	// BUILT: synthesize the landed revision under the configured strategy.
	var dup jj.Rev
	switch strategy {
	case meta.StrategyMerge:
		// Working-copy commit is the merge; parent 1 = trunk, parent 2 =
		// candidate.
		if err := a.runner.WorkspaceAdd(sandbox, wsName, trunk, item.Bookmark); err != nil {
			return 0, err
		}
	case meta.StrategyRebase:
		dup, err = a.runner.Duplicate(item.Bookmark, trunk)
		if err != nil {
			return 0, err
		}
		if err := a.runner.WorkspaceAdd(sandbox, wsName, dup.ChangeID); err != nil {
			return 0, err
		}
		// Edit the duplicate itself so check side-effects snapshot into
		// it rather than a child.
		if err := a.runner.Edit(sandbox, dup.ChangeID); err != nil {
			return 0, err
		}
	default:
		return 0, usageErrf("unknown strategy %q", strategy)
	}

	// CONFLICTED?
	conflicted, err := a.runner.HasConflicts(workRev)
	if err != nil {
		return 0, err
	}
	if conflicted {
		err := markFailed(a, w, item, failedContext{
			workRev:     workRev,
			sandbox:     sandbox,
			trunkBefore: trunkBefore,
			cand:        cand,
			strategy:    strategy,
			trunk:       trunk,
			kind:        queue.FailureConflicts,
			reason:      "merge conflicts",
		})
		if err != nil {
			return 0, err
		}
		return outcomeFailed, nil
	}

	// CHECKED: run the check command inside the sandbox, output to the
	// run log.
	maybeShowLogHint(a, w)
	fmt.Fprintf(w, "jjq: running check for %s\n", queue.PadID(item.ID))
	exitCode, err := runCheckCommand(checkCommand, sandbox, a.runLogPath())
	if err != nil {
		return 0, err
	}
	// Capture check side-effects into the landed revision.
	if err := a.runner.Snapshot(sandbox); err != nil {
		return 0, err
	}
	if exitCode != 0 {
		err := markFailed(a, w, item, failedContext{
			workRev:     workRev,
			sandbox:     sandbox,
			trunkBefore: trunkBefore,
			cand:        cand,
			strategy:    strategy,
			trunk:       trunk,
			kind:        queue.FailureCheck,
			reason:      fmt.Sprintf("check command exited with status %d", exitCode),
		})
		if err != nil {
			return 0, err
		}
		return outcomeFailed, nil
	}

	// COMMITTED: verify trunk did not move, then land.
	trunkNow, err := a.runner.Resolve(trunk)
	if err != nil {
		return 0, err
	}
	if trunkNow.CommitID != trunkBefore.CommitID {
		if strategy == meta.StrategyRebase {
			if err := a.runner.Abandon(dup.ChangeID); err != nil {
				return 0, err
			}
		}
		if err := a.runner.WorkspaceForget(wsName); err != nil {
			return 0, err
		}
		if err := os.RemoveAll(sandbox); err != nil {
			return 0, err
		}
		fmt.Fprintf(w, "jjq: %s moved from %s during the run; entry %s retained\n",
			trunk, shortID(trunkBefore.CommitID), queue.PadID(item.ID))
		return outcomeTrunkMoved, nil
	}

	switch strategy {
	case meta.StrategyMerge:
		if err := a.runner.BookmarkMove(trunk, workRev); err != nil {
			return 0, err
		}
		if err := a.runner.BookmarkDelete(item.Bookmark); err != nil {
			return 0, err
		}
		if err := a.runner.WorkspaceForget(wsName); err != nil {
			return 0, err
		}
	case meta.StrategyRebase:
		// Crash ordering is deliberate: once trunk points at the rebased
		// candidate the repository is correct, and everything after is
		// cleanup a later run or clean can redo.
		if err := a.runner.RebaseBranch(cand.ChangeID, trunk); err != nil {
			return 0, err
		}
		if err := a.runner.BookmarkMove(trunk, cand.ChangeID); err != nil {
			return 0, err
		}
		if err := a.runner.BookmarkDelete(item.Bookmark); err != nil {
			return 0, err
		}
		landedDesc := strings.TrimRight(candDesc, "\n") +
			fmt.Sprintf("\n\njjq-sequence: %d\njjq-strategy: %s\n", item.ID, meta.StrategyRebase)
		if err := a.runner.Describe(trunk, landedDesc); err != nil {
			return 0, err
		}
		if err := a.runner.Abandon(dup.ChangeID); err != nil {
			return 0, err
		}
		if err := a.runner.WorkspaceForget(wsName); err != nil {
			return 0, err
		}
	}
	if err := os.RemoveAll(sandbox); err != nil {
		return 0, err
	}

	landed, err := a.runner.Resolve(trunk)
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(w, "jjq: merged %s, %s is now %s\n", queue.PadID(item.ID), trunk, shortID(landed.ChangeID))
	return outcomeMerged, nil
}

// failedContext carries everything markFailed records on a failed entry.
type failedContext struct {
	workRev     string
	sandbox     string
	trunkBefore jj.Rev
	cand        jj.Rev
	strategy    string
	trunk       string
	kind        string // queue.FailureConflicts or queue.FailureCheck
	reason      string
}

// markFailed retires a queue entry into the failed namespace: the queue
// bookmark goes away, a failed bookmark lands on the failed revision, the
// failure context is written as trailers, and the sandbox workspace stays on
// disk for inspection.
func markFailed(a *app, w io.Writer, item queue.Entry, fc failedContext) error {
	landed, err := a.runner.Resolve(fc.workRev)
	if err != nil {
		return err
	}
	if err := a.runner.BookmarkDelete(item.Bookmark); err != nil {
		return err
	}
	if err := a.runner.BookmarkCreate(queue.FailedBookmark(item.ID), landed.CommitID); err != nil {
		return err
	}
	desc := queue.FormatFailure(item.ID, fc.reason, queue.Failure{
		Candidate:       fc.cand.ChangeID,
		CandidateCommit: fc.cand.CommitID,
		Trunk:           fc.trunkBefore.CommitID,
		Workspace:       fc.sandbox,
		Failure:         fc.kind,
		Strategy:        fc.strategy,
	})
	if err := a.runner.Describe(landed.CommitID, desc); err != nil {
		return err
	}
	fmt.Fprintf(w, "jjq: %s failed: %s\n", queue.PadID(item.ID), fc.reason)
	fmt.Fprintf(w, "jjq: workspace preserved at %s\n", fc.sandbox)
	fmt.Fprintf(w, "To resolve:\n  jj rebase -d %s -b %s\n  jjq push %s\n", fc.trunk, fc.cand.ChangeID, fc.cand.ChangeID)
	return nil
}

// runCheckCommand executes the check command with sh -c inside dir, writing
// its combined output only to the run log at logPath (truncated first) and
// terminating the log with a sentinel line.
func runCheckCommand(command, dir, logPath string) (int, error) {
	logf, err := os.Create(logPath)
	if err != nil {
		return 0, fmt.Errorf("opening run log: %w", err)
	}
	defer logf.Close()

	c := exec.Command("sh", "-c", command)
	c.Dir = dir
	c.Stdout = logf
	c.Stderr = logf

	exitCode := 0
	if err := c.Run(); err != nil {
		var ee *exec.ExitError
		if !errors.As(err, &ee) {
			return 0, fmt.Errorf("running check command: %w", err)
		}
		exitCode = ee.ExitCode()
	}
	fmt.Fprintf(logf, "--- jjq: run complete (exit %d) ---\n", exitCode)
	return exitCode, nil
}

// maybeShowLogHint prints the tail -f hint once per repository, on TTYs
// only. Failures here never block a run.
func maybeShowLogHint(a *app, w io.Writer) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return
	}
	shown, err := a.store.LogHintShown()
	if err != nil || shown {
		return
	}
	fmt.Fprintf(w, "jjq: check output goes to %s (tail -f to follow)\n", a.runLogPath())
	_ = a.store.MarkLogHintShown()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
