package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/paulsmith/jjq/internal/jj"
	"github.com/paulsmith/jjq/internal/meta"
	"github.com/paulsmith/jjq/internal/queue"
)

var pushCmd = &cobra.Command{
	Use:   "push <revset>",
	Short: "Add a revision to the merge queue",
	Long: `Push enqueues a candidate revision for landing on trunk. The revset must
resolve to exactly one revision. Pushing a commit that is already queued is
rejected; pushing a new commit of an already-queued or already-failed change
replaces the old entry.`,
	Args: exactArgs(1),
	RunE: runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	return executePush(a, args[0], cmd.OutOrStdout())
}

func executePush(a *app, revset string, w io.Writer) error {
	if err := requireInit(a); err != nil {
		return err
	}

	// 1. Resolve the candidate.
	cand, err := a.runner.Resolve(revset)
	if err != nil {
		if errors.Is(err, jj.ErrNotFound) || errors.Is(err, jj.ErrAmbiguous) {
			return usageErrf("%v", err)
		}
		return err
	}

	trunk, err := a.store.TrunkBookmark()
	if err != nil {
		return err
	}

	// 2. Idempotent cleanup. Scan every queue entry for a duplicate commit
	// before deleting anything: duplicate rejection takes priority over
	// change-ID replacement.
	entries, err := queue.ListEntries(a.runner, queue.QueuePrefix)
	if err != nil {
		return err
	}
	targets := make(map[int]jj.Rev, len(entries))
	for _, e := range entries {
		rev, err := a.runner.Resolve(e.Bookmark)
		if err != nil {
			return err
		}
		if rev.CommitID == cand.CommitID {
			return usageErrf("already queued at %d", e.ID)
		}
		targets[e.ID] = rev
	}
	for _, e := range entries {
		if targets[e.ID].ChangeID == cand.ChangeID {
			if err := a.runner.BookmarkDelete(e.Bookmark); err != nil {
				return err
			}
			fmt.Fprintf(w, "jjq: replacing queued entry %d\n", e.ID)
		}
	}

	failed, err := queue.ListEntries(a.runner, queue.FailedPrefix)
	if err != nil {
		return err
	}
	for _, e := range failed {
		desc, err := a.runner.Description(e.Bookmark)
		if err != nil {
			return err
		}
		if queue.ParseFailure(desc).Candidate == cand.ChangeID {
			if err := a.runner.BookmarkDelete(e.Bookmark); err != nil {
				return err
			}
			fmt.Fprintf(w, "jjq: clearing failed entry %d\n", e.ID)
		}
	}

	// 3. Pre-flight conflict probe: a headless merge of trunk and the
	// candidate, tested and abandoned again.
	conflicted, err := preflightConflicts(a.runner, trunk, cand.CommitID)
	if err != nil {
		return err
	}
	if conflicted {
		return conflictErrf("revision %q conflicts with %s\nTo resolve:\n  jj rebase -d %s -b %s\nthen resolve conflicts and push again", revset, trunk, trunk, revset)
	}

	// 4. Allocate a sequence ID and publish the entry.
	id, err := a.alloc.Next()
	if err != nil {
		switch {
		case errors.Is(err, queue.ErrLockBusy):
			return lockBusyErrf("%v", err)
		case errors.Is(err, meta.ErrExhausted):
			return usageErrf("%v", err)
		}
		return err
	}
	if err := a.runner.BookmarkCreate(queue.QueueBookmark(id), cand.CommitID); err != nil {
		return err
	}
	fmt.Fprintf(w, "jjq: queued at %d\n", id)
	return nil
}

// preflightConflicts creates a headless commit merging trunk and the
// candidate, reads its conflict state, and abandons it again.
func preflightConflicts(r jj.Runner, trunk, candidate string) (bool, error) {
	message := fmt.Sprintf("jjq: conflict probe %d-%d", os.Getpid(), time.Now().UnixNano())
	probe, err := r.New(message, trunk, candidate)
	if err != nil {
		return false, err
	}
	conflicted, err := r.HasConflicts(probe.CommitID)
	if abandonErr := r.Abandon(probe.CommitID); abandonErr != nil && err == nil {
		err = abandonErr
	}
	return conflicted, err
}
