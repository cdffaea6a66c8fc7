package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/paulsmith/jjq/internal/jj"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the check command against an arbitrary revision",
	Long: `Check sandboxes a revision in a temporary workspace and runs the
configured check command there, without touching the queue. Output goes to
the run log, the same place run writes it.`,
	Args: exactArgs(0),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().String("rev", "@", "Revision to check")
}

func runCheck(cmd *cobra.Command, args []string) error {
	rev, _ := cmd.Flags().GetString("rev")
	a, err := newApp()
	if err != nil {
		return err
	}
	return executeCheck(a, rev, cmd.OutOrStdout())
}

func executeCheck(a *app, rev string, w io.Writer) error {
	if err := requireInit(a); err != nil {
		return err
	}
	checkCommand, ok, err := a.store.CheckCommand()
	if err != nil {
		return err
	}
	if !ok {
		return usageErrf("no check command configured (set one with 'jjq config check_command <cmd>')")
	}
	target, err := a.runner.Resolve(rev)
	if err != nil {
		if errors.Is(err, jj.ErrNotFound) || errors.Is(err, jj.ErrAmbiguous) {
			return usageErrf("%v", err)
		}
		return err
	}

	sandbox, err := os.MkdirTemp("", "jjq-check-")
	if err != nil {
		return fmt.Errorf("creating sandbox directory: %w", err)
	}
	wsName := fmt.Sprintf("jjq-check-%d", os.Getpid())
	if err := a.runner.WorkspaceAdd(sandbox, wsName, target.CommitID); err != nil {
		os.RemoveAll(sandbox)
		return err
	}
	// Unlike run, the sandbox is always discarded, pass or fail.
	defer func() {
		_ = a.runner.WorkspaceForget(wsName)
		_ = os.RemoveAll(sandbox)
	}()

	fmt.Fprintf(w, "jjq: running check for %s\n", shortID(target.ChangeID))
	exitCode, err := runCheckCommand(checkCommand, sandbox, a.runLogPath())
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return conflictErrf("check command exited with status %d (log: %s)", exitCode, a.runLogPath())
	}
	fmt.Fprintln(w, "jjq: check passed")
	return nil
}
