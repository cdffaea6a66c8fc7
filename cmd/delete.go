package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/paulsmith/jjq/internal/meta"
	"github.com/paulsmith/jjq/internal/queue"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a queued or failed entry",
	Long: `Delete removes the entry with the given sequence ID. Deleting a failed
entry also forgets its preserved sandbox workspace and removes the directory.`,
	Args: exactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	return executeDelete(a, args[0], cmd.OutOrStdout())
}

func executeDelete(a *app, arg string, w io.Writer) error {
	if err := requireInit(a); err != nil {
		return err
	}
	id, err := strconv.Atoi(arg)
	if err != nil || id < 1 || id > meta.MaxID {
		return usageErrf("invalid sequence ID %q", arg)
	}

	queued := queue.QueueBookmark(id)
	ok, err := queue.Exists(a.runner, queued)
	if err != nil {
		return err
	}
	if ok {
		if err := a.runner.BookmarkDelete(queued); err != nil {
			return err
		}
		fmt.Fprintf(w, "jjq: deleted queue entry %s\n", queue.PadID(id))
		return nil
	}

	failed := queue.FailedBookmark(id)
	ok, err = queue.Exists(a.runner, failed)
	if err != nil {
		return err
	}
	if !ok {
		return usageErrf("no entry with sequence ID %d", id)
	}

	// Recover the preserved workspace path before the trailers go away.
	desc, err := a.runner.Description(failed)
	if err != nil {
		return err
	}
	workspace := queue.ParseFailure(desc).Workspace

	if err := a.runner.BookmarkDelete(failed); err != nil {
		return err
	}
	// The workspace may already be gone; forget is best-effort.
	_ = a.runner.WorkspaceForget(queue.WorkspaceName(id))
	if workspace != "" {
		if _, err := os.Stat(workspace); err == nil {
			if err := os.RemoveAll(workspace); err != nil {
				return err
			}
			fmt.Fprintf(w, "jjq: removed workspace %s\n", workspace)
		}
	}
	fmt.Fprintf(w, "jjq: deleted failed entry %s\n", queue.PadID(id))
	return nil
}
