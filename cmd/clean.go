package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paulsmith/jjq/internal/queue"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Garbage-collect sandbox workspaces",
	Long: `Clean forgets every jjq-run- workspace and deletes its directory. It
never touches queue or failed bookmarks; failed entries keep their metadata
and can still be deleted or re-pushed afterwards.`,
	Args: exactArgs(0),
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	return executeClean(a, cmd.OutOrStdout())
}

func executeClean(a *app, w io.Writer) error {
	if err := requireInit(a); err != nil {
		return err
	}
	workspaces, err := a.runner.WorkspaceList()
	if err != nil {
		return err
	}

	cleaned := 0
	for _, ws := range workspaces {
		if !strings.HasPrefix(ws.Name, queue.WorkspacePrefix) {
			continue
		}
		label := "orphaned"
		if id, err := queue.ParseID(strings.TrimPrefix(ws.Name, queue.WorkspacePrefix)); err == nil {
			ok, err := queue.Exists(a.runner, queue.FailedBookmark(id))
			if err != nil {
				return err
			}
			if ok {
				label = fmt.Sprintf("failed item %s", queue.PadID(id))
			}
		}
		if err := a.runner.WorkspaceForget(ws.Name); err != nil {
			return err
		}
		if ws.Path != "" {
			if err := os.RemoveAll(ws.Path); err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "jjq: cleaned %s (%s)\n", ws.Name, label)
		cleaned++
	}
	if cleaned == 0 {
		fmt.Fprintln(w, "jjq: nothing to clean")
	}
	return nil
}
