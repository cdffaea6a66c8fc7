package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/paulsmith/jjq/internal/lock"
	"github.com/paulsmith/jjq/internal/meta"
	"github.com/paulsmith/jjq/internal/queue"
)

var statusCmd = &cobra.Command{
	Use:   "status [<id>]",
	Short: "Show the queue and failed entries",
	Long: `Status shows whether a run is in progress, the queued candidates in
landing order, and the failed entries with their failure kind. With a
sequence ID or --resolve it shows a single entry in detail.`,
	Args: maxArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("json", false, "Emit machine-readable JSON")
	statusCmd.Flags().String("resolve", "", "Look up a single entry by candidate change ID")
}

func runStatus(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	resolve, _ := cmd.Flags().GetString("resolve")

	a, err := newApp()
	if err != nil {
		return err
	}
	return executeStatus(a, args, resolve, asJSON, cmd.OutOrStdout())
}

func executeStatus(a *app, args []string, resolve string, asJSON bool, w io.Writer) error {
	if err := requireInit(a); err != nil {
		return err
	}
	if len(args) == 1 && resolve != "" {
		return usageErrf("give either a sequence ID or --resolve, not both")
	}

	running, err := a.locks.Probe(lock.Run)
	if err != nil {
		return err
	}
	st, err := queue.BuildStatus(a.runner, running == lock.Held)
	if err != nil {
		return err
	}

	// Single-item lookup.
	if len(args) == 1 || resolve != "" {
		var qi *queue.QueueItem
		var fi *queue.FailedItem
		if len(args) == 1 {
			id, err := strconv.Atoi(args[0])
			if err != nil || id < 1 || id > meta.MaxID {
				return usageErrf("invalid sequence ID %q", args[0])
			}
			qi, fi = st.FindByID(id)
			if qi == nil && fi == nil {
				return usageErrf("no entry with sequence ID %d", id)
			}
		} else {
			qi, fi = st.FindByChange(resolve)
			if qi == nil && fi == nil {
				return usageErrf("no entry for change %s", resolve)
			}
		}
		if asJSON {
			return writeJSON(w, firstNonNil(qi, fi))
		}
		if qi != nil {
			printQueueItem(w, qi)
		} else {
			printFailedItem(w, fi)
		}
		return nil
	}

	if asJSON {
		return writeJSON(w, st)
	}

	if st.Running {
		fmt.Fprintln(w, "jjq: a run is in progress")
	}
	if len(st.Queue) == 0 && len(st.Failed) == 0 {
		fmt.Fprintln(w, "jjq: queue is empty")
		return nil
	}
	if len(st.Queue) > 0 {
		fmt.Fprintln(w, "queue:")
		for i := range st.Queue {
			q := &st.Queue[i]
			fmt.Fprintf(w, "  %s  %s  %s\n", queue.PadID(q.ID), shortID(q.ChangeID), q.Description)
		}
	}
	if len(st.Failed) > 0 {
		fmt.Fprintln(w, "failed:")
		for i := range st.Failed {
			f := &st.Failed[i]
			fmt.Fprintf(w, "  %s  %s  %-9s  %s\n", queue.PadID(f.ID), shortID(f.ChangeID), f.Failure, f.Description)
		}
	}
	return nil
}

func printQueueItem(w io.Writer, q *queue.QueueItem) {
	fmt.Fprintf(w, "queued %s\n", queue.PadID(q.ID))
	fmt.Fprintf(w, "  change:      %s\n", q.ChangeID)
	fmt.Fprintf(w, "  commit:      %s\n", q.CommitID)
	fmt.Fprintf(w, "  description: %s\n", q.Description)
}

func printFailedItem(w io.Writer, f *queue.FailedItem) {
	fmt.Fprintf(w, "failed %s (%s)\n", queue.PadID(f.ID), f.Failure)
	fmt.Fprintf(w, "  change:      %s\n", f.ChangeID)
	fmt.Fprintf(w, "  commit:      %s\n", f.CommitID)
	fmt.Fprintf(w, "  trunk:       %s\n", f.Trunk)
	fmt.Fprintf(w, "  strategy:    %s\n", f.Strategy)
	fmt.Fprintf(w, "  workspace:   %s\n", f.Workspace)
	fmt.Fprintf(w, "  description: %s\n", f.Description)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstNonNil(qi *queue.QueueItem, fi *queue.FailedItem) any {
	if qi != nil {
		return qi
	}
	return fi
}
