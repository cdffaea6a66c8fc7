package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paulsmith/jjq/internal/lock"
	"github.com/paulsmith/jjq/internal/meta"
)

var configCmd = &cobra.Command{
	Use:   "config [<key> [<value>]]",
	Short: "Read or write queue configuration",
	Long: `Config reads or writes the configuration stored on the metadata branch.
With no arguments it lists every recognized key with its effective value.
With a key it prints that key's value; with a key and a value it sets it.`,
	Args: maxArgs(2),
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	return executeConfig(a, args, cmd.OutOrStdout())
}

func executeConfig(a *app, args []string, w io.Writer) error {
	if err := requireInit(a); err != nil {
		return err
	}
	if len(args) == 0 {
		return listConfig(a, w)
	}
	key := args[0]
	if !meta.IsConfigKey(key) {
		return usageErrf("unknown configuration key %q (known: %s)", key, strings.Join(meta.ConfigKeys, ", "))
	}
	if len(args) == 1 {
		value, ok, err := a.store.ConfigGet(key)
		if err != nil {
			return err
		}
		if !ok {
			return usageErrf("%s is not set", key)
		}
		fmt.Fprintln(w, strings.TrimRight(value, "\n"))
		return nil
	}

	value := args[1]
	if err := meta.ValidateConfigValue(key, value); err != nil {
		return usageErrf("%v", err)
	}
	guard, err := a.locks.Acquire(lock.Config)
	if err != nil {
		return err
	}
	if guard == nil {
		return conflictErrf("configuration is being modified by another process")
	}
	defer guard.Release()
	if err := a.store.ConfigSet(key, value); err != nil {
		return err
	}
	fmt.Fprintf(w, "jjq: set %s\n", key)
	return nil
}

// listConfig prints every recognized key with its effective value, marking
// defaults and unset keys.
func listConfig(a *app, w io.Writer) error {
	for _, key := range meta.ConfigKeys {
		value, ok, err := a.store.ConfigGet(key)
		if err != nil {
			return err
		}
		switch {
		case ok:
			fmt.Fprintf(w, "%s = %s\n", key, strings.TrimRight(value, "\n"))
		case key == meta.KeyTrunkBookmark:
			fmt.Fprintf(w, "%s = %s (default)\n", key, meta.DefaultTrunkBookmark)
		case key == meta.KeyStrategy:
			fmt.Fprintf(w, "%s = %s (default)\n", key, meta.StrategyMerge)
		default:
			fmt.Fprintf(w, "%s is not set\n", key)
		}
	}
	return nil
}
