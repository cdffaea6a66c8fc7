package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/paulsmith/jjq/internal/meta"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up the merge queue in this repository",
	Long: `Init creates the metadata branch (bookmark jjq/_/_, parented to the
repository root) and records the initial configuration. It must be run once
per repository before any other jjq command.`,
	Args: exactArgs(0),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().String("trunk", meta.DefaultTrunkBookmark, "Trunk bookmark name")
	initCmd.Flags().String("check", "", "Check command run against each landed revision")
	initCmd.Flags().String("strategy", meta.StrategyRebase, "Landing strategy (merge or rebase)")
}

func runInit(cmd *cobra.Command, args []string) error {
	trunk, _ := cmd.Flags().GetString("trunk")
	check, _ := cmd.Flags().GetString("check")
	strategy, _ := cmd.Flags().GetString("strategy")

	a, err := newApp()
	if err != nil {
		return err
	}
	return executeInit(a, trunk, check, strategy, cmd.OutOrStdout())
}

func executeInit(a *app, trunk, check, strategy string, w io.Writer) error {
	if err := meta.ValidateConfigValue(meta.KeyTrunkBookmark, trunk); err != nil {
		return usageErrf("%v", err)
	}
	if err := meta.ValidateConfigValue(meta.KeyStrategy, strategy); err != nil {
		return usageErrf("%v", err)
	}
	ok, err := a.store.IsInitialized()
	if err != nil {
		return err
	}
	if ok {
		return usageErrf("already initialized")
	}

	config := map[string]string{
		meta.KeyTrunkBookmark: trunk,
		meta.KeyStrategy:      strategy,
	}
	if check != "" {
		config[meta.KeyCheckCommand] = check
	}
	if err := a.store.Initialize(config); err != nil {
		return err
	}
	fmt.Fprintf(w, "jjq: initialized (trunk %s, strategy %s)\n", trunk, strategy)
	if check == "" {
		fmt.Fprintf(w, "jjq: no check command set; set one with 'jjq config check_command <cmd>'\n")
	}
	return nil
}
