package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/paulsmith/jjq/internal/jj"
	"github.com/paulsmith/jjq/internal/lock"
	"github.com/paulsmith/jjq/internal/meta"
	"github.com/paulsmith/jjq/internal/queue"
)

var rootCmd = &cobra.Command{
	Use:           "jjq",
	Short:         "A local merge queue for jj repositories",
	Version:       buildVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Flag parse errors are input errors, not internal ones.
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageErrf("%v", err)
	})
}

func Execute() error {
	return rootCmd.Execute()
}

// app bundles the dependencies every pipeline needs. Commands construct it
// from the working directory; tests construct it around a fake runner.
type app struct {
	runner jj.Runner
	locks  *lock.Manager
	store  *meta.Store
	alloc  *queue.Allocator
	root   string // repository root directory
}

// newApp discovers the repository containing the working directory and wires
// up the adapter, lock manager, and metadata store.
func newApp() (*app, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	runner := jj.NewRunner(cwd)
	root, err := runner.Root()
	if err != nil {
		return nil, err
	}
	locks := lock.NewManager(filepath.Join(root, ".jj", "jjq-locks"))
	store := meta.NewStore(runner)
	return &app{
		runner: runner,
		locks:  locks,
		store:  store,
		alloc:  &queue.Allocator{Locks: locks, Store: store},
		root:   root,
	}, nil
}

// runLogPath is where the most recent check command's combined output lands.
func (a *app) runLogPath() string {
	return filepath.Join(a.root, ".jj", "jjq-run.log")
}

// requireInit fails with a usage error unless the repository has been
// initialized. Every command except init and version applies this
// consistently.
func requireInit(a *app) error {
	ok, err := a.store.IsInitialized()
	if err != nil {
		return err
	}
	if !ok {
		return usageErrf("not initialized (run 'jjq init')")
	}
	return nil
}

// exactArgs is cobra.ExactArgs with the usage exit code attached.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usageErrf("%s expects %d argument(s), got %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}

// maxArgs allows up to n positional arguments.
func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > n {
			return usageErrf("%s expects at most %d argument(s), got %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}
