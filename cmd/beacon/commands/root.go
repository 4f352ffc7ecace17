package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	storePath  string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "beacon",
		Short: "Beacon — declarative specification-driven verification harness",
		Long: `Beacon compiles a declarative specification of a system's entities,
protocols, and properties into an NDA graph, walks it against a guest
module under test, and reports the invariant violations, temporal rule
breaks, and model/guest discrepancies it finds along the way.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringVar(&storePath, "store", "beacon.db", "path to the campaign memory database")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newCompileCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newFindingsCommand())
	rootCmd.AddCommand(newReplayCommand())
	rootCmd.AddCommand(newAbortCommand())
	rootCmd.AddCommand(newDevCommand())

	return rootCmd
}
