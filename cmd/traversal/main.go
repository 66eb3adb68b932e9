// Command traversal plans graph patterns against stored type statistics.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:   "traversal",
		Short: "Plan graph pattern traversals",
		Long: `traversal orders the fragments of a graph pattern into an execution
plan, using type statistics kept in a badger database or a YAML snapshot.

Patterns are written in EDN:

  [:match [?p :label person] [?x :isa ?p] [?x :has ?n] [?n :value = "Alice"]]`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	pf.StringVar(&flags.dbPath, "db", "", "Statistics database path")
	pf.StringVar(&flags.snapshot, "snapshot", "", "Statistics snapshot file (YAML)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Show planning annotations")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		planCmd(&flags),
		replCmd(&flags),
		statsCmd(&flags),
		demoCmd(&flags),
	)
	return cmd
}
