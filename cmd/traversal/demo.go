package main

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wbrown/janus-traversal/traversal/config"
	"github.com/wbrown/janus-traversal/traversal/storage"
)

//go:embed demo.yaml
var demoSnapshot []byte

var demoPatterns = []string{
	// People named Alice
	`[:match [?p :label person]
	         [?x :isa ?p]
	         [?x :has ?n]
	         [?n :value = "Alice"]]`,

	// Employees of a company, relation type inferred from the players
	`[:match [?c :label company]
	         [?y :isa ?c]
	         [?p :label person]
	         [?x :isa ?p]
	         [?r :rel employer ?y]
	         [?r :rel employee ?x]]`,

	// Pairs of different people with the same name
	`[:match [?p :label person]
	         [?x :isa ?p]
	         [?y :isa ?p]
	         [?x :has ?a]
	         [?y :has ?b]
	         [?a :value = ?b]
	         [?x :neq ?y]]`,

	// Either friends or colleagues of V1
	`[:match [?x :id "V1"]
	         (or [?r :rel ?x] [?x :isa ?t])]`,
}

func demoCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Plan example patterns against built-in statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags, cmd.ErrOrStderr(), func(cfg *config.Config) {
				cfg.Storage.Path, cfg.Storage.Snapshot = "", ""
				cfg.Planner.InferRelationTypes = true
			})
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := storage.ReadSnapshot(bytes.NewReader(demoSnapshot))
			if err != nil {
				return err
			}
			if err := a.store.(*storage.MemoryStore).Import(snap); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "=== Traversal Planner Demo ===")
			for _, input := range demoPatterns {
				fmt.Fprintf(out, "\nPattern: %s\n\n", input)
				if err := a.planAndPrint(context.Background(), out, input, true); err != nil {
					fmt.Fprintf(out, "%v\n", err)
				}
			}
			return nil
		},
	}
}
