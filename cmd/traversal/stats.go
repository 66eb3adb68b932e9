package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wbrown/janus-traversal/traversal"
	"github.com/wbrown/janus-traversal/traversal/storage"
)

func statsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Manage type statistics",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "load <snapshot.yaml>",
		Short: "Replace the statistics database with a YAML snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()
			if a.badger == nil {
				return fmt.Errorf("stats load requires a statistics database (--db)")
			}

			snap, err := readSnapshotFile(args[0])
			if err != nil {
				return err
			}
			if err := a.badger.Import(snap); err != nil {
				return err
			}
			a.log.Info("imported statistics",
				zap.String("snapshot", args[0]),
				zap.Int("types", len(snap.Types)))
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d types\n", len(snap.Types))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current statistics as a YAML snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.snapshot()
			if err != nil {
				return err
			}
			return storage.WriteSnapshot(cmd.OutOrStdout(), snap)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <label> <shards>",
		Short: "Set the shard count of a type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			shards, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid shard count %q: %w", args[1], err)
			}
			a, err := openApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()
			if a.badger == nil {
				return fmt.Errorf("stats set requires a statistics database (--db)")
			}
			return a.badger.SetShardCount(traversal.Label(args[0]), shards)
		},
	})

	return cmd
}

func (a *app) snapshot() (*storage.Snapshot, error) {
	if a.badger != nil {
		return a.badger.Snapshot()
	}
	if mem, ok := a.store.(*storage.MemoryStore); ok {
		return mem.Snapshot(), nil
	}
	return nil, fmt.Errorf("store does not support snapshots")
}
