// Command build-statsdb generates a synthetic statistics database for
// planning experiments.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/wbrown/janus-traversal/traversal/storage"
)

func main() {
	configType := flag.String("config", "default", "Config type: default, medium, or large")
	output := flag.String("out", "", "Output path (overrides the config's default)")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	var config storage.GenerateConfig
	switch *configType {
	case "default":
		config = storage.DefaultGenerateConfig()
	case "medium":
		config = storage.MediumGenerateConfig()
	case "large":
		config = storage.LargeGenerateConfig()
	default:
		fmt.Fprintf(os.Stderr, "Unknown config type: %s (use 'default', 'medium', or 'large')\n", *configType)
		os.Exit(1)
	}
	if *output != "" {
		config.OutputPath = *output
	}
	config.Seed = *seed

	fmt.Printf("Building statistics: %s\n", config.OutputPath)
	fmt.Printf("  Entity types: %d\n", config.Entities)
	fmt.Printf("  Relation types: %d\n", config.Relations)
	fmt.Printf("  Attribute types: %d\n", config.Attributes)
	fmt.Printf("  Max shards: %d\n", config.MaxShards)
	fmt.Println()

	snap, err := storage.Generate(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate statistics: %v\n", err)
		os.Exit(1)
	}

	if isYAML(config.OutputPath) {
		err = writeYAML(config.OutputPath, snap)
	} else {
		err = writeBadger(config.OutputPath, snap)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write statistics: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d types\n", len(snap.Types))
	flagName := "--db"
	if isYAML(config.OutputPath) {
		flagName = "--snapshot"
	}
	fmt.Println("\nPlan against it with:")
	fmt.Printf("   traversal %s %s plan '[:match [?t :label entity-0] [?x :isa ?t]]'\n", flagName, config.OutputPath)
}

func writeYAML(path string, snap *storage.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := storage.WriteSnapshot(f, snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeBadger(path string, snap *storage.Snapshot) error {
	db, err := storage.OpenBadgerStore(path, storage.BadgerOptions{})
	if err != nil {
		return err
	}
	if err := db.Import(snap); err != nil {
		db.Close()
		return err
	}
	return db.Close()
}

func isYAML(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}
