package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/wbrown/janus-traversal/traversal/annotations"
	"github.com/wbrown/janus-traversal/traversal/config"
	"github.com/wbrown/janus-traversal/traversal/metrics"
	"github.com/wbrown/janus-traversal/traversal/planner"
	"github.com/wbrown/janus-traversal/traversal/storage"
)

type globalFlags struct {
	configPath string
	dbPath     string
	snapshot   string
	verbose    bool
	logLevel   string
}

// statsStore is what the planner reads from either store
type statsStore interface {
	planner.Statistics
	planner.Schema
}

// app holds everything a command needs to plan patterns
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	store   statsStore
	badger  *storage.BadgerStore
	metrics *metrics.Metrics
	planner *planner.Planner
}

func loadConfig(flags *globalFlags, adjust ...func(*config.Config)) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if flags.configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(flags.configPath); err != nil {
			return nil, err
		}
	}
	if flags.dbPath != "" {
		cfg.Storage.Path, cfg.Storage.Snapshot = flags.dbPath, ""
	}
	if flags.snapshot != "" {
		cfg.Storage.Snapshot, cfg.Storage.Path = flags.snapshot, ""
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	for _, fn := range adjust {
		fn(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp loads the configuration, opens the statistics store and builds
// the planner. Annotations go to stderr when verbose.
func openApp(flags *globalFlags, stderr io.Writer, adjust ...func(*config.Config)) (*app, error) {
	cfg, err := loadConfig(flags, adjust...)
	if err != nil {
		return nil, err
	}
	log, err := cfg.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	a := &app{cfg: cfg, log: log}
	if err := a.openStore(); err != nil {
		return nil, err
	}

	opts, err := cfg.PlannerOptions()
	if err != nil {
		a.Close()
		return nil, err
	}
	var handlers []annotations.Handler
	if flags.verbose {
		handlers = append(handlers, annotations.ConsoleHandler(stderr))
	}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New(cfg.Metrics.Namespace)
		handlers = append(handlers, a.metrics.Handler())
	}
	opts.Schema = a.store
	opts.Logger = log
	opts.Handler = annotations.Chain(handlers...)

	a.planner = planner.NewPlanner(a.store, opts)
	return a, nil
}

func (a *app) openStore() error {
	switch {
	case a.cfg.Storage.Path != "":
		db, err := storage.OpenBadgerStore(a.cfg.Storage.Path, storage.BadgerOptions{
			CacheItems: a.cfg.Storage.CacheItems,
			CacheTTL:   a.cfg.Storage.CacheTTL,
		})
		if err != nil {
			return err
		}
		a.badger, a.store = db, db
		a.log.Debug("opened statistics database", zap.String("path", a.cfg.Storage.Path))

	case a.cfg.Storage.Snapshot != "":
		snap, err := readSnapshotFile(a.cfg.Storage.Snapshot)
		if err != nil {
			return err
		}
		mem, err := storage.NewMemoryStore(snap)
		if err != nil {
			return err
		}
		a.store = mem
		a.log.Debug("loaded statistics snapshot",
			zap.String("path", a.cfg.Storage.Snapshot),
			zap.Int("types", len(snap.Types)))

	default:
		mem, err := storage.NewMemoryStore(nil)
		if err != nil {
			return err
		}
		a.store = mem
		a.log.Warn("no statistics configured, label costs use defaults")
	}
	return nil
}

// Close releases the statistics store
func (a *app) Close() error {
	_ = a.log.Sync()
	if a.badger != nil {
		return a.badger.Close()
	}
	return nil
}

func readSnapshotFile(path string) (*storage.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return storage.ReadSnapshot(f)
}
