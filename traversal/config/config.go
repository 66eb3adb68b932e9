// Package config provides configuration loading for the traversal tools.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wbrown/janus-traversal/traversal/planner"
)

// Config is the complete tool configuration
type Config struct {
	Planner PlannerConfig `yaml:"planner"`
	Cache   CacheConfig   `yaml:"cache"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// PlannerConfig configures the traversal planner
type PlannerConfig struct {
	// Strategy is greedy or optimal
	Strategy          string `yaml:"strategy"`
	MaxStartingPoints int    `yaml:"max_starting_points"`
	OptimalMaxNodes   int    `yaml:"optimal_max_nodes"`
	// MaxFragments rejects larger conjunctions (0 = unlimited)
	MaxFragments       int  `yaml:"max_fragments"`
	InferRelationTypes bool `yaml:"infer_relation_types"`
}

// CacheConfig configures the traversal plan cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

// StorageConfig selects where statistics are read from
type StorageConfig struct {
	// Path of the badger statistics database (empty = in-memory store)
	Path string `yaml:"path"`
	// Snapshot is a YAML statistics file loaded into the in-memory store
	Snapshot   string        `yaml:"snapshot"`
	CacheItems int64         `yaml:"cache_items"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string `yaml:"level"`
	// Format is console or json
	Format string `yaml:"format"`
}

// MetricsConfig enables prometheus planning metrics
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// DefaultConfig returns a Config with the planner defaults
func DefaultConfig() *Config {
	return &Config{
		Planner: PlannerConfig{
			Strategy:          planner.StrategyGreedy.String(),
			MaxStartingPoints: planner.DefaultMaxStartingPoints,
			OptimalMaxNodes:   planner.DefaultOptimalMaxNodes,
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    1000,
			TTL:     5 * time.Minute,
		},
		Storage: StorageConfig{
			CacheItems: 10000,
			CacheTTL:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Namespace: "traversal",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if _, err := planner.ParseStrategy(c.Planner.Strategy); err != nil {
		return fmt.Errorf("planner.strategy: %w", err)
	}
	if c.Planner.MaxStartingPoints < 0 {
		return fmt.Errorf("planner.max_starting_points must not be negative")
	}
	if c.Planner.OptimalMaxNodes < 0 || c.Planner.OptimalMaxNodes > 20 {
		return fmt.Errorf("planner.optimal_max_nodes must be between 0 and 20")
	}
	if c.Planner.MaxFragments < 0 {
		return fmt.Errorf("planner.max_fragments must not be negative")
	}
	if c.Cache.Enabled && c.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be positive when the cache is enabled")
	}
	if c.Storage.Path != "" && c.Storage.Snapshot != "" {
		return fmt.Errorf("storage.path and storage.snapshot are mutually exclusive")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// PlannerOptions converts the planner and cache sections to planner options.
// Statistics, schema, logger and handler are wired by the caller.
func (c *Config) PlannerOptions() (planner.Options, error) {
	strategy, err := planner.ParseStrategy(c.Planner.Strategy)
	if err != nil {
		return planner.Options{}, err
	}
	opts := planner.Options{
		Strategy:           strategy,
		MaxStartingPoints:  c.Planner.MaxStartingPoints,
		OptimalMaxNodes:    c.Planner.OptimalMaxNodes,
		MaxFragments:       c.Planner.MaxFragments,
		InferRelationTypes: c.Planner.InferRelationTypes,
	}
	if c.Cache.Enabled {
		opts.Cache = planner.NewPlanCache(c.Cache.Size, c.Cache.TTL)
	}
	return opts, nil
}

// NewLogger builds the zap logger described by the logging section.
// Logs go to stderr so that command output stays clean.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if strings.EqualFold(c.Logging.Format, "json") {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
