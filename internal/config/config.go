// Package config provides configuration management for the market simulator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"market-simulator/internal/errors"
	"market-simulator/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Journal    JournalConfig    `mapstructure:"journal"`
	Log        LogConfig        `mapstructure:"log"`
}

// SimulationConfig holds the seed values for a simulation session.
type SimulationConfig struct {
	InitialPrice   float64 `mapstructure:"initial_price"`
	InitialBalance float64 `mapstructure:"initial_balance"`
	Speed          int     `mapstructure:"speed"`
	Interval       string  `mapstructure:"interval"`
	// RandomSeed seeds the activity generator; 0 means time-seeded.
	RandomSeed int64 `mapstructure:"random_seed"`
}

// EngineConfig holds capacities and tick periods for the engine.
type EngineConfig struct {
	BookDepth             int           `mapstructure:"book_depth"`
	BookSideCapacity      int           `mapstructure:"book_side_capacity"`
	TapeCapacity          int           `mapstructure:"tape_capacity"`
	HistoryCapacity       int           `mapstructure:"history_capacity"`
	CandleCapacity        int           `mapstructure:"candle_capacity"`
	MarketTickPeriod      time.Duration `mapstructure:"market_tick_period"`
	AggregationTickPeriod time.Duration `mapstructure:"aggregation_tick_period"`
}

// JournalConfig holds the session journal configuration.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
	Path    string `mapstructure:"path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/marketsim"
	}
	return filepath.Join(home, ".config", "marketsim")
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			InitialPrice:   100.0,
			InitialBalance: 10000.0,
			Speed:          1,
			Interval:       string(models.Interval1m),
		},
		Engine: EngineConfig{
			BookDepth:             10,
			BookSideCapacity:      20,
			TapeCapacity:          50,
			HistoryCapacity:       100,
			CandleCapacity:        100,
			MarketTickPeriod:      300 * time.Millisecond,
			AggregationTickPeriod: time.Second,
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    filepath.Join(DefaultConfigDir(), "session.db"),
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		// No config file: run on defaults.
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MARKETSIM_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("MARKETSIM_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
		cfg.Journal.Enabled = true
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Simulation.InitialPrice <= 0 {
		return errors.NewValidationError("simulation.initial_price", c.Simulation.InitialPrice, "must be positive")
	}
	if c.Simulation.InitialBalance < 0 {
		return errors.NewValidationError("simulation.initial_balance", c.Simulation.InitialBalance, "must not be negative")
	}
	if !models.ValidSpeed(c.Simulation.Speed) {
		return errors.NewValidationError("simulation.speed", c.Simulation.Speed, "must be one of 1, 2, 3, 5, 10")
	}
	if !models.Interval(c.Simulation.Interval).Valid() {
		return errors.NewValidationError("simulation.interval", c.Simulation.Interval, "must be one of 1m, 5m, 15m, 1h, 1d")
	}
	if c.Engine.BookDepth <= 0 {
		return errors.NewValidationError("engine.book_depth", c.Engine.BookDepth, "must be positive")
	}
	if c.Engine.BookSideCapacity < c.Engine.BookDepth {
		return errors.NewValidationError("engine.book_side_capacity", c.Engine.BookSideCapacity, "must be at least book_depth")
	}
	if c.Engine.TapeCapacity <= 0 {
		return errors.NewValidationError("engine.tape_capacity", c.Engine.TapeCapacity, "must be positive")
	}
	if c.Engine.HistoryCapacity <= 0 {
		return errors.NewValidationError("engine.history_capacity", c.Engine.HistoryCapacity, "must be positive")
	}
	if c.Engine.CandleCapacity <= 0 {
		return errors.NewValidationError("engine.candle_capacity", c.Engine.CandleCapacity, "must be positive")
	}
	if c.Engine.MarketTickPeriod <= 0 {
		return errors.NewValidationError("engine.market_tick_period", c.Engine.MarketTickPeriod, "must be positive")
	}
	if c.Engine.AggregationTickPeriod <= 0 {
		return errors.NewValidationError("engine.aggregation_tick_period", c.Engine.AggregationTickPeriod, "must be positive")
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return errors.NewValidationError("journal.path", c.Journal.Path, "required when journal is enabled")
	}
	return nil
}
