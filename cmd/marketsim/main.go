// Command marketsim is the entry point for the synthetic market simulator.
// It loads configuration, builds the logger, and hands off to the CLI.
package main

import (
	"flag"
	"fmt"
	"os"

	"market-simulator/internal/cli"
	"market-simulator/internal/config"
	"market-simulator/internal/logging"
)

func main() {
	configDir := flag.String("config-dir", "", "configuration directory (default ~/.config/marketsim)")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marketsim: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLoggerWithConfig(logging.LogConfig{
		Level:    cfg.Log.Level,
		Console:  cfg.Log.Console,
		File:     cfg.Log.File,
		FilePath: cfg.Log.Path,
		MaxSize:  50,
		MaxAge:   14,
	})

	rootCmd := cli.NewRootCmd(cfg, logger)
	rootCmd.SetArgs(flag.Args())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "marketsim: %v\n", err)
		os.Exit(1)
	}
}
