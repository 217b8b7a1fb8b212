// Package cli implements the better-tor command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/better-ecosystem/better-tor/internal/config"
	"github.com/better-ecosystem/better-tor/internal/core"
	"github.com/better-ecosystem/better-tor/internal/logger"
)

var (
	configPath string
	verbose    bool
	jsonOutput bool

	cfgManager *config.Manager
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default "+config.GetConfigPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print machine-readable JSON")
}

var rootCmd = &cobra.Command{
	Use:   "better-tor",
	Short: "Route all traffic through Tor and report the current state",
	Long: "better-tor toggles a transparent Tor proxy on the local firewall, reads the live NAT table to report\n" +
		"whether it is active, and shows the public address and country the outside world sees.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and starts logging.
func setup(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	cfgManager = config.NewManager(path)
	if err := cfgManager.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := cfgManager.Get()

	opts := logger.Options{Level: cfg.Log.Level, Path: cfg.Log.File}
	if verbose {
		opts.Level = "debug"
	}
	if verbose || cfg.Log.Console {
		opts.Console = os.Stderr
	}
	if err := logger.Init(opts); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.Debug("config loaded from %s", cfgManager.Path())
	return nil
}

// newController builds a controller from the loaded configuration.
func newController() (*core.Controller, error) {
	return core.NewFromConfig(cfgManager.Get())
}

// emit prints v as indented JSON when --json is set, otherwise it calls text.
func emit(w io.Writer, v any, text func(io.Writer)) error {
	if !jsonOutput {
		text(w)
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
