package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/better-ecosystem/better-tor/internal/logger"
	"github.com/better-ecosystem/better-tor/internal/tray"
)

func init() {
	rootCmd.AddCommand(trayCmd)
}

var trayCmd = &cobra.Command{
	Use:   "tray",
	Short: "Run the system tray indicator",
	Long:  "Shows the routing state, public IP and country in the tray and reloads the config file when it changes.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := cfgManager.Get()
		if !verbose {
			// Long-running: keep stray stderr output from libraries in the log.
			if err := logger.Init(logger.Options{Level: cfg.Log.Level, Path: cfg.Log.File, CaptureStderr: true}); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
		}

		app, err := tray.New(cfgManager)
		if err != nil {
			return err
		}
		app.Run()
		return nil
	},
}
