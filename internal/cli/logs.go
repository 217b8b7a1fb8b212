package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/better-ecosystem/better-tor/internal/logger"
)

var (
	logsClear bool
	logsPath  bool
)

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().BoolVar(&logsClear, "clear", false, "Truncate the log file")
	logsCmd.Flags().BoolVar(&logsPath, "path", false, "Print the log file location")
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print or clear the log file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case logsPath:
			fmt.Fprintln(cmd.OutOrStdout(), logger.GetLogPath())
			return nil
		case logsClear:
			if err := logger.ClearLogs(); err != nil {
				return fmt.Errorf("failed to clear logs: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logs cleared")
			return nil
		}

		logs, err := logger.ReadLogs()
		if err != nil {
			return fmt.Errorf("failed to read logs: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), logs)
		return nil
	},
}
