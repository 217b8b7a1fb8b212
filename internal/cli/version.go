package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X ...cli.version=".
var version = "0.1.0"

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := map[string]string{
			"version": version,
			"name":    "better-tor",
			"go":      runtime.Version(),
		}
		return emit(cmd.OutOrStdout(), info, func(w io.Writer) {
			fmt.Fprintf(w, "better-tor %s (%s)\n", version, info["go"])
		})
	},
}
