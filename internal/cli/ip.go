package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(ipCmd)
}

var ipCmd = &cobra.Command{
	Use:   "ip",
	Short: "Show the public IP address and country",
	Long:  "Queries the Tor check endpoint with retries, then the plain echo endpoint. Never fails; unknown values are printed as such.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctl, err := newController()
		if err != nil {
			return err
		}
		info := ctl.ResolvePublicIP(context.Background())
		return emit(cmd.OutOrStdout(), info, func(w io.Writer) { printIP(w, info) })
	},
}
