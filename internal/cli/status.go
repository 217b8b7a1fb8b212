package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/better-ecosystem/better-tor/internal/core"
	"github.com/better-ecosystem/better-tor/internal/lookup"
)

var statusWithIP bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusWithIP, "ip", false, "Also resolve the public IP and country")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether traffic is routed through Tor",
	Long:  "Reads the live NAT table (this may prompt for authorization). Any failure to read it is reported as inactive.",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

type statusOutput struct {
	State string       `json:"state"`
	Port  int          `json:"trans_port"`
	IP    *lookup.Info `json:"ip,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctl, err := newController()
	if err != nil {
		return err
	}

	var (
		state core.State
		info  lookup.Info
	)
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		state = ctl.Inspect(ctx)
		return nil
	})
	if statusWithIP {
		g.Go(func() error {
			info = ctl.ResolvePublicIP(ctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := statusOutput{State: state.String(), Port: ctl.Port()}
	if statusWithIP {
		out.IP = &info
	}
	return emit(cmd.OutOrStdout(), out, func(w io.Writer) {
		if state.Active() {
			fmt.Fprintf(w, "Tor routing: active (TransPort %d)\n", out.Port)
		} else {
			fmt.Fprintln(w, "Tor routing: inactive")
		}
		if out.IP != nil {
			printIP(w, *out.IP)
		}
	})
}

func printIP(w io.Writer, info lookup.Info) {
	fmt.Fprintf(w, "Public IP:   %s\n", info.IP)
	fmt.Fprintf(w, "Country:     %s\n", info.Country)
	if info.Source != "" {
		tor := "no"
		if info.IsTor {
			tor = "yes"
		}
		fmt.Fprintf(w, "Source:      %s (Tor exit: %s)\n", info.Source, tor)
	}
}
