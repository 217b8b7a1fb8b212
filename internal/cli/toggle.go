package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(refreshCmd)
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Switch Tor routing on or off",
	Long: "Runs the helper under pkexec or sudo to load or flush the transparent proxy rules, then reads the\n" +
		"table back and prints the resulting state.",
	Args: cobra.NoArgs,
	RunE: runToggle,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Request a new Tor identity",
	Args:  cobra.NoArgs,
	RunE:  runRefresh,
}

func runToggle(cmd *cobra.Command, args []string) error {
	ctl, err := newController()
	if err != nil {
		return err
	}

	state, err := ctl.Toggle(context.Background())
	if err != nil {
		return fmt.Errorf("toggle failed: %w", err)
	}

	return emit(cmd.OutOrStdout(), statusOutput{State: state.String(), Port: ctl.Port()}, func(w io.Writer) {
		fmt.Fprintf(w, "Tor routing is now %s\n", state)
	})
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctl, err := newController()
	if err != nil {
		return err
	}
	if err := ctl.Refresh(context.Background()); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Requested a new Tor identity")
	return nil
}
