package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/better-ecosystem/better-tor/internal/helper"
)

var helperPrint bool

func init() {
	rootCmd.AddCommand(helperCmd)
	helperCmd.AddCommand(helperStageCmd)
	helperStageCmd.Flags().BoolVar(&helperPrint, "print", false, "Write the embedded helper to stdout instead of staging it")
}

var helperCmd = &cobra.Command{
	Use:   "helper",
	Short: "Manage the privileged helper script",
}

var helperStageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Write the embedded helper to its staging directory and print the path",
	Long: "Writes the helper only when it is missing or differs from the embedded copy. With helper.path set\n" +
		"in the config, the configured path is validated instead.",
	Args: cobra.NoArgs,
	RunE: runHelperStage,
}

func runHelperStage(cmd *cobra.Command, args []string) error {
	if helperPrint {
		_, err := cmd.OutOrStdout().Write(helper.Script())
		return err
	}

	cfg := cfgManager.Get()
	var loc helper.Locator = helper.NewStager(cfg.Helper.Dir)
	if cfg.Helper.Path != "" {
		loc = helper.Preinstalled{Path: cfg.Helper.Path}
	}
	path, err := loc.Ensure()
	if err != nil {
		return err
	}

	return emit(cmd.OutOrStdout(), map[string]string{"path": path}, func(w io.Writer) {
		fmt.Fprintln(w, path)
	})
}
