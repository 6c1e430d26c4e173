package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gzhole/toolguard/internal/config"
	"github.com/gzhole/toolguard/internal/signature"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List classifier models and built-in signatures",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Classifier models:")
		for _, id := range config.KnownModels() {
			m, err := config.LookupModel(id)
			if err != nil {
				return err
			}
			marker := " "
			if id == config.DefaultModel {
				marker = "*"
			}
			fmt.Fprintf(out, "  %s %-30s version=%s input=%s\n", marker, m.ID, m.Version, m.InputName)
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, "Signatures:")
		for _, sig := range signature.Catalogue() {
			fmt.Fprintf(out, "  %-24s %-8s %s\n", sig.ID, sig.Tier, sig.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
