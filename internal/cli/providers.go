package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"symptom-chatbot/internal/llm"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List model providers and whether they are configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		selector, err := llm.NewSelectorFromConfig(cfg, logger)
		if err != nil {
			return err
		}
		available := selector.Available(cmd.Context())
		out := cmd.OutOrStdout()
		for _, name := range selector.Providers() {
			marker := " "
			if name == selector.Name() {
				marker = "*"
			}
			status := "not configured"
			if slices.Contains(available, name) {
				status = "available"
			}
			fmt.Fprintf(out, "%s %-10s %s\n", marker, name, status)
		}
		return nil
	},
}
