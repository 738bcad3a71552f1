// Package cli provides the command-line interface for the symptom chatbot.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"symptom-chatbot/internal/config"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	configFile string

	cfg         *config.Config
	logger      *slog.Logger
	closeLogger func() error
)

var rootCmd = &cobra.Command{
	Use:   "symptom-chatbot",
	Short: "Symptom intake chatbot backend",
	Long: `Symptom intake chatbot backend.

Collects an age group and a language, then forwards reported symptoms to a
hosted language model and returns structured guidance with a disclaimer.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if configFile != "" {
			if err := cfg.ApplyFile(configFile); err != nil {
				return err
			}
		}

		logger, closeLogger = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLogger != nil {
			_ = closeLogger()
		}
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (overrides CHATBOT_CONFIG_FILE)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(pruneCmd)
}
