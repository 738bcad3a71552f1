package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"symptom-chatbot/internal/config"
	"symptom-chatbot/internal/db"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print conversation ids as they are saved (postgres store only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Store != config.StorePostgres || cfg.DatabaseURL == "" || cfg.NotifyChannel == "" {
			return fmt.Errorf("watch needs CHATBOT_STORE=postgres, DATABASE_URL and POSTGRES_NOTIFY_CHANNEL")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ids, err := db.Listen(ctx, cfg.DatabaseURL, cfg.NotifyChannel, logger)
		if err != nil {
			return err
		}
		logger.Info("watching conversation updates", "channel", cfg.NotifyChannel)
		for id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}
