package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"symptom-chatbot/internal/db"
)

var pruneOlderThan time.Duration

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stored conversations idle for longer than --older-than (SQL stores only)",
	Long: `Delete stored conversations idle for longer than --older-than.

Examples:
  symptom-chatbot prune --older-than 720h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pruneOlderThan <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}
		dialect, dsn, err := sqlTarget(cfg)
		if err != nil {
			return err
		}
		conn, err := db.Open(cmd.Context(), dialect, dsn)
		if err != nil {
			return err
		}
		defer conn.Close()

		n, err := db.NewRepository(conn).DeleteConversationsBefore(cmd.Context(), time.Now().Add(-pruneOlderThan))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d conversations\n", n)
		return nil
	},
}

func init() {
	pruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 30*24*time.Hour, "minimum idle time")
}
