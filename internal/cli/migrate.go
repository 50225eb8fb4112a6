package cli

import (
	"fmt"

	"formpilot/internal/errors"
	"formpilot/internal/store"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	Long:  "Create the users, verification token, question record, resume and application tables if they do not exist.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := configOf(cmd)
		logger := loggerOf(cmd)

		if cfg.Database.URL == "" {
			return errors.NewConfigError(errors.ErrCodeInvalidConfig,
				"database URL is required (set FORMPILOT_DATABASE_URL or DATABASE_URL)", nil)
		}

		db, err := store.New(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		logger.Info("Database schema is up to date")
		return nil
	},
}
