package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deep3/social/config"
	"github.com/deep3/social/utils"
)

// migrateCmd creates or updates the schema and exits.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db := config.InitDatabase()
		defer closeDatabase()
		if err := config.Migrate(db); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
		utils.Sugar.Infof("schema migrated (%s)", config.Get().DBDriver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func closeDatabase() {
	if sqlDB, err := config.DB().DB(); err == nil {
		_ = sqlDB.Close()
	}
}
