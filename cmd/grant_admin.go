package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deep3/social/config"
	"github.com/deep3/social/store"
	"github.com/deep3/social/utils"
)

// grantAdminCmd is the only way to create an administrator.
var grantAdminCmd = &cobra.Command{
	Use:   "grant-admin <email>",
	Short: "Give an existing account administrator rights",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db := config.InitDatabase()
		defer closeDatabase()
		if err := config.Migrate(db); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}

		s := store.New(db, store.WithLogger(utils.Logger))
		user, err := s.GrantAdmin(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("grant admin: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now an administrator\n", user.Email, user.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(grantAdminCmd)
}
