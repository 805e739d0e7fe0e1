package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deep3/social/config"
	"github.com/deep3/social/utils"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "social",
	Short: "Education social network backend",
	Long: `Backend for the education social network: accounts, the post feed,
comments, moderation tools and achievement NFT drafts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Parse(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		config.Set(cfg)
		return utils.InitLogger(cfg)
	},
}

// Execute runs the root command. Without a subcommand it starts the server.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.json", "path to the JSON config file")
	rootCmd.RunE = serverCmd.RunE
}
