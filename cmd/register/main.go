package main

import (
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/threadmail/internal/config"
	"github.com/spec-kit/threadmail/internal/discord"
	"github.com/spec-kit/threadmail/internal/observability"
)

var (
	cfg    *config.Config
	logger *zap.Logger
	client *discord.Client
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("register: %v", err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "register",
	Short: "Publish application commands and linked-role metadata",
	Long: `register overwrites the application's slash commands and its linked-role
metadata schema. Run it after deploying a change to either.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger, err = observability.NewLogger(cfg.Logger)
		if err != nil {
			return err
		}
		client, err = discord.NewClient(cfg.Discord)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Register commands and linked-role metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runCommands(cmd, args); err != nil {
			return err
		}
		return runMetadata(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(allCmd)
	allCmd.Flags().AddFlagSet(commandFlags())
}
