package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/threadmail/internal/discord"
	"github.com/spec-kit/threadmail/internal/service"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Overwrite the linked-role metadata schema",
	RunE:  runMetadata,
}

func init() {
	rootCmd.AddCommand(metadataCmd)
}

func runMetadata(cmd *cobra.Command, args []string) error {
	schema := service.RoleConnectionSchema()
	if err := client.RegisterRoleConnectionMetadata(cmd.Context(), schema); err != nil {
		if discord.IsRateLimited(err) {
			logger.Warn("rate limited while registering metadata; retry later", zap.Error(err))
			return nil
		}
		return fmt.Errorf("register role connection metadata: %w", err)
	}
	keys := make([]string, 0, len(schema))
	for _, m := range schema {
		keys = append(keys, m.Key)
	}
	logger.Info("linked-role metadata registered", zap.Strings("keys", keys))
	return nil
}
