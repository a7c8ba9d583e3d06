package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/threadmail/internal/api/interactions"
	"github.com/spec-kit/threadmail/internal/discord"
)

var (
	flatCommands bool
	guildID      string
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Overwrite the application's slash commands",
	Long: `Overwrite the application's slash commands. By default staff settings are
registered as /manage staff and /manage channel; --flat registers /staff and
/channel as top-level commands instead. --guild registers to a single guild,
which applies immediately and is useful while developing.`,
	RunE: runCommands,
}

func init() {
	rootCmd.AddCommand(commandsCmd)
	commandsCmd.Flags().AddFlagSet(commandFlags())
}

func commandFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("commands", pflag.ContinueOnError)
	fs.BoolVar(&flatCommands, "flat", false, "register staff and channel as top-level commands (default from DISCORD_COMMANDS_FLATTEN)")
	fs.StringVar(&guildID, "guild", "", "register to this guild only")
	return fs
}

func runCommands(cmd *cobra.Command, args []string) error {
	flat := flatCommands || cfg.Discord.CommandsFlatten
	registered, err := client.RegisterCommands(cmd.Context(), guildID, interactions.Commands(flat))
	if err != nil {
		if discord.IsRateLimited(err) {
			logger.Warn("rate limited while registering commands; retry later", zap.Error(err))
			return nil
		}
		return fmt.Errorf("register commands: %w", err)
	}
	names := make([]string, 0, len(registered))
	for _, c := range registered {
		names = append(names, c.Name)
	}
	logger.Info("commands registered",
		zap.Strings("commands", names),
		zap.Bool("flat", flat),
		zap.String("guild_id", guildID))
	return nil
}
