package interactions

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/threadmail/internal/auth"
	apperrors "github.com/spec-kit/threadmail/pkg/util/errorutil"
)

const permManageServer = "Manage Server"

// handleManage serves /manage staff|channel <sub> and the flat /staff and
// /channel layouts.
func (r *Router) handleManage(ctx context.Context, p *auth.Principal, i *discordgo.Interaction) (*discordgo.InteractionResponse, error) {
	if err := p.Require(discordgo.PermissionManageServer, permManageServer); err != nil {
		return nil, err
	}

	data := i.ApplicationCommandData()
	group, sub, opts := resolveSubcommand(data)
	switch group {
	case CommandStaff:
		return r.manageStaff(ctx, p.GuildID, sub, opts)
	case CommandChannel:
		return r.manageChannel(ctx, p.GuildID, sub, opts, data.Resolved)
	default:
		return nil, apperrors.NewValidationError("unknown subcommand", nil)
	}
}

// resolveSubcommand flattens both registered layouts into (group, sub, options).
func resolveSubcommand(data discordgo.ApplicationCommandInteractionData) (string, string, []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(data.Options) == 0 {
		return "", "", nil
	}
	first := data.Options[0]
	if data.Name == CommandManage {
		if first.Type != discordgo.ApplicationCommandOptionSubCommandGroup || len(first.Options) == 0 {
			return "", "", nil
		}
		sub := first.Options[0]
		return first.Name, sub.Name, sub.Options
	}
	return data.Name, first.Name, first.Options
}

func findOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range opts {
		if opt.Name == name {
			return opt
		}
	}
	return nil
}

func (r *Router) manageStaff(ctx context.Context, guildID, sub string, opts []*discordgo.ApplicationCommandInteractionDataOption) (*discordgo.InteractionResponse, error) {
	switch sub {
	case SubcommandSet:
		opt := findOption(opts, OptionRole)
		if opt == nil {
			return nil, apperrors.NewValidationError("a role is required", nil)
		}
		roleID := opt.RoleValue(nil, "").ID
		if _, err := r.guilds.SetPingRole(ctx, guildID, roleID); err != nil {
			return nil, err
		}
		return ephemeral(fmt.Sprintf("Staff role set to <@&%s>. It will be mentioned on new tickets.", roleID)), nil
	case SubcommandView:
		settings, err := r.guilds.Settings(ctx, guildID)
		if err != nil {
			return nil, err
		}
		if settings.PingRoleID == "" {
			return ephemeral("No staff role is set."), nil
		}
		return ephemeral(fmt.Sprintf("Current staff role: <@&%s>", settings.PingRoleID)), nil
	case SubcommandClear:
		cleared, err := r.guilds.ClearPingRole(ctx, guildID)
		if err != nil {
			return nil, err
		}
		if !cleared {
			return ephemeral("No staff role was set."), nil
		}
		return ephemeral("Staff role removed."), nil
	}
	return nil, apperrors.NewValidationError("unknown subcommand", nil)
}

func (r *Router) manageChannel(ctx context.Context, guildID, sub string, opts []*discordgo.ApplicationCommandInteractionDataOption, resolved *discordgo.ApplicationCommandInteractionDataResolved) (*discordgo.InteractionResponse, error) {
	switch sub {
	case SubcommandSet:
		opt := findOption(opts, OptionChannel)
		if opt == nil {
			return nil, apperrors.NewValidationError("a channel is required", nil)
		}
		channelID, _ := opt.Value.(string)
		var channel *discordgo.Channel
		if resolved != nil {
			channel = resolved.Channels[channelID]
		}
		if channel == nil {
			return nil, apperrors.NewValidationError("channel could not be resolved", nil)
		}
		if _, err := r.guilds.SetTicketChannel(ctx, guildID, channel); err != nil {
			return nil, err
		}
		return ephemeral(fmt.Sprintf("Ticket channel set to <#%s>.", channel.ID)), nil
	case SubcommandView:
		settings, err := r.guilds.Settings(ctx, guildID)
		if err != nil {
			return nil, err
		}
		switch {
		case settings.TicketChannelID != "":
			return ephemeral(fmt.Sprintf("Current ticket channel: <#%s>", settings.TicketChannelID)), nil
		case settings.SystemChannelID != "":
			return ephemeral(fmt.Sprintf("No custom channel set. Tickets use the system channel <#%s>.", settings.SystemChannelID)), nil
		default:
			return ephemeral("No ticket channel or system channel is configured."), nil
		}
	case SubcommandClear:
		cleared, err := r.guilds.ClearTicketChannel(ctx, guildID)
		if err != nil {
			return nil, err
		}
		if !cleared {
			return ephemeral("No custom ticket channel was set."), nil
		}
		return ephemeral("Ticket channel reset to the system channel."), nil
	}
	return nil, apperrors.NewValidationError("unknown subcommand", nil)
}
