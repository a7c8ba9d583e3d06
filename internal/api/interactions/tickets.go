package interactions

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/threadmail/internal/auth"
	"github.com/spec-kit/threadmail/internal/service"
	apperrors "github.com/spec-kit/threadmail/pkg/util/errorutil"
)

const permManageThreads = "Manage Threads"

func (r *Router) handleAuthorize(_ context.Context, _ *auth.Principal, _ *discordgo.Interaction) (*discordgo.InteractionResponse, error) {
	url := r.authorizeURL()
	if url == "" {
		return nil, apperrors.NewInternalError(fmt.Errorf("authorize url unavailable"))
	}
	return authorizePrompt("Authorize App",
		"Click the button below to authorize the app so it can open tickets on your behalf.", url), nil
}

func (r *Router) handleCreate(ctx context.Context, p *auth.Principal, _ *discordgo.Interaction) (*discordgo.InteractionResponse, error) {
	if p.InGuild() {
		return ephemeral("This command can only be used in DMs with the bot."), nil
	}
	guilds, err := r.tickets.MutualGuilds(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	return serverPicker(guilds), nil
}

func (r *Router) handleSelectServer(ctx context.Context, p *auth.Principal, i *discordgo.Interaction) (*discordgo.InteractionResponse, error) {
	values := i.MessageComponentData().Values
	if len(values) == 0 || values[0] == "" {
		return nil, apperrors.NewValidationError("no server selected", nil)
	}
	result, err := r.tickets.CreateTicket(ctx, service.CreateTicketInput{
		UserID:   p.UserID,
		Username: p.Username,
		GuildID:  values[0],
	})
	if err != nil {
		return nil, err
	}
	return update(fmt.Sprintf("Ticket created in **%s**\n-# Use `/send` to message staff and `/close` when you're done.",
		result.GuildName)), nil
}

func (r *Router) handleSend(ctx context.Context, p *auth.Principal, i *discordgo.Interaction) (*discordgo.InteractionResponse, error) {
	content := ""
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == OptionMessage {
			content = strings.TrimSpace(opt.StringValue())
		}
	}
	if content == "" {
		return nil, apperrors.NewValidationError("message must not be empty", nil)
	}

	if !p.InGuild() {
		if _, err := r.relay.SendFromOwner(ctx, service.OwnerMessage{
			UserID:    p.UserID,
			Username:  p.Username,
			AvatarURL: p.AvatarURL,
			Content:   content,
		}); err != nil {
			return nil, err
		}
		return ephemeral("Message sent to staff."), nil
	}

	if err := p.Require(discordgo.PermissionManageThreads, permManageThreads); err != nil {
		return nil, err
	}
	if _, err := r.relay.SendFromStaff(ctx, p.UserID, p.ChannelID, content); err != nil {
		return nil, err
	}
	return reply(staffEcho(content)), nil
}

func (r *Router) handleClose(ctx context.Context, p *auth.Principal, _ *discordgo.Interaction) (*discordgo.InteractionResponse, error) {
	var (
		result *service.CloseResult
		err    error
	)
	if p.InGuild() {
		if err := p.Require(discordgo.PermissionManageThreads, permManageThreads); err != nil {
			return nil, err
		}
		result, err = r.tickets.CloseFromThread(ctx, p.UserID, p.ChannelID)
	} else {
		result, err = r.tickets.CloseFromDM(ctx, p.UserID)
	}
	if err != nil {
		return nil, err
	}

	text := "Ticket closed."
	if result.Ticket != nil {
		text = fmt.Sprintf("Ticket #%d closed.", result.Ticket.CaseNumber)
	}
	if result.ArchiveErr != nil {
		r.logger.Warn("ticket closed without archive", zap.String("user_id", p.UserID), zap.Error(result.ArchiveErr))
		text += "\n-# The thread could not be archived: " + errorText(result.ArchiveErr)
	}
	return ephemeral(text), nil
}

// staffEcho is shown in the thread after a staff reply was delivered.
func staffEcho(content string) string {
	return content + "\n-# Sent to the ticket owner"
}
