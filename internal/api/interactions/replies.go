package interactions

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	apperrors "github.com/spec-kit/threadmail/pkg/util/errorutil"
)

const genericFailure = "Something went wrong. Please try again later."

func reply(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:         content,
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		},
	}
}

func ephemeral(content string) *discordgo.InteractionResponse {
	resp := reply(content)
	resp.Data.Flags = discordgo.MessageFlagsEphemeral
	return resp
}

// update replaces the message a component is attached to, dropping its
// components.
func update(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:         content,
			Components:      []discordgo.MessageComponent{},
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		},
	}
}

func authorizeButton(url string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Authorize App", Style: discordgo.LinkButton, URL: url},
			},
		},
	}
}

func authorizePrompt(title, body, url string) *discordgo.InteractionResponse {
	resp := ephemeral(fmt.Sprintf("## %s\n%s", title, body))
	if url != "" {
		resp.Data.Components = authorizeButton(url)
	}
	return resp
}

func serverPicker(guilds []*discordgo.UserGuild) *discordgo.InteractionResponse {
	options := make([]discordgo.SelectMenuOption, 0, len(guilds))
	for _, g := range guilds {
		label := g.Name
		if label == "" {
			label = g.ID
		}
		options = append(options, discordgo.SelectMenuOption{Label: truncate(label, 100), Value: g.ID})
	}
	resp := reply("## Creating a ticket\nPlease select a server where you want to create a ticket from the dropdown below.")
	resp.Data.Components = []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    SelectServerID,
					Placeholder: "Select a server to create a thread",
					Options:     options,
				},
			},
		},
	}
	return resp
}

// errorText renders a failure for the user. Unknown errors get a generic
// apology; the cause is logged by the router.
func errorText(err error) string {
	domainErr := apperrors.ToDomainError(err)
	switch domainErr.Code {
	case apperrors.CodeNoActiveTicket:
		return "You don't have an active ticket. Use `/create` in a DM with the bot first."
	case apperrors.CodeTicketAlreadyOpen:
		if threadID, ok := apperrors.Detail(err, "thread_id"); ok {
			return fmt.Sprintf("You already have an open ticket: <#%v>", threadID)
		}
		return "You already have an open ticket."
	case apperrors.CodeTicketNotActive:
		return "Your ticket is not active or doesn't exist."
	case apperrors.CodeNotTicketThread:
		return "This is not a valid ticket thread."
	case apperrors.CodeCooldownActive:
		text := "**You're on cooldown!**\n\nYou closed a ticket too quickly. Please wait before closing another ticket."
		if expiresAt, ok := apperrors.Detail(err, "expires_at"); ok {
			if ms, ok := expiresAt.(int64); ok {
				text += fmt.Sprintf("\n\n-# **Time remaining:** <t:%d:R>", ms/1000)
			}
		}
		return text
	case apperrors.CodeGuildMisconfigured:
		return "This server has no ticket channel or system channel configured. Ask a server manager to run `/manage channel set`."
	case apperrors.CodeMissingPermission:
		if perm, ok := apperrors.Detail(err, "permission"); ok {
			return fmt.Sprintf("**Permission Error:** the bot lacks the required permission: %v", perm)
		}
		return "**Permission Error:** the bot lacks a required permission."
	case apperrors.CodeDMFailed:
		return "Could not DM the user. They may have DMs disabled."
	case apperrors.CodeNoMutualGuilds:
		return "No mutual servers found. Make sure the bot is invited to the servers you are in."
	case apperrors.CodeInvalidChannel, apperrors.CodeValidation, apperrors.CodeForbidden:
		return domainErr.Message
	default:
		return genericFailure
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
