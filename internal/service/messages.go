package service

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/threadmail/internal/domain"
)

const permissionProbeContent = "**Permission Test:** This message will be deleted automatically."

func announcementMessage(caseNumber int, username string, guild *domain.Guild) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: fmt.Sprintf("## New Ticket #%d\n-# [ %s ]\n\n**Created by:** %s\n-# Please assist this user with their inquiry",
			caseNumber, guild.PingMention(), username),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeEveryone, discordgo.AllowedMentionTypeRoles},
		},
	}
}

func ownerCloseNotice(ticket *domain.Ticket) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: fmt.Sprintf("## Ticket Closed\n\n**User:** %s\n\n-# This ticket has been closed by the user.", ticket.Username),
	}
}

func staffCloseNotice(ticket *domain.Ticket) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: fmt.Sprintf("## Ticket Archived\n\n**User:** %s\n**Status:** Closed by staff\n\n-# This ticket has been archived by staff.", ticket.Username),
	}
}

func cooldownWarning() *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: "-# **Warning:** Closing tickets too quickly will put you on a 30-minute cooldown before you can close another ticket.",
	}
}

func staffClosedDM() *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: "## Your ticket has been closed!\nStaff have resolved your issue. If you need further assistance, you can create a new ticket anytime using the `/create` command.\n-# Ticket closed by staff",
	}
}

func staffReply(content string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:         content + "\n-# Replied by staff",
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
}
