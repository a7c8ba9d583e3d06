package interactions

import "github.com/bwmarrin/discordgo"

// Command and component names.
const (
	CommandAuthorize = "authorize-account"
	CommandCreate    = "create"
	CommandSend      = "send"
	CommandClose     = "close"
	CommandManage    = "manage"
	CommandStaff     = "staff"
	CommandChannel   = "channel"

	SubcommandSet   = "set"
	SubcommandView  = "view"
	SubcommandClear = "clear"

	OptionMessage = "message"
	OptionRole    = "role"
	OptionChannel = "channel"

	// SelectServerID is the custom id of the server picker sent by /create.
	SelectServerID = "create:select_server"
)

// Commands returns the application command set. flat registers the staff and
// channel groups as top-level commands instead of under /manage.
func Commands(flat bool) []*discordgo.ApplicationCommand {
	dmAllowed := true
	guildOnly := false
	manageServer := int64(discordgo.PermissionManageServer)

	cmds := []*discordgo.ApplicationCommand{
		{
			Name:         CommandAuthorize,
			Description:  "Authorize the app to open tickets on your behalf",
			DMPermission: &dmAllowed,
		},
		{
			Name:         CommandCreate,
			Description:  "Create a ticket thread in a mutual server",
			DMPermission: &dmAllowed,
		},
		{
			Name:         CommandSend,
			Description:  "Send a message to the ticket system",
			DMPermission: &dmAllowed,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        OptionMessage,
					Description: "Message to send",
					Required:    true,
					MaxLength:   2000,
				},
			},
		},
		{
			Name:         CommandClose,
			Description:  "Close and archive the current ticket thread",
			DMPermission: &dmAllowed,
		},
	}

	staff := staffSubcommands()
	channel := channelSubcommands()
	if flat {
		return append(cmds,
			&discordgo.ApplicationCommand{
				Name:                     CommandStaff,
				Description:              "Staff role management",
				DMPermission:             &guildOnly,
				DefaultMemberPermissions: &manageServer,
				Options:                  staff,
			},
			&discordgo.ApplicationCommand{
				Name:                     CommandChannel,
				Description:              "Ticket channel management",
				DMPermission:             &guildOnly,
				DefaultMemberPermissions: &manageServer,
				Options:                  channel,
			},
		)
	}
	return append(cmds, &discordgo.ApplicationCommand{
		Name:                     CommandManage,
		Description:              "Server management settings",
		DMPermission:             &guildOnly,
		DefaultMemberPermissions: &manageServer,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
				Name:        CommandStaff,
				Description: "Staff role management",
				Options:     staff,
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
				Name:        CommandChannel,
				Description: "Ticket channel management",
				Options:     channel,
			},
		},
	})
}

func staffSubcommands() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubcommandSet,
			Description: "Set staff role to mention when thread created",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        OptionRole,
					Description: "Select the role to ping",
					Required:    true,
				},
			},
		},
		{Type: discordgo.ApplicationCommandOptionSubCommand, Name: SubcommandView, Description: "View current staff role"},
		{Type: discordgo.ApplicationCommandOptionSubCommand, Name: SubcommandClear, Description: "Remove current staff role"},
	}
}

func channelSubcommands() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        SubcommandSet,
			Description: "Set custom channel for ticket creation",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         OptionChannel,
					Description:  "Select the channel for ticket creation",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
			},
		},
		{Type: discordgo.ApplicationCommandOptionSubCommand, Name: SubcommandView, Description: "View current ticket channel"},
		{Type: discordgo.ApplicationCommandOptionSubCommand, Name: SubcommandClear, Description: "Reset to default system channel"},
	}
}
