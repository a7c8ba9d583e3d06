package service

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/threadmail/internal/domain"
)

// Platform is the subset of the Discord REST API the services use.
// internal/discord.Client implements it.
type Platform interface {
	Guild(ctx context.Context, guildID string) (*discordgo.Guild, error)
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	CreatePrivateThread(ctx context.Context, parentID, name string, autoArchiveMinutes int) (*discordgo.Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error
	LockAndArchiveThread(ctx context.Context, threadID string) error
	SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	ChannelWebhooks(ctx context.Context, channelID string) ([]*discordgo.Webhook, error)
	CreateWebhook(ctx context.Context, channelID, name string) (*discordgo.Webhook, error)
	ExecuteWebhook(ctx context.Context, webhookURL, threadID string, params *discordgo.WebhookParams) error
	OpenDM(ctx context.Context, userID string) (*discordgo.Channel, error)
	BotGuilds(ctx context.Context) ([]*discordgo.UserGuild, error)
	UserGuilds(ctx context.Context, accessToken string) ([]*discordgo.UserGuild, error)
	CurrentUser(ctx context.Context, accessToken string) (*discordgo.User, error)
	RoleConnection(ctx context.Context, accessToken string) (*discordgo.ApplicationRoleConnection, error)
	UpdateRoleConnection(ctx context.Context, accessToken string, conn *discordgo.ApplicationRoleConnection) error
}

// TokenProvider hands out a usable OAuth access token for a user,
// refreshing it when needed.
type TokenProvider interface {
	ValidAccessToken(ctx context.Context, userID string, user *domain.User) (string, error)
}
