package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/threadmail/internal/config"
)

// Client issues REST calls against the Discord API. Every call runs under its
// own timeout; nothing is retried. discordgo's role-connection helpers take no
// request options, so those endpoints are called through RequestWithBucketID
// to keep the deadline.
type Client struct {
	bot              *discordgo.Session
	appID            string
	httpClient       *http.Client
	timeout          time.Duration
	guildListTimeout time.Duration
}

// NewClient builds a bot-authenticated client.
func NewClient(cfg config.DiscordConfig) (*Client, error) {
	return newClient(cfg, &http.Client{})
}

func newClient(cfg config.DiscordConfig, httpClient *http.Client) (*Client, error) {
	bot, err := newSession("Bot "+cfg.BotToken, httpClient)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &Client{
		bot:              bot,
		appID:            cfg.ApplicationID,
		httpClient:       httpClient,
		timeout:          cfg.RequestTimeout(),
		guildListTimeout: cfg.GuildListTimeout(),
	}, nil
}

func newSession(token string, httpClient *http.Client) (*discordgo.Session, error) {
	s, err := discordgo.New(token)
	if err != nil {
		return nil, err
	}
	s.Client = httpClient
	s.ShouldRetryOnRateLimit = false
	s.MaxRestRetries = 0
	return s, nil
}

// bearer returns a session acting on behalf of an OAuth user.
func (c *Client) bearer(accessToken string) (*discordgo.Session, error) {
	return newSession("Bearer "+accessToken, c.httpClient)
}

func (c *Client) call(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, discordgo.RequestOption) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, cancel, discordgo.WithContext(ctx)
}

// Guild fetches a guild as seen by the bot.
func (c *Client) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	_, cancel, opt := c.call(ctx, c.timeout)
	defer cancel()
	return c.bot.Guild(guildID, opt)
}

// Channel fetches a channel; a 403 means the bot cannot view it.
func (c *Client) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	_, cancel, opt := c.call(ctx, c.timeout)
	defer cancel()
	return c.bot.Channel(channelID, opt)
}

// CreatePrivateThread starts a private thread under parentID.
func (c *Client) CreatePrivateThread(ctx context.Context, parentID, name string, autoArchiveMinutes int) (*discordgo.Channel, error) {
	_, cancel, opt := c.call(ctx, c.timeout)
	defer cancel()
	return c.bot.ThreadStartComplex(parentID, &discordgo.ThreadStart{
		Name:                name,
		AutoArchiveDuration: autoArchiveMinutes,
		Type:                discordgo.ChannelTypeGuildPrivateThread,
	}, opt)
}

// DeleteChannel removes a channel or thread.
func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	_, cancel, opt := c.call(ctx, c.timeout)
	defer cancel()
	_, err := c.bot.ChannelDelete(channelID, opt)
	return err
}

// LockAndArchiveThread locks and archives a thread in one edit.
func (c *Client) LockAndArchiveThread(ctx context.Context, threadID string) error {
	_, cancel, opt := c.call(ctx, c.timeout)
	defer cancel()
	locked, archived := true, true
	_, err := c.bot.ChannelEdit(threadID, &discordgo.ChannelEdit{Locked: &locked, Archived: &archived}, opt)
	return err
}

// SendMessage posts a message to a channel, thread or DM channel.
func (c *Client) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	_, cancel, opt := c.call(ctx, c.timeout)
	defer cancel()
	return c.bot.ChannelMessageSendComplex(channelID, msg, opt)
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	_, cancel, opt := c.call(ctx, c.timeout)
	defer cancel()
	return c.bot.ChannelMessageDelete(channelID, messageID, opt)
}

// ChannelWebhooks lists the webhooks of a channel.
func (c *Client) ChannelWebhooks(ctx context.Context, channelID string) ([]*discordgo.Webhook, error) {
	_, cancel, opt := c.call(ctx, c.timeout)
	defer cancel()
	return c.bot.ChannelWebhooks(channelID, opt)
}

// CreateWebhook creates a named webhook on a channel.
func (c *Client) CreateWebhook(ctx context.Context, channelID, name string) (*discordgo.Webhook, error) {
	_, cancel, opt := c.call(ctx, c.timeout)
	defer cancel()
	return c.bot.WebhookCreate(channelID, name, "", opt)
}

// ExecuteWebhook posts through a webhook URL, routed into threadID when set.
func (c *Client) ExecuteWebhook(ctx context.Context, webhookURL, threadID string, params *discordgo.WebhookParams) error {
	id, token, ok := ParseWebhookURL(webhookURL)
	if !ok {
		return fmt.Errorf("malformed webhook url")
	}
	_, cancel, opt := c.call(ctx, c.timeout)
	defer cancel()
	_, err := c.bot.WebhookThreadExecute(id, token, false, threadID, params, opt)
	return err
}

// OpenDM opens (or reuses) the DM channel with a user.
func (c *Client) OpenDM(ctx context.Context, userID string) (*discordgo.Channel, error) {
	_, cancel, opt := c.call(ctx, c.timeout)
	defer cancel()
	return c.bot.UserChannelCreate(userID, opt)
}

// BotGuilds lists the guilds the bot is a member of.
func (c *Client) BotGuilds(ctx context.Context) ([]*discordgo.UserGuild, error) {
	_, cancel, opt := c.call(ctx, c.guildListTimeout)
	defer cancel()
	return c.bot.UserGuilds(200, "", "", false, opt)
}

// UserGuilds lists the guilds of the user owning accessToken.
func (c *Client) UserGuilds(ctx context.Context, accessToken string) ([]*discordgo.UserGuild, error) {
	s, err := c.bearer(accessToken)
	if err != nil {
		return nil, err
	}
	_, cancel, opt := c.call(ctx, c.guildListTimeout)
	defer cancel()
	return s.UserGuilds(200, "", "", false, opt)
}

// CurrentUser identifies the owner of accessToken.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*discordgo.User, error) {
	s, err := c.bearer(accessToken)
	if err != nil {
		return nil, err
	}
	_, cancel, opt := c.call(ctx, c.timeout)
	defer cancel()
	return s.User("@me", opt)
}

// RoleConnection reads the linked-role metadata the user granted this app.
func (c *Client) RoleConnection(ctx context.Context, accessToken string) (*discordgo.ApplicationRoleConnection, error) {
	s, err := c.bearer(accessToken)
	if err != nil {
		return nil, err
	}
	_, cancel, opt := c.call(ctx, c.timeout)
	defer cancel()
	endpoint := discordgo.EndpointUserApplicationRoleConnection(c.appID)
	body, err := s.RequestWithBucketID(http.MethodGet, endpoint, nil, endpoint, opt)
	if err != nil {
		return nil, err
	}
	var conn discordgo.ApplicationRoleConnection
	if err := json.Unmarshal(body, &conn); err != nil {
		return nil, fmt.Errorf("decode role connection: %w", err)
	}
	return &conn, nil
}

// UpdateRoleConnection replaces the user's linked-role metadata.
func (c *Client) UpdateRoleConnection(ctx context.Context, accessToken string, conn *discordgo.ApplicationRoleConnection) error {
	s, err := c.bearer(accessToken)
	if err != nil {
		return err
	}
	_, cancel, opt := c.call(ctx, c.timeout)
	defer cancel()
	endpoint := discordgo.EndpointUserApplicationRoleConnection(c.appID)
	_, err = s.RequestWithBucketID(http.MethodPut, endpoint, conn, endpoint, opt)
	return err
}

// RegisterCommands overwrites the application's commands, globally when guildID is empty.
func (c *Client) RegisterCommands(ctx context.Context, guildID string, commands []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	_, cancel, opt := c.call(ctx, c.timeout)
	defer cancel()
	return c.bot.ApplicationCommandBulkOverwrite(c.appID, guildID, commands, opt)
}

// RegisterRoleConnectionMetadata overwrites the linked-role metadata schema.
func (c *Client) RegisterRoleConnectionMetadata(ctx context.Context, metadata []*discordgo.ApplicationRoleConnectionMetadata) error {
	_, cancel, opt := c.call(ctx, c.timeout)
	defer cancel()
	endpoint := discordgo.EndpointApplicationRoleConnectionMetadata(c.appID)
	_, err := c.bot.RequestWithBucketID(http.MethodPut, endpoint, metadata, endpoint, opt)
	return err
}
