package interactions

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/threadmail/internal/auth"
	"github.com/spec-kit/threadmail/internal/observability"
	"github.com/spec-kit/threadmail/internal/service"
	apperrors "github.com/spec-kit/threadmail/pkg/util/errorutil"
)

// Tickets is the ticket lifecycle used by /create, the server picker and /close.
type Tickets interface {
	MutualGuilds(ctx context.Context, userID string) ([]*discordgo.UserGuild, error)
	CreateTicket(ctx context.Context, input service.CreateTicketInput) (*service.CreateTicketResult, error)
	CloseFromDM(ctx context.Context, userID string) (*service.CloseResult, error)
	CloseFromThread(ctx context.Context, actorID, channelID string) (*service.CloseResult, error)
}

// Relay delivers /send messages.
type Relay interface {
	SendFromOwner(ctx context.Context, msg service.OwnerMessage) (*service.RelayResult, error)
	SendFromStaff(ctx context.Context, actorID, channelID, content string) (*service.RelayResult, error)
}

// Guilds manages per-guild settings for /manage.
type Guilds interface {
	Settings(ctx context.Context, guildID string) (*service.GuildSettings, error)
	SetPingRole(ctx context.Context, guildID, roleID string) (*service.GuildSettings, error)
	ClearPingRole(ctx context.Context, guildID string) (bool, error)
	SetTicketChannel(ctx context.Context, guildID string, channel *discordgo.Channel) (*service.GuildSettings, error)
	ClearTicketChannel(ctx context.Context, guildID string) (bool, error)
}

// Authorizer produces the OAuth link.
type Authorizer interface {
	AuthorizeURL() (string, error)
}

type commandHandler func(ctx context.Context, p *auth.Principal, i *discordgo.Interaction) (*discordgo.InteractionResponse, error)

// Router dispatches verified interactions to command and component handlers.
type Router struct {
	tickets  Tickets
	relay    Relay
	guilds   Guilds
	authz    Authorizer
	metrics  *observability.Metrics
	logger   *zap.Logger
	commands map[string]commandHandler
	buttons  map[string]commandHandler
}

// RouterDependencies bundles collaborators for the router.
type RouterDependencies struct {
	Tickets    Tickets
	Relay      Relay
	Guilds     Guilds
	Authorizer Authorizer
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewRouter builds the dispatch tables. Both the nested /manage command and
// the flat /staff and /channel commands are routed, whichever is registered.
func NewRouter(deps RouterDependencies) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		tickets: deps.Tickets,
		relay:   deps.Relay,
		guilds:  deps.Guilds,
		authz:   deps.Authorizer,
		metrics: deps.Metrics,
		logger:  logger,
	}
	r.commands = map[string]commandHandler{
		CommandAuthorize: r.handleAuthorize,
		CommandCreate:    r.handleCreate,
		CommandSend:      r.handleSend,
		CommandClose:     r.handleClose,
		CommandManage:    r.handleManage,
		CommandStaff:     r.handleManage,
		CommandChannel:   r.handleManage,
	}
	r.buttons = map[string]commandHandler{
		SelectServerID: r.handleSelectServer,
	}
	return r
}

// Handle produces the synchronous response for an interaction.
func (r *Router) Handle(ctx context.Context, i *discordgo.Interaction) *discordgo.InteractionResponse {
	switch i.Type {
	case discordgo.InteractionPing:
		return &discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong}
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		return r.dispatch(ctx, name, r.commands[name], i)
	case discordgo.InteractionMessageComponent:
		id := i.MessageComponentData().CustomID
		return r.dispatch(ctx, id, r.buttons[id], i)
	default:
		return ephemeral("Unsupported interaction.")
	}
}

func (r *Router) dispatch(ctx context.Context, name string, handler commandHandler, i *discordgo.Interaction) *discordgo.InteractionResponse {
	if handler == nil {
		r.metrics.RecordInteraction(name, "unknown")
		r.logger.Warn("unknown interaction", zap.String("name", name))
		return ephemeral("Unknown command.")
	}

	p := auth.PrincipalFromInteraction(i)
	if p.UserID == "" {
		r.metrics.RecordInteraction(name, apperrors.CodeValidation)
		return ephemeral("Could not resolve user.")
	}

	resp, err := handler(ctx, p, i)
	if err == nil {
		r.metrics.RecordInteraction(name, "ok")
		return resp
	}

	domainErr := apperrors.ToDomainError(err)
	r.metrics.RecordInteraction(name, domainErr.Code)
	fields := []zap.Field{
		zap.String("interaction", name),
		zap.String("user_id", p.UserID),
		zap.String("guild_id", p.GuildID),
		zap.String("code", domainErr.Code),
		zap.Error(err),
	}
	if domainErr.HTTPStatus >= 500 {
		r.logger.Error("interaction failed", fields...)
	} else {
		r.logger.Info("interaction rejected", fields...)
	}
	return r.errorResponse(i, err)
}

// errorResponse renders err; component failures replace the picker message.
func (r *Router) errorResponse(i *discordgo.Interaction, err error) *discordgo.InteractionResponse {
	switch {
	case apperrors.HasCode(err, apperrors.CodeAuthorizationRequired):
		return authorizePrompt("Authorization Required",
			"You have not authorized your account with the app. Click the button below to authorize.", r.authorizeURL())
	case apperrors.HasCode(err, apperrors.CodeReauthorizationRequired):
		return authorizePrompt("Authorization Expired",
			"Your authorization has expired or was revoked. Click the button below to authorize again.", r.authorizeURL())
	}
	if i.Type == discordgo.InteractionMessageComponent {
		return update(errorText(err))
	}
	return ephemeral(errorText(err))
}

func (r *Router) authorizeURL() string {
	if r.authz == nil {
		return ""
	}
	url, err := r.authz.AuthorizeURL()
	if err != nil {
		r.logger.Error("build authorize url failed", zap.Error(err))
		return ""
	}
	return url
}
