package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/threadmail/internal/discord"
	"github.com/spec-kit/threadmail/internal/events"
	"github.com/spec-kit/threadmail/internal/repository"
	apperrors "github.com/spec-kit/threadmail/pkg/util/errorutil"
)

const relayPreviewLength = 80

// RelayService carries messages between a ticket owner's DMs and the ticket
// thread.
type RelayService struct {
	users      repository.UserRepository
	tickets    repository.TicketRepository
	guilds     repository.GuildRepository
	platform   Platform
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// RelayDependencies bundles collaborators for the relay service.
type RelayDependencies struct {
	UserRepo   repository.UserRepository
	TicketRepo repository.TicketRepository
	GuildRepo  repository.GuildRepository
	Platform   Platform
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// OwnerMessage is a message the ticket owner sends from DMs.
type OwnerMessage struct {
	UserID    string
	Username  string
	AvatarURL string
	Content   string
}

// RelayResult reports where a relayed message ended up.
type RelayResult struct {
	TicketID string
	ThreadID string
	Path     events.RelayPath
}

// NewRelayService constructs the service.
func NewRelayService(deps RelayDependencies) *RelayService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelayService{
		users:      deps.UserRepo,
		tickets:    deps.TicketRepo,
		guilds:     deps.GuildRepo,
		platform:   deps.Platform,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// SendFromOwner posts the owner's message into their ticket thread. The
// guild webhook is preferred so the message carries the owner's name and
// avatar; a missing or failing webhook falls back to a bot post.
func (s *RelayService) SendFromOwner(ctx context.Context, msg OwnerMessage) (*RelayResult, error) {
	user, err := loadUser(ctx, s.users, msg.UserID)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("load user: %w", err))
	}
	if !user.Authorized() {
		return nil, errAuthorizationRequired()
	}
	if user.ActiveTicketID == nil {
		return nil, errNoActiveTicket()
	}
	ticket, err := s.tickets.Get(ctx, *user.ActiveTicketID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(fmt.Errorf("load ticket: %w", err))
	}
	if !ticket.IsOpen() {
		return nil, errTicketNotActive()
	}

	result := &RelayResult{TicketID: ticket.TicketID, ThreadID: ticket.ThreadID}

	guild, err := s.guilds.Get(ctx, ticket.GuildID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("load guild config failed", zap.String("guild_id", ticket.GuildID), zap.Error(err))
	}
	if url := guild.Webhook(); url != "" {
		if _, _, ok := discord.ParseWebhookURL(url); ok {
			err := s.platform.ExecuteWebhook(ctx, url, ticket.ThreadID, &discordgo.WebhookParams{
				Content:         msg.Content,
				Username:        msg.Username,
				AvatarURL:       msg.AvatarURL,
				AllowedMentions: &discordgo.MessageAllowedMentions{},
			})
			if err == nil {
				result.Path = events.RelayViaWebhook
				s.publishRelayed(ctx, msg.UserID, result, msg.Content)
				return result, nil
			}
			s.logger.Warn("webhook relay failed, posting as bot",
				zap.String("thread_id", ticket.ThreadID), zap.Error(err))
		} else {
			s.logger.Warn("stored webhook url is malformed", zap.String("guild_id", ticket.GuildID))
		}
	}

	if _, err := s.platform.SendMessage(ctx, ticket.ThreadID, staffReply(msg.Content)); err != nil {
		return nil, platformError(err, "Send Messages in Threads", "post to thread")
	}
	result.Path = events.RelayViaThread
	s.publishRelayed(ctx, msg.UserID, result, msg.Content)
	return result, nil
}

// SendFromStaff DMs a staff reply to the owner of the ticket bound to
// channelID.
func (s *RelayService) SendFromStaff(ctx context.Context, actorID, channelID, content string) (*RelayResult, error) {
	ticket, err := lookupThreadTicket(ctx, s.platform, s.tickets, channelID)
	if err != nil {
		return nil, err
	}
	if !ticket.IsOpen() {
		return nil, errTicketNotActive()
	}

	dm, err := s.platform.OpenDM(ctx, ticket.UserID)
	if err != nil {
		return nil, errDMFailed(ticket.UserID, err)
	}
	if _, err := s.platform.SendMessage(ctx, dm.ID, staffReply(content)); err != nil {
		return nil, errDMFailed(ticket.UserID, err)
	}

	result := &RelayResult{TicketID: ticket.TicketID, ThreadID: ticket.ThreadID, Path: events.RelayViaDM}
	s.publishRelayed(ctx, actorID, result, content)
	return result, nil
}

func (s *RelayService) publishRelayed(ctx context.Context, actorID string, result *RelayResult, content string) {
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventMessageRelayed,
		TicketID: result.TicketID,
		ActorID:  actorID,
		Payload: events.MessageRelayedPayload{
			ThreadID:    result.ThreadID,
			Path:        result.Path,
			BodyPreview: stringPreview(content, relayPreviewLength),
		},
	})
}
