package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/threadmail/internal/config"
	"github.com/spec-kit/threadmail/internal/discord"
	"github.com/spec-kit/threadmail/internal/domain"
	"github.com/spec-kit/threadmail/internal/events"
	"github.com/spec-kit/threadmail/internal/repository"
	apperrors "github.com/spec-kit/threadmail/pkg/util/errorutil"
)

// MaxGuildChoices caps the server picker; the platform rejects larger menus.
const MaxGuildChoices = 25

// TicketService owns the ticket lifecycle: creation, server discovery and
// both close paths.
type TicketService struct {
	users      repository.UserRepository
	tickets    repository.TicketRepository
	guilds     repository.GuildRepository
	cooldowns  repository.CooldownRepository
	platform   Platform
	tokens     TokenProvider
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.TicketConfig
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	UserRepo     repository.UserRepository
	TicketRepo   repository.TicketRepository
	GuildRepo    repository.GuildRepository
	CooldownRepo repository.CooldownRepository
	Platform     Platform
	Tokens       TokenProvider
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Config       config.TicketConfig
	Clock        func() time.Time
}

// CreateTicketInput describes a ticket opened from a DM.
type CreateTicketInput struct {
	UserID   string
	Username string
	GuildID  string
}

// CloseResult is returned after a close. ArchiveErr is set when the thread
// could not be locked and archived; the ticket is closed regardless.
type CloseResult struct {
	Ticket     *domain.Ticket
	ArchiveErr error
}

// CreateTicketResult is returned after a successful creation.
type CreateTicketResult struct {
	Ticket    *domain.Ticket
	GuildName string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		users:      deps.UserRepo,
		tickets:    deps.TicketRepo,
		guilds:     deps.GuildRepo,
		cooldowns:  deps.CooldownRepo,
		platform:   deps.Platform,
		tokens:     deps.Tokens,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		cfg:        deps.Config,
		now:        clock,
	}
}

// MutualGuilds lists, in the user's order, the guilds both the user and the
// bot belong to. Both listings run concurrently under the guild-list budget.
func (s *TicketService) MutualGuilds(ctx context.Context, userID string) ([]*discordgo.UserGuild, error) {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("load user: %w", err))
	}

	existing, err := s.openTicket(ctx, user)
	if err != nil {
		s.logger.Warn("check active ticket failed", zap.String("user_id", userID), zap.Error(err))
	} else if existing != nil {
		return nil, errTicketAlreadyOpen(existing)
	}

	if !user.Authorized() {
		return nil, errAuthorizationRequired()
	}
	token := user.AccessToken
	if s.tokens != nil {
		token, err = s.tokens.ValidAccessToken(ctx, userID, user)
		if err != nil {
			return nil, err
		}
	}

	var (
		userGuilds []*discordgo.UserGuild
		botGuilds  []*discordgo.UserGuild
		userErr    error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		userGuilds, userErr = s.platform.UserGuilds(gctx, token)
		return userErr
	})
	g.Go(func() error {
		var err error
		botGuilds, err = s.platform.BotGuilds(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		if userErr != nil && discord.IsUnauthorized(userErr) {
			return nil, errReauthorizationRequired(userErr)
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("list guilds: %w", err))
	}

	botIn := make(map[string]struct{}, len(botGuilds))
	for _, g := range botGuilds {
		botIn[g.ID] = struct{}{}
	}
	mutual := make([]*discordgo.UserGuild, 0, len(userGuilds))
	for _, g := range userGuilds {
		if _, ok := botIn[g.ID]; !ok {
			continue
		}
		mutual = append(mutual, g)
		if len(mutual) == MaxGuildChoices {
			break
		}
	}
	if len(mutual) == 0 {
		return nil, errNoMutualGuilds()
	}
	return mutual, nil
}

// CreateTicket opens a private thread in the chosen guild and records the
// ticket. A failure after the thread exists deletes the thread again.
func (s *TicketService) CreateTicket(ctx context.Context, input CreateTicketInput) (*CreateTicketResult, error) {
	user, err := loadUser(ctx, s.users, input.UserID)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("load user: %w", err))
	}
	existing, err := s.openTicket(ctx, user)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("check active ticket: %w", err))
	}
	if existing != nil {
		return nil, errTicketAlreadyOpen(existing)
	}

	guildCfg, err := s.guilds.Get(ctx, input.GuildID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("load guild config failed", zap.String("guild_id", input.GuildID), zap.Error(err))
	}
	guild, err := s.platform.Guild(ctx, input.GuildID)
	if err != nil {
		return nil, platformError(err, "View Server", "fetch guild")
	}

	parentID := guildCfg.CustomTicketChannel()
	if parentID == "" {
		parentID = guild.SystemChannelID
	}
	if parentID == "" {
		return nil, errGuildMisconfigured(input.GuildID)
	}

	caseNumber := s.nextCaseNumber(ctx, input.GuildID)

	thread, err := s.platform.CreatePrivateThread(ctx, parentID, domain.ThreadName(caseNumber, input.Username), s.cfg.AutoArchiveMinutes)
	if err != nil {
		return nil, platformError(err, "Create Private Threads", "create thread")
	}

	if _, err := s.platform.SendMessage(ctx, thread.ID, announcementMessage(caseNumber, input.Username, guildCfg)); err != nil {
		s.logger.Warn("post ticket announcement failed", zap.String("thread_id", thread.ID), zap.Error(err))
	}
	webhookURL := s.resolveWebhook(ctx, parentID)

	ticket := &domain.Ticket{
		TicketID:   strconv.FormatInt(s.now().UnixMilli(), 10),
		CaseNumber: caseNumber,
		GuildID:    input.GuildID,
		UserID:     input.UserID,
		Username:   input.Username,
		ThreadID:   thread.ID,
		Status:     domain.TicketStatusOpen,
	}
	if err := s.persistTicket(ctx, ticket, user); err != nil {
		s.logger.Error("persist ticket failed, removing thread",
			zap.String("ticket_id", ticket.TicketID),
			zap.String("thread_id", thread.ID),
			zap.Error(err))
		if delErr := s.platform.DeleteChannel(ctx, thread.ID); delErr != nil {
			s.logger.Error("delete orphan thread failed", zap.String("thread_id", thread.ID), zap.Error(delErr))
		}
		return nil, apperrors.NewInternalError(err)
	}

	s.upsertGuild(ctx, input.GuildID, guildCfg, guild, webhookURL)

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.TicketID,
		ActorID:  input.UserID,
		Payload: events.TicketCreatedPayload{
			GuildID:    ticket.GuildID,
			ThreadID:   ticket.ThreadID,
			CaseNumber: ticket.CaseNumber,
			OwnerID:    ticket.UserID,
		},
	})
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.TicketID),
		zap.String("guild_id", ticket.GuildID),
		zap.Int("case_number", caseNumber))

	return &CreateTicketResult{Ticket: ticket, GuildName: guild.Name}, nil
}

// CloseFromDM closes the caller's own ticket and starts their close cooldown.
func (s *TicketService) CloseFromDM(ctx context.Context, userID string) (*CloseResult, error) {
	cooldown, err := s.cooldowns.Get(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("load cooldown failed; closing without check", zap.String("user_id", userID), zap.Error(err))
		cooldown = nil
	}
	now := s.now()
	if cooldown.Active(now) {
		return nil, errCooldownActive(cooldown, now)
	}

	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("load user: %w", err))
	}
	if user == nil || user.ActiveTicketID == nil {
		return nil, errNoActiveTicket()
	}
	ticket, err := s.tickets.Get(ctx, *user.ActiveTicketID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(fmt.Errorf("load ticket: %w", err))
	}
	if !ticket.IsOpen() {
		return nil, errTicketNotActive()
	}

	s.warnCooldown(ctx, userID)
	return s.closeTicket(ctx, ticket, user, events.CloseByOwner, userID)
}

// CloseFromThread closes the ticket bound to a thread on behalf of staff and
// lets the owner know by DM.
func (s *TicketService) CloseFromThread(ctx context.Context, actorID, channelID string) (*CloseResult, error) {
	ticket, err := lookupThreadTicket(ctx, s.platform, s.tickets, channelID)
	if err != nil {
		return nil, err
	}
	if !ticket.IsOpen() {
		return nil, errTicketNotActive()
	}
	owner, err := loadUser(ctx, s.users, ticket.UserID)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("load ticket owner: %w", err))
	}

	return s.closeTicket(ctx, ticket, owner, events.CloseByStaff, actorID)
}

// closeTicket runs the shared close sequence. The owner record is cleared
// before any ticket record is deleted. Only a failed owner update aborts.
func (s *TicketService) closeTicket(ctx context.Context, ticket *domain.Ticket, owner *domain.User, by events.CloseContext, actorID string) (*CloseResult, error) {
	notice := ownerCloseNotice(ticket)
	if by == events.CloseByStaff {
		notice = staffCloseNotice(ticket)
	}
	if _, err := s.platform.SendMessage(ctx, ticket.ThreadID, notice); err != nil {
		s.logger.Warn("post close notice failed", zap.String("thread_id", ticket.ThreadID), zap.Error(err))
	}

	archiveErr := s.platform.LockAndArchiveThread(ctx, ticket.ThreadID)
	if archiveErr != nil {
		s.logger.Error("lock and archive thread failed", zap.String("thread_id", ticket.ThreadID), zap.Error(archiveErr))
	}

	if owner != nil {
		owner.ActiveTicketID = nil
		if err := s.users.Save(ctx, ticket.UserID, owner); err != nil {
			return nil, apperrors.NewInternalError(fmt.Errorf("clear active ticket: %w", err))
		}
	}

	if by == events.CloseByOwner {
		s.startCooldown(ctx, ticket.UserID)
	}

	if err := s.tickets.Delete(ctx, ticket.TicketID); err != nil {
		s.logger.Warn("delete ticket record failed", zap.String("ticket_id", ticket.TicketID), zap.Error(err))
	}
	if err := s.tickets.DeleteThread(ctx, ticket.ThreadID); err != nil {
		s.logger.Warn("delete thread record failed", zap.String("thread_id", ticket.ThreadID), zap.Error(err))
	}

	if by == events.CloseByStaff {
		s.notifyOwner(ctx, ticket.UserID)
	}

	ticket.Status = domain.TicketStatusClosed
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketClosed,
		TicketID: ticket.TicketID,
		ActorID:  actorID,
		Payload: events.TicketClosedPayload{
			GuildID:  ticket.GuildID,
			ThreadID: ticket.ThreadID,
			OwnerID:  ticket.UserID,
			ClosedBy: by,
			Archived: archiveErr == nil,
		},
	})

	result := &CloseResult{Ticket: ticket}
	if archiveErr != nil {
		result.ArchiveErr = platformError(archiveErr, "Manage Threads", "archive thread")
	}
	s.logger.Info("ticket closed",
		zap.String("ticket_id", ticket.TicketID),
		zap.String("closed_by", string(by)),
		zap.Bool("archived", archiveErr == nil))
	return result, nil
}

func (s *TicketService) startCooldown(ctx context.Context, userID string) {
	cooldown := &domain.Cooldown{
		UserID:    userID,
		ExpiresAt: s.now().Add(s.cfg.CloseCooldown()).UnixMilli(),
		Reason:    domain.CooldownReasonTicketClose,
	}
	if err := s.cooldowns.Save(ctx, cooldown); err != nil {
		s.logger.Warn("save close cooldown failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *TicketService) notifyOwner(ctx context.Context, userID string) {
	dm, err := s.platform.OpenDM(ctx, userID)
	if err != nil {
		s.logger.Warn("open owner DM failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if _, err := s.platform.SendMessage(ctx, dm.ID, staffClosedDM()); err != nil {
		s.logger.Warn("notify owner of close failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// warnCooldown DMs the owner about the close cooldown. It never fails the
// caller.
func (s *TicketService) warnCooldown(ctx context.Context, userID string) {
	dm, err := s.platform.OpenDM(ctx, userID)
	if err != nil {
		s.logger.Debug("open DM for cooldown warning failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if _, err := s.platform.SendMessage(ctx, dm.ID, cooldownWarning()); err != nil {
		s.logger.Debug("send cooldown warning failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *TicketService) openTicket(ctx context.Context, user *domain.User) (*domain.Ticket, error) {
	if user == nil || user.ActiveTicketID == nil {
		return nil, nil
	}
	ticket, err := s.tickets.Get(ctx, *user.ActiveTicketID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !ticket.IsOpen() {
		return nil, nil
	}
	return ticket, nil
}

// nextCaseNumber bumps the guild counter. A counter that cannot be read
// yields case 1 and is left untouched.
func (s *TicketService) nextCaseNumber(ctx context.Context, guildID string) int {
	counter, err := s.guilds.GetCounter(ctx, guildID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		counter = &domain.Counter{}
	case err != nil:
		s.logger.Warn("read case counter failed", zap.String("guild_id", guildID), zap.Error(err))
		return 1
	}
	counter.LastCaseNumber++
	if err := s.guilds.SaveCounter(ctx, guildID, counter); err != nil {
		s.logger.Warn("write case counter failed", zap.String("guild_id", guildID), zap.Error(err))
	}
	return counter.LastCaseNumber
}

// resolveWebhook finds or creates the relay webhook on channelID.
func (s *TicketService) resolveWebhook(ctx context.Context, channelID string) *string {
	hooks, err := s.platform.ChannelWebhooks(ctx, channelID)
	if err != nil {
		s.logger.Warn("list webhooks failed", zap.String("channel_id", channelID), zap.Error(err))
		return nil
	}
	for _, hook := range hooks {
		if hook.Name != s.cfg.WebhookName {
			continue
		}
		if url := discord.WebhookURL(hook); url != "" {
			return &url
		}
	}
	hook, err := s.platform.CreateWebhook(ctx, channelID, s.cfg.WebhookName)
	if err != nil {
		s.logger.Warn("create webhook failed", zap.String("channel_id", channelID), zap.Error(err))
		return nil
	}
	url := discord.WebhookURL(hook)
	if url == "" {
		return nil
	}
	return &url
}

// persistTicket writes the ticket, thread and user records. Partial writes
// are rolled back best effort.
func (s *TicketService) persistTicket(ctx context.Context, ticket *domain.Ticket, user *domain.User) error {
	if err := s.tickets.Save(ctx, ticket); err != nil {
		return fmt.Errorf("save ticket: %w", err)
	}
	if err := s.tickets.SaveThread(ctx, ticket.ThreadID, &domain.Thread{TicketID: ticket.TicketID}); err != nil {
		s.rollbackRecords(ctx, ticket, false)
		return fmt.Errorf("save thread: %w", err)
	}

	if user == nil {
		user = &domain.User{}
	}
	ticketID := ticket.TicketID
	user.ActiveTicketID = &ticketID
	user.GuildID = ticket.GuildID
	if err := s.users.Save(ctx, ticket.UserID, user); err != nil {
		s.rollbackRecords(ctx, ticket, true)
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *TicketService) rollbackRecords(ctx context.Context, ticket *domain.Ticket, thread bool) {
	if err := s.tickets.Delete(ctx, ticket.TicketID); err != nil {
		s.logger.Warn("rollback ticket record failed", zap.String("ticket_id", ticket.TicketID), zap.Error(err))
	}
	if !thread {
		return
	}
	if err := s.tickets.DeleteThread(ctx, ticket.ThreadID); err != nil {
		s.logger.Warn("rollback thread record failed", zap.String("thread_id", ticket.ThreadID), zap.Error(err))
	}
}

// upsertGuild refreshes the guild record, keeping the staff-managed fields.
func (s *TicketService) upsertGuild(ctx context.Context, guildID string, existing *domain.Guild, guild *discordgo.Guild, webhookURL *string) {
	record := &domain.Guild{GuildID: guildID}
	if existing != nil {
		record.PingRoleID = existing.PingRoleID
		record.TicketChannelID = existing.TicketChannelID
	}
	record.GuildName = guild.Name
	record.SystemChannelID = guild.SystemChannelID
	record.WebhookURL = webhookURL
	record.Status = domain.GuildStatusActive
	if err := s.guilds.Save(ctx, record); err != nil {
		s.logger.Warn("save guild record failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

func loadUser(ctx context.Context, users repository.UserRepository, userID string) (*domain.User, error) {
	user, err := users.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

// lookupThreadTicket resolves a channel to its ticket, rejecting anything
// that is not a tracked private thread.
func lookupThreadTicket(ctx context.Context, platform Platform, tickets repository.TicketRepository, channelID string) (*domain.Ticket, error) {
	channel, err := platform.Channel(ctx, channelID)
	if err != nil {
		return nil, platformError(err, "View Channel", "fetch channel")
	}
	if channel.Type != discordgo.ChannelTypeGuildPrivateThread {
		return nil, errNotTicketThread(channelID)
	}
	thread, err := tickets.GetThread(ctx, channelID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errNotTicketThread(channelID)
	}
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("load thread: %w", err))
	}
	ticket, err := tickets.Get(ctx, thread.TicketID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errNotTicketThread(channelID)
	}
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("load ticket: %w", err))
	}
	return ticket, nil
}
