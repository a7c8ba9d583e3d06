package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/threadmail/internal/discord"
	"github.com/spec-kit/threadmail/internal/domain"
	"github.com/spec-kit/threadmail/internal/repository"
	apperrors "github.com/spec-kit/threadmail/pkg/util/errorutil"
)

// GuildService manages per-guild settings: the ping role and the custom
// ticket channel.
type GuildService struct {
	guilds   repository.GuildRepository
	platform Platform
	logger   *zap.Logger
}

// GuildSettings is the view of a guild's configuration shown to staff.
type GuildSettings struct {
	GuildID         string
	PingRoleID      string
	TicketChannelID string
	SystemChannelID string
}

// NewGuildService constructs the service.
func NewGuildService(guilds repository.GuildRepository, platform Platform, logger *zap.Logger) *GuildService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuildService{guilds: guilds, platform: platform, logger: logger}
}

// Settings returns the stored configuration. The platform system channel is
// filled in best effort for display.
func (s *GuildService) Settings(ctx context.Context, guildID string) (*GuildSettings, error) {
	record, err := s.load(ctx, guildID)
	if err != nil {
		return nil, err
	}
	settings := toSettings(record)
	if settings.TicketChannelID == "" {
		if guild, err := s.platform.Guild(ctx, guildID); err == nil {
			settings.SystemChannelID = guild.SystemChannelID
		} else {
			s.logger.Debug("fetch guild for settings failed", zap.String("guild_id", guildID), zap.Error(err))
		}
	}
	return settings, nil
}

// SetPingRole stores the role mentioned on new tickets.
func (s *GuildService) SetPingRole(ctx context.Context, guildID, roleID string) (*GuildSettings, error) {
	if roleID == "" {
		return nil, apperrors.NewValidationError("role is required", nil)
	}
	record, err := s.load(ctx, guildID)
	if err != nil {
		return nil, err
	}
	record.PingRoleID = &roleID
	if err := s.save(ctx, record); err != nil {
		return nil, err
	}
	s.logger.Info("ping role set", zap.String("guild_id", guildID), zap.String("role_id", roleID))
	return toSettings(record), nil
}

// ClearPingRole removes the ping role. It reports whether one was set.
func (s *GuildService) ClearPingRole(ctx context.Context, guildID string) (bool, error) {
	record, err := s.load(ctx, guildID)
	if err != nil {
		return false, err
	}
	if record.PingRoleID == nil || *record.PingRoleID == "" {
		return false, nil
	}
	record.PingRoleID = nil
	if err := s.save(ctx, record); err != nil {
		return false, err
	}
	s.logger.Info("ping role cleared", zap.String("guild_id", guildID))
	return true, nil
}

// SetTicketChannel validates that the bot can view, post and delete in
// channel before storing it as the parent for new ticket threads.
func (s *GuildService) SetTicketChannel(ctx context.Context, guildID string, channel *discordgo.Channel) (*GuildSettings, error) {
	if channel == nil || channel.ID == "" {
		return nil, errInvalidChannel("channel is required")
	}
	if channel.Type != discordgo.ChannelTypeGuildText {
		return nil, errInvalidChannel("ticket channel must be a text channel")
	}
	if err := s.probeChannel(ctx, channel.ID); err != nil {
		return nil, err
	}

	record, err := s.load(ctx, guildID)
	if err != nil {
		return nil, err
	}
	channelID := channel.ID
	record.TicketChannelID = &channelID
	if err := s.save(ctx, record); err != nil {
		return nil, err
	}
	s.logger.Info("ticket channel set", zap.String("guild_id", guildID), zap.String("channel_id", channelID))
	return toSettings(record), nil
}

// ClearTicketChannel reverts ticket creation to the system channel. It
// reports whether a custom channel was set.
func (s *GuildService) ClearTicketChannel(ctx context.Context, guildID string) (bool, error) {
	record, err := s.load(ctx, guildID)
	if err != nil {
		return false, err
	}
	if record.CustomTicketChannel() == "" {
		return false, nil
	}
	record.TicketChannelID = nil
	if err := s.save(ctx, record); err != nil {
		return false, err
	}
	s.logger.Info("ticket channel cleared", zap.String("guild_id", guildID))
	return true, nil
}

// probeChannel checks view, send and delete access with a throwaway message.
func (s *GuildService) probeChannel(ctx context.Context, channelID string) error {
	if _, err := s.platform.Channel(ctx, channelID); err != nil {
		return probeError(err, "View Channel", "access channel")
	}
	msg, err := s.platform.SendMessage(ctx, channelID, &discordgo.MessageSend{Content: permissionProbeContent})
	if err != nil {
		return probeError(err, "View Channel, Send Messages", "send test message")
	}
	if err := s.platform.DeleteMessage(ctx, channelID, msg.ID); err != nil {
		if discord.IsForbidden(err) {
			return apperrors.NewPermissionDenied("Manage Messages", err)
		}
		s.logger.Warn("delete probe message failed", zap.String("channel_id", channelID), zap.Error(err))
	}
	return nil
}

func probeError(err error, permission, action string) error {
	if discord.IsForbidden(err) {
		return apperrors.NewPermissionDenied(permission, err)
	}
	return &apperrors.DomainError{
		Code:       apperrors.CodeInvalidChannel,
		Message:    fmt.Sprintf("failed to %s: %d", action, discord.StatusCode(err)),
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func (s *GuildService) load(ctx context.Context, guildID string) (*domain.Guild, error) {
	record, err := s.guilds.Get(ctx, guildID)
	if errors.Is(err, repository.ErrNotFound) {
		return &domain.Guild{GuildID: guildID}, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("load guild: %w", err))
	}
	record.GuildID = guildID
	return record, nil
}

func (s *GuildService) save(ctx context.Context, record *domain.Guild) error {
	if err := s.guilds.Save(ctx, record); err != nil {
		return apperrors.NewInternalError(fmt.Errorf("save guild: %w", err))
	}
	return nil
}

func toSettings(record *domain.Guild) *GuildSettings {
	settings := &GuildSettings{
		GuildID:         record.GuildID,
		TicketChannelID: record.CustomTicketChannel(),
		SystemChannelID: record.SystemChannelID,
	}
	if record.PingRoleID != nil {
		settings.PingRoleID = *record.PingRoleID
	}
	return settings
}
