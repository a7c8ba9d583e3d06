package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/threadmail/internal/discord"
	"github.com/spec-kit/threadmail/internal/repository"
)

// MetadataKeyThreadsCreated is the linked-role metadata field counting the
// tickets a user has opened.
const MetadataKeyThreadsCreated = "threads_created"

// MetadataService keeps the user's linked-role metadata in sync.
type MetadataService struct {
	users        repository.UserRepository
	platform     Platform
	tokens       TokenProvider
	platformName string
	logger       *zap.Logger
}

// NewMetadataService constructs the service. tokens may be set later with
// UseTokens once the auth service exists.
func NewMetadataService(users repository.UserRepository, platform Platform, platformName string, logger *zap.Logger) *MetadataService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetadataService{users: users, platform: platform, platformName: platformName, logger: logger}
}

// UseTokens sets the provider used to refresh expired tokens.
func (s *MetadataService) UseTokens(tokens TokenProvider) {
	s.tokens = tokens
}

// RoleConnectionSchema is the metadata schema registered with the platform.
func RoleConnectionSchema() []*discordgo.ApplicationRoleConnectionMetadata {
	return []*discordgo.ApplicationRoleConnectionMetadata{
		{
			Type:        discordgo.ApplicationRoleConnectionMetadataIntegerGreaterThanOrEqual,
			Key:         MetadataKeyThreadsCreated,
			Name:        "Threads Created",
			Description: "Number of tickets opened",
		},
	}
}

// Sync writes the current counter back, creating the connection when the
// user has none yet.
func (s *MetadataService) Sync(ctx context.Context, accessToken string) error {
	current, err := s.current(ctx, accessToken)
	if err != nil {
		return err
	}
	return s.write(ctx, accessToken, current)
}

// IncrementTicketsCreated bumps the counter for userID. The read-modify-write
// is not atomic.
func (s *MetadataService) IncrementTicketsCreated(ctx context.Context, userID string) error {
	user, err := loadUser(ctx, s.users, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if !user.Authorized() {
		return nil
	}
	token := user.AccessToken
	if s.tokens != nil {
		if token, err = s.tokens.ValidAccessToken(ctx, userID, user); err != nil {
			return err
		}
	}

	current, err := s.current(ctx, token)
	if err != nil {
		return err
	}
	return s.write(ctx, token, current+1)
}

func (s *MetadataService) current(ctx context.Context, accessToken string) (int, error) {
	conn, err := s.platform.RoleConnection(ctx, accessToken)
	if err != nil {
		if discord.StatusCode(err) == 404 {
			return 0, nil
		}
		return 0, fmt.Errorf("read role connection: %w", err)
	}
	if conn == nil || conn.Metadata == nil {
		return 0, nil
	}
	n, err := strconv.Atoi(conn.Metadata[MetadataKeyThreadsCreated])
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (s *MetadataService) write(ctx context.Context, accessToken string, value int) error {
	err := s.platform.UpdateRoleConnection(ctx, accessToken, &discordgo.ApplicationRoleConnection{
		PlatformName: s.platformName,
		Metadata:     map[string]string{MetadataKeyThreadsCreated: strconv.Itoa(value)},
	})
	if err != nil {
		return fmt.Errorf("update role connection: %w", err)
	}
	return nil
}
