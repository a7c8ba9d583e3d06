package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/spec-kit/threadmail/internal/auth"
	"github.com/spec-kit/threadmail/internal/config"
	"github.com/spec-kit/threadmail/internal/domain"
	"github.com/spec-kit/threadmail/internal/repository"
	apperrors "github.com/spec-kit/threadmail/pkg/util/errorutil"
)

// OAuth scopes requested during account authorization.
var OAuthScopes = []string{"applications.commands", "identify", "guilds", "role_connections.write"}

// DiscordEndpoint is the platform's OAuth2 endpoint.
var DiscordEndpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// AuthService runs the OAuth authorization flow and keeps user tokens fresh.
type AuthService struct {
	oauth    *oauth2.Config
	states   *auth.StateManager
	users    repository.UserRepository
	platform Platform
	metadata *MetadataService
	logger   *zap.Logger
	now      func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Platform Platform
	Metadata *MetadataService
	Logger   *zap.Logger
	Clock    func() time.Time
	// Endpoint overrides DiscordEndpoint.
	Endpoint *oauth2.Endpoint
}

// AuthorizedAccount is the outcome of a completed authorization.
type AuthorizedAccount struct {
	UserID   string
	Username string
	Scope    string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	endpoint := DiscordEndpoint
	if deps.Endpoint != nil {
		endpoint = *deps.Endpoint
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &AuthService{
		oauth: &oauth2.Config{
			ClientID:     cfg.Discord.ApplicationID,
			ClientSecret: cfg.Discord.ClientSecret,
			RedirectURL:  cfg.Discord.RedirectURI,
			Scopes:       OAuthScopes,
			Endpoint:     endpoint,
		},
		states:   auth.NewStateManager(cfg.OAuth.StateSecret, cfg.OAuth.StateTTL()),
		users:    deps.UserRepo,
		platform: deps.Platform,
		metadata: deps.Metadata,
		logger:   logger,
		now:      clock,
	}
}

// AuthorizeURL returns the link users follow to authorize the app for their
// account.
func (s *AuthService) AuthorizeURL() (string, error) {
	state, _, err := s.states.Issue()
	if err != nil {
		return "", apperrors.NewInternalError(fmt.Errorf("issue oauth state: %w", err))
	}
	return s.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("integration_type", "1")), nil
}

// CompleteAuthorization exchanges the callback code, stores the tokens under
// the user's id and syncs linked-role metadata best effort.
func (s *AuthService) CompleteAuthorization(ctx context.Context, code, state string) (*AuthorizedAccount, error) {
	if code == "" {
		return nil, apperrors.NewValidationError("missing authorization code", nil)
	}
	if _, err := s.states.Verify(state); err != nil {
		return nil, apperrors.NewUnauthorized("invalid or expired state")
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, apperrors.NewUnauthorized("authorization code exchange failed")
	}

	me, err := s.platform.CurrentUser(ctx, token.AccessToken)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("identify user: %w", err))
	}

	user, err := loadUser(ctx, s.users, me.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("load user: %w", err))
	}
	if user == nil {
		user = &domain.User{}
	}
	applyToken(user, token)
	if err := s.users.Save(ctx, me.ID, user); err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("save user: %w", err))
	}
	s.logger.Info("account authorized", zap.String("user_id", me.ID), zap.String("scope", user.Scope))

	if s.metadata != nil {
		if err := s.metadata.Sync(ctx, token.AccessToken); err != nil {
			s.logger.Warn("linked role sync failed", zap.String("user_id", me.ID), zap.Error(err))
		}
	}

	return &AuthorizedAccount{UserID: me.ID, Username: displayName(me), Scope: user.Scope}, nil
}

// ValidAccessToken returns the stored access token, refreshing it first when
// it has expired. A failed refresh asks the user to authorize again.
func (s *AuthService) ValidAccessToken(ctx context.Context, userID string, user *domain.User) (string, error) {
	if !user.Authorized() {
		return "", errAuthorizationRequired()
	}
	if !user.TokenExpired(s.now()) {
		return user.AccessToken, nil
	}
	if user.RefreshToken == "" {
		return "", errReauthorizationRequired(nil)
	}

	token, err := s.oauth.TokenSource(ctx, &oauth2.Token{
		RefreshToken: user.RefreshToken,
		Expiry:       time.UnixMilli(user.ExpiresAt),
	}).Token()
	if err != nil {
		return "", errReauthorizationRequired(err)
	}

	applyToken(user, token)
	if err := s.users.Save(ctx, userID, user); err != nil {
		s.logger.Warn("persist refreshed token failed", zap.String("user_id", userID), zap.Error(err))
	}
	s.logger.Debug("access token refreshed", zap.String("user_id", userID))
	return token.AccessToken, nil
}

// applyToken copies OAuth credentials onto the record, keeping the rest.
func applyToken(user *domain.User, token *oauth2.Token) {
	user.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		user.RefreshToken = token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		user.ExpiresAt = token.Expiry.UnixMilli()
	}
	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		user.Scope = scope
	}
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
