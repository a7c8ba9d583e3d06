package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/spec-kit/threadmail/internal/config"
	"github.com/spec-kit/threadmail/internal/domain"
	apperrors "github.com/spec-kit/threadmail/pkg/util/errorutil"
)

// tokenServer fakes the OAuth token endpoint.
type tokenServer struct {
	*httptest.Server
	mu    sync.Mutex
	forms []url.Values
	fail  bool
}

func newTokenServer(t *testing.T) *tokenServer {
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		ts.mu.Lock()
		ts.forms = append(ts.forms, r.PostForm)
		fail := ts.fail
		ts.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if fail {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		access := "access-new"
		if r.PostForm.Get("grant_type") == "authorization_code" {
			access = "access-" + r.PostForm.Get("code")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  access,
			"token_type":    "Bearer",
			"refresh_token": "refresh-new",
			"expires_in":    604800,
			"scope":         "identify guilds applications.commands role_connections.write",
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newAuthService(t *testing.T, h *harness, ts *tokenServer) *AuthService {
	t.Helper()
	cfg := config.Config{
		Discord: config.DiscordConfig{ApplicationID: "app-1", ClientSecret: "secret", RedirectURI: "https://bot.example/oauth/callback", LinkedRolePlatform: "ThreadMail"},
		OAuth:   config.OAuthConfig{StateSecret: "state-secret", StateTTLMinutes: 10},
	}
	metadata := NewMetadataService(h.users, h.platform, cfg.Discord.LinkedRolePlatform, nil)
	var endpoint *oauth2.Endpoint
	if ts != nil {
		endpoint = &oauth2.Endpoint{AuthURL: DiscordEndpoint.AuthURL, TokenURL: ts.URL + "/token", AuthStyle: oauth2.AuthStyleInParams}
	}
	svc := NewAuthService(cfg, AuthDependencies{
		UserRepo: h.users,
		Platform: h.platform,
		Metadata: metadata,
		Endpoint: endpoint,
		Clock:    func() time.Time { return h.now },
	})
	metadata.UseTokens(svc)
	return svc
}

func stateFrom(t *testing.T, svc *AuthService) string {
	t.Helper()
	raw, err := svc.AuthorizeURL()
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query().Get("state")
}

func TestAuthorizeURL(t *testing.T) {
	svc := newAuthService(t, newHarness(), nil)
	raw, err := svc.AuthorizeURL()
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "discord.com", u.Host)
	q := u.Query()
	assert.Equal(t, "app-1", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "applications.commands identify guilds role_connections.write", q.Get("scope"))
	assert.Equal(t, "1", q.Get("integration_type"))
	assert.Equal(t, "https://bot.example/oauth/callback", q.Get("redirect_uri"))
	assert.NotEmpty(t, q.Get("state"))
}

func TestCompleteAuthorizationStoresTokensAndKeepsTicket(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	ts := newTokenServer(t)
	svc := newAuthService(t, h, ts)
	h.platform.me["access-code-1"] = &discordgo.User{ID: "u1", Username: "alice"}
	require.NoError(t, h.users.Save(ctx, "u1", &domain.User{ActiveTicketID: strPtr("t-1")}))

	account, err := svc.CompleteAuthorization(ctx, "code-1", stateFrom(t, svc))
	require.NoError(t, err)
	assert.Equal(t, "u1", account.UserID)
	assert.Equal(t, "alice", account.Username)

	user, err := h.users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "access-code-1", user.AccessToken)
	assert.Equal(t, "refresh-new", user.RefreshToken)
	assert.Contains(t, user.Scope, "role_connections.write")
	assert.Positive(t, user.ExpiresAt)
	require.NotNil(t, user.ActiveTicketID)
	assert.Equal(t, "t-1", *user.ActiveTicketID)

	require.Len(t, h.platform.roleUpdates, 1)
	assert.Equal(t, "ThreadMail", h.platform.roleUpdates[0].PlatformName)
	assert.Equal(t, "0", h.platform.roleUpdates[0].Metadata[MetadataKeyThreadsCreated])

	require.Len(t, ts.forms, 1)
	assert.Equal(t, "app-1", ts.forms[0].Get("client_id"))
	assert.Equal(t, "authorization_code", ts.forms[0].Get("grant_type"))
}

func TestCompleteAuthorizationSurvivesMetadataFailure(t *testing.T) {
	h := newHarness()
	svc := newAuthService(t, h, newTokenServer(t))
	h.platform.me["access-c"] = &discordgo.User{ID: "u1", Username: "alice"}
	h.platform.fail("UpdateRoleConnection", restError(http.StatusForbidden))

	_, err := svc.CompleteAuthorization(context.Background(), "c", stateFrom(t, svc))
	require.NoError(t, err)

	user, err := h.users.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "access-c", user.AccessToken)
}

func TestCompleteAuthorizationRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	ts := newTokenServer(t)
	svc := newAuthService(t, h, ts)

	_, err := svc.CompleteAuthorization(ctx, "", stateFrom(t, svc))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = svc.CompleteAuthorization(ctx, "code", "forged")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	assert.Empty(t, ts.forms)

	ts.fail = true
	_, err = svc.CompleteAuthorization(ctx, "code", stateFrom(t, svc))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}

func TestValidAccessTokenRefreshesExpiredToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	ts := newTokenServer(t)
	svc := newAuthService(t, h, ts)

	user := &domain.User{
		AccessToken:    "stale",
		RefreshToken:   "refresh-old",
		ExpiresAt:      h.now.Add(-time.Minute).UnixMilli(),
		ActiveTicketID: strPtr("t-9"),
	}
	require.NoError(t, h.users.Save(ctx, "u1", user))

	token, err := svc.ValidAccessToken(ctx, "u1", user)
	require.NoError(t, err)
	assert.Equal(t, "access-new", token)
	require.Len(t, ts.forms, 1)
	assert.Equal(t, "refresh_token", ts.forms[0].Get("grant_type"))
	assert.Equal(t, "refresh-old", ts.forms[0].Get("refresh_token"))

	stored, err := h.users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "access-new", stored.AccessToken)
	assert.Equal(t, "t-9", *stored.ActiveTicketID)
}

func TestValidAccessTokenKeepsFreshToken(t *testing.T) {
	h := newHarness()
	ts := newTokenServer(t)
	svc := newAuthService(t, h, ts)

	user := &domain.User{AccessToken: "fresh", ExpiresAt: h.now.Add(time.Hour).UnixMilli()}
	token, err := svc.ValidAccessToken(context.Background(), "u1", user)
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
	assert.Empty(t, ts.forms)
}

func TestValidAccessTokenRequiresReauthorization(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	ts := newTokenServer(t)
	svc := newAuthService(t, h, ts)
	expired := h.now.Add(-time.Minute).UnixMilli()

	_, err := svc.ValidAccessToken(ctx, "u1", &domain.User{AccessToken: "a", ExpiresAt: expired})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeReauthorizationRequired))

	ts.fail = true
	_, err = svc.ValidAccessToken(ctx, "u1", &domain.User{AccessToken: "a", RefreshToken: "r", ExpiresAt: expired})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeReauthorizationRequired))

	_, err = svc.ValidAccessToken(ctx, "u1", nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAuthorizationRequired))
}
