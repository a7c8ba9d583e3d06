package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/threadmail/internal/domain"
	apperrors "github.com/spec-kit/threadmail/pkg/util/errorutil"
)

func newGuildService(h *harness) *GuildService {
	return NewGuildService(h.guilds, h.platform, nil)
}

func TestPingRoleRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	svc := newGuildService(h)

	settings, err := svc.Settings(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, settings.PingRoleID)
	assert.Equal(t, "sys-1", settings.SystemChannelID)

	_, err = svc.SetPingRole(ctx, "g1", "role-1")
	require.NoError(t, err)
	settings, err = svc.Settings(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "role-1", settings.PingRoleID)

	cleared, err := svc.ClearPingRole(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, cleared)
	settings, err = svc.Settings(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, settings.PingRoleID)

	cleared, err = svc.ClearPingRole(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, cleared)
}

func TestSetPingRoleKeepsOtherFields(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	require.NoError(t, h.guilds.Save(ctx, &domain.Guild{GuildID: "g1", GuildName: "Guild One", WebhookURL: strPtr("https://discord.com/api/webhooks/1/2")}))

	_, err := newGuildService(h).SetPingRole(ctx, "g1", "role-1")
	require.NoError(t, err)

	record, err := h.guilds.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Guild One", record.GuildName)
	assert.Equal(t, "https://discord.com/api/webhooks/1/2", *record.WebhookURL)
}

func TestSetTicketChannelProbesPermissions(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	svc := newGuildService(h)
	channel := &discordgo.Channel{ID: "support", Type: discordgo.ChannelTypeGuildText}
	h.platform.channels["support"] = channel

	settings, err := svc.SetTicketChannel(ctx, "g1", channel)
	require.NoError(t, err)
	assert.Equal(t, "support", settings.TicketChannelID)
	assert.Len(t, h.platform.messagesIn("support"), 1)
	assert.Len(t, h.platform.deletedMessages, 1)

	cleared, err := svc.ClearTicketChannel(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, cleared)
	settings, err = svc.Settings(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, settings.TicketChannelID)
}

func TestSetTicketChannelNamesMissingPermission(t *testing.T) {
	cases := []struct {
		method     string
		permission string
	}{
		{"Channel", "View Channel"},
		{"SendMessage", "View Channel, Send Messages"},
		{"DeleteMessage", "Manage Messages"},
	}
	for _, tc := range cases {
		t.Run(tc.method, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness()
			channel := &discordgo.Channel{ID: "support", Type: discordgo.ChannelTypeGuildText}
			h.platform.channels["support"] = channel
			h.platform.fail(tc.method, restError(http.StatusForbidden))

			_, err := newGuildService(h).SetTicketChannel(ctx, "g1", channel)
			require.Error(t, err)
			perm, ok := apperrors.Detail(err, "permission")
			require.True(t, ok)
			assert.Equal(t, tc.permission, perm)

			record, err := h.guilds.Get(ctx, "g1")
			assert.Nil(t, record)
			assert.Error(t, err)
		})
	}
}

func TestSetTicketChannelToleratesNonForbiddenDeleteFailure(t *testing.T) {
	h := newHarness()
	channel := &discordgo.Channel{ID: "support", Type: discordgo.ChannelTypeGuildText}
	h.platform.channels["support"] = channel
	h.platform.fail("DeleteMessage", errors.New("timeout"))

	_, err := newGuildService(h).SetTicketChannel(context.Background(), "g1", channel)
	assert.NoError(t, err)
}

func TestSetTicketChannelRejectsNonText(t *testing.T) {
	svc := newGuildService(newHarness())
	_, err := svc.SetTicketChannel(context.Background(), "g1", &discordgo.Channel{ID: "v", Type: discordgo.ChannelTypeGuildVoice})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidChannel))

	_, err = svc.SetTicketChannel(context.Background(), "g1", nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidChannel))
}
