package auth

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/threadmail/pkg/util/errorutil"
)

func TestPrincipalFromGuildInteraction(t *testing.T) {
	p := PrincipalFromInteraction(&discordgo.Interaction{
		GuildID:   "g1",
		ChannelID: "c1",
		Member: &discordgo.Member{
			Permissions: discordgo.PermissionManageThreads,
			User:        &discordgo.User{ID: "u1", Username: "alice"},
		},
	})

	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "alice", p.Username)
	assert.True(t, p.InGuild())
	assert.True(t, p.Can(discordgo.PermissionManageThreads))
	assert.False(t, p.Can(discordgo.PermissionManageServer))
}

func TestPrincipalFromDMInteraction(t *testing.T) {
	p := PrincipalFromInteraction(&discordgo.Interaction{
		ChannelID: "dm",
		User:      &discordgo.User{ID: "u2", Username: "bob", GlobalName: "Bobby"},
	})

	assert.Equal(t, "u2", p.UserID)
	assert.Equal(t, "Bobby", p.Username)
	assert.False(t, p.InGuild())
	assert.Empty(t, p.AvatarURL)
}

func TestRequire(t *testing.T) {
	admin := &Principal{GuildID: "g", Permissions: discordgo.PermissionAdministrator}
	assert.NoError(t, admin.Require(discordgo.PermissionManageServer, "Manage Server"))

	member := &Principal{GuildID: "g"}
	err := member.Require(discordgo.PermissionManageThreads, "Manage Threads")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	perm, ok := apperrors.Detail(err, "permission")
	require.True(t, ok)
	assert.Equal(t, "Manage Threads", perm)

	dm := &Principal{Permissions: discordgo.PermissionAdministrator}
	assert.Error(t, dm.Require(discordgo.PermissionManageThreads, "Manage Threads"))
}
