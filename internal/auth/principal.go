package auth

import (
	"github.com/bwmarrin/discordgo"

	apperrors "github.com/spec-kit/threadmail/pkg/util/errorutil"
)

// Principal identifies who invoked an interaction and where.
type Principal struct {
	UserID      string
	Username    string
	AvatarURL   string
	GuildID     string
	ChannelID   string
	Permissions int64
}

// PrincipalFromInteraction extracts the caller. Guild invocations carry a
// member, DM invocations a bare user.
func PrincipalFromInteraction(i *discordgo.Interaction) *Principal {
	p := &Principal{GuildID: i.GuildID, ChannelID: i.ChannelID}
	user := i.User
	if i.Member != nil {
		p.Permissions = i.Member.Permissions
		if i.Member.User != nil {
			user = i.Member.User
		}
	}
	if user != nil {
		p.UserID = user.ID
		p.Username = user.Username
		if user.GlobalName != "" {
			p.Username = user.GlobalName
		}
		if user.Avatar != "" {
			p.AvatarURL = user.AvatarURL("")
		}
	}
	return p
}

// InGuild reports whether the interaction came from a guild channel.
func (p *Principal) InGuild() bool {
	return p != nil && p.GuildID != ""
}

// Can reports whether the member holds perm. Administrators hold all.
func (p *Principal) Can(perm int64) bool {
	if p == nil {
		return false
	}
	if p.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return p.Permissions&perm == perm
}

// Require returns a forbidden error naming the permission when the member
// lacks it.
func (p *Principal) Require(perm int64, name string) error {
	if !p.InGuild() {
		return apperrors.NewForbidden("this command can only be used in a server")
	}
	if !p.Can(perm) {
		return apperrors.NewDomainError(apperrors.CodeForbidden, "you need the "+name+" permission", 403,
			map[string]any{"permission": name})
	}
	return nil
}
