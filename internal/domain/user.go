package domain

import "time"

// User is stored under user:<userId>. It holds OAuth credentials and the
// pointer to the user's single open ticket.
type User struct {
	AccessToken    string  `json:"accessToken,omitempty"`
	RefreshToken   string  `json:"refreshToken,omitempty"`
	ExpiresAt      int64   `json:"expiresAt,omitempty"`
	Scope          string  `json:"scope,omitempty"`
	ActiveTicketID *string `json:"activeTicketId"`
	GuildID        string  `json:"guildId,omitempty"`
}

// Authorized reports whether the user has completed the OAuth flow.
func (u *User) Authorized() bool {
	return u != nil && u.AccessToken != ""
}

// TokenExpired reports whether the stored access token is past its expiry.
// A zero expiry is treated as non-expiring.
func (u *User) TokenExpired(now time.Time) bool {
	if u == nil || u.ExpiresAt == 0 {
		return false
	}
	return now.UnixMilli() >= u.ExpiresAt
}
