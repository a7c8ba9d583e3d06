package domain

// GuildStatusActive marks a guild that has hosted at least one ticket.
const GuildStatusActive = "active"

// Guild is the optional per-guild configuration stored under guild:<guildId>.
type Guild struct {
	GuildID         string  `json:"guildId"`
	GuildName       string  `json:"guildName,omitempty"`
	SystemChannelID string  `json:"systemChannelId,omitempty"`
	TicketChannelID *string `json:"ticketChannelId"`
	WebhookURL      *string `json:"webhookUrl"`
	PingRoleID      *string `json:"pingRoleId"`
	Status          string  `json:"status,omitempty"`
}

// PingMention renders the mention used in new-ticket announcements.
func (g *Guild) PingMention() string {
	if g == nil || g.PingRoleID == nil || *g.PingRoleID == "" {
		return "@here"
	}
	return "<@&" + *g.PingRoleID + ">"
}

// CustomTicketChannel returns the configured ticket channel, if any.
func (g *Guild) CustomTicketChannel() string {
	if g == nil || g.TicketChannelID == nil {
		return ""
	}
	return *g.TicketChannelID
}

// Webhook returns the stored relay webhook URL, if any.
func (g *Guild) Webhook() string {
	if g == nil || g.WebhookURL == nil {
		return ""
	}
	return *g.WebhookURL
}
