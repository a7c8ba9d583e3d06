package domain

import "strconv"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// Ticket is stored under ticket:<ticketId> while a ticket is open.
type Ticket struct {
	TicketID   string       `json:"ticketId"`
	CaseNumber int          `json:"caseNumber"`
	GuildID    string       `json:"guildId"`
	UserID     string       `json:"userId"`
	Username   string       `json:"username"`
	ThreadID   string       `json:"threadId"`
	Status     TicketStatus `json:"status"`
}

// IsOpen reports whether the ticket still accepts messages.
func (t *Ticket) IsOpen() bool {
	return t != nil && t.Status == TicketStatusOpen
}

// ThreadName is the platform-side name of the ticket thread.
func ThreadName(caseNumber int, username string) string {
	return "#" + strconv.Itoa(caseNumber) + " - " + username
}

// Thread maps a platform thread back to its ticket.
type Thread struct {
	TicketID string `json:"ticketId"`
}

// Counter numbers tickets per guild.
type Counter struct {
	LastCaseNumber int `json:"lastCaseNumber"`
}
