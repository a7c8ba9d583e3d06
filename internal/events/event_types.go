package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketClosed   EventType = "ticket_closed"
	EventMessageRelayed EventType = "message_relayed"
)

// CloseContext distinguishes who closed a ticket.
type CloseContext string

const (
	CloseByOwner CloseContext = "owner"
	CloseByStaff CloseContext = "staff"
)

// RelayPath names the delivery path a relayed message took.
type RelayPath string

const (
	RelayViaWebhook RelayPath = "webhook"
	RelayViaThread  RelayPath = "thread"
	RelayViaDM      RelayPath = "dm"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	GuildID    string `json:"guild_id"`
	ThreadID   string `json:"thread_id"`
	CaseNumber int    `json:"case_number"`
	OwnerID    string `json:"owner_id"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	GuildID  string       `json:"guild_id"`
	ThreadID string       `json:"thread_id"`
	OwnerID  string       `json:"owner_id"`
	ClosedBy CloseContext `json:"closed_by"`
	Archived bool         `json:"archived"`
}

// MessageRelayedPayload payload.
type MessageRelayedPayload struct {
	ThreadID    string    `json:"thread_id"`
	Path        RelayPath `json:"path"`
	BodyPreview string    `json:"body_preview"`
}
