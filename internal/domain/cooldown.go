package domain

import "time"

// CooldownReasonTicketClose tags cooldowns written after a user closes a ticket.
const CooldownReasonTicketClose = "ticket_close_cooldown"

// Cooldown is advisory: it is never evicted, only compared against the clock.
type Cooldown struct {
	UserID    string `json:"userId"`
	ExpiresAt int64  `json:"expiresAt"`
	Reason    string `json:"reason"`
}

// Remaining returns the time left on the cooldown, or zero once expired.
func (c *Cooldown) Remaining(now time.Time) time.Duration {
	if c == nil {
		return 0
	}
	left := time.Duration(c.ExpiresAt-now.UnixMilli()) * time.Millisecond
	if left < 0 {
		return 0
	}
	return left
}

// Active reports whether the cooldown is still in force.
func (c *Cooldown) Active(now time.Time) bool {
	return c != nil && c.ExpiresAt > now.UnixMilli()
}
