package domain

import "time"

// TicketStatus enumerates lifecycle states for queue tickets.
type TicketStatus string

const (
	TicketStatusWaiting   TicketStatus = "waiting"
	TicketStatusCalled    TicketStatus = "called"
	TicketStatusCompleted TicketStatus = "completed"
)

// Valid reports whether the status is one of the known states.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusWaiting, TicketStatusCalled, TicketStatusCompleted:
		return true
	}
	return false
}

// Input bounds applied at registration time.
const (
	MaxNameLength    = 20
	MaxPhoneLength   = 20
	MinPartySize     = 1
	MaxPartySize     = 20
	DefaultPartySize = 1
)

// Ticket is one customer's queue entry. IDs are assigned by the store,
// strictly increasing in insertion order and never reused. ChannelRef is
// the opaque notification recipient; nil means no channel is linked and
// notifications for this ticket are skipped.
type Ticket struct {
	ID         int64
	Name       string
	Phone      string
	PartySize  int
	Status     TicketStatus
	ChannelRef *string
	CreatedAt  time.Time
}

// IsTerminal reports whether the ticket reached its final state.
func (t *Ticket) IsTerminal() bool {
	return t.Status == TicketStatusCompleted
}

// IsActive reports whether the ticket still occupies the queue.
func (t *Ticket) IsActive() bool {
	return t.Status == TicketStatusWaiting || t.Status == TicketStatusCalled
}

// HasChannel reports whether a notification channel is linked.
func (t *Ticket) HasChannel() bool {
	return t.ChannelRef != nil && *t.ChannelRef != ""
}
