package events

import (
	"time"

	"github.com/spec-kit/waitlist-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketRegistered EventType = "ticket_registered"
	EventTicketCalled     EventType = "ticket_called"
	EventTicketCompleted  EventType = "ticket_completed"
	EventTicketRequeued   EventType = "ticket_requeued"
	EventTicketRemoved    EventType = "ticket_removed"
	EventChannelLinked    EventType = "channel_linked"
)

// Event represents a queue domain event emitted by the service layer.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketRegisteredPayload payload.
type TicketRegisteredPayload struct {
	Name      string `json:"name"`
	PartySize int    `json:"party_size"`
	Position  int    `json:"position"`
}

// TicketCalledPayload carries everything the notification dispatcher needs
// so it never has to read the store again.
type TicketCalledPayload struct {
	Name       string  `json:"name"`
	ChannelRef *string `json:"channel_ref,omitempty"`
}

// TicketStatusChangedPayload payload for completed and requeued events.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketRemovedPayload payload.
type TicketRemovedPayload struct {
	Status domain.TicketStatus `json:"status"`
}

// ChannelLinkedPayload payload.
type ChannelLinkedPayload struct {
	ChannelRef string `json:"channel_ref"`
	Position   int    `json:"position"`
}
