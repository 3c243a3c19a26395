package dto

import (
	"time"

	"github.com/spec-kit/waitlist-service/internal/domain"
)

// RegisterTicketRequest payload.
type RegisterTicketRequest struct {
	Name      string `json:"name"`
	PartySize int    `json:"party_size"`
	Phone     string `json:"phone"`
}

// TicketResponse is the public ticket view. Phone and channel details stay
// on the admin view.
type TicketResponse struct {
	ID        int64               `json:"id"`
	Name      string              `json:"name"`
	PartySize int                 `json:"party_size"`
	Status    domain.TicketStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
}

// RegisterTicketResponse pairs the new ticket with its starting position.
type RegisterTicketResponse struct {
	Ticket       TicketResponse `json:"ticket"`
	Position     int            `json:"position"`
	TotalWaiting int            `json:"total_waiting"`
}

// PositionResponse answers the polling endpoint. Found=false is a normal
// body, not a 404; the customer-side poller keys off it.
type PositionResponse struct {
	Found        bool   `json:"found"`
	Status       string `json:"status"`
	Position     int    `json:"position"`
	TotalWaiting int    `json:"total_waiting"`
}

// QueueEntryResponse is one waiting ticket on the public board.
type QueueEntryResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	PartySize int    `json:"party_size"`
	Position  int    `json:"position"`
}

// QueueResponse is the public queue board.
type QueueResponse struct {
	TotalWaiting int                  `json:"total_waiting"`
	Called       []TicketResponse     `json:"called"`
	Waiting      []QueueEntryResponse `json:"waiting"`
}

// AdminTicketResponse includes operator-only fields.
type AdminTicketResponse struct {
	ID            int64               `json:"id"`
	Name          string              `json:"name"`
	Phone         string              `json:"phone"`
	PartySize     int                 `json:"party_size"`
	Status        domain.TicketStatus `json:"status"`
	ChannelLinked bool                `json:"channel_linked"`
	CreatedAt     time.Time           `json:"created_at"`
}

// AdminQueueResponse is the operator console view.
type AdminQueueResponse struct {
	TotalWaiting int                   `json:"total_waiting"`
	Called       []AdminTicketResponse `json:"called"`
	Waiting      []AdminTicketResponse `json:"waiting"`
}

// ActionResponse acknowledges an operator action.
type ActionResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}
