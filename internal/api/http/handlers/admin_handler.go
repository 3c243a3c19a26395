package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/waitlist-service/internal/api/dto"
	"github.com/spec-kit/waitlist-service/internal/domain"
	"github.com/spec-kit/waitlist-service/internal/service"
)

// AdminHandler serves operator queue actions. All routes behind staff auth.
type AdminHandler struct {
	queue *service.QueueService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(queue *service.QueueService) *AdminHandler {
	return &AdminHandler{queue: queue}
}

// Call POST /tickets/:id/call. Succeeds exactly once per waiting ticket;
// the notification dispatch runs in the background and never delays or
// fails this response.
func (h *AdminHandler) Call(c *fiber.Ctx) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.queue.Call(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.ActionResponse{OK: true, Message: fmt.Sprintf("called %s (#%d)", ticket.Name, ticket.ID)})
}

// Complete POST /tickets/:id/complete.
func (h *AdminHandler) Complete(c *fiber.Ctx) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.queue.Complete(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.ActionResponse{OK: true, Message: fmt.Sprintf("completed %s (#%d)", ticket.Name, ticket.ID)})
}

// Requeue POST /tickets/:id/requeue.
func (h *AdminHandler) Requeue(c *fiber.Ctx) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.queue.Requeue(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.ActionResponse{OK: true, Message: fmt.Sprintf("requeued %s (#%d)", ticket.Name, ticket.ID)})
}

// Remove DELETE /tickets/:id.
func (h *AdminHandler) Remove(c *fiber.Ctx) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}
	if err := h.queue.Remove(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(dto.ActionResponse{OK: true, Message: fmt.Sprintf("removed ticket #%d", id)})
}

// PurgeCompleted POST /queue/purge-completed.
func (h *AdminHandler) PurgeCompleted(c *fiber.Ctx) error {
	purged, err := h.queue.PurgeCompleted(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.ActionResponse{OK: true, Message: fmt.Sprintf("purged %d completed tickets", purged)})
}

// Queue GET /admin/queue.
func (h *AdminHandler) Queue(c *fiber.Ctx) error {
	snapshot, err := h.queue.QueueSnapshot(c.UserContext())
	if err != nil {
		return err
	}

	called := make([]dto.AdminTicketResponse, 0, len(snapshot.Called))
	for i := range snapshot.Called {
		called = append(called, adminTicketResponse(&snapshot.Called[i]))
	}
	waiting := make([]dto.AdminTicketResponse, 0, len(snapshot.Waiting))
	for _, entry := range snapshot.Waiting {
		waiting = append(waiting, adminTicketResponse(&entry.Ticket))
	}
	return c.JSON(fiber.Map{"data": dto.AdminQueueResponse{
		TotalWaiting: snapshot.TotalWaiting,
		Called:       called,
		Waiting:      waiting,
	}})
}

func adminTicketResponse(ticket *domain.Ticket) dto.AdminTicketResponse {
	return dto.AdminTicketResponse{
		ID:            ticket.ID,
		Name:          ticket.Name,
		Phone:         ticket.Phone,
		PartySize:     ticket.PartySize,
		Status:        ticket.Status,
		ChannelLinked: ticket.HasChannel(),
		CreatedAt:     ticket.CreatedAt,
	}
}
