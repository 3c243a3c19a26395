package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/waitlist-service/internal/api/dto"
	"github.com/spec-kit/waitlist-service/internal/domain"
	"github.com/spec-kit/waitlist-service/internal/service"
	apperrors "github.com/spec-kit/waitlist-service/pkg/util"
)

// TicketsHandler serves the customer-facing queue endpoints.
type TicketsHandler struct {
	queue *service.QueueService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(queue *service.QueueService) *TicketsHandler {
	return &TicketsHandler{queue: queue}
}

// Register POST /tickets.
func (h *TicketsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.queue.Register(c.UserContext(), service.RegisterInput{
		Name:      req.Name,
		Phone:     req.Phone,
		PartySize: req.PartySize,
	})
	if err != nil {
		return err
	}

	info, err := h.queue.PositionOf(c.UserContext(), ticket.ID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.RegisterTicketResponse{
		Ticket:       ticketResponse(ticket),
		Position:     info.Position,
		TotalWaiting: info.TotalWaiting,
	}})
}

// Position GET /tickets/:id/position.
func (h *TicketsHandler) Position(c *fiber.Ctx) error {
	id, err := parseTicketID(c)
	if err != nil {
		return err
	}

	info, err := h.queue.PositionOf(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.PositionResponse{
		Found:        info.Found,
		Status:       string(info.Status),
		Position:     info.Position,
		TotalWaiting: info.TotalWaiting,
	})
}

// Queue GET /queue.
func (h *TicketsHandler) Queue(c *fiber.Ctx) error {
	snapshot, err := h.queue.QueueSnapshot(c.UserContext())
	if err != nil {
		return err
	}

	called := make([]dto.TicketResponse, 0, len(snapshot.Called))
	for i := range snapshot.Called {
		called = append(called, ticketResponse(&snapshot.Called[i]))
	}
	waiting := make([]dto.QueueEntryResponse, 0, len(snapshot.Waiting))
	for _, entry := range snapshot.Waiting {
		waiting = append(waiting, dto.QueueEntryResponse{
			ID:        entry.Ticket.ID,
			Name:      entry.Ticket.Name,
			PartySize: entry.Ticket.PartySize,
			Position:  entry.Position,
		})
	}
	return c.JSON(fiber.Map{"data": dto.QueueResponse{
		TotalWaiting: snapshot.TotalWaiting,
		Called:       called,
		Waiting:      waiting,
	}})
}

func parseTicketID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid ticket id", nil)
	}
	return id, nil
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:        ticket.ID,
		Name:      ticket.Name,
		PartySize: ticket.PartySize,
		Status:    ticket.Status,
		CreatedAt: ticket.CreatedAt,
	}
}
