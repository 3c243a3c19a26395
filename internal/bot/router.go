package bot

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/waitlist-service/internal/domain"
	"github.com/spec-kit/waitlist-service/internal/notify"
	"github.com/spec-kit/waitlist-service/internal/service"
	apperrors "github.com/spec-kit/waitlist-service/pkg/util"
)

// Router authenticates inbound webhook batches and maps chat commands to
// queue operations.
type Router struct {
	queue     *service.QueueService
	transport notify.Transport
	dedup     Deduper
	logger    *zap.Logger
	secret    string
	storeName string
}

// RouterConfig bundles router collaborators.
type RouterConfig struct {
	Queue         *service.QueueService
	Transport     notify.Transport
	Dedup         Deduper
	Logger        *zap.Logger
	ChannelSecret string
	StoreName     string
}

// NewRouter constructs the router.
func NewRouter(cfg RouterConfig) *Router {
	dedup := cfg.Dedup
	if dedup == nil {
		dedup = NewNoopDeduper()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		queue:     cfg.Queue,
		transport: cfg.Transport,
		dedup:     dedup,
		logger:    logger,
		secret:    cfg.ChannelSecret,
		storeName: cfg.StoreName,
	}
}

// HandleCallback verifies and routes one webhook delivery. Verification
// happens before any parsing; unverified requests are rejected with no
// side effect. A verified body that fails to parse ends processing
// quietly, also with no side effect.
func (r *Router) HandleCallback(ctx context.Context, rawBody []byte, signature string) error {
	if !ValidateSignature(rawBody, signature, r.secret) {
		return apperrors.NewUnauthorized("invalid webhook signature")
	}

	var payload CallbackPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		r.logger.Warn("webhook body unparseable", zap.Error(err))
		return nil
	}

	for _, event := range payload.Events {
		if event.Type != "message" || event.Message.Type != "text" {
			continue
		}
		if r.dedup.Seen(ctx, event.WebhookEventID) {
			r.logger.Info("webhook event already processed",
				zap.String("event_id", event.WebhookEventID))
			continue
		}
		r.handleTextMessage(ctx, event)
	}
	return nil
}

func (r *Router) handleTextMessage(ctx context.Context, event InboundEvent) {
	command := ParseCommand(event.Message.Text)

	var reply string
	switch command.Kind {
	case CommandRegister:
		reply = r.handleRegister(ctx, command.TicketID, event.Source.UserID)
	case CommandStatus:
		reply = r.handleStatus(ctx, event.Source.UserID)
	default:
		reply = r.helpText()
	}

	if reply == "" || event.ReplyToken == "" {
		return
	}
	if err := r.transport.Reply(ctx, event.ReplyToken, reply); err != nil {
		r.logger.Warn("webhook reply failed",
			zap.String("event_id", event.WebhookEventID),
			zap.Error(err))
	}
}

func (r *Router) handleRegister(ctx context.Context, ticketID int64, userID string) string {
	result, err := r.queue.LinkChannel(ctx, ticketID, userID)
	if err != nil {
		r.logger.Error("channel link failed", zap.Int64("ticket_id", ticketID), zap.Error(err))
		return "Something went wrong, please try again in a moment."
	}

	switch result.Status {
	case service.LinkNotFound:
		return fmt.Sprintf("Ticket %d was not found. Please check the number on your slip.", ticketID)
	case service.LinkCompleted:
		return fmt.Sprintf("Ticket %d has already been completed.", ticketID)
	case service.LinkAlreadyLinked:
		return fmt.Sprintf("Ticket %d is already registered for notifications. We'll message you when it's your turn.", ticketID)
	case service.LinkLinked:
		if result.Position <= 0 {
			return fmt.Sprintf("Ticket %d (%s) is now registered for notifications and is being called. Please come to the counter!", ticketID, result.Ticket.Name)
		}
		return fmt.Sprintf("Ticket %d (%s) is now registered for notifications. You are number %d in line; we'll message you when it's your turn.", ticketID, result.Ticket.Name, result.Position)
	}
	return ""
}

func (r *Router) handleStatus(ctx context.Context, userID string) string {
	ticket, found, err := r.queue.ActiveTicketForChannel(ctx, userID)
	if err != nil {
		r.logger.Error("status lookup failed", zap.Error(err))
		return "Something went wrong, please try again in a moment."
	}
	if !found {
		return "You have no active ticket yet. Register at the store, then send \"register <number>\"."
	}
	if ticket.Status == domain.TicketStatusCalled {
		return fmt.Sprintf("Ticket %d is being called right now. Please come to the counter!", ticket.ID)
	}

	info, err := r.queue.PositionOf(ctx, ticket.ID)
	if err != nil || !info.Found {
		return "Something went wrong, please try again in a moment."
	}
	return fmt.Sprintf("Ticket %d: you are number %d in line (%d waiting in total).", ticket.ID, info.Position, info.TotalWaiting)
}

func (r *Router) helpText() string {
	return fmt.Sprintf(
		"%s waitlist bot.\n\nAfter registering at the store, send \"register <number>\" to get notified when it's your turn.\nSend \"status\" to check your place in line.",
		r.storeName,
	)
}
