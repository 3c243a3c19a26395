package notify

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/waitlist-service/internal/events"
	"github.com/spec-kit/waitlist-service/internal/observability"
)

// Dispatcher turns ticket-called events into at-most-one outbound push
// each. Dispatch runs detached from the triggering request: the status
// transition has already committed, and a transport failure is logged
// without ever rolling it back.
type Dispatcher struct {
	transport Transport
	logger    *zap.Logger
	metrics   *observability.Metrics
	storeName string
	timeout   time.Duration
}

// Config carries dispatcher settings.
type Config struct {
	StoreName string
	Timeout   time.Duration
}

// NewDispatcher creates the dispatcher.
func NewDispatcher(transport Transport, logger *zap.Logger, metrics *observability.Metrics, cfg Config) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		transport: transport,
		logger:    logger,
		metrics:   metrics,
		storeName: cfg.StoreName,
		timeout:   timeout,
	}
}

// RegisterHandlers subscribes to the notification-qualifying events.
func (d *Dispatcher) RegisterHandlers(bus events.Dispatcher) {
	if bus == nil {
		return
	}
	bus.Subscribe(events.EventTicketCalled, d.handleTicketCalled)
}

func (d *Dispatcher) handleTicketCalled(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCalledPayload)
	if !ok {
		return nil
	}
	// Detached context: the webhook or admin request that triggered the
	// call must not wait on the push, and its cancellation must not abort
	// the delivery attempt.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		outcome := d.DispatchCalled(ctx, event.TicketID, payload.Name, payload.ChannelRef)
		d.metrics.RecordDispatch(string(outcome))
		switch outcome {
		case OutcomeDelivered:
			d.logger.Info("notification delivered",
				zap.Int64("ticket_id", event.TicketID))
		case OutcomeSkipped:
			d.logger.Info("notification skipped, no linked channel",
				zap.Int64("ticket_id", event.TicketID))
		}
	}()
	return nil
}

// DispatchCalled makes the single delivery attempt for a called ticket.
func (d *Dispatcher) DispatchCalled(ctx context.Context, ticketID int64, name string, channelRef *string) Outcome {
	if channelRef == nil || *channelRef == "" {
		return OutcomeSkipped
	}

	text := renderTemplate(templateCalled, map[string]string{
		"store": d.storeName,
		"id":    strconv.FormatInt(ticketID, 10),
		"name":  name,
	})
	if err := d.transport.Push(ctx, *channelRef, text); err != nil {
		d.logger.Warn("notification push failed",
			zap.Int64("ticket_id", ticketID),
			zap.Error(err))
		return OutcomeFailed
	}
	return OutcomeDelivered
}
