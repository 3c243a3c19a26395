package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/waitlist-service/internal/domain"
	"github.com/spec-kit/waitlist-service/internal/events"
	"github.com/spec-kit/waitlist-service/internal/repository"
	apperrors "github.com/spec-kit/waitlist-service/pkg/util"
)

// QueueService owns ticket lifecycle transitions and position queries.
type QueueService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// QueueDependencies bundles collaborators for the queue service.
type QueueDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// RegisterInput describes a walk-in registration.
type RegisterInput struct {
	Name      string
	Phone     string
	PartySize int
}

// PositionInfo answers a customer's polling query.
type PositionInfo struct {
	Found        bool
	Status       domain.TicketStatus
	Position     int
	TotalWaiting int
}

// LinkStatus classifies the outcome of a channel-link attempt. Every value
// is a normal user-facing outcome for the command router, not an error.
type LinkStatus string

const (
	LinkLinked        LinkStatus = "linked"
	LinkNotFound      LinkStatus = "not_found"
	LinkCompleted     LinkStatus = "completed"
	LinkAlreadyLinked LinkStatus = "already_linked"
)

// LinkResult reports a channel-link attempt.
type LinkResult struct {
	Status   LinkStatus
	Ticket   *domain.Ticket
	Position int
}

// QueueEntry pairs a waiting ticket with its live 1-based rank.
type QueueEntry struct {
	Ticket   domain.Ticket
	Position int
}

// Snapshot is the public queue board: who is being called and who waits.
type Snapshot struct {
	Waiting      []QueueEntry
	Called       []domain.Ticket
	TotalWaiting int
}

// NewQueueService constructs the service.
func NewQueueService(deps QueueDependencies) *QueueService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Register validates input and creates a waiting ticket. Party size is
// clamped into its bounds rather than rejected; only a missing name is a
// validation failure.
func (s *QueueService) Register(ctx context.Context, input RegisterInput) (*domain.Ticket, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	if runes := []rune(name); len(runes) > domain.MaxNameLength {
		name = string(runes[:domain.MaxNameLength])
	}

	phone := strings.TrimSpace(input.Phone)
	if runes := []rune(phone); len(runes) > domain.MaxPhoneLength {
		phone = string(runes[:domain.MaxPhoneLength])
	}

	partySize := input.PartySize
	if partySize < domain.MinPartySize {
		partySize = domain.DefaultPartySize
	}
	if partySize > domain.MaxPartySize {
		partySize = domain.MaxPartySize
	}

	ticket := &domain.Ticket{
		Name:      name,
		Phone:     phone,
		PartySize: partySize,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	position, err := s.tickets.CountWaitingBefore(ctx, ticket.ID)
	if err != nil {
		position = -1
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketRegistered,
		TicketID: ticket.ID,
		Payload: events.TicketRegisteredPayload{
			Name:      ticket.Name,
			PartySize: ticket.PartySize,
			Position:  position + 1,
		},
	})
	return ticket, nil
}

// GetTicket fetches one ticket.
func (s *QueueService) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapTicketError(err, id)
	}
	return ticket, nil
}

// Call moves a waiting ticket to called and emits the one event that
// qualifies for a "your turn" notification. A call on a ticket in any
// other status fails with InvalidTransition; when two callers race,
// exactly one wins and exactly one event is published.
func (s *QueueService) Call(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.transition(ctx, actionCall, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCalled,
		TicketID: ticket.ID,
		Payload: events.TicketCalledPayload{
			Name:       ticket.Name,
			ChannelRef: ticket.ChannelRef,
		},
	})
	return ticket, nil
}

// Complete finishes a called ticket. A ticket must be called before it can
// be completed; waiting tickets cannot jump straight to completed.
func (s *QueueService) Complete(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.transition(ctx, actionComplete, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCompleted,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: domain.TicketStatusCalled,
			NewStatus: domain.TicketStatusCompleted,
		},
	})
	return ticket, nil
}

// Requeue returns a called ticket to the waiting queue. Ordering is by id,
// so the ticket regains its original rank.
func (s *QueueService) Requeue(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.transition(ctx, actionRequeue, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketRequeued,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: domain.TicketStatusCalled,
			NewStatus: domain.TicketStatusWaiting,
		},
	})
	return ticket, nil
}

// Remove hard-deletes a non-terminal ticket. Completed tickets are cleaned
// up through PurgeCompleted instead.
func (s *QueueService) Remove(ctx context.Context, id int64) error {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return s.mapTicketError(err, id)
	}
	if ticket.IsTerminal() {
		return apperrors.NewInvalidTransition("completed tickets cannot be removed", map[string]any{"id": id})
	}
	removed, err := s.tickets.Delete(ctx, id)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !removed {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketRemoved,
		TicketID: id,
		Payload:  events.TicketRemovedPayload{Status: ticket.Status},
	})
	return nil
}

// PurgeCompleted deletes every completed ticket and returns how many.
func (s *QueueService) PurgeCompleted(ctx context.Context) (int64, error) {
	purged, err := s.tickets.PurgeCompleted(ctx)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return purged, nil
}

// PositionOf derives the live position of a ticket. Unknown ids yield
// Found=false rather than an error; customers poll this with stale ids
// after their ticket has been purged.
func (s *QueueService) PositionOf(ctx context.Context, id int64) (PositionInfo, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PositionInfo{Found: false}, nil
		}
		return PositionInfo{}, apperrors.MapError(err)
	}

	switch ticket.Status {
	case domain.TicketStatusCompleted:
		return PositionInfo{Found: true, Status: ticket.Status}, nil
	case domain.TicketStatusCalled:
		total, err := s.tickets.CountWaiting(ctx)
		if err != nil {
			return PositionInfo{}, apperrors.MapError(err)
		}
		return PositionInfo{Found: true, Status: ticket.Status, TotalWaiting: total}, nil
	}

	ahead, err := s.tickets.CountWaitingBefore(ctx, ticket.ID)
	if err != nil {
		return PositionInfo{}, apperrors.MapError(err)
	}
	total, err := s.tickets.CountWaiting(ctx)
	if err != nil {
		return PositionInfo{}, apperrors.MapError(err)
	}
	return PositionInfo{
		Found:        true,
		Status:       ticket.Status,
		Position:     ahead + 1,
		TotalWaiting: total,
	}, nil
}

// LinkChannel binds a notification channel to a ticket, first link wins.
// The result distinguishes the four user-facing outcomes the command
// router replies to; none of them is a system error.
func (s *QueueService) LinkChannel(ctx context.Context, id int64, ref string) (LinkResult, error) {
	if strings.TrimSpace(ref) == "" {
		return LinkResult{}, apperrors.NewValidationError("channel ref required", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LinkResult{Status: LinkNotFound}, nil
		}
		return LinkResult{}, apperrors.MapError(err)
	}
	if ticket.IsTerminal() {
		return LinkResult{Status: LinkCompleted, Ticket: ticket}, nil
	}
	if ticket.HasChannel() {
		return LinkResult{Status: LinkAlreadyLinked, Ticket: ticket}, nil
	}

	linked, err := s.tickets.LinkChannel(ctx, id, ref)
	if err != nil {
		return LinkResult{}, apperrors.MapError(err)
	}
	if !linked {
		// Lost a race against another link attempt.
		return LinkResult{Status: LinkAlreadyLinked, Ticket: ticket}, nil
	}

	ticket.ChannelRef = &ref
	ahead, err := s.tickets.CountWaitingBefore(ctx, ticket.ID)
	if err != nil {
		return LinkResult{}, apperrors.MapError(err)
	}
	position := ahead + 1
	if ticket.Status == domain.TicketStatusCalled {
		position = 0
	}

	s.publish(ctx, events.Event{
		Type:     events.EventChannelLinked,
		TicketID: ticket.ID,
		Payload:  events.ChannelLinkedPayload{ChannelRef: ref, Position: position},
	})
	return LinkResult{Status: LinkLinked, Ticket: ticket, Position: position}, nil
}

// ActiveTicketForChannel finds the channel's current queue entry.
func (s *QueueService) ActiveTicketForChannel(ctx context.Context, ref string) (*domain.Ticket, bool, error) {
	ticket, err := s.tickets.FindActiveByChannel(ctx, ref)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, apperrors.MapError(err)
	}
	return ticket, true, nil
}

// QueueSnapshot returns the called and waiting lists with live ranks.
func (s *QueueService) QueueSnapshot(ctx context.Context) (Snapshot, error) {
	waiting, err := s.tickets.ListByStatus(ctx, domain.TicketStatusWaiting)
	if err != nil {
		return Snapshot{}, apperrors.MapError(err)
	}
	called, err := s.tickets.ListByStatus(ctx, domain.TicketStatusCalled)
	if err != nil {
		return Snapshot{}, apperrors.MapError(err)
	}

	entries := make([]QueueEntry, 0, len(waiting))
	for i, ticket := range waiting {
		entries = append(entries, QueueEntry{Ticket: ticket, Position: i + 1})
	}
	return Snapshot{
		Waiting:      entries,
		Called:       called,
		TotalWaiting: len(waiting),
	}, nil
}

func (s *QueueService) transition(ctx context.Context, action string, id int64) (*domain.Ticket, error) {
	rule, ok := TransitionFor(action)
	if !ok {
		return nil, apperrors.NewInternalError(fmt.Errorf("unknown queue action %q", action))
	}
	ticket, err := s.tickets.TransitionStatus(ctx, id, rule.From, rule.To)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperrors.NewInvalidTransition(
				fmt.Sprintf("ticket is not %s", rule.From),
				map[string]any{"id": id, "action": action},
			)
		}
		return nil, s.mapTicketError(err, id)
	}
	return ticket, nil
}

func (s *QueueService) mapTicketError(err error, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return apperrors.MapError(err)
}

func (s *QueueService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("type", string(event.Type)), zap.Error(err))
	}
}
