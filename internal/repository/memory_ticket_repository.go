package repository

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/waitlist-service/internal/domain"
)

// memoryTicketRepository keeps tickets in process memory. One mutex is the
// global serialization point for id assignment and queue-order reads, so
// two concurrent position queries can never observe duplicate or skipped
// ranks among waiting tickets.
type memoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[int64]*domain.Ticket
	nextID  int64
}

// NewMemoryTicketRepository builds an empty in-memory store. Used when no
// POSTGRES_DSN is configured, and by tests.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{
		tickets: make(map[int64]*domain.Ticket),
		nextID:  1,
	}
}

func (r *memoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket.ID = r.nextID
	r.nextID++
	ticket.Status = domain.TicketStatusWaiting
	ticket.CreatedAt = time.Now()

	stored := *ticket
	r.tickets[stored.ID] = &stored
	return nil
}

func (r *memoryTicketRepository) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *memoryTicketRepository) UpdateStatus(_ context.Context, id int64, status domain.TicketStatus) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	ticket.Status = status
	copied := *ticket
	return &copied, nil
}

func (r *memoryTicketRepository) TransitionStatus(_ context.Context, id int64, from, to domain.TicketStatus) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if ticket.Status != from {
		return nil, ErrStatusConflict
	}
	ticket.Status = to
	copied := *ticket
	return &copied, nil
}

func (r *memoryTicketRepository) LinkChannel(_ context.Context, id int64, ref string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return false, nil
	}
	if ticket.ChannelRef != nil {
		return false, nil
	}
	ticket.ChannelRef = &ref
	return true, nil
}

func (r *memoryTicketRepository) ListByStatus(_ context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.Status == status {
			result = append(result, *ticket)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *memoryTicketRepository) CountWaiting(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countWaitingBeforeLocked(math.MaxInt64), nil
}

func (r *memoryTicketRepository) CountWaitingBefore(_ context.Context, id int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countWaitingBeforeLocked(id), nil
}

func (r *memoryTicketRepository) countWaitingBeforeLocked(id int64) int {
	count := 0
	for _, ticket := range r.tickets {
		if ticket.Status == domain.TicketStatusWaiting && ticket.ID < id {
			count++
		}
	}
	return count
}

func (r *memoryTicketRepository) FindActiveByChannel(_ context.Context, ref string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *domain.Ticket
	for _, ticket := range r.tickets {
		if !ticket.IsActive() || ticket.ChannelRef == nil || *ticket.ChannelRef != ref {
			continue
		}
		if found == nil || ticket.ID < found.ID {
			found = ticket
		}
	}
	if found == nil {
		return nil, pgx.ErrNoRows
	}
	copied := *found
	return &copied, nil
}

func (r *memoryTicketRepository) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tickets[id]; !ok {
		return false, nil
	}
	delete(r.tickets, id)
	return true, nil
}

func (r *memoryTicketRepository) PurgeCompleted(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged int64
	for id, ticket := range r.tickets {
		if ticket.Status == domain.TicketStatusCompleted {
			delete(r.tickets, id)
			purged++
		}
	}
	return purged, nil
}
