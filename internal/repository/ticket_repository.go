package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/waitlist-service/internal/domain"
)

// ErrStatusConflict is returned by TransitionStatus when the ticket exists
// but is not in the expected source status.
var ErrStatusConflict = errors.New("ticket status conflict")

// TicketRepository encapsulates ticket persistence. Missing tickets are
// reported as pgx.ErrNoRows by every implementation.
type TicketRepository interface {
	// Create assigns the next id and CreatedAt and stores the ticket with
	// status waiting. Ids are strictly increasing and never reused.
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// UpdateStatus writes the status unconditionally. Transition validity
	// is the queue service's responsibility, not the store's.
	UpdateStatus(ctx context.Context, id int64, status domain.TicketStatus) (*domain.Ticket, error)
	// TransitionStatus atomically moves the ticket from one status to
	// another. When several callers race on the same ticket exactly one
	// succeeds; the rest observe ErrStatusConflict.
	TransitionStatus(ctx context.Context, id int64, from, to domain.TicketStatus) (*domain.Ticket, error)
	// LinkChannel binds a notification channel, first link wins. It returns
	// false without modifying anything when the ticket is missing or a
	// channel is already bound.
	LinkChannel(ctx context.Context, id int64, ref string) (bool, error)
	ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error)
	CountWaiting(ctx context.Context) (int, error)
	// CountWaitingBefore counts waiting tickets with a smaller id; the
	// caller's 1-based position is that count plus one.
	CountWaitingBefore(ctx context.Context, id int64) (int, error)
	// FindActiveByChannel returns the oldest waiting or called ticket
	// linked to the given channel ref.
	FindActiveByChannel(ctx context.Context, ref string) (*domain.Ticket, error)
	Delete(ctx context.Context, id int64) (bool, error)
	PurgeCompleted(ctx context.Context) (int64, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = "id, name, phone, party_size, status, channel_ref, created_at"

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (name, phone, party_size, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`
	ticket.Status = domain.TicketStatusWaiting
	return r.pool.QueryRow(ctx, query,
		ticket.Name,
		ticket.Phone,
		ticket.PartySize,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id int64, status domain.TicketStatus) (*domain.Ticket, error) {
	const query = `UPDATE tickets SET status=$1 WHERE id=$2 RETURNING ` + ticketColumns
	return r.fetchSingle(ctx, query, status, id)
}

func (r *ticketRepository) TransitionStatus(ctx context.Context, id int64, from, to domain.TicketStatus) (*domain.Ticket, error) {
	const query = `UPDATE tickets SET status=$1 WHERE id=$2 AND status=$3 RETURNING ` + ticketColumns
	ticket, err := r.fetchSingle(ctx, query, to, id, from)
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	// Distinguish a missing ticket from a lost transition race.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrStatusConflict
}

func (r *ticketRepository) LinkChannel(ctx context.Context, id int64, ref string) (bool, error) {
	const query = `UPDATE tickets SET channel_ref=$1 WHERE id=$2 AND channel_ref IS NULL`
	cmd, err := r.pool.Exec(ctx, query, ref, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE status=$1 ORDER BY id`
	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountWaiting(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE status=$1`
	var count int
	err := r.pool.QueryRow(ctx, query, domain.TicketStatusWaiting).Scan(&count)
	return count, err
}

func (r *ticketRepository) CountWaitingBefore(ctx context.Context, id int64) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE status=$1 AND id < $2`
	var count int
	err := r.pool.QueryRow(ctx, query, domain.TicketStatusWaiting, id).Scan(&count)
	return count, err
}

func (r *ticketRepository) FindActiveByChannel(ctx context.Context, ref string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets
        WHERE channel_ref=$1 AND status IN ($2, $3) ORDER BY id LIMIT 1`
	return r.fetchSingle(ctx, query, ref, domain.TicketStatusWaiting, domain.TicketStatusCalled)
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) PurgeCompleted(ctx context.Context) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE status=$1`, domain.TicketStatusCompleted)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&ticket.ID,
		&ticket.Name,
		&ticket.Phone,
		&ticket.PartySize,
		&ticket.Status,
		&ticket.ChannelRef,
		&ticket.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Name,
			&ticket.Phone,
			&ticket.PartySize,
			&ticket.Status,
			&ticket.ChannelRef,
			&ticket.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
