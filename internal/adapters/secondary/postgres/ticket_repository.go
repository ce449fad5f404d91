package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketdesk/ticketdesk/internal/core/domain"
	apperrors "github.com/ticketdesk/ticketdesk/internal/core/errors"
	"github.com/ticketdesk/ticketdesk/internal/core/ports"
)

// TicketRepository is the secondary adapter for ticket persistence.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// Ensure TicketRepository implements the ports.TicketRepository interface.
var _ ports.TicketRepository = (*TicketRepository)(nil)

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) ports.TicketRepository {
	return &TicketRepository{pool: pool}
}

const ticketColumns = `id, title, description, status,
	created_by_name, created_by_email,
	assigned_to_name, assigned_to_email,
	created_at, updated_at`

// ticketRow mirrors a tickets table row before mapping into the domain model.
type ticketRow struct {
	ID              string
	Title           string
	Description     string
	Status          string
	CreatedByName   string
	CreatedByEmail  string
	AssignedToName  *string
	AssignedToEmail *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var r ticketRow
	err := row.Scan(
		&r.ID, &r.Title, &r.Description, &r.Status,
		&r.CreatedByName, &r.CreatedByEmail,
		&r.AssignedToName, &r.AssignedToEmail,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return mapRowToDomain(r), nil
}

func mapRowToDomain(r ticketRow) *domain.Ticket {
	ticket := &domain.Ticket{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Status:      domain.TicketStatus(r.Status),
		CreatedBy: domain.UserRef{
			Name:  r.CreatedByName,
			Email: r.CreatedByEmail,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}

	if r.AssignedToName != nil && r.AssignedToEmail != nil {
		ticket.AssignedTo = &domain.UserRef{
			Name:  *r.AssignedToName,
			Email: *r.AssignedToEmail,
		}
	}

	return ticket
}

func assigneeColumns(ticket *domain.Ticket) (name, email *string) {
	if ticket.AssignedTo != nil {
		name = &ticket.AssignedTo.Name
		email = &ticket.AssignedTo.Email
	}
	return name, email
}

// Create persists a new ticket entity.
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	query := `
		INSERT INTO tickets (title, description, status, created_by_name, created_by_email, assigned_to_name, assigned_to_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + ticketColumns

	assignedName, assignedEmail := assigneeColumns(ticket)
	row := r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		string(ticket.Status),
		ticket.CreatedBy.Name,
		ticket.CreatedBy.Email,
		assignedName,
		assignedEmail,
	)
	return scanTicket(row)
}

// GetByID retrieves a single ticket by its ID.
func (r *TicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

// List retrieves all tickets in creation order, oldest first. The dashboard
// relies on this ordering staying stable across refreshes.
func (r *TicketRepository) List(ctx context.Context) ([]*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTickets(rows)
}

// ListByCreatorEmail retrieves tickets created by a specific user, oldest first.
func (r *TicketRepository) ListByCreatorEmail(ctx context.Context, email string) ([]*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE created_by_email = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTickets(rows)
}

func collectTickets(rows pgx.Rows) ([]*domain.Ticket, error) {
	tickets := make([]*domain.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

// Update persists changes to an existing ticket entity. The database owns
// updated_at so every successful write moves it forward.
func (r *TicketRepository) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	query := `
		UPDATE tickets
		SET title = $2, description = $3, status = $4, assigned_to_name = $5, assigned_to_email = $6, updated_at = now()
		WHERE id = $1
		RETURNING ` + ticketColumns

	assignedName, assignedEmail := assigneeColumns(ticket)
	updated, err := scanTicket(r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		string(ticket.Status),
		assignedName,
		assignedEmail,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return updated, nil
}

// Delete removes a ticket permanently.
func (r *TicketRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTicketNotFound
	}
	return nil
}
