package ports

import (
	"context"

	"github.com/ticketdesk/ticketdesk/internal/core/domain"
)

// TicketRepository is the port for ticket persistence. The store owns id
// assignment and uniqueness, and refreshes UpdatedAt on every mutation.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// List returns every ticket in fetch order (creation order).
	List(ctx context.Context) ([]*domain.Ticket, error)
	// ListByCreatorEmail returns the tickets authored by the given user.
	ListByCreatorEmail(ctx context.Context, email string) ([]*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	// Delete removes a ticket permanently. No tombstone is retained.
	Delete(ctx context.Context, id string) error
}

// UserRepository is the port for user persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}
