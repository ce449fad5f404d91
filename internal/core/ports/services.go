package ports

import (
	"context"
	"time"

	"github.com/ticketdesk/ticketdesk/internal/core/domain"
)

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, params domain.UserRegistrationParams) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
}

// CreateTicketParams defines the required input for creating a new ticket.
// The actor becomes the immutable CreatedBy snapshot.
type CreateTicketParams struct {
	Title       string
	Description string
	Actor       domain.User
}

// UpdateTicketParams defines the input for patching a ticket. Nil fields are
// left untouched, so a caller may send a changed subset or the full object.
type UpdateTicketParams struct {
	TicketID    string
	Title       *string
	Description *string
	Status      *domain.TicketStatus
	AssignedTo  *domain.UserRef
	Unassign    bool
	Actor       domain.User
}

// TicketService defines the core business operations for managing tickets.
type TicketService interface {
	CreateTicket(ctx context.Context, params CreateTicketParams) (*domain.Ticket, error)
	GetTicket(ctx context.Context, ticketID string, actor domain.User) (*domain.Ticket, error)
	// ListTickets returns the whole collection for admins and the actor's
	// own tickets otherwise, in fetch order.
	ListTickets(ctx context.Context, actor domain.User) ([]*domain.Ticket, error)
	UpdateTicket(ctx context.Context, params UpdateTicketParams) (*domain.Ticket, error)
	DeleteTicket(ctx context.Context, ticketID string, actor domain.User) error
}

// EventBroadcaster defines the port for pushing collection change events to
// connected sessions.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}

// TokenRevoker defines the port for the logout denylist. Implementations
// must treat an unknown token as not revoked.
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}
