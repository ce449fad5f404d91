package services

import (
	"context"

	"github.com/ticketdesk/ticketdesk/internal/core/domain"
	apperrors "github.com/ticketdesk/ticketdesk/internal/core/errors"
	"github.com/ticketdesk/ticketdesk/internal/core/ports"
)

// TicketService implements business logic for ticket management.
type TicketService struct {
	ticketRepo  ports.TicketRepository
	broadcaster ports.EventBroadcaster
}

var _ ports.TicketService = (*TicketService)(nil)

// NewTicketService creates a new ticket service.
func NewTicketService(ticketRepo ports.TicketRepository, broadcaster ports.EventBroadcaster) ports.TicketService {
	return &TicketService{
		ticketRepo:  ticketRepo,
		broadcaster: broadcaster,
	}
}

// CreateTicket handles the use case for submitting a new ticket. Any
// authenticated user may submit; the actor is captured as the immutable
// CreatedBy snapshot.
func (s *TicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	ticket, err := domain.NewTicket(params.Title, params.Description, params.Actor.Ref())
	if err != nil {
		return nil, err
	}

	created, err := s.ticketRepo.Create(ctx, ticket)
	if err != nil {
		return nil, err
	}

	s.broadcast(domain.EventTicketCreated, created.ID, created)
	return created, nil
}

// GetTicket retrieves a single ticket. Admins may read any ticket; other
// users only their own.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string, actor domain.User) (*domain.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && ticket.CreatedBy.Email != actor.Email {
		return nil, apperrors.ErrForbidden
	}
	return ticket, nil
}

// ListTickets returns the full collection for admins, in fetch order, and
// the actor's own tickets otherwise.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.User) ([]*domain.Ticket, error) {
	if actor.IsAdmin() {
		return s.ticketRepo.List(ctx)
	}
	return s.ticketRepo.ListByCreatorEmail(ctx, actor.Email)
}

// UpdateTicket applies a partial-or-full patch to a ticket. Admin only.
// Nil patch fields are left untouched; CreatedBy is never writable.
func (s *TicketService) UpdateTicket(ctx context.Context, params ports.UpdateTicketParams) (*domain.Ticket, error) {
	if !params.Actor.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}

	ticket, err := s.ticketRepo.GetByID(ctx, params.TicketID)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		if *params.Title == "" {
			return nil, apperrors.ErrTitleRequired
		}
		if len(*params.Title) > domain.MaxTitleLength {
			return nil, apperrors.ErrTitleTooLong
		}
		ticket.Title = *params.Title
	}

	if params.Description != nil {
		if len(*params.Description) > domain.MaxDescriptionLength {
			return nil, apperrors.ErrDescriptionTooLong
		}
		ticket.Description = *params.Description
	}

	if params.Status != nil {
		if err := ticket.SetStatus(*params.Status); err != nil {
			return nil, err
		}
	}

	switch {
	case params.Unassign:
		ticket.Unassign()
	case params.AssignedTo != nil:
		ticket.Assign(*params.AssignedTo)
	}

	updated, err := s.ticketRepo.Update(ctx, ticket)
	if err != nil {
		return nil, err
	}

	s.broadcast(domain.EventTicketUpdated, updated.ID, updated)
	return updated, nil
}

// DeleteTicket removes a ticket permanently. Admin only.
func (s *TicketService) DeleteTicket(ctx context.Context, ticketID string, actor domain.User) error {
	if !actor.IsAdmin() {
		return apperrors.ErrForbidden
	}

	if err := s.ticketRepo.Delete(ctx, ticketID); err != nil {
		return err
	}

	s.broadcast(domain.EventTicketDeleted, ticketID, nil)
	return nil
}

func (s *TicketService) broadcast(eventType domain.EventType, ticketID string, payload *domain.Ticket) {
	if s.broadcaster == nil {
		return
	}
	_ = s.broadcaster.Broadcast(domain.Event{
		Type:     eventType,
		TicketID: ticketID,
		Payload:  payload,
	})
}
