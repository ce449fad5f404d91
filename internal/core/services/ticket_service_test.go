package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ticketdesk/ticketdesk/internal/core/domain"
	apperrors "github.com/ticketdesk/ticketdesk/internal/core/errors"
	"github.com/ticketdesk/ticketdesk/internal/core/mocks"
	"github.com/ticketdesk/ticketdesk/internal/core/ports"
	"github.com/ticketdesk/ticketdesk/internal/core/services"
)

var (
	admin = domain.User{ID: "u-admin", Name: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin}
	user  = domain.User{ID: "u-user", Name: "Jordan Reyes", Email: "jordan@example.com", Role: domain.RoleUser}
)

func strPtr(s string) *string { return &s }

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }

func TestTicketService_CreateTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("success captures creator snapshot", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewTicketService(mockRepo, mockBroadcaster)

		mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.Ticket")).
			Return(&domain.Ticket{
				ID:        "t-1",
				Title:     "Printer jammed",
				Status:    domain.StatusOpen,
				CreatedBy: user.Ref(),
			}, nil)
		mockBroadcaster.On("Broadcast", mock.Anything).Return(nil)

		ticket, err := svc.CreateTicket(ctx, ports.CreateTicketParams{
			Title: "Printer jammed",
			Actor: user,
		})

		require.NoError(t, err)
		assert.Equal(t, "t-1", ticket.ID)
		assert.Equal(t, user.Ref(), ticket.CreatedBy)
		assert.Equal(t, domain.StatusOpen, ticket.Status)

		mockRepo.AssertExpectations(t)
		mockBroadcaster.AssertCalled(t, "Broadcast", mock.MatchedBy(func(e domain.Event) bool {
			return e.Type == domain.EventTicketCreated && e.TicketID == "t-1"
		}))
	})

	t.Run("validation error for empty title", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		svc := services.NewTicketService(mockRepo, mocks.NewMockEventBroadcaster())

		ticket, err := svc.CreateTicket(ctx, ports.CreateTicketParams{Title: "", Actor: user})

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrTitleRequired)
		mockRepo.AssertNotCalled(t, "Create")
	})
}

func TestTicketService_ListTickets(t *testing.T) {
	ctx := context.Background()

	t.Run("admin sees all tickets in fetch order", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		svc := services.NewTicketService(mockRepo, nil)

		expected := []*domain.Ticket{
			{ID: "t-1", Title: "First"},
			{ID: "t-2", Title: "Second"},
		}
		mockRepo.On("List", ctx).Return(expected, nil)

		tickets, err := svc.ListTickets(ctx, admin)

		require.NoError(t, err)
		assert.Equal(t, expected, tickets)
		mockRepo.AssertNotCalled(t, "ListByCreatorEmail")
	})

	t.Run("regular user sees only own tickets", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		svc := services.NewTicketService(mockRepo, nil)

		expected := []*domain.Ticket{{ID: "t-1", CreatedBy: user.Ref()}}
		mockRepo.On("ListByCreatorEmail", ctx, user.Email).Return(expected, nil)

		tickets, err := svc.ListTickets(ctx, user)

		require.NoError(t, err)
		assert.Len(t, tickets, 1)
		mockRepo.AssertNotCalled(t, "List")
	})
}

func TestTicketService_UpdateTicket(t *testing.T) {
	ctx := context.Background()

	existing := func() *domain.Ticket {
		return &domain.Ticket{
			ID:        "t-1",
			Title:     "Printer jammed",
			Status:    domain.StatusOpen,
			CreatedBy: user.Ref(),
		}
	}

	t.Run("partial patch leaves other fields untouched", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewTicketService(mockRepo, mockBroadcaster)

		mockRepo.On("GetByID", ctx, "t-1").Return(existing(), nil)
		mockRepo.On("Update", ctx, mock.MatchedBy(func(tk *domain.Ticket) bool {
			return tk.Title == "Printer jammed" && tk.Status == domain.StatusInProgress
		})).Return(&domain.Ticket{ID: "t-1", Title: "Printer jammed", Status: domain.StatusInProgress}, nil)
		mockBroadcaster.On("Broadcast", mock.Anything).Return(nil)

		ticket, err := svc.UpdateTicket(ctx, ports.UpdateTicketParams{
			TicketID: "t-1",
			Status:   statusPtr(domain.StatusInProgress),
			Actor:    admin,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusInProgress, ticket.Status)
		mockRepo.AssertExpectations(t)
	})

	t.Run("closed tickets may be reopened", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		svc := services.NewTicketService(mockRepo, nil)

		closed := existing()
		closed.Status = domain.StatusClosed
		mockRepo.On("GetByID", ctx, "t-1").Return(closed, nil)
		mockRepo.On("Update", ctx, mock.MatchedBy(func(tk *domain.Ticket) bool {
			return tk.Status == domain.StatusOpen
		})).Return(&domain.Ticket{ID: "t-1", Status: domain.StatusOpen}, nil)

		_, err := svc.UpdateTicket(ctx, ports.UpdateTicketParams{
			TicketID: "t-1",
			Status:   statusPtr(domain.StatusOpen),
			Actor:    admin,
		})

		require.NoError(t, err)
	})

	t.Run("unknown status rejected before persisting", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		svc := services.NewTicketService(mockRepo, nil)

		mockRepo.On("GetByID", ctx, "t-1").Return(existing(), nil)

		ticket, err := svc.UpdateTicket(ctx, ports.UpdateTicketParams{
			TicketID: "t-1",
			Status:   statusPtr(domain.TicketStatus("archived")),
			Actor:    admin,
		})

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
		mockRepo.AssertNotCalled(t, "Update")
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		svc := services.NewTicketService(mockRepo, nil)

		ticket, err := svc.UpdateTicket(ctx, ports.UpdateTicketParams{
			TicketID: "t-1",
			Title:    strPtr("New title"),
			Actor:    user,
		})

		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockRepo.AssertNotCalled(t, "GetByID")
	})

	t.Run("ticket not found", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		svc := services.NewTicketService(mockRepo, nil)

		mockRepo.On("GetByID", ctx, "gone").Return(nil, apperrors.ErrTicketNotFound)

		_, err := svc.UpdateTicket(ctx, ports.UpdateTicketParams{
			TicketID: "gone",
			Title:    strPtr("x"),
			Actor:    admin,
		})

		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	})
}

func TestTicketService_DeleteTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("success broadcasts deletion", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewTicketService(mockRepo, mockBroadcaster)

		mockRepo.On("Delete", ctx, "t-2").Return(nil)
		mockBroadcaster.On("Broadcast", mock.MatchedBy(func(e domain.Event) bool {
			return e.Type == domain.EventTicketDeleted && e.TicketID == "t-2" && e.Payload == nil
		})).Return(nil)

		err := svc.DeleteTicket(ctx, "t-2", admin)

		require.NoError(t, err)
		mockBroadcaster.AssertExpectations(t)
	})

	t.Run("already absent", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewTicketService(mockRepo, mockBroadcaster)

		mockRepo.On("Delete", ctx, "gone").Return(apperrors.ErrTicketNotFound)

		err := svc.DeleteTicket(ctx, "gone", admin)

		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
		mockBroadcaster.AssertNotCalled(t, "Broadcast")
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		mockRepo := mocks.NewMockTicketRepository()
		svc := services.NewTicketService(mockRepo, nil)

		err := svc.DeleteTicket(ctx, "t-1", user)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockRepo.AssertNotCalled(t, "Delete")
	})
}
