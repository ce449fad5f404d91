package dashboard

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketdesk/ticketdesk/internal/core/domain"
	apperrors "github.com/ticketdesk/ticketdesk/internal/core/errors"
	"github.com/ticketdesk/ticketdesk/internal/ticketstore"
)

// fakeStore is an in-memory stand-in for the remote ticket collection. It
// applies updates and deletes to its own state so refetch behavior can be
// observed end to end.
type fakeStore struct {
	tickets []domain.Ticket

	listErr   error
	updateErr error
	deleteErr error

	listCalls   int
	lastPatch   ticketstore.Patch
	lastPatchID string

	// onUpdate, when set, runs inside UpdateTicket before it returns.
	onUpdate func()
}

func (s *fakeStore) ListTickets(ctx context.Context, credential string) ([]domain.Ticket, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.Ticket, len(s.tickets))
	copy(out, s.tickets)
	return out, nil
}

func (s *fakeStore) UpdateTicket(ctx context.Context, credential, id string, patch ticketstore.Patch) (*domain.Ticket, error) {
	if s.onUpdate != nil {
		s.onUpdate()
	}
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.lastPatch = patch
	s.lastPatchID = id

	for i := range s.tickets {
		if s.tickets[i].ID != id {
			continue
		}
		if patch.Title != nil {
			s.tickets[i].Title = *patch.Title
		}
		if patch.Description != nil {
			s.tickets[i].Description = *patch.Description
		}
		if patch.Status != nil {
			s.tickets[i].Status = *patch.Status
		}
		updated := s.tickets[i]
		return &updated, nil
	}
	return nil, apperrors.ErrTicketNotFound
}

func (s *fakeStore) DeleteTicket(ctx context.Context, credential, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for i := range s.tickets {
		if s.tickets[i].ID == id {
			s.tickets = append(s.tickets[:i], s.tickets[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrTicketNotFound
}

func seedTickets() []domain.Ticket {
	return []domain.Ticket{
		{
			ID: "1", Title: "Urgent fix", Description: "prod is down",
			Status:    domain.StatusOpen,
			CreatedBy: domain.UserRef{Name: "Jordan Reyes", Email: "jordan@example.com"},
		},
		{
			ID: "2", Title: "Replace toner", Description: "",
			Status:    domain.StatusClosed,
			CreatedBy: domain.UserRef{Name: "Avery Chen", Email: "avery@example.com"},
		},
	}
}

func newTestController(store *fakeStore) *Controller {
	session := Session{
		Credential: "admin-token",
		User:       domain.User{ID: "u-admin", Name: "Admin", Role: domain.RoleAdmin},
	}
	return NewController(store, session, slog.New(slog.DiscardHandler))
}

func collect(seq func(yield func(domain.Ticket) bool)) []domain.Ticket {
	var out []domain.Ticket
	seq(func(t domain.Ticket) bool {
		out = append(out, t)
		return true
	})
	return out
}

func TestController_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("success replaces the view wholesale", func(t *testing.T) {
		store := &fakeStore{tickets: seedTickets()}
		c := newTestController(store)

		require.NoError(t, c.Refresh(ctx))
		assert.Equal(t, 2, c.Stats().Total)

		store.tickets = store.tickets[:1]
		require.NoError(t, c.Refresh(ctx))
		assert.Equal(t, 1, c.Stats().Total)
	})

	t.Run("failure leaves the view unchanged", func(t *testing.T) {
		store := &fakeStore{tickets: seedTickets()}
		c := newTestController(store)
		require.NoError(t, c.Refresh(ctx))

		store.listErr = apperrors.ErrTransport
		err := c.Refresh(ctx)

		assert.ErrorIs(t, err, apperrors.ErrTransport)
		assert.Equal(t, 2, c.Stats().Total)
	})
}

func TestController_Stats(t *testing.T) {
	ctx := context.Background()

	store := &fakeStore{tickets: seedTickets()}
	c := newTestController(store)
	require.NoError(t, c.Refresh(ctx))

	stats := c.Stats()
	assert.Equal(t, Stats{Open: 1, InProgress: 0, Closed: 1, Total: 2}, stats)

	// The counts always satisfy open + inprogress + closed == total and
	// agree with the visible set.
	assert.Equal(t, stats.Total, stats.Open+stats.InProgress+stats.Closed)
	assert.Len(t, collect(c.VisibleTickets()), stats.Total)
}

func TestController_VisibleTickets(t *testing.T) {
	ctx := context.Background()

	store := &fakeStore{tickets: seedTickets()}
	c := newTestController(store)
	require.NoError(t, c.Refresh(ctx))

	t.Run("empty term yields everything in fetch order", func(t *testing.T) {
		got := collect(c.VisibleTickets())
		require.Len(t, got, 2)
		assert.Equal(t, "1", got[0].ID)
		assert.Equal(t, "2", got[1].ID)
	})

	t.Run("case-insensitive substring over title", func(t *testing.T) {
		c.SetSearchTerm("urgent")
		got := collect(c.VisibleTickets())
		require.Len(t, got, 1)
		assert.Equal(t, "1", got[0].ID)
	})

	t.Run("matches creator name", func(t *testing.T) {
		c.SetSearchTerm("avery")
		got := collect(c.VisibleTickets())
		require.Len(t, got, 1)
		assert.Equal(t, "2", got[0].ID)
	})

	t.Run("non-matching term yields nothing", func(t *testing.T) {
		c.SetSearchTerm("zzz-no-such")
		assert.Empty(t, collect(c.VisibleTickets()))
	})

	t.Run("sequence is restartable", func(t *testing.T) {
		c.SetSearchTerm("")
		seq := c.VisibleTickets()
		assert.Len(t, collect(seq), 2)
		assert.Len(t, collect(seq), 2)
	})

	t.Run("early break stops iteration", func(t *testing.T) {
		c.SetSearchTerm("")
		var seen int
		for range c.VisibleTickets() {
			seen++
			break
		}
		assert.Equal(t, 1, seen)
	})
}

func TestController_EditLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("begin edit copies without touching the view", func(t *testing.T) {
		store := &fakeStore{tickets: seedTickets()}
		c := newTestController(store)
		require.NoError(t, c.Refresh(ctx))

		require.NoError(t, c.BeginEdit("1"))
		require.NoError(t, c.SetTitle("Urgent fix (escalated)"))

		selected, ok := c.Selected()
		require.True(t, ok)
		assert.Equal(t, "Urgent fix (escalated)", selected.Title)

		// The view still holds the original title.
		got := collect(c.VisibleTickets())
		assert.Equal(t, "Urgent fix", got[0].Title)
	})

	t.Run("begin edit of unknown ticket", func(t *testing.T) {
		store := &fakeStore{tickets: seedTickets()}
		c := newTestController(store)
		require.NoError(t, c.Refresh(ctx))

		assert.ErrorIs(t, c.BeginEdit("nope"), apperrors.ErrTicketNotFound)
	})

	t.Run("mutating without a selection", func(t *testing.T) {
		c := newTestController(&fakeStore{})

		assert.ErrorIs(t, c.SetTitle("x"), apperrors.ErrNoSelection)
		assert.ErrorIs(t, c.SetDescription("x"), apperrors.ErrNoSelection)
		assert.ErrorIs(t, c.SetStatus(domain.StatusOpen), apperrors.ErrNoSelection)
		assert.ErrorIs(t, c.CommitEdit(context.Background()), apperrors.ErrNoSelection)
	})

	t.Run("every status reachable from every status", func(t *testing.T) {
		store := &fakeStore{tickets: seedTickets()}
		c := newTestController(store)
		require.NoError(t, c.Refresh(ctx))

		// Ticket 2 is closed; reopening is allowed.
		require.NoError(t, c.BeginEdit("2"))
		assert.NoError(t, c.SetStatus(domain.StatusOpen))
		assert.NoError(t, c.SetStatus(domain.StatusInProgress))
		assert.NoError(t, c.SetStatus(domain.StatusClosed))
		assert.NoError(t, c.SetStatus(domain.StatusOpen))
	})

	t.Run("unknown status rejected on the working copy", func(t *testing.T) {
		store := &fakeStore{tickets: seedTickets()}
		c := newTestController(store)
		require.NoError(t, c.Refresh(ctx))
		require.NoError(t, c.BeginEdit("1"))

		assert.ErrorIs(t, c.SetStatus(domain.TicketStatus("archived")), apperrors.ErrInvalidStatus)

		selected, _ := c.Selected()
		assert.Equal(t, domain.StatusOpen, selected.Status)
	})

	t.Run("cancel edit discards the working copy", func(t *testing.T) {
		store := &fakeStore{tickets: seedTickets()}
		c := newTestController(store)
		require.NoError(t, c.Refresh(ctx))
		require.NoError(t, c.BeginEdit("1"))

		c.CancelEdit()
		_, ok := c.Selected()
		assert.False(t, ok)
	})
}

func TestController_CommitEdit(t *testing.T) {
	ctx := context.Background()

	t.Run("success refetches and clears the selection", func(t *testing.T) {
		store := &fakeStore{tickets: seedTickets()}
		c := newTestController(store)
		require.NoError(t, c.Refresh(ctx))

		require.NoError(t, c.BeginEdit("1"))
		require.NoError(t, c.SetStatus(domain.StatusInProgress))

		listCallsBefore := store.listCalls
		require.NoError(t, c.CommitEdit(ctx))

		// Full-field patch goes out.
		assert.Equal(t, "1", store.lastPatchID)
		require.NotNil(t, store.lastPatch.Title)
		require.NotNil(t, store.lastPatch.Status)
		assert.Equal(t, domain.StatusInProgress, *store.lastPatch.Status)

		// The view was refetched, not patched locally.
		assert.Equal(t, listCallsBefore+1, store.listCalls)
		got := collect(c.VisibleTickets())
		assert.Equal(t, domain.StatusInProgress, got[0].Status)

		_, ok := c.Selected()
		assert.False(t, ok)
	})

	t.Run("idempotent recommit of unchanged values", func(t *testing.T) {
		store := &fakeStore{tickets: seedTickets()}
		c := newTestController(store)
		require.NoError(t, c.Refresh(ctx))

		require.NoError(t, c.BeginEdit("1"))
		require.NoError(t, c.CommitEdit(ctx))
		require.NoError(t, c.BeginEdit("1"))
		require.NoError(t, c.CommitEdit(ctx))

		got := collect(c.VisibleTickets())
		assert.Equal(t, "Urgent fix", got[0].Title)
		assert.Equal(t, domain.StatusOpen, got[0].Status)
	})

	t.Run("failure keeps the working copy and the view", func(t *testing.T) {
		store := &fakeStore{tickets: seedTickets()}
		c := newTestController(store)
		require.NoError(t, c.Refresh(ctx))

		require.NoError(t, c.BeginEdit("1"))
		require.NoError(t, c.SetTitle("Attempted edit"))
		store.updateErr = apperrors.ErrBadRequest

		err := c.CommitEdit(ctx)
		assert.ErrorIs(t, err, apperrors.ErrBadRequest)

		selected, ok := c.Selected()
		require.True(t, ok)
		assert.Equal(t, "Attempted edit", selected.Title)

		got := collect(c.VisibleTickets())
		assert.Equal(t, "Urgent fix", got[0].Title)
	})

	t.Run("duplicate commit rejected while one is in flight", func(t *testing.T) {
		store := &fakeStore{tickets: seedTickets()}
		c := newTestController(store)
		require.NoError(t, c.Refresh(ctx))
		require.NoError(t, c.BeginEdit("1"))

		var reentrant error
		store.onUpdate = func() {
			reentrant = c.CommitEdit(ctx)
		}

		require.NoError(t, c.CommitEdit(ctx))
		assert.ErrorIs(t, reentrant, apperrors.ErrCommitPending)
	})
}

func TestController_Remove(t *testing.T) {
	ctx := context.Background()

	t.Run("requires confirmation", func(t *testing.T) {
		store := &fakeStore{tickets: seedTickets()}
		c := newTestController(store)
		require.NoError(t, c.Refresh(ctx))

		err := c.Remove(ctx, "2", false)
		assert.ErrorIs(t, err, apperrors.ErrNotConfirmed)
		assert.Equal(t, 2, c.Stats().Total)
		assert.Len(t, store.tickets, 2)
	})

	t.Run("confirmed removal refetches", func(t *testing.T) {
		store := &fakeStore{tickets: seedTickets()}
		c := newTestController(store)
		require.NoError(t, c.Refresh(ctx))

		require.NoError(t, c.Remove(ctx, "2", true))

		stats := c.Stats()
		assert.Equal(t, 1, stats.Total)
		got := collect(c.VisibleTickets())
		require.Len(t, got, 1)
		assert.Equal(t, "1", got[0].ID)
	})

	t.Run("failure leaves the view alone", func(t *testing.T) {
		store := &fakeStore{tickets: seedTickets()}
		c := newTestController(store)
		require.NoError(t, c.Refresh(ctx))

		store.deleteErr = apperrors.ErrServer
		err := c.Remove(ctx, "2", true)

		assert.ErrorIs(t, err, apperrors.ErrServer)
		assert.Equal(t, 2, c.Stats().Total)
	})

	t.Run("already absent surfaces not found", func(t *testing.T) {
		store := &fakeStore{tickets: seedTickets()}
		c := newTestController(store)
		require.NoError(t, c.Refresh(ctx))

		err := c.Remove(ctx, "gone", true)
		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	})
}
