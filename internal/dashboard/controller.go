// Package dashboard owns the administrator's in-memory view of the ticket
// collection. Every mutation goes through a strict "mutate, then refetch"
// protocol: after a successful write the whole collection is re-read from the
// store, so the local view never drifts from server-authoritative state.
package dashboard

import (
	"context"
	"iter"
	"log/slog"
	"strings"
	"sync"

	"github.com/ticketdesk/ticketdesk/internal/core/domain"
	apperrors "github.com/ticketdesk/ticketdesk/internal/core/errors"
	"github.com/ticketdesk/ticketdesk/internal/ticketstore"
)

// Store is the subset of the ticket store client the controller needs.
type Store interface {
	ListTickets(ctx context.Context, credential string) ([]domain.Ticket, error)
	UpdateTicket(ctx context.Context, credential, id string, patch ticketstore.Patch) (*domain.Ticket, error)
	DeleteTicket(ctx context.Context, credential, id string) error
}

// Session carries the authenticated identity a controller acts under. It is
// explicit construction-time state; the controller never consults globals.
type Session struct {
	Credential string
	User       domain.User
}

// Stats are the aggregate counts shown to the operator. They are derived
// from the current view on every read, never stored.
type Stats struct {
	Open       int
	InProgress int
	Closed     int
	Total      int
}

// Controller mediates between the operator and the ticket store. It is a
// single logical actor: a mutex serializes state transitions, and at most
// one commit may be in flight at a time.
type Controller struct {
	store   Store
	session Session
	logger  *slog.Logger

	mu         sync.Mutex
	tickets    []domain.Ticket
	selected   *domain.Ticket
	searchTerm string
	committing bool
}

// NewController creates a controller bound to one session. The view starts
// empty; call Refresh to populate it.
func NewController(store Store, session Session, logger *slog.Logger) *Controller {
	return &Controller{
		store:   store,
		session: session,
		logger:  logger.With("component", "dashboard"),
	}
}

// Session returns the session the controller was constructed with.
func (c *Controller) Session() Session {
	return c.session
}

// Refresh re-reads the full collection from the store. On success the view
// is replaced wholesale; on any error the view is left untouched and the
// error is returned to the caller.
func (c *Controller) Refresh(ctx context.Context) error {
	tickets, err := c.store.ListTickets(ctx, c.session.Credential)
	if err != nil {
		c.logger.Error("refresh failed", "error", err)
		return err
	}

	c.mu.Lock()
	c.tickets = tickets
	c.mu.Unlock()
	return nil
}

// BeginEdit copies the ticket with the given id from the current view into
// the working copy. The view itself is not touched until CommitEdit.
func (c *Controller) BeginEdit(ticketID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ticket := range c.tickets {
		if ticket.ID == ticketID {
			copied := ticket
			c.selected = &copied
			return nil
		}
	}
	return apperrors.ErrTicketNotFound
}

// CancelEdit discards the working copy without touching the store.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = nil
}

// Selected returns a copy of the working copy, or false when no edit is in
// progress.
func (c *Controller) Selected() (domain.Ticket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected == nil {
		return domain.Ticket{}, false
	}
	return *c.selected, true
}

// SetTitle updates the working copy's title. Remote state and the view are
// unaffected until CommitEdit.
func (c *Controller) SetTitle(title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected == nil {
		return apperrors.ErrNoSelection
	}
	c.selected.Title = title
	return nil
}

// SetDescription updates the working copy's description.
func (c *Controller) SetDescription(description string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected == nil {
		return apperrors.ErrNoSelection
	}
	c.selected.Description = description
	return nil
}

// SetStatus updates the working copy's status. Any of the three states may
// be chosen regardless of the current one; only membership is checked.
func (c *Controller) SetStatus(status domain.TicketStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected == nil {
		return apperrors.ErrNoSelection
	}
	return c.selected.SetStatus(status)
}

// CommitEdit sends the working copy's fields to the store. On success the
// view is refreshed from the store and the working copy is cleared. On
// failure the working copy is kept so the operator can correct and retry.
// A second commit while one is in flight is rejected.
func (c *Controller) CommitEdit(ctx context.Context) error {
	c.mu.Lock()
	if c.selected == nil {
		c.mu.Unlock()
		return apperrors.ErrNoSelection
	}
	if c.committing {
		c.mu.Unlock()
		return apperrors.ErrCommitPending
	}
	c.committing = true
	selected := *c.selected
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.committing = false
		c.mu.Unlock()
	}()

	// Full-field patch: the store tolerates either a sparse or a complete
	// object, and sending everything keeps the commit independent of which
	// fields the operator touched.
	patch := ticketstore.Patch{
		Title:       &selected.Title,
		Description: &selected.Description,
		Status:      &selected.Status,
	}

	if _, err := c.store.UpdateTicket(ctx, c.session.Credential, selected.ID, patch); err != nil {
		c.logger.Error("commit failed", "ticket_id", selected.ID, "error", err)
		return err
	}

	c.mu.Lock()
	c.selected = nil
	c.mu.Unlock()

	// The write is durable at this point; a failed refresh leaves the view
	// stale, not inconsistent, and the next refresh resolves it.
	return c.Refresh(ctx)
}

// Remove deletes a ticket permanently. Deletion must be explicitly confirmed
// by the operator; an unconfirmed call is rejected before any request is
// made. On success the view is refreshed; on failure nothing changes.
func (c *Controller) Remove(ctx context.Context, ticketID string, confirmed bool) error {
	if !confirmed {
		return apperrors.ErrNotConfirmed
	}

	if err := c.store.DeleteTicket(ctx, c.session.Credential, ticketID); err != nil {
		c.logger.Error("remove failed", "ticket_id", ticketID, "error", err)
		return err
	}

	return c.Refresh(ctx)
}

// SetSearchTerm updates the filter. No remote call is made.
func (c *Controller) SetSearchTerm(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchTerm = term
}

// VisibleTickets returns a lazy, restartable sequence of the tickets whose
// title, description, or creator name contains the search term as a
// case-insensitive substring. An empty term matches everything. Order is the
// fetch order of the last refresh. The sequence iterates over a snapshot, so
// it stays stable even if the view is refreshed mid-iteration.
func (c *Controller) VisibleTickets() iter.Seq[domain.Ticket] {
	c.mu.Lock()
	tickets := make([]domain.Ticket, len(c.tickets))
	copy(tickets, c.tickets)
	term := strings.ToLower(c.searchTerm)
	c.mu.Unlock()

	return func(yield func(domain.Ticket) bool) {
		for _, ticket := range tickets {
			if !matches(ticket, term) {
				continue
			}
			if !yield(ticket) {
				return
			}
		}
	}
}

func matches(ticket domain.Ticket, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(ticket.Title), term) ||
		strings.Contains(strings.ToLower(ticket.Description), term) ||
		strings.Contains(strings.ToLower(ticket.CreatedBy.Name), term)
}

// Stats counts the current view in a single pass. The counts always agree
// with the view because they are recomputed on every call.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stats Stats
	for _, ticket := range c.tickets {
		switch ticket.Status {
		case domain.StatusOpen:
			stats.Open++
		case domain.StatusInProgress:
			stats.InProgress++
		case domain.StatusClosed:
			stats.Closed++
		}
		stats.Total++
	}
	return stats
}
