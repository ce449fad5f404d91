package domain

import (
	"time"

	apperrors "github.com/ticketdesk/ticketdesk/internal/core/errors"
)

// Field length limits enforced on ticket creation and update.
const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 10000
)

// TicketStatus represents the possible states of a ticket.
type TicketStatus string

const (
	StatusOpen       TicketStatus = "open"
	StatusInProgress TicketStatus = "inprogress"
	StatusClosed     TicketStatus = "closed"
)

// Valid reports whether the status is one of the three known states.
func (s TicketStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// ParseStatus converts a raw string into a TicketStatus.
func ParseStatus(s string) (TicketStatus, error) {
	status := TicketStatus(s)
	if !status.Valid() {
		return "", apperrors.ErrInvalidStatus
	}
	return status, nil
}

// UserRef is a denormalized snapshot of a user taken at the time a ticket
// references them. It is not a live link; the referenced user may change or
// disappear without affecting the ticket.
type UserRef struct {
	Name  string
	Email string
}

// Ticket is the core domain entity. The ID is an opaque string assigned by
// the store at creation; callers must not assume any structure in it.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Status      TicketStatus
	CreatedBy   UserRef
	AssignedTo  *UserRef
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTicket is a factory function to create a valid new ticket. The ID is
// left empty; the store assigns it on insert. CreatedBy is captured once and
// never changes afterwards.
func NewTicket(title, description string, createdBy UserRef) (*Ticket, error) {
	if title == "" {
		return nil, apperrors.ErrTitleRequired
	}
	if len(title) > MaxTitleLength {
		return nil, apperrors.ErrTitleTooLong
	}
	if len(description) > MaxDescriptionLength {
		return nil, apperrors.ErrDescriptionTooLong
	}

	now := time.Now().UTC()
	return &Ticket{
		Title:       title,
		Description: description,
		Status:      StatusOpen,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SetStatus changes the ticket's status. Every state is reachable from every
// other state, including reopening a closed ticket: triage is a human
// decision and the administrator must be able to correct mistakes freely.
// Only membership in the three known states is enforced.
func (t *Ticket) SetStatus(newStatus TicketStatus) error {
	if !newStatus.Valid() {
		return apperrors.ErrInvalidStatus
	}
	t.Status = newStatus
	return nil
}

// Assign sets or replaces the handling user.
func (t *Ticket) Assign(assignee UserRef) {
	ref := assignee
	t.AssignedTo = &ref
}

// Unassign clears the handling user.
func (t *Ticket) Unassign() {
	t.AssignedTo = nil
}
