package domain

// EventType identifies a change to the ticket collection.
type EventType string

const (
	EventTicketCreated EventType = "ticket.created"
	EventTicketUpdated EventType = "ticket.updated"
	EventTicketDeleted EventType = "ticket.deleted"
)

// Event is pushed to connected dashboard sessions when the collection
// changes. For deletions the payload is nil and only the TicketID survives.
type Event struct {
	Type     EventType `json:"type"`
	TicketID string    `json:"ticketId"`
	Payload  *Ticket   `json:"payload,omitempty"`
}
