// Package ticketstore is the HTTP client for the remote ticket collection.
// It performs exactly one outbound request per call and keeps no cache;
// ownership of the local view belongs to the dashboard controller.
package ticketstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ticketdesk/ticketdesk/internal/core/domain"
	apperrors "github.com/ticketdesk/ticketdesk/internal/core/errors"
)

const defaultTimeout = 15 * time.Second

// Patch is a partial update to a ticket. Nil fields are omitted from the
// request body and left untouched by the store.
type Patch struct {
	Title       *string              `json:"title,omitempty"`
	Description *string              `json:"description,omitempty"`
	Status      *domain.TicketStatus `json:"status,omitempty"`
}

// Client talks to the ticket API. The credential is supplied per call, not
// held by the client, so one client can serve several sessions.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a ticket store client for the given API base URL
// (e.g. "http://localhost:8080/api/v1"). A nil httpClient gets a default
// with a request timeout.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger.With("component", "ticketstore"),
	}
}

// ticketWire mirrors the API's ticket JSON shape.
type ticketWire struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      string       `json:"status"`
	CreatedBy   userRefWire  `json:"createdBy"`
	AssignedTo  *userRefWire `json:"assignedTo"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type userRefWire struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (w ticketWire) toDomain() domain.Ticket {
	ticket := domain.Ticket{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Status:      domain.TicketStatus(w.Status),
		CreatedBy:   domain.UserRef{Name: w.CreatedBy.Name, Email: w.CreatedBy.Email},
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
	if w.AssignedTo != nil {
		ticket.AssignedTo = &domain.UserRef{Name: w.AssignedTo.Name, Email: w.AssignedTo.Email}
	}
	return ticket
}

// ListTickets fetches the full collection in the store's order.
func (c *Client) ListTickets(ctx context.Context, credential string) ([]domain.Ticket, error) {
	resp, err := c.do(ctx, credential, http.MethodGet, "/tickets", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var wires []ticketWire
	if err := json.NewDecoder(resp.Body).Decode(&wires); err != nil {
		return nil, fmt.Errorf("%w: decoding ticket list: %v", apperrors.ErrServer, err)
	}

	tickets := make([]domain.Ticket, 0, len(wires))
	for _, w := range wires {
		tickets = append(tickets, w.toDomain())
	}
	return tickets, nil
}

// UpdateTicket applies a partial update and returns the store's updated
// ticket. An unknown status is rejected locally before any request is made.
func (c *Client) UpdateTicket(ctx context.Context, credential, id string, patch Patch) (*domain.Ticket, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperrors.ErrInvalidStatus
	}

	body, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, credential, http.MethodPut, "/tickets/"+id, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var wire ticketWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: decoding ticket: %v", apperrors.ErrServer, err)
	}
	ticket := wire.toDomain()
	return &ticket, nil
}

// DeleteTicket removes a ticket permanently.
func (c *Client) DeleteTicket(ctx context.Context, credential, id string) error {
	resp, err := c.do(ctx, credential, http.MethodDelete, "/tickets/"+id, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	return c.checkStatus(resp)
}

// do issues a single request with the bearer credential attached. Network
// failures surface as ErrTransport.
func (c *Client) do(ctx context.Context, credential, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+credential)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTransport, err)
	}
	return resp, nil
}

// checkStatus normalizes non-success responses into the error taxonomy.
func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	message := c.errorMessage(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, message)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", apperrors.ErrTicketNotFound, message)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", apperrors.ErrBadRequest, message)
	default:
		return fmt.Errorf("%w: status %d: %s", apperrors.ErrServer, resp.StatusCode, message)
	}
}

// errorMessage extracts the error field from a JSON error body, if any.
func (c *Client) errorMessage(resp *http.Response) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return resp.Status
}
