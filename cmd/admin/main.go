// Command admin is the operator's terminal dashboard for the ticket service.
// It authenticates against the API, pulls the full ticket collection, and
// drives edits and deletions through the dashboard controller.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/ticketdesk/ticketdesk/internal/core/domain"
	"github.com/ticketdesk/ticketdesk/internal/dashboard"
	"github.com/ticketdesk/ticketdesk/internal/ticketstore"
)

const usage = `Usage: admin [flags] <command> [args]

Commands:
  list                 list tickets, optionally filtered with --search
  stats                show ticket counts by status
  edit <ticket-id>     update a ticket; pass --title, --description, --status
  delete <ticket-id>   delete a ticket; requires --yes

Flags:
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		apiURL   = pflag.String("api-url", "http://localhost:8080/api/v1", "base URL of the ticket API")
		token    = pflag.String("token", "", "bearer token; when set, login is skipped")
		email    = pflag.String("email", "", "account email for login")
		password = pflag.String("password", "", "account password for login")

		search      = pflag.String("search", "", "filter tickets by title, description, or creator name")
		title       = pflag.String("title", "", "new title for edit")
		description = pflag.String("description", "", "new description for edit")
		status      = pflag.String("status", "", "new status for edit: open, inprogress, or closed")
		yes         = pflag.Bool("yes", false, "confirm deletion")
		verbose     = pflag.BoolP("verbose", "v", false, "enable debug logging")
	)

	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	args := pflag.Args()
	if len(args) == 0 {
		pflag.Usage()
		return fmt.Errorf("no command given")
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session, err := establishSession(ctx, *apiURL, *token, *email, *password, logger)
	if err != nil {
		return err
	}

	store := ticketstore.NewClient(*apiURL, nil, logger)
	controller := dashboard.NewController(store, session, logger)

	if err := controller.Refresh(ctx); err != nil {
		return fmt.Errorf("loading tickets: %w", err)
	}
	controller.SetSearchTerm(*search)

	switch cmd := args[0]; cmd {
	case "list":
		return printTickets(controller)

	case "stats":
		return printStats(controller)

	case "edit":
		if len(args) < 2 {
			return fmt.Errorf("edit requires a ticket id")
		}
		if err := editTicket(ctx, controller, args[1], *title, *description, *status); err != nil {
			return err
		}
		return printTickets(controller)

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("delete requires a ticket id")
		}
		if err := controller.Remove(ctx, args[1], *yes); err != nil {
			return err
		}
		fmt.Println("deleted", args[1])
		return printStats(controller)

	default:
		pflag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// establishSession exchanges credentials for a bearer token, or adopts a
// pre-issued token directly.
func establishSession(ctx context.Context, apiURL, token, email, password string, logger *slog.Logger) (dashboard.Session, error) {
	if token != "" {
		return dashboard.Session{Credential: token}, nil
	}
	if email == "" || password == "" {
		return dashboard.Session{}, fmt.Errorf("either --token or --email and --password are required")
	}

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return dashboard.Session{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return dashboard.Session{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return dashboard.Session{}, fmt.Errorf("login request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return dashboard.Session{}, fmt.Errorf("login rejected: %s", resp.Status)
	}

	var payload struct {
		Token string `json:"token"`
		User  struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return dashboard.Session{}, fmt.Errorf("decoding login response: %w", err)
	}

	logger.Debug("logged in", "user", payload.User.Email, "role", payload.User.Role)

	return dashboard.Session{
		Credential: payload.Token,
		User: domain.User{
			ID:    payload.User.ID,
			Name:  payload.User.Name,
			Email: payload.User.Email,
			Role:  domain.Role(payload.User.Role),
		},
	}, nil
}

// editTicket stages the requested field changes on a working copy and commits
// them. Fields left empty on the command line are sent unchanged.
func editTicket(ctx context.Context, controller *dashboard.Controller, ticketID, title, description, status string) error {
	if err := controller.BeginEdit(ticketID); err != nil {
		return err
	}

	if pflag.Lookup("title").Changed {
		if err := controller.SetTitle(title); err != nil {
			return err
		}
	}
	if pflag.Lookup("description").Changed {
		if err := controller.SetDescription(description); err != nil {
			return err
		}
	}
	if status != "" {
		if err := controller.SetStatus(domain.TicketStatus(status)); err != nil {
			controller.CancelEdit()
			return err
		}
	}

	return controller.CommitEdit(ctx)
}

func printTickets(controller *dashboard.Controller) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tTITLE\tCREATED BY\tASSIGNED TO\tUPDATED")

	for ticket := range controller.VisibleTickets() {
		assignee := "-"
		if ticket.AssignedTo != nil {
			assignee = ticket.AssignedTo.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			ticket.ID,
			ticket.Status,
			ticket.Title,
			ticket.CreatedBy.Name,
			assignee,
			ticket.UpdatedAt.Format(time.RFC3339),
		)
	}
	return w.Flush()
}

func printStats(controller *dashboard.Controller) error {
	stats := controller.Stats()
	fmt.Printf("open: %d  inprogress: %d  closed: %d  total: %d\n",
		stats.Open, stats.InProgress, stats.Closed, stats.Total)
	return nil
}
