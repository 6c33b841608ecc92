package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"cafe-backoffice/internal/database"
	"cafe-backoffice/internal/models"
)

func (r *queries) InsertTicket(ctx context.Context, t *models.KitchenTicket) error {
	payload, err := json.Marshal(t.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket payload: %w", err)
	}
	_, err = r.q.Exec(ctx, database.InsertTicketSQL,
		t.ID, t.OrderID, t.TenantID, t.BranchID, payload, string(t.DispatchStatus), t.PrintCount, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ticket: %w", mapError(err))
	}
	return nil
}

func scanTicket(row scanner) (*models.KitchenTicket, error) {
	var (
		t       models.KitchenTicket
		payload []byte
		status  string
	)
	if err := row.Scan(&t.ID, &t.OrderID, &t.TenantID, &t.BranchID, &payload, &status, &t.PrintCount,
		&t.LastQueuedAt, &t.LastPrintedAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &t.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode ticket payload: %w", err)
	}
	t.DispatchStatus = models.DispatchStatus(status)
	return &t, nil
}

func (r *queries) GetTicket(ctx context.Context, id uuid.UUID) (*models.KitchenTicket, error) {
	t, err := scanTicket(r.q.QueryRow(ctx, database.GetTicketSQL, id))
	if err != nil {
		return nil, mapError(err)
	}
	return t, nil
}

func (r *queries) ListTicketsByBranch(ctx context.Context, branchID, tenantID uuid.UUID, limit, offset int) ([]models.KitchenTicket, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, database.CountTicketsByBranchSQL, branchID, tenantID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tickets: %w", err)
	}

	tickets, err := r.listTickets(ctx, database.ListTicketsByBranchSQL, branchID, tenantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (r *queries) ListUndispatchedTickets(ctx context.Context, cutoff time.Time, limit int) ([]models.KitchenTicket, error) {
	return r.listTickets(ctx, database.ListUndispatchedTicketsSQL, cutoff, limit)
}

func (r *queries) listTickets(ctx context.Context, sql string, args ...interface{}) ([]models.KitchenTicket, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.KitchenTicket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

func (r *queries) MarkTicketQueued(ctx context.Context, id uuid.UUID, at time.Time) error {
	return expectOne(r.q.Exec(ctx, database.MarkTicketQueuedSQL, id, at))
}

func (r *queries) MarkTicketPrinted(ctx context.Context, id uuid.UUID, at time.Time) error {
	return expectOne(r.q.Exec(ctx, database.MarkTicketPrintedSQL, id, at))
}
