package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"cafe-backoffice/internal/models"
	"cafe-backoffice/internal/repository"
)

func (st *state) ticketIndex(id uuid.UUID) int {
	for i := range st.tickets {
		if st.tickets[i].ID == id {
			return i
		}
	}
	return -1
}

func (v *view) InsertTicket(ctx context.Context, t *models.KitchenTicket) error {
	st, release := v.acquire()
	defer release()
	for _, existing := range st.tickets {
		if existing.OrderID == t.OrderID {
			return &repository.DuplicateError{Constraint: repository.ConstraintTicketOrder}
		}
	}
	st.tickets = append(st.tickets, *t)
	return nil
}

func (v *view) GetTicket(ctx context.Context, id uuid.UUID) (*models.KitchenTicket, error) {
	st, release := v.acquire()
	defer release()
	i := st.ticketIndex(id)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	t := st.tickets[i]
	return &t, nil
}

func (v *view) ListTicketsByBranch(ctx context.Context, branchID, tenantID uuid.UUID, limit, offset int) ([]models.KitchenTicket, int, error) {
	st, release := v.acquire()
	defer release()

	var matched []models.KitchenTicket
	for i := len(st.tickets) - 1; i >= 0; i-- {
		t := st.tickets[i]
		if t.BranchID == branchID && t.TenantID == tenantID {
			matched = append(matched, t)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return page(matched, limit, offset), len(matched), nil
}

func (v *view) MarkTicketQueued(ctx context.Context, id uuid.UUID, at time.Time) error {
	st, release := v.acquire()
	defer release()
	i := st.ticketIndex(id)
	if i < 0 {
		return repository.ErrNotFound
	}
	t := &st.tickets[i]
	if t.DispatchStatus != models.DispatchPrinted {
		t.DispatchStatus = models.DispatchQueued
	}
	t.LastQueuedAt = &at
	return nil
}

func (v *view) MarkTicketPrinted(ctx context.Context, id uuid.UUID, at time.Time) error {
	st, release := v.acquire()
	defer release()
	i := st.ticketIndex(id)
	if i < 0 {
		return repository.ErrNotFound
	}
	t := &st.tickets[i]
	t.DispatchStatus = models.DispatchPrinted
	t.PrintCount++
	t.LastPrintedAt = &at
	return nil
}

func (v *view) ListUndispatchedTickets(ctx context.Context, cutoff time.Time, limit int) ([]models.KitchenTicket, error) {
	st, release := v.acquire()
	defer release()

	var out []models.KitchenTicket
	for _, t := range st.tickets {
		if t.DispatchStatus == models.DispatchPending && t.CreatedAt.Before(cutoff) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return page(out, limit, 0), nil
}
