package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"cafe-backoffice/internal/models"
	"cafe-backoffice/internal/repository"
)

func (st *state) bookingIndex(id uuid.UUID) int {
	for i := range st.bookings {
		if st.bookings[i].ID == id {
			return i
		}
	}
	return -1
}

func (v *view) InsertBooking(ctx context.Context, b *models.Booking) error {
	st, release := v.acquire()
	defer release()
	st.bookings = append(st.bookings, *b)
	return nil
}

func (v *view) GetBooking(ctx context.Context, id, tenantID uuid.UUID, forUpdate bool) (*models.Booking, error) {
	st, release := v.acquire()
	defer release()
	i := st.bookingIndex(id)
	if i < 0 || st.bookings[i].TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	b := st.bookings[i]
	return &b, nil
}

func (v *view) UpdateBooking(ctx context.Context, b *models.Booking) error {
	st, release := v.acquire()
	defer release()
	i := st.bookingIndex(b.ID)
	if i < 0 {
		return repository.ErrNotFound
	}
	row := &st.bookings[i]
	row.Status = b.Status
	row.Notes = b.Notes
	row.UpdatedAt = b.UpdatedAt
	return nil
}

func (v *view) ListTableHolds(ctx context.Context, tableIDs []uuid.UUID, endingAfter time.Time) ([]models.Booking, error) {
	st, release := v.acquire()
	defer release()

	want := make(map[uuid.UUID]bool, len(tableIDs))
	for _, id := range tableIDs {
		want[id] = true
	}
	var out []models.Booking
	for _, b := range st.bookings {
		if b.TableID == nil || !want[*b.TableID] {
			continue
		}
		if b.Status.HoldsTable() && b.EndTime.After(endingAfter) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (v *view) ListBookingsByBranch(ctx context.Context, branchID, tenantID uuid.UUID) ([]models.Booking, error) {
	st, release := v.acquire()
	defer release()

	var out []models.Booking
	for _, b := range st.bookings {
		if b.BranchID == branchID && b.TenantID == tenantID {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}
