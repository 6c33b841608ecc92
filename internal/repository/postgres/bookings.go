package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cafe-backoffice/internal/database"
	"cafe-backoffice/internal/models"
)

func (r *queries) InsertBooking(ctx context.Context, b *models.Booking) error {
	_, err := r.q.Exec(ctx, database.InsertBookingSQL,
		b.ID, b.TenantID, b.BranchID, b.TableID, b.CustomerName, b.CustomerPhone, b.PartySize,
		b.StartTime, b.EndTime, b.Deposit, b.Notes, string(b.Status), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", mapError(err))
	}
	return nil
}

func scanBooking(row scanner) (*models.Booking, error) {
	var (
		b      models.Booking
		status string
	)
	if err := row.Scan(&b.ID, &b.TenantID, &b.BranchID, &b.TableID, &b.CustomerName, &b.CustomerPhone,
		&b.PartySize, &b.StartTime, &b.EndTime, &b.Deposit, &b.Notes, &status,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Status = models.BookingStatus(status)
	return &b, nil
}

func (r *queries) GetBooking(ctx context.Context, id, tenantID uuid.UUID, forUpdate bool) (*models.Booking, error) {
	sql := database.GetBookingSQL
	if forUpdate {
		sql = database.GetBookingForUpdateSQL
	}
	b, err := scanBooking(r.q.QueryRow(ctx, sql, id, tenantID))
	if err != nil {
		return nil, mapError(err)
	}
	return b, nil
}

func (r *queries) UpdateBooking(ctx context.Context, b *models.Booking) error {
	return expectOne(r.q.Exec(ctx, database.UpdateBookingSQL, b.ID, string(b.Status), b.Notes, b.UpdatedAt))
}

func (r *queries) ListTableHolds(ctx context.Context, tableIDs []uuid.UUID, endingAfter time.Time) ([]models.Booking, error) {
	return r.listBookings(ctx, database.ListTableHoldsSQL, tableIDs, endingAfter)
}

func (r *queries) ListBookingsByBranch(ctx context.Context, branchID, tenantID uuid.UUID) ([]models.Booking, error) {
	return r.listBookings(ctx, database.ListBookingsByBranchSQL, branchID, tenantID)
}

func (r *queries) listBookings(ctx context.Context, sql string, args ...interface{}) ([]models.Booking, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}
