// Package booking manages table reservations. Every availability
// decision, on create and on the read-side queries, goes through
// models.Booking.Blocks.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cafe-backoffice/internal/apperr"
	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/metrics"
	"cafe-backoffice/internal/models"
	"cafe-backoffice/internal/repository"
	"cafe-backoffice/internal/validation"
)

type Service struct {
	store  repository.Store
	logger *logger.Logger
	now    func() time.Time
}

func NewService(store repository.Store, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: log,
		now:    time.Now,
	}
}

func tableLockKey(id uuid.UUID) string {
	return "table:" + id.String()
}

// CreateBooking validates and stores a PENDING booking. With a table the
// overlap check and the insert run under the table's lock in one
// transaction.
func (s *Service) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*models.Booking, error) {
	b, err := s.createBooking(ctx, req)
	switch {
	case err == nil:
		metrics.BookingsCreated.WithLabelValues(metrics.ResultSuccess).Inc()
	case apperr.KindOf(err) == apperr.KindInternal:
		metrics.BookingsCreated.WithLabelValues(metrics.ResultError).Inc()
	default:
		metrics.BookingsCreated.WithLabelValues(metrics.ResultRejected).Inc()
	}
	return b, err
}

func (s *Service) createBooking(ctx context.Context, req *CreateBookingRequest) (*models.Booking, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	start, end := req.StartTime.UTC(), req.EndTime.UTC()
	if !start.Before(end) {
		return nil, apperr.InvalidInput("startTime must be before endTime")
	}
	now := s.now().UTC()
	if start.Before(now) {
		return nil, apperr.InvalidInput("cannot create a booking in the past")
	}

	if _, err := s.store.FindTenant(ctx, req.TenantID); err != nil {
		return nil, notFoundOr(err, "tenant %s not found", req.TenantID)
	}
	if _, err := s.store.FindBranch(ctx, req.BranchID, req.TenantID); err != nil {
		return nil, notFoundOr(err, "branch %s not found", req.BranchID)
	}
	if req.TableID != nil {
		table, err := s.branchTable(ctx, *req.TableID, req.BranchID)
		if err != nil {
			return nil, err
		}
		if req.PartySize > table.Capacity {
			return nil, apperr.InvalidInput("party of %d exceeds table capacity of %d", req.PartySize, table.Capacity)
		}
	}

	b := &models.Booking{
		ID:            uuid.New(),
		TenantID:      req.TenantID,
		BranchID:      req.BranchID,
		TableID:       req.TableID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		PartySize:     req.PartySize,
		StartTime:     start,
		EndTime:       end,
		Deposit:       req.Deposit,
		Notes:         req.Notes,
		Status:        models.BookingPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if b.TableID != nil {
			if err := tx.LockKey(ctx, tableLockKey(*b.TableID)); err != nil {
				return fmt.Errorf("failed to lock table: %w", err)
			}
			holds, err := tx.ListTableHolds(ctx, []uuid.UUID{*b.TableID}, start)
			if err != nil {
				return fmt.Errorf("failed to load table bookings: %w", err)
			}
			for i := range holds {
				if holds[i].Blocks(start, end) {
					return apperr.Conflict("table is already booked from %s to %s",
						holds[i].StartTime.Format(time.RFC3339), holds[i].EndTime.Format(time.RFC3339))
				}
			}
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return fmt.Errorf("failed to insert booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	fields := map[string]interface{}{
		"booking_id": b.ID.String(),
		"branch_id":  b.BranchID.String(),
		"start":      start.Format(time.RFC3339),
		"end":        end.Format(time.RFC3339),
		"party_size": b.PartySize,
	}
	if b.TableID != nil {
		fields["table_id"] = b.TableID.String()
	}
	s.logger.Info("booking_created", "Booking created", logger.RequestID(ctx), fields)
	return b, nil
}

// branchTable loads a table and checks it belongs to branchID.
func (s *Service) branchTable(ctx context.Context, tableID, branchID uuid.UUID) (*models.Table, error) {
	table, err := s.store.FindTable(ctx, tableID)
	if err != nil {
		return nil, notFoundOr(err, "table %s not found", tableID)
	}
	if table.BranchID != branchID {
		return nil, apperr.NotFound("table %s not found", tableID)
	}
	return table, nil
}

func (s *Service) ConfirmBooking(ctx context.Context, id, tenantID uuid.UUID) (*models.Booking, error) {
	return s.transition(ctx, id, tenantID, models.BookingConfirmed, "")
}

// CancelBooking cancels a PENDING or CONFIRMED booking. A reason is
// appended to the notes.
func (s *Service) CancelBooking(ctx context.Context, id, tenantID uuid.UUID, reason string) (*models.Booking, error) {
	return s.transition(ctx, id, tenantID, models.BookingCancelled, reason)
}

func (s *Service) CompleteBooking(ctx context.Context, id, tenantID uuid.UUID) (*models.Booking, error) {
	return s.transition(ctx, id, tenantID, models.BookingCompleted, "")
}

func (s *Service) transition(ctx context.Context, id, tenantID uuid.UUID, next models.BookingStatus, reason string) (*models.Booking, error) {
	var booking *models.Booking
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		b, err := tx.GetBooking(ctx, id, tenantID, true)
		if err != nil {
			return notFoundOr(err, "booking %s not found", id)
		}
		if !b.Status.CanTransitionTo(next) {
			return apperr.InvalidState("cannot change booking status from %s to %s", b.Status, next)
		}

		b.Status = next
		b.UpdatedAt = s.now().UTC()
		if reason != "" {
			b.Notes = appendNote(b.Notes, "Cancelled: "+reason)
		}
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err)
	}

	s.logger.Info("booking_status_updated", "Booking status updated", logger.RequestID(ctx), map[string]interface{}{
		"booking_id": booking.ID.String(),
		"status":     string(booking.Status),
	})
	return booking, nil
}

func appendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}

// CheckTableAvailability reports whether no PENDING or CONFIRMED booking
// overlaps [start, end) on the table.
func (s *Service) CheckTableAvailability(ctx context.Context, tableID, tenantID uuid.UUID, start, end time.Time) (*Availability, error) {
	if !start.Before(end) {
		return nil, apperr.InvalidInput("start must be before end")
	}
	table, err := s.store.FindTable(ctx, tableID)
	if err != nil {
		return nil, notFoundOr(err, "table %s not found", tableID)
	}
	if _, err := s.store.FindBranch(ctx, table.BranchID, tenantID); err != nil {
		return nil, notFoundOr(err, "table %s not found", tableID)
	}

	blocked, err := s.blockedTables(ctx, []uuid.UUID{tableID}, start, end)
	if err != nil {
		return nil, err
	}
	return &Availability{
		TableID:   tableID,
		StartTime: start,
		EndTime:   end,
		Available: !blocked[tableID],
	}, nil
}

// GetAvailableTables lists the branch's tables that seat partySize and are
// free for [start, end). partySize <= 0 skips the capacity filter.
func (s *Service) GetAvailableTables(ctx context.Context, branchID, tenantID uuid.UUID, start, end time.Time, partySize int) ([]models.Table, error) {
	if !start.Before(end) {
		return nil, apperr.InvalidInput("start must be before end")
	}
	if _, err := s.store.FindBranch(ctx, branchID, tenantID); err != nil {
		return nil, notFoundOr(err, "branch %s not found", branchID)
	}

	tables, err := s.store.ListTables(ctx, branchID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to list tables: %w", err))
	}
	ids := make([]uuid.UUID, 0, len(tables))
	for _, t := range tables {
		ids = append(ids, t.ID)
	}
	blocked, err := s.blockedTables(ctx, ids, start, end)
	if err != nil {
		return nil, err
	}

	free := make([]models.Table, 0, len(tables))
	for _, t := range tables {
		if blocked[t.ID] || (partySize > 0 && t.Capacity < partySize) {
			continue
		}
		free = append(free, t)
	}
	return free, nil
}

func (s *Service) blockedTables(ctx context.Context, tableIDs []uuid.UUID, start, end time.Time) (map[uuid.UUID]bool, error) {
	blocked := make(map[uuid.UUID]bool)
	if len(tableIDs) == 0 {
		return blocked, nil
	}
	holds, err := s.store.ListTableHolds(ctx, tableIDs, start)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to load table bookings: %w", err))
	}
	for i := range holds {
		if holds[i].TableID != nil && holds[i].Blocks(start, end) {
			blocked[*holds[i].TableID] = true
		}
	}
	return blocked, nil
}

// ListByBranch returns the branch's bookings, latest start first.
func (s *Service) ListByBranch(ctx context.Context, branchID, tenantID uuid.UUID) ([]models.Booking, error) {
	bookings, err := s.store.ListBookingsByBranch(ctx, branchID, tenantID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to list bookings: %w", err))
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, nil
}

func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(format, args...)
	}
	return apperr.Internal(err)
}
