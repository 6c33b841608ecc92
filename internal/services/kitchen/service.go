// Package kitchen owns kitchen order tickets (KOT): creation inside the
// order transaction, print-job dispatch, manual reprints, the dispatch
// sweeper and the printer worker.
package kitchen

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
)

// Dispatch sources, used as a metric label.
const (
	SourceOrder   = "order"
	SourceReprint = "reprint"
	SourceSweeper = "sweeper"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Enqueuer is the job queue. Delivery is at least once.
type Enqueuer interface {
	Enqueue(ctx context.Context, topic string, payload map[string]string) error
}

type Service struct {
	store  repository.Store
	queue  Enqueuer
	logger *logger.Logger
	now    func() time.Time
}

func NewService(store repository.Store, queue Enqueuer, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		queue:  queue,
		logger: log,
		now:    time.Now,
	}
}

// CreateTicket snapshots order into a new ticket written through tx. It is
// only called from the order transaction.
func (s *Service) CreateTicket(ctx context.Context, tx repository.Tx, order *models.Order) (*models.KitchenTicket, error) {
	t := models.NewTicket(order, s.now().UTC())
	if err := tx.InsertTicket(ctx, t); err != nil {
		if repository.IsDuplicate(err, repository.ConstraintTicketOrder) {
			return nil, apperr.Conflict("order %s already has a kitchen ticket", order.ID)
		}
		return nil, fmt.Errorf("failed to create kitchen ticket: %w", err)
	}
	return t, nil
}

// Dispatch publishes a print-kot job with a fresh job id and marks the
// ticket QUEUED. It must run after the ticket's transaction committed.
func (s *Service) Dispatch(ctx context.Context, t *models.KitchenTicket, source string) (uuid.UUID, error) {
	requestID := logger.RequestID(ctx)
	job := models.NewPrintJob(t)
	fields := map[string]interface{}{
		"ticket_id": t.ID.String(),
		"order_id":  t.OrderID.String(),
		"job_id":    job.JobID.String(),
		"source":    source,
	}

	if err := s.queue.Enqueue(ctx, models.TopicPrintKOT, job.Payload()); err != nil {
		metrics.KOTEnqueue.WithLabelValues(source, metrics.ResultError).Inc()
		s.logger.Error("kot_enqueue_failed", "Failed to enqueue print job", requestID, err, fields)
		return job.JobID, err
	}
	metrics.KOTEnqueue.WithLabelValues(source, metrics.ResultSuccess).Inc()

	at := s.now().UTC()
	if err := s.store.MarkTicketQueued(ctx, t.ID, at); err != nil {
		s.logger.Error("kot_mark_queued_failed", "Print job queued but dispatch status not updated", requestID, err, fields)
	} else {
		if t.DispatchStatus != models.DispatchPrinted {
			t.DispatchStatus = models.DispatchQueued
		}
		t.LastQueuedAt = &at
	}
	s.logger.Info("kot_enqueued", "Print job enqueued", requestID, fields)
	return job.JobID, nil
}

// PrintAck acknowledges a manual reprint.
type PrintAck struct {
	TicketID uuid.UUID `json:"ticketId"`
	JobID    uuid.UUID `json:"jobId"`
}

// PrintKOT re-enqueues a print job for an existing ticket. Every call
// prints again; it never creates a ticket.
func (s *Service) PrintKOT(ctx context.Context, ticketID, tenantID uuid.UUID) (*PrintAck, error) {
	t, err := s.store.GetTicket(ctx, ticketID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal(fmt.Errorf("failed to load ticket: %w", err))
	}
	if err != nil || t.TenantID != tenantID {
		return nil, apperr.NotFound("kitchen ticket %s not found", ticketID)
	}

	jobID, err := s.Dispatch(ctx, t, SourceReprint)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to enqueue reprint: %w", err))
	}
	return &PrintAck{TicketID: t.ID, JobID: jobID}, nil
}

// TicketPage is one page of a branch's tickets.
type TicketPage struct {
	Tickets    []models.KitchenTicket `json:"tickets"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	Total      int                    `json:"total"`
	TotalPages int                    `json:"totalPages"`
}

// ListByBranch returns tickets newest first. page defaults to 1, limit to
// 20 and is capped at 100.
func (s *Service) ListByBranch(ctx context.Context, branchID, tenantID uuid.UUID, page, limit int) (*TicketPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	tickets, total, err := s.store.ListTicketsByBranch(ctx, branchID, tenantID, limit, (page-1)*limit)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to list tickets: %w", err))
	}
	if tickets == nil {
		tickets = []models.KitchenTicket{}
	}
	return &TicketPage{
		Tickets:    tickets,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// SweepUndispatched re-enqueues up to batch tickets that have been PENDING
// for longer than after. It returns how many reached the queue.
func (s *Service) SweepUndispatched(ctx context.Context, after time.Duration, batch int) (int, error) {
	tickets, err := s.store.ListUndispatchedTickets(ctx, s.now().UTC().Add(-after), batch)
	if err != nil {
		return 0, fmt.Errorf("failed to list undispatched tickets: %w", err)
	}

	sent := 0
	for i := range tickets {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.Dispatch(ctx, &tickets[i], SourceSweeper); err != nil {
			// the queue is down; the next sweep retries
			break
		}
		sent++
	}
	return sent, nil
}
