package kitchen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/messaging"
	"cafe-backoffice/internal/metrics"
	"cafe-backoffice/internal/models"
	"cafe-backoffice/internal/repository"
)

// Deduper remembers job ids that were already handled.
type Deduper interface {
	Claim(ctx context.Context, jobID string) (bool, error)
	Release(ctx context.Context, jobID string) error
}

// Worker consumes print-kot jobs and prints tickets. Each job id prints at
// most once; a new job for the same ticket (a reprint) prints again.
type Worker struct {
	name     string
	store    repository.Store
	consumer *messaging.Consumer
	dedup    Deduper
	printer  io.Writer
	logger   *logger.Logger
	now      func() time.Time
}

func NewWorker(name string, store repository.Store, consumer *messaging.Consumer, dedup Deduper,
	printer io.Writer, log *logger.Logger) *Worker {
	return &Worker{
		name:     name,
		store:    store,
		consumer: consumer,
		dedup:    dedup,
		printer:  printer,
		logger:   log,
		now:      time.Now,
	}
}

// Serve consumes until ctx is done. The supervisor restarts it when the
// broker channel drops.
func (w *Worker) Serve(ctx context.Context) error {
	w.logger.Info("worker_started", fmt.Sprintf("Printer worker %s started", w.name), "", map[string]interface{}{
		"worker_name": w.name,
		"queue":       messaging.PrintQueue,
	})
	return w.consumer.StartConsuming(ctx, w.HandleMessage)
}

func (w *Worker) String() string {
	return w.name
}

// HandleMessage processes one print-kot delivery. Malformed jobs and jobs
// for unknown tickets are permanent failures; anything else is retried.
func (w *Worker) HandleMessage(ctx context.Context, body []byte) error {
	payload, err := messaging.DecodePayload(body)
	if err != nil {
		metrics.KOTPrinted.WithLabelValues(metrics.ResultRejected).Inc()
		return messaging.Permanent(err)
	}
	job, err := models.ParsePrintJob(payload)
	if err != nil {
		metrics.KOTPrinted.WithLabelValues(metrics.ResultRejected).Inc()
		return messaging.Permanent(fmt.Errorf("invalid print job: %w", err))
	}

	requestID := job.JobID.String()
	fields := map[string]interface{}{
		"job_id":    job.JobID.String(),
		"ticket_id": job.TicketID.String(),
		"worker":    w.name,
	}

	claimed, err := w.dedup.Claim(ctx, job.JobID.String())
	if err != nil {
		return err
	}
	if !claimed {
		metrics.KOTPrinted.WithLabelValues(metrics.ResultReplayed).Inc()
		w.logger.Debug("print_job_duplicate", "Print job already handled, skipping", requestID, fields)
		return nil
	}

	printedAt := w.now().UTC()
	if err := w.print(ctx, job, printedAt); err != nil {
		if relErr := w.dedup.Release(ctx, job.JobID.String()); relErr != nil {
			w.logger.Error("print_job_release_failed", "Failed to release job claim", requestID, relErr, fields)
		}
		if errors.Is(err, repository.ErrNotFound) {
			metrics.KOTPrinted.WithLabelValues(metrics.ResultRejected).Inc()
			return messaging.Permanent(fmt.Errorf("ticket %s not found", job.TicketID))
		}
		metrics.KOTPrinted.WithLabelValues(metrics.ResultError).Inc()
		return err
	}

	metrics.KOTPrinted.WithLabelValues(metrics.ResultSuccess).Inc()

	// Printed means done. A retry from here would print the ticket twice.
	if err := w.store.MarkTicketPrinted(ctx, job.TicketID, printedAt); err != nil {
		w.logger.Error("ticket_mark_failed", "Ticket printed but not marked as printed", requestID, err, fields)
		return nil
	}
	w.logger.Info("ticket_printed", "Kitchen ticket printed", requestID, fields)
	return nil
}

func (w *Worker) print(ctx context.Context, job models.PrintJob, at time.Time) error {
	t, err := w.store.GetTicket(ctx, job.TicketID)
	if err != nil {
		return err
	}
	if t.TenantID != job.TenantID {
		return repository.ErrNotFound
	}
	if _, err := io.WriteString(w.printer, RenderTicket(t, at)); err != nil {
		return fmt.Errorf("failed to write to printer: %w", err)
	}
	return nil
}

// RenderTicket formats a ticket for a kitchen printer.
func RenderTicket(t *models.KitchenTicket, at time.Time) string {
	var b strings.Builder
	b.WriteString("========== KOT ==========\n")
	fmt.Fprintf(&b, "Ticket: %s\n", t.ID)
	fmt.Fprintf(&b, "Order:  %s\n", t.OrderID)
	if t.Payload.TableID != nil {
		fmt.Fprintf(&b, "Table:  %s\n", t.Payload.TableID)
	}
	fmt.Fprintf(&b, "Time:   %s\n", at.Format("2006-01-02 15:04"))
	if t.PrintCount > 0 {
		fmt.Fprintf(&b, "REPRINT #%d\n", t.PrintCount)
	}
	b.WriteString("-------------------------\n")
	for _, line := range t.Payload.Items {
		fmt.Fprintf(&b, "%3d x %s\n", line.Qty, line.Name)
		if line.SpecialRequest != "" {
			fmt.Fprintf(&b, "      * %s\n", line.SpecialRequest)
		}
	}
	if t.Payload.Notes != "" {
		b.WriteString("-------------------------\n")
		fmt.Fprintf(&b, "Notes: %s\n", t.Payload.Notes)
	}
	b.WriteString("=========================\n")
	return b.String()
}
