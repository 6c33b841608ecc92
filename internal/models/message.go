package models

import (
	"fmt"

	"github.com/google/uuid"
)

// TopicPrintKOT is the job queue topic for kitchen ticket printing.
const TopicPrintKOT = "print-kot"

// PrintJob is the flat message published for every print request. JobID is
// fresh per enqueue so a reprint is never mistaken for a redelivery.
type PrintJob struct {
	JobID    uuid.UUID
	TicketID uuid.UUID
	OrderID  uuid.UUID
	TenantID uuid.UUID
	BranchID uuid.UUID
}

// NewPrintJob builds the job for a ticket.
func NewPrintJob(t *KitchenTicket) PrintJob {
	return PrintJob{
		JobID:    uuid.New(),
		TicketID: t.ID,
		OrderID:  t.OrderID,
		TenantID: t.TenantID,
		BranchID: t.BranchID,
	}
}

// Payload renders the job as the flat mapping the queue carries.
func (j PrintJob) Payload() map[string]string {
	return map[string]string{
		"jobId":    j.JobID.String(),
		"ticketId": j.TicketID.String(),
		"orderId":  j.OrderID.String(),
		"tenantId": j.TenantID.String(),
		"branchId": j.BranchID.String(),
	}
}

// ParsePrintJob is the inverse of Payload.
func ParsePrintJob(m map[string]string) (PrintJob, error) {
	var (
		j   PrintJob
		err error
	)
	fields := []struct {
		key string
		dst *uuid.UUID
	}{
		{"jobId", &j.JobID},
		{"ticketId", &j.TicketID},
		{"orderId", &j.OrderID},
		{"tenantId", &j.TenantID},
		{"branchId", &j.BranchID},
	}
	for _, f := range fields {
		if *f.dst, err = uuid.Parse(m[f.key]); err != nil {
			return PrintJob{}, fmt.Errorf("invalid %s: %w", f.key, err)
		}
	}
	return j, nil
}
