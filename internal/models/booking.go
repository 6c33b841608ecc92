package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingStatus represents the status of a table reservation
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingCompleted BookingStatus = "COMPLETED"
)

// ParseBookingStatus validates a status string coming from outside.
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(s); st {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return st, nil
	default:
		return "", fmt.Errorf("unknown booking status %q", s)
	}
}

// HoldsTable reports whether a booking in this status blocks its table.
func (s BookingStatus) HoldsTable() bool {
	return s == BookingPending || s == BookingConfirmed
}

// CanTransitionTo: PENDING -> CONFIRMED -> COMPLETED; PENDING or
// CONFIRMED -> CANCELLED.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch next {
	case BookingConfirmed:
		return s == BookingPending
	case BookingCancelled:
		return s == BookingPending || s == BookingConfirmed
	case BookingCompleted:
		return s == BookingConfirmed
	default:
		return false
	}
}

// Booking represents a table reservation
type Booking struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      uuid.UUID       `json:"tenantId"`
	BranchID      uuid.UUID       `json:"branchId"`
	TableID       *uuid.UUID      `json:"tableId,omitempty"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	PartySize     int             `json:"partySize"`
	StartTime     time.Time       `json:"startTime"`
	EndTime       time.Time       `json:"endTime"`
	Deposit       decimal.Decimal `json:"deposit"`
	Notes         string          `json:"notes,omitempty"`
	Status        BookingStatus   `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Overlaps compares half-open intervals [aStart, aEnd) and [bStart, bEnd).
// Back-to-back intervals do not overlap. Every availability check in the
// booking manager goes through this function.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Blocks reports whether b occupies its table during [start, end).
func (b *Booking) Blocks(start, end time.Time) bool {
	return b.Status.HoldsTable() && Overlaps(b.StartTime, b.EndTime, start, end)
}
