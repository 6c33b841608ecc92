package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderPending, OrderInProgress, true},
		{OrderPending, OrderCompleted, false},
		{OrderPending, OrderCancelled, true},
		{OrderInProgress, OrderCompleted, true},
		{OrderInProgress, OrderCancelled, true},
		{OrderInProgress, OrderPending, false},
		{OrderCompleted, OrderCancelled, false},
		{OrderCompleted, OrderInProgress, false},
		{OrderCancelled, OrderPending, false},
		{OrderPending, OrderPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestComputeTotal(t *testing.T) {
	items := []OrderItem{
		{Qty: 2, Price: d("3.50")},
		{Qty: 1, Price: d("10.00")},
		{Qty: 3, Price: d("0")},
	}
	assert.True(t, d("17").Equal(Subtotal(items)))
	assert.True(t, d("16.70").Equal(ComputeTotal(items, d("1.70"), d("2"))))
}

func TestOverlaps_HalfOpen(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2026, 1, 1, h, m, 0, 0, time.UTC) }

	assert.True(t, Overlaps(at(10, 0), at(11, 0), at(10, 30), at(11, 30)))
	assert.True(t, Overlaps(at(10, 0), at(12, 0), at(10, 30), at(11, 0)))
	assert.False(t, Overlaps(at(10, 0), at(11, 0), at(11, 0), at(12, 0)))
	assert.False(t, Overlaps(at(11, 0), at(12, 0), at(10, 0), at(11, 0)))
}

func TestBooking_Blocks(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	b := Booking{StartTime: start, EndTime: start.Add(time.Hour), Status: BookingConfirmed}
	assert.True(t, b.Blocks(start.Add(30*time.Minute), start.Add(90*time.Minute)))

	b.Status = BookingCancelled
	assert.False(t, b.Blocks(start.Add(30*time.Minute), start.Add(90*time.Minute)))
}

func TestBookingStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, BookingPending.CanTransitionTo(BookingConfirmed))
	assert.True(t, BookingConfirmed.CanTransitionTo(BookingCancelled))
	assert.True(t, BookingConfirmed.CanTransitionTo(BookingCompleted))
	assert.False(t, BookingPending.CanTransitionTo(BookingCompleted))
	assert.False(t, BookingCancelled.CanTransitionTo(BookingConfirmed))
	assert.False(t, BookingCompleted.CanTransitionTo(BookingCancelled))
}

func TestFormatInvoiceNumber(t *testing.T) {
	day := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "INV-20260307-00001", FormatInvoiceNumber(day, 1))
	assert.Equal(t, "INV-20260307-12345", FormatInvoiceNumber(day, 12345))
}

func TestNewInvoiceDetail(t *testing.T) {
	inv := Invoice{Amount: d("100")}
	detail := NewInvoiceDetail(inv, []Payment{
		{Amount: d("60"), Status: PaymentCompleted},
		{Amount: d("30"), Status: PaymentFailed},
	})
	assert.True(t, d("60").Equal(detail.TotalPaid))
	assert.True(t, d("40").Equal(detail.AmountDue))
	assert.True(t, d("60").Equal(detail.PercentagePaid))
}

func TestPercent_ZeroWhole(t *testing.T) {
	assert.True(t, Percent(d("10"), decimal.Zero).IsZero())
	assert.True(t, d("33.33").Equal(Percent(d("1"), d("3"))))
}

func TestParseEnums(t *testing.T) {
	_, err := ParseOrderStatus("DONE")
	assert.Error(t, err)
	st, err := ParseInvoiceStatus("OVERDUE")
	require.NoError(t, err)
	assert.Equal(t, InvoiceOverdue, st)
	_, err = ParsePaymentMethod("cash")
	assert.Error(t, err)
	r, err := ParseRole("MANAGER")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, r)
}

func TestPrintJob_RoundTrip(t *testing.T) {
	tk := &KitchenTicket{ID: uuid.New(), OrderID: uuid.New(), TenantID: uuid.New(), BranchID: uuid.New()}
	job := NewPrintJob(tk)

	parsed, err := ParsePrintJob(job.Payload())
	require.NoError(t, err)
	assert.Equal(t, job, parsed)

	_, err = ParsePrintJob(map[string]string{"jobId": "nope"})
	assert.Error(t, err)
}

func TestNewTicket_SnapshotsItemsInOrder(t *testing.T) {
	order := &Order{
		ID: uuid.New(), TenantID: uuid.New(), BranchID: uuid.New(), Notes: "window seat",
		Items: []OrderItem{
			{ProductID: uuid.New(), ProductName: "Latte", Qty: 2, SpecialRequest: "oat milk"},
			{ProductID: uuid.New(), ProductName: "Croissant", Qty: 1},
		},
	}
	tk := NewTicket(order, time.Now())

	require.Len(t, tk.Payload.Items, 2)
	assert.Equal(t, "Latte", tk.Payload.Items[0].Name)
	assert.Equal(t, "oat milk", tk.Payload.Items[0].SpecialRequest)
	assert.Equal(t, "Croissant", tk.Payload.Items[1].Name)
	assert.Equal(t, DispatchPending, tk.DispatchStatus)
	assert.Equal(t, order.ID, tk.OrderID)

	order.Items[0].Qty = 9
	assert.Equal(t, 2, tk.Payload.Items[0].Qty)
}
