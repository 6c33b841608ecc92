package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-backoffice/internal/apperr"
	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/models"
	"cafe-backoffice/internal/repository/memory"
)

var fixedNow = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	store  *memory.Store
	tenant uuid.UUID
	branch uuid.UUID
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{store: store, tenant: uuid.New(), branch: uuid.New()}
	store.AddTenant(models.Tenant{ID: f.tenant, Name: "Bean There"})
	store.AddBranch(models.Branch{ID: f.branch, TenantID: f.tenant, Name: "Main"})

	f.svc = NewService(store, logger.Nop())
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) addOrder(t *testing.T, status models.OrderStatus, total, discount string, createdAt time.Time) uuid.UUID {
	t.Helper()
	o := &models.Order{
		ID:        uuid.New(),
		TenantID:  f.tenant,
		BranchID:  f.branch,
		Status:    status,
		Total:     d(total),
		Tax:       decimal.Zero,
		Discount:  d(discount),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(t, f.store.InsertOrder(context.Background(), o))
	return o.ID
}

func (f *fixture) invoice(t *testing.T, amount string) *models.Invoice {
	t.Helper()
	orderID := f.addOrder(t, models.OrderCompleted, amount, "0", fixedNow)
	inv, err := f.svc.CreateInvoice(context.Background(), &CreateInvoiceRequest{
		TenantID: f.tenant,
		OrderID:  orderID,
		Amount:   d(amount),
	})
	require.NoError(t, err)
	return inv
}

func (f *fixture) pay(invoiceID uuid.UUID, amount, key string) (*PaymentResult, error) {
	return f.svc.ProcessPayment(context.Background(), invoiceID, f.tenant, &PaymentRequest{
		Amount:         d(amount),
		Method:         "CARD",
		IdempotencyKey: key,
	})
}

func TestCreateInvoice(t *testing.T) {
	f := setup(t)
	orderID := f.addOrder(t, models.OrderCompleted, "25", "0", fixedNow)

	inv, err := f.svc.CreateInvoice(context.Background(), &CreateInvoiceRequest{
		TenantID: f.tenant,
		OrderID:  orderID,
		Amount:   d("25"),
		Tax:      d("2.50"),
		Discount: d("5"),
	})
	require.NoError(t, err)

	assert.Equal(t, "INV-20260310-00001", inv.InvoiceNumber)
	assert.Equal(t, models.InvoiceDraft, inv.Status)
	assertDecimal(t, "22.50", inv.Amount)
	assert.Equal(t, fixedNow.Add(30*24*time.Hour), inv.DueDate)
	assert.Nil(t, inv.PaidAt)
}

func TestCreateInvoice_Rejected(t *testing.T) {
	f := setup(t)
	orderID := f.addOrder(t, models.OrderCompleted, "25", "0", fixedNow)

	tests := []struct {
		name string
		req  CreateInvoiceRequest
		want apperr.Kind
	}{
		{"unknown order", CreateInvoiceRequest{TenantID: f.tenant, OrderID: uuid.New(), Amount: d("10")}, apperr.KindNotFound},
		{"unknown tenant", CreateInvoiceRequest{TenantID: uuid.New(), OrderID: orderID, Amount: d("10")}, apperr.KindNotFound},
		{"zero amount", CreateInvoiceRequest{TenantID: f.tenant, OrderID: orderID}, apperr.KindInvalidInput},
		{"discount eats amount", CreateInvoiceRequest{TenantID: f.tenant, OrderID: orderID, Amount: d("10"), Discount: d("10")}, apperr.KindInvalidInput},
		{"negative tax", CreateInvoiceRequest{TenantID: f.tenant, OrderID: orderID, Amount: d("10"), Tax: d("-1")}, apperr.KindInvalidInput},
		{"missing order id", CreateInvoiceRequest{TenantID: f.tenant, Amount: d("10")}, apperr.KindInvalidInput},
		{"sub-cent amount", CreateInvoiceRequest{TenantID: f.tenant, OrderID: orderID, Amount: d("0.004")}, apperr.KindInvalidInput},
		{"sub-cent tax", CreateInvoiceRequest{TenantID: f.tenant, OrderID: orderID, Amount: d("10"), Tax: d("0.125")}, apperr.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateInvoice(context.Background(), &tt.req)
			assert.True(t, apperr.Is(err, tt.want), "got %v", err)
		})
	}
	assert.Zero(t, f.store.Counts().Invoices)
}

func TestCreateInvoice_OnePerOrder(t *testing.T) {
	f := setup(t)
	first := f.invoice(t, "40")

	req := &CreateInvoiceRequest{TenantID: f.tenant, OrderID: first.OrderID, Amount: d("40")}
	_, err := f.svc.CreateInvoice(context.Background(), req)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)

	_, err = f.svc.UpdateInvoiceStatus(context.Background(), first.ID, f.tenant, models.InvoiceCancelled)
	require.NoError(t, err)

	second, err := f.svc.CreateInvoice(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, first.InvoiceNumber, second.InvoiceNumber)
}

func TestCreateInvoice_NumberTakenIsRetried(t *testing.T) {
	f := setup(t)
	taken := &models.Invoice{
		ID:            uuid.New(),
		OrderID:       uuid.New(),
		TenantID:      f.tenant,
		InvoiceNumber: models.FormatInvoiceNumber(fixedNow, 1),
		Amount:        d("5"),
		Status:        models.InvoiceDraft,
		CreatedAt:     fixedNow,
		UpdatedAt:     fixedNow,
	}
	require.NoError(t, f.store.InsertInvoice(context.Background(), taken))

	inv := f.invoice(t, "12")
	assert.Equal(t, "INV-20260310-00002", inv.InvoiceNumber)
	assert.Equal(t, 2, f.store.Counts().Invoices)
}

func TestProcessPayment_PartialThenFull(t *testing.T) {
	f := setup(t)
	inv := f.invoice(t, "100")

	res, err := f.pay(inv.ID, "60", "")
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceViewed, res.Invoice.Status)
	assertDecimal(t, "60", res.Invoice.TotalPaid)
	assertDecimal(t, "40", res.Invoice.AmountDue)
	assertDecimal(t, "60", res.Invoice.PercentagePaid)
	assert.Nil(t, res.Invoice.PaidAt)

	_, err = f.pay(inv.ID, "41", "")
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput), "got %v", err)

	res, err = f.pay(inv.ID, "40", "")
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, res.Invoice.Status)
	require.NotNil(t, res.Invoice.PaidAt)
	assert.Equal(t, fixedNow, *res.Invoice.PaidAt)
	assertDecimal(t, "0", res.Invoice.AmountDue)
	require.Len(t, res.Invoice.Payments, 2)
	assert.Equal(t, res.Payment.ID, res.Invoice.Payments[0].ID)

	_, err = f.pay(inv.ID, "1", "")
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)
	assert.Equal(t, 2, f.store.Counts().Payments)

	detail, err := f.svc.GetInvoice(context.Background(), inv.ID, f.tenant)
	require.NoError(t, err)
	assertDecimal(t, "100", detail.TotalPaid)
	assertDecimal(t, "100", detail.PercentagePaid)
}

func TestProcessPayment_Rejected(t *testing.T) {
	f := setup(t)
	inv := f.invoice(t, "30")
	cancelled := f.invoice(t, "30")
	_, err := f.svc.UpdateInvoiceStatus(context.Background(), cancelled.ID, f.tenant, models.InvoiceCancelled)
	require.NoError(t, err)
	paid := f.invoice(t, "10")
	_, err = f.pay(paid.ID, "10", "")
	require.NoError(t, err)

	tests := []struct {
		name    string
		invoice uuid.UUID
		tenant  uuid.UUID
		req     PaymentRequest
		want    apperr.Kind
	}{
		{"unknown invoice", uuid.New(), f.tenant, PaymentRequest{Amount: d("5"), Method: "CASH"}, apperr.KindNotFound},
		{"other tenant", inv.ID, uuid.New(), PaymentRequest{Amount: d("5"), Method: "CASH"}, apperr.KindNotFound},
		{"zero amount", inv.ID, f.tenant, PaymentRequest{Amount: d("0"), Method: "CASH"}, apperr.KindInvalidInput},
		{"unknown method", inv.ID, f.tenant, PaymentRequest{Amount: d("5"), Method: "CHEQUE"}, apperr.KindInvalidInput},
		{"over remaining", inv.ID, f.tenant, PaymentRequest{Amount: d("30.01"), Method: "CASH"}, apperr.KindInvalidInput},
		{"cancelled invoice", cancelled.ID, f.tenant, PaymentRequest{Amount: d("5"), Method: "CASH"}, apperr.KindInvalidState},
		{"zero amount on unknown invoice", uuid.New(), f.tenant, PaymentRequest{Amount: d("0"), Method: "CASH"}, apperr.KindNotFound},
		{"zero amount on paid invoice", paid.ID, f.tenant, PaymentRequest{Amount: d("0"), Method: "CASH"}, apperr.KindConflict},
		{"fraction of a cent", inv.ID, f.tenant, PaymentRequest{Amount: d("0.001"), Method: "CASH"}, apperr.KindInvalidInput},
		{"sub-cent amount", inv.ID, f.tenant, PaymentRequest{Amount: d("29.995"), Method: "CASH"}, apperr.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ProcessPayment(context.Background(), tt.invoice, tt.tenant, &tt.req)
			assert.True(t, apperr.Is(err, tt.want), "got %v", err)
		})
	}
	assert.Equal(t, 1, f.store.Counts().Payments)
}

func TestProcessPayment_IdempotencyKeyReplays(t *testing.T) {
	f := setup(t)
	inv := f.invoice(t, "50")

	first, err := f.pay(inv.ID, "20", "till-1-0042")
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	again, err := f.pay(inv.ID, "20", "till-1-0042")
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.Payment.ID, again.Payment.ID)
	assertDecimal(t, "30", again.Invoice.AmountDue)
	assert.Equal(t, 1, f.store.Counts().Payments)
}

func TestUpdateInvoiceStatus(t *testing.T) {
	f := setup(t)
	inv := f.invoice(t, "10")

	sent, err := f.svc.UpdateInvoiceStatus(context.Background(), inv.ID, f.tenant, models.InvoiceSent)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceSent, sent.Status)

	_, err = f.svc.UpdateInvoiceStatus(context.Background(), inv.ID, f.tenant, models.InvoicePaid)
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput), "got %v", err)

	_, err = f.pay(inv.ID, "10", "")
	require.NoError(t, err)
	_, err = f.svc.UpdateInvoiceStatus(context.Background(), inv.ID, f.tenant, models.InvoiceCancelled)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "got %v", err)

	_, err = f.svc.UpdateInvoiceStatus(context.Background(), uuid.New(), f.tenant, models.InvoiceSent)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
}

func TestListInvoices(t *testing.T) {
	f := setup(t)
	for i := 0; i < 12; i++ {
		f.invoice(t, "5")
	}

	tests := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
		wantLen   int
		wantPages int
	}{
		{"defaults", 0, 0, 1, 10, 10, 2},
		{"second page", 2, 10, 2, 10, 2, 2},
		{"limit too large", 1, 500, 1, 10, 10, 2},
		{"small pages", 3, 5, 3, 5, 2, 3},
		{"past the end", 9, 5, 9, 5, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := f.svc.ListInvoices(context.Background(), f.tenant, tt.page, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Len(t, p.Invoices, tt.wantLen)
			assert.Equal(t, 12, p.Total)
			assert.Equal(t, tt.wantPages, p.TotalPages)
		})
	}

	_, err := f.svc.ListInvoices(context.Background(), uuid.New(), 1, 10)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
}

func TestGetBillingSummary(t *testing.T) {
	f := setup(t)
	paid := f.invoice(t, "100")
	_, err := f.pay(paid.ID, "100", "")
	require.NoError(t, err)
	partial := f.invoice(t, "60")
	_, err = f.pay(partial.ID, "20", "")
	require.NoError(t, err)
	f.invoice(t, "40")

	// invoice() adds one completed order per invoice this month; add
	// last month's revenue on top.
	f.addOrder(t, models.OrderCompleted, "100", "0", time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC))
	f.addOrder(t, models.OrderPending, "999", "0", fixedNow)

	s, err := f.svc.GetBillingSummary(context.Background(), f.tenant)
	require.NoError(t, err)

	assertDecimal(t, "200", s.TotalInvoiced)
	assertDecimal(t, "120", s.TotalPaid)
	assertDecimal(t, "100", s.TotalPending)
	assert.Equal(t, 2, s.PendingInvoices)
	assert.Equal(t, 1, s.PaidInvoices)
	assertDecimal(t, "300", s.TotalRevenue)
	assertDecimal(t, "100", s.OverallRevenueTrend)
}

func TestGetBillingSummary_NoRevenueLastMonth(t *testing.T) {
	f := setup(t)
	f.addOrder(t, models.OrderCompleted, "500", "0", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	s, err := f.svc.GetBillingSummary(context.Background(), f.tenant)
	require.NoError(t, err)
	assertDecimal(t, "500", s.TotalRevenue)
	assertDecimal(t, "0", s.OverallRevenueTrend)
	assertDecimal(t, "0", s.TotalInvoiced)
	assert.Zero(t, s.PendingInvoices)
}

func TestGetRevenueAnalytics(t *testing.T) {
	f := setup(t)
	day := func(n int) time.Time { return time.Date(2026, 3, n, 0, 0, 0, 0, time.UTC) }
	f.addOrder(t, models.OrderCompleted, "100", "10", day(1))
	f.addOrder(t, models.OrderCompleted, "50", "0", day(5))
	f.addOrder(t, models.OrderCompleted, "25", "0", day(5).Add(time.Second))
	f.addOrder(t, models.OrderCancelled, "80", "0", day(3))

	a, err := f.svc.GetRevenueAnalytics(context.Background(), f.tenant, day(1), day(5))
	require.NoError(t, err)
	assert.Equal(t, 2, a.OrderCount)
	assertDecimal(t, "150", a.TotalRevenue)
	assertDecimal(t, "10", a.TotalDiscount)
	assertDecimal(t, "140", a.NetRevenue)
	assertDecimal(t, "75", a.AverageOrderValue)

	f.addOrder(t, models.OrderCompleted, "20", "0", day(2))
	a, err = f.svc.GetRevenueAnalytics(context.Background(), f.tenant, day(1), day(5))
	require.NoError(t, err)
	assertDecimal(t, "56.67", a.AverageOrderValue)

	empty, err := f.svc.GetRevenueAnalytics(context.Background(), f.tenant, day(20), day(21))
	require.NoError(t, err)
	assert.Zero(t, empty.OrderCount)
	assertDecimal(t, "0", empty.AverageOrderValue)

	_, err = f.svc.GetRevenueAnalytics(context.Background(), f.tenant, day(5), day(1))
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput), "got %v", err)
}
