package kitchen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-backoffice/internal/apperr"
	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/models"
	"cafe-backoffice/internal/repository"
	"cafe-backoffice/internal/repository/memory"
)

type fakeQueue struct {
	mu   sync.Mutex
	jobs []map[string]string
	err  error
}

func (q *fakeQueue) Enqueue(ctx context.Context, topic string, payload map[string]string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	if topic != models.TopicPrintKOT {
		return errors.New("unexpected topic " + topic)
	}
	q.jobs = append(q.jobs, payload)
	return nil
}

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memory.Store, *fakeQueue) {
	t.Helper()
	store := memory.New()
	queue := &fakeQueue{}
	svc := NewService(store, queue, logger.Nop())
	svc.now = func() time.Time { return fixedNow }
	return svc, store, queue
}

func testOrder(tenantID, branchID uuid.UUID) *models.Order {
	id := uuid.New()
	return &models.Order{
		ID:       id,
		TenantID: tenantID,
		BranchID: branchID,
		Status:   models.OrderPending,
		Items: []models.OrderItem{
			{ID: uuid.New(), OrderID: id, ProductID: uuid.New(), ProductName: "Flat white", Qty: 2, Price: decimal.NewFromInt(4)},
			{ID: uuid.New(), OrderID: id, ProductID: uuid.New(), ProductName: "Croissant", Qty: 1, Price: decimal.NewFromInt(3), SpecialRequest: "warm"},
		},
	}
}

func createTicket(t *testing.T, svc *Service, store *memory.Store, order *models.Order) *models.KitchenTicket {
	t.Helper()
	var ticket *models.KitchenTicket
	err := store.WithinTx(context.Background(), func(tx repository.Tx) error {
		var err error
		ticket, err = svc.CreateTicket(context.Background(), tx, order)
		return err
	})
	require.NoError(t, err)
	return ticket
}

func TestCreateTicket_OncePerOrder(t *testing.T) {
	svc, store, _ := newTestService(t)
	order := testOrder(uuid.New(), uuid.New())

	ticket := createTicket(t, svc, store, order)
	assert.Equal(t, models.DispatchPending, ticket.DispatchStatus)
	assert.Len(t, ticket.Payload.Items, 2)

	err := store.WithinTx(context.Background(), func(tx repository.Tx) error {
		_, err := svc.CreateTicket(context.Background(), tx, order)
		return err
	})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Len(t, store.TicketsForOrder(order.ID), 1)
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name       string
		queueErr   error
		wantErr    bool
		wantStatus models.DispatchStatus
		wantJobs   int
	}{
		{"queued", nil, false, models.DispatchQueued, 1},
		{"queue down", errors.New("broker unreachable"), true, models.DispatchPending, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, queue := newTestService(t)
			queue.err = tt.queueErr
			ticket := createTicket(t, svc, store, testOrder(uuid.New(), uuid.New()))

			jobID, err := svc.Dispatch(context.Background(), ticket, SourceOrder)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, jobID.String(), queue.jobs[0]["jobId"])
				assert.Equal(t, ticket.ID.String(), queue.jobs[0]["ticketId"])
			}
			assert.Len(t, queue.jobs, tt.wantJobs)

			stored, err := store.GetTicket(context.Background(), ticket.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, stored.DispatchStatus)
		})
	}
}

func TestPrintKOT_ReprintsNeverCreateTickets(t *testing.T) {
	svc, store, queue := newTestService(t)
	order := testOrder(uuid.New(), uuid.New())
	ticket := createTicket(t, svc, store, order)

	first, err := svc.PrintKOT(context.Background(), ticket.ID, order.TenantID)
	require.NoError(t, err)
	second, err := svc.PrintKOT(context.Background(), ticket.ID, order.TenantID)
	require.NoError(t, err)

	assert.NotEqual(t, first.JobID, second.JobID)
	assert.Len(t, queue.jobs, 2)
	assert.Len(t, store.TicketsForOrder(order.ID), 1)
}

func TestPrintKOT_Errors(t *testing.T) {
	svc, store, queue := newTestService(t)
	order := testOrder(uuid.New(), uuid.New())
	ticket := createTicket(t, svc, store, order)

	_, err := svc.PrintKOT(context.Background(), uuid.New(), order.TenantID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = svc.PrintKOT(context.Background(), ticket.ID, uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	queue.err = errors.New("circuit open")
	_, err = svc.PrintKOT(context.Background(), ticket.ID, order.TenantID)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestListByBranch(t *testing.T) {
	svc, store, _ := newTestService(t)
	tenantID, branchID := uuid.New(), uuid.New()

	var newest uuid.UUID
	for i := 0; i < 5; i++ {
		svc.now = func() time.Time { return fixedNow.Add(time.Duration(i) * time.Minute) }
		newest = createTicket(t, svc, store, testOrder(tenantID, branchID)).ID
	}
	createTicket(t, svc, store, testOrder(tenantID, uuid.New()))

	tests := []struct {
		name      string
		page      int
		limit     int
		wantLen   int
		wantLimit int
		wantPage  int
		wantPages int
	}{
		{"defaults", 0, 0, 5, DefaultPageLimit, 1, 1},
		{"second page", 2, 2, 2, 2, 2, 3},
		{"past the end", 4, 2, 0, 2, 4, 3},
		{"capped limit", 1, 1000, 5, MaxPageLimit, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ListByBranch(context.Background(), branchID, tenantID, tt.page, tt.limit)
			require.NoError(t, err)
			assert.Len(t, got.Tickets, tt.wantLen)
			assert.Equal(t, tt.wantLimit, got.Limit)
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, 5, got.Total)
			assert.Equal(t, tt.wantPages, got.TotalPages)
		})
	}

	first, err := svc.ListByBranch(context.Background(), branchID, tenantID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, newest, first.Tickets[0].ID)
}

func TestSweepUndispatched(t *testing.T) {
	svc, store, queue := newTestService(t)

	svc.now = func() time.Time { return fixedNow.Add(-10 * time.Minute) }
	stale := createTicket(t, svc, store, testOrder(uuid.New(), uuid.New()))
	svc.now = func() time.Time { return fixedNow }
	fresh := createTicket(t, svc, store, testOrder(uuid.New(), uuid.New()))

	sent, err := svc.SweepUndispatched(context.Background(), time.Minute, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, stale.ID.String(), queue.jobs[0]["ticketId"])

	got, err := store.GetTicket(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DispatchPending, got.DispatchStatus)

	// queued tickets are not picked up again
	sent, err = svc.SweepUndispatched(context.Background(), time.Minute, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestSweepUndispatched_StopsWhenQueueDown(t *testing.T) {
	svc, store, queue := newTestService(t)
	svc.now = func() time.Time { return fixedNow.Add(-time.Hour) }
	createTicket(t, svc, store, testOrder(uuid.New(), uuid.New()))
	createTicket(t, svc, store, testOrder(uuid.New(), uuid.New()))
	svc.now = func() time.Time { return fixedNow }

	queue.err = errors.New("down")
	sent, err := svc.SweepUndispatched(context.Background(), time.Minute, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}
