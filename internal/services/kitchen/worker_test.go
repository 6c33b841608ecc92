package kitchen

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-backoffice/internal/idempotency"
	"cafe-backoffice/internal/logger"
	"cafe-backoffice/internal/messaging"
	"cafe-backoffice/internal/models"
	"cafe-backoffice/internal/repository/memory"
)

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("printer offline") }

// unmarkableStore prints fine but cannot record that it did.
type unmarkableStore struct {
	*memory.Store
}

func (unmarkableStore) MarkTicketPrinted(ctx context.Context, id uuid.UUID, at time.Time) error {
	return errors.New("connection reset")
}

func newTestWorker(t *testing.T, printer *bytes.Buffer) (*Worker, *memory.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := memory.New()
	w := NewWorker("printer-1", store, nil, idempotency.New(client, time.Hour), printer, logger.Nop())
	w.now = func() time.Time { return fixedNow }
	return w, store, mr
}

func seedTicket(t *testing.T, store *memory.Store) *models.KitchenTicket {
	t.Helper()
	ticket := models.NewTicket(testOrder(uuid.New(), uuid.New()), fixedNow)
	require.NoError(t, store.InsertTicket(context.Background(), ticket))
	return ticket
}

func jobBody(t *testing.T, job models.PrintJob) []byte {
	t.Helper()
	body, err := json.Marshal(job.Payload())
	require.NoError(t, err)
	return body
}

func TestHandleMessage_PrintsOncePerJob(t *testing.T) {
	var out bytes.Buffer
	w, store, _ := newTestWorker(t, &out)
	ticket := seedTicket(t, store)
	body := jobBody(t, models.NewPrintJob(ticket))

	require.NoError(t, w.HandleMessage(context.Background(), body))
	// redelivery of the same job
	require.NoError(t, w.HandleMessage(context.Background(), body))

	got, err := store.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DispatchPrinted, got.DispatchStatus)
	assert.Equal(t, 1, got.PrintCount)
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("== KOT ==")))
	assert.Contains(t, out.String(), "2 x Flat white")
	assert.Contains(t, out.String(), "* warm")
}

func TestHandleMessage_ReprintPrintsAgain(t *testing.T) {
	var out bytes.Buffer
	w, store, _ := newTestWorker(t, &out)
	ticket := seedTicket(t, store)

	require.NoError(t, w.HandleMessage(context.Background(), jobBody(t, models.NewPrintJob(ticket))))
	require.NoError(t, w.HandleMessage(context.Background(), jobBody(t, models.NewPrintJob(ticket))))

	got, err := store.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.PrintCount)
	assert.Contains(t, out.String(), "REPRINT #1")
}

func TestHandleMessage_PermanentFailures(t *testing.T) {
	var out bytes.Buffer
	w, store, _ := newTestWorker(t, &out)
	ticket := seedTicket(t, store)

	wrongTenant := models.NewPrintJob(ticket)
	wrongTenant.TenantID = uuid.New()

	tests := []struct {
		name string
		body []byte
	}{
		{"not json", []byte("{")},
		{"missing ids", []byte(`{"jobId":"x"}`)},
		{"unknown ticket", jobBody(t, models.PrintJob{JobID: uuid.New(), TicketID: uuid.New(), OrderID: uuid.New(), TenantID: uuid.New(), BranchID: uuid.New()})},
		{"tenant mismatch", jobBody(t, wrongTenant)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.HandleMessage(context.Background(), tt.body)
			require.Error(t, err)
			assert.True(t, messaging.IsPermanent(err))
		})
	}
	assert.Empty(t, out.String())
}

func TestHandleMessage_PrinterFailureReleasesClaim(t *testing.T) {
	var out bytes.Buffer
	w, store, _ := newTestWorker(t, &out)
	ticket := seedTicket(t, store)
	body := jobBody(t, models.NewPrintJob(ticket))

	w.printer = failingWriter{}
	err := w.HandleMessage(context.Background(), body)
	require.Error(t, err)
	assert.False(t, messaging.IsPermanent(err))

	// the redelivery is not treated as a duplicate
	w.printer = &out
	require.NoError(t, w.HandleMessage(context.Background(), body))
	got, err := store.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.PrintCount)
}

func TestHandleMessage_MarkFailureStillAcks(t *testing.T) {
	var out bytes.Buffer
	w, store, _ := newTestWorker(t, &out)
	ticket := seedTicket(t, store)
	body := jobBody(t, models.NewPrintJob(ticket))

	w.store = unmarkableStore{store}
	require.NoError(t, w.HandleMessage(context.Background(), body))
	// the claim is kept, so a redelivery does not print twice
	require.NoError(t, w.HandleMessage(context.Background(), body))
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("== KOT ==")))

	got, err := store.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.PrintCount)
}

func TestHandleMessage_RedisDownIsRetried(t *testing.T) {
	var out bytes.Buffer
	w, store, mr := newTestWorker(t, &out)
	ticket := seedTicket(t, store)
	mr.Close()

	err := w.HandleMessage(context.Background(), jobBody(t, models.NewPrintJob(ticket)))
	require.Error(t, err)
	assert.False(t, messaging.IsPermanent(err))
	assert.Empty(t, out.String())
}

func TestRenderTicket(t *testing.T) {
	order := testOrder(uuid.New(), uuid.New())
	table := uuid.New()
	order.TableID = &table
	order.Notes = "no nuts"
	ticket := models.NewTicket(order, fixedNow)

	got := RenderTicket(ticket, fixedNow)
	assert.Contains(t, got, "Table:  "+table.String())
	assert.Contains(t, got, "Time:   2026-03-10 12:00")
	assert.Contains(t, got, "  1 x Croissant")
	assert.Contains(t, got, "Notes: no nuts")
	assert.NotContains(t, got, "REPRINT")
}
