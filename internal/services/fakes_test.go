package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"bill-backend/internal/billing"
	"bill-backend/internal/local"
	"bill-backend/internal/models"
	"bill-backend/internal/remote"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// observeLogs swaps the global logger for the duration of the test
func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	orig := zap.L()
	zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(func() { zap.ReplaceGlobals(orig) })
	return logs
}

// flakyStore wraps a MemoryStore and fails writes on demand
type flakyStore struct {
	*local.MemoryStore
	failUpsert bool
	failGet    bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: local.NewMemoryStore()}
}

func (s *flakyStore) Upsert(ctx context.Context, bill models.Bill) error {
	if s.failUpsert {
		return errors.New("quota exceeded")
	}
	return s.MemoryStore.Upsert(ctx, bill)
}

func (s *flakyStore) Get(ctx context.Context, invoiceNumber string) (*models.Bill, error) {
	if s.failGet {
		return nil, errors.New("storage unavailable")
	}
	return s.MemoryStore.Get(ctx, invoiceNumber)
}

// fakeRemote is both the mirror and the fetcher
type fakeRemote struct {
	mu        sync.Mutex
	bills     map[string]models.Bill
	upserts   []models.Bill
	upsertErr error
	fetchErr  error
	fetches   int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{bills: make(map[string]models.Bill)}
}

func (r *fakeRemote) Upsert(ctx context.Context, bill models.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.upserts = append(r.upserts, bill)
	r.bills[bill.InvoiceNumber] = bill
	return nil
}

func (r *fakeRemote) Fetch(ctx context.Context, invoiceNumber string) (models.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches++
	if r.fetchErr != nil {
		return models.Bill{}, r.fetchErr
	}
	bill, ok := r.bills[invoiceNumber]
	if !ok {
		return models.Bill{}, remote.ErrNotFound
	}
	return bill, nil
}

func (r *fakeRemote) upsertCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.upserts)
}

// fakeForwarder records bills and returns a canned result
type fakeForwarder struct {
	calls []models.Bill
	err   error
}

func (f *fakeForwarder) CreateOrder(ctx context.Context, bill models.Bill) (json.RawMessage, error) {
	f.calls = append(f.calls, bill)
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"order_id":"Y-77"}`), nil
}

var tea = models.Product{ID: "prod-1", Name: "Karak Tea", Price: 100, GSTRate: 5, Unit: models.UnitNos}

func validDraft(number string, qty float64) models.Draft {
	return models.Draft{
		InvoiceNumber: number,
		Date:          time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC),
		Customer:      models.Customer{Name: "Hamdan", Phone: "501234567"},
		Items:         []models.InvoiceItem{billing.RecomputeLine(billing.DeriveLine(tea, 1), qty)},
	}
}
