package local

import (
	"context"
	"sync"

	"bill-backend/internal/billing"
	"bill-backend/internal/models"
)

// MemoryStore is an in-process BillStore for tests and --offline sessions
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	bills map[string]models.Bill
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bills: make(map[string]models.Bill)}
}

func (s *MemoryStore) Get(ctx context.Context, invoiceNumber string) (*models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bill, ok := s.bills[invoiceNumber]
	if !ok {
		return nil, nil
	}
	bill = billing.CloneBill(bill)
	return &bill, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, bill models.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bills[bill.InvoiceNumber]; !ok {
		s.order = append(s.order, bill.InvoiceNumber)
	}
	s.bills[bill.InvoiceNumber] = billing.CloneBill(bill)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bills := make([]models.Bill, 0, len(s.order))
	for _, n := range s.order {
		bills = append(bills, billing.CloneBill(s.bills[n]))
	}
	return bills, nil
}

func (s *MemoryStore) Delete(ctx context.Context, invoiceNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bills[invoiceNumber]; !ok {
		return nil
	}
	delete(s.bills, invoiceNumber)
	for i, n := range s.order {
		if n == invoiceNumber {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// MemoryDraftStore holds the cart snapshot in process
type MemoryDraftStore struct {
	mu    sync.Mutex
	draft *models.Draft
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{}
}

func (s *MemoryDraftStore) LoadDraft(ctx context.Context) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft == nil {
		return nil, nil
	}
	d := *s.draft
	d.Items = append([]models.InvoiceItem(nil), s.draft.Items...)
	return &d, nil
}

func (s *MemoryDraftStore) SaveDraft(ctx context.Context, draft models.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft.Items = append([]models.InvoiceItem(nil), draft.Items...)
	s.draft = &draft
	return nil
}
