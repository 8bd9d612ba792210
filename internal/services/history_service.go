package services

import (
	"context"
	"sync"

	"bill-backend/internal/billing"
	"bill-backend/internal/local"
	"bill-backend/internal/metrics"
	"bill-backend/internal/models"

	"go.uber.org/zap"
)

// HistoryService is the saved-bills list: newest first, meaning reverse
// storage order. A bill updated in place keeps its original position.
type HistoryService struct {
	mu    sync.Mutex
	store local.BillStore
	bills []models.Bill
	log   *zap.Logger
}

func NewHistoryService(store local.BillStore) *HistoryService {
	return &HistoryService{
		store: store,
		log:   zap.L().Named("history"),
	}
}

// Load re-reads the store. On failure the last good list is kept and returned.
func (s *HistoryService) Load(ctx context.Context) []models.Bill {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.store.List(ctx)
	if err != nil {
		s.log.Error("failed to load bills", zap.Error(err))
		return cloneBills(s.bills)
	}

	bills := make([]models.Bill, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		bills = append(bills, stored[i])
	}
	s.bills = bills
	return cloneBills(s.bills)
}

// Bills returns the list as of the last Load/Save/Delete
func (s *HistoryService) Bills() []models.Bill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneBills(s.bills)
}

// Get reads straight from the store; nil, nil when absent
func (s *HistoryService) Get(ctx context.Context, invoiceNumber string) (*models.Bill, error) {
	return s.store.Get(ctx, invoiceNumber)
}

// Save upserts the bill. false means the write was lost; the list is left
// as it was.
func (s *HistoryService) Save(ctx context.Context, bill models.Bill) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Upsert(ctx, bill); err != nil {
		s.log.Error("failed to save bill", zap.String("invoice_number", bill.InvoiceNumber), zap.Error(err))
		return false
	}
	metrics.BillsSaved.WithLabelValues("local").Inc()

	saved := billing.CloneBill(bill)
	for i := range s.bills {
		if s.bills[i].InvoiceNumber == bill.InvoiceNumber {
			s.bills[i] = saved
			return true
		}
	}
	s.bills = append([]models.Bill{saved}, s.bills...)
	return true
}

// Delete removes the bill locally. Any remote copy is left alone.
func (s *HistoryService) Delete(ctx context.Context, invoiceNumber string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, invoiceNumber); err != nil {
		s.log.Error("failed to delete bill", zap.String("invoice_number", invoiceNumber), zap.Error(err))
		return false
	}

	kept := s.bills[:0]
	for _, b := range s.bills {
		if b.InvoiceNumber != invoiceNumber {
			kept = append(kept, b)
		}
	}
	s.bills = kept
	return true
}

func cloneBills(bills []models.Bill) []models.Bill {
	out := make([]models.Bill, len(bills))
	for i, b := range bills {
		out[i] = billing.CloneBill(b)
	}
	return out
}
