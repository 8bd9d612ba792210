package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"bill-backend/internal/billing"
	"bill-backend/internal/metrics"
	"bill-backend/internal/models"

	"go.uber.org/zap"
)

// ErrSaveFailed means the local store rejected the write
var ErrSaveFailed = errors.New("bill could not be saved locally")

// RemoteMirror is the cloud copy written after each local save
type RemoteMirror interface {
	Upsert(ctx context.Context, bill models.Bill) error
}

// BillService saves bills locally and mirrors them to the remote service.
// The local write is the result; the mirror runs in the background and its
// failures are only logged.
type BillService struct {
	history     *HistoryService
	remote      RemoteMirror
	syncTimeout time.Duration
	wg          sync.WaitGroup
	log         *zap.Logger
}

// NewBillService wires the save path. remote may be nil to stay offline.
func NewBillService(history *HistoryService, remote RemoteMirror, syncTimeout time.Duration) *BillService {
	if syncTimeout <= 0 {
		syncTimeout = 10 * time.Second
	}
	return &BillService{
		history:     history,
		remote:      remote,
		syncTimeout: syncTimeout,
		log:         zap.L().Named("bills"),
	}
}

// Save validates the draft and stores it as a bill. With preserveForwarded
// the yaadroSentAt of the bill already stored under the same number is kept.
func (s *BillService) Save(ctx context.Context, draft models.Draft, preserveForwarded bool) (models.Bill, error) {
	if err := billing.ValidateForSave(draft); err != nil {
		return models.Bill{}, err
	}

	var prior *models.Bill
	if preserveForwarded {
		existing, err := s.history.Get(ctx, draft.InvoiceNumber)
		if err != nil {
			s.log.Warn("could not read existing bill", zap.String("invoice_number", draft.InvoiceNumber), zap.Error(err))
		}
		prior = existing
	}

	bill := billing.ToBill(draft, prior, preserveForwarded)
	if err := s.Store(ctx, bill); err != nil {
		return models.Bill{}, err
	}
	return bill, nil
}

// Store writes an already-built bill locally, then mirrors it
func (s *BillService) Store(ctx context.Context, bill models.Bill) error {
	if !s.history.Save(ctx, bill) {
		return ErrSaveFailed
	}
	s.mirror(bill)
	return nil
}

func (s *BillService) mirror(bill models.Bill) {
	if s.remote == nil {
		return
	}

	bill = billing.CloneBill(bill)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
		defer cancel()

		if err := s.remote.Upsert(ctx, bill); err != nil {
			metrics.RemoteSyncFailures.Inc()
			s.log.Warn("remote sync failed", zap.String("invoice_number", bill.InvoiceNumber), zap.Error(err))
			return
		}
		metrics.BillsSaved.WithLabelValues("remote").Inc()
	}()
}

// Wait blocks until in-flight mirror writes finish
func (s *BillService) Wait() {
	s.wg.Wait()
}
