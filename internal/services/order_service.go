package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bill-backend/internal/metrics"
	"bill-backend/internal/models"
	"bill-backend/internal/timeutil"
	"bill-backend/internal/yaadro"

	"go.uber.org/zap"
)

// OrderForwarder creates a delivery order for a bill
type OrderForwarder interface {
	CreateOrder(ctx context.Context, bill models.Bill) (json.RawMessage, error)
}

// Result is what the operator sees after a forward attempt
type Result struct {
	OK        bool            `json:"ok"`
	Error     string          `json:"error,omitempty"`
	Retryable bool            `json:"retryable,omitempty"`
	Response  json.RawMessage `json:"response,omitempty"`
	SentAt    *time.Time      `json:"sentAt,omitempty"`
}

// OrderService forwards saved bills and records when they were sent
type OrderService struct {
	forwarder OrderForwarder
	bills     *BillService
	history   *HistoryService
	now       func() time.Time
	log       *zap.Logger
}

func NewOrderService(forwarder OrderForwarder, bills *BillService, history *HistoryService) *OrderService {
	return &OrderService{
		forwarder: forwarder,
		bills:     bills,
		history:   history,
		now:       timeutil.Now,
		log:       zap.L().Named("orders"),
	}
}

// ForwardSaved forwards the stored bill with the given number
func (s *OrderService) ForwardSaved(ctx context.Context, invoiceNumber string) Result {
	bill, err := s.history.Get(ctx, invoiceNumber)
	if err != nil {
		return Result{Error: err.Error()}
	}
	if bill == nil {
		return Result{Error: ErrBillNotFound.Error()}
	}
	return s.Forward(ctx, *bill)
}

// Forward sends the bill. On success it is re-saved with yaadroSentAt set.
// Errors never escape; they come back in the Result.
func (s *OrderService) Forward(ctx context.Context, bill models.Bill) Result {
	log := s.log.With(zap.String("invoice_number", bill.InvoiceNumber))

	resp, err := s.forwarder.CreateOrder(ctx, bill)
	if err != nil {
		res := Result{Error: err.Error()}
		var vErr *yaadro.ValidationError
		var apiErr *yaadro.APIError
		switch {
		case errors.As(err, &vErr):
			metrics.OrderForwards.WithLabelValues("invalid").Inc()
		case errors.Is(err, yaadro.ErrNotConfigured):
			metrics.OrderForwards.WithLabelValues("not_configured").Inc()
		case errors.As(err, &apiErr):
			metrics.OrderForwards.WithLabelValues("rejected").Inc()
			res.Retryable = apiErr.Retryable
			if apiErr.Details != "" {
				res.Error = err.Error() + ": " + apiErr.Details
			}
			log.Warn("order rejected", zap.Int("status", apiErr.StatusCode))
		default:
			metrics.OrderForwards.WithLabelValues("transport").Inc()
			res.Retryable = true
			log.Warn("order forward failed", zap.Error(err))
		}
		return res
	}

	metrics.OrderForwards.WithLabelValues("sent").Inc()
	sentAt := s.now()
	bill.YaadroSentAt = &sentAt
	if err := s.bills.Store(ctx, bill); err != nil {
		// the order went out; only the marker is lost
		log.Error("order sent but bill not updated", zap.Error(err))
	}

	return Result{OK: true, Response: resp, SentAt: &sentAt}
}
