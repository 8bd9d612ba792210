package services

import (
	"context"
	"errors"

	"bill-backend/internal/metrics"
	"bill-backend/internal/models"
	"bill-backend/internal/remote"
	"bill-backend/internal/share"

	"go.uber.org/zap"
)

// ErrBillNotFound means no store and no link fragment had the bill
var ErrBillNotFound = errors.New("bill not found")

// Source says where a shared bill was found
type Source string

const (
	SourceLocal    Source = "local"
	SourceRemote   Source = "remote"
	SourceFragment Source = "fragment"
)

// RemoteFetcher reads a bill from the cloud copy
type RemoteFetcher interface {
	Fetch(ctx context.Context, invoiceNumber string) (models.Bill, error)
}

// ShareService builds share links and resolves them back to bills
type ShareService struct {
	baseURL string
	bills   *BillService
	history *HistoryService
	remote  RemoteFetcher
	log     *zap.Logger
}

// NewShareService wires link resolution. remote may be nil.
func NewShareService(baseURL string, bills *BillService, history *HistoryService, remote RemoteFetcher) *ShareService {
	return &ShareService{
		baseURL: baseURL,
		bills:   bills,
		history: history,
		remote:  remote,
		log:     zap.L().Named("share"),
	}
}

// Links returns the short and self-contained URLs for a bill
func (s *ShareService) Links(bill models.Bill) (short, full string, err error) {
	full, err = share.SelfContainedURL(s.baseURL, bill)
	if err != nil {
		return "", "", err
	}
	return share.ShortURL(s.baseURL, bill.InvoiceNumber), full, nil
}

// ResolveURL parses a share URL and resolves it
func (s *ShareService) ResolveURL(ctx context.Context, raw string) (models.Bill, Source, error) {
	link, ok := share.ParseViewURL(raw)
	if !ok {
		return models.Bill{}, "", ErrBillNotFound
	}
	return s.Resolve(ctx, link.InvoiceNumber, link.Fragment)
}

// Resolve looks for the bill locally, then remotely, then in the link
// fragment. Remote and fragment hits are written back to the local store.
func (s *ShareService) Resolve(ctx context.Context, invoiceNumber, fragment string) (models.Bill, Source, error) {
	log := s.log.With(zap.String("invoice_number", invoiceNumber))

	if invoiceNumber != "" {
		bill, err := s.history.Get(ctx, invoiceNumber)
		if err != nil {
			log.Warn("local lookup failed", zap.Error(err))
		}
		if bill != nil {
			metrics.ShareResolutions.WithLabelValues(string(SourceLocal)).Inc()
			return *bill, SourceLocal, nil
		}

		if s.remote != nil {
			fetched, err := s.remote.Fetch(ctx, invoiceNumber)
			switch {
			case err == nil:
				if !s.history.Save(ctx, fetched) {
					log.Warn("could not keep remote copy locally")
				}
				metrics.ShareResolutions.WithLabelValues(string(SourceRemote)).Inc()
				return fetched, SourceRemote, nil
			case errors.Is(err, remote.ErrNotFound), errors.Is(err, remote.ErrNotConfigured):
			default:
				log.Error("remote lookup failed", zap.Error(err))
			}
		}
	}

	if bill, ok := share.DecodePayload(fragment); ok {
		if err := s.bills.Store(ctx, bill); err != nil {
			log.Warn("could not keep shared bill locally", zap.Error(err))
		}
		metrics.ShareResolutions.WithLabelValues(string(SourceFragment)).Inc()
		return bill, SourceFragment, nil
	}

	metrics.ShareResolutions.WithLabelValues("not_found").Inc()
	return models.Bill{}, "", ErrBillNotFound
}
