package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"bill-backend/internal/billing"
	"bill-backend/internal/cache"
	"bill-backend/internal/metrics"
	"bill-backend/internal/models"
	"bill-backend/internal/repositories"
	"bill-backend/internal/services"
	"bill-backend/pkg/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxBillBody = 1 << 20

// BillStore is the server-side bill table
type BillStore interface {
	Upsert(ctx context.Context, bill models.Bill) error
	Get(ctx context.Context, invoiceNumber string) (*models.Bill, error)
}

// Archiver keeps an off-site copy of accepted bills
type Archiver interface {
	Archive(ctx context.Context, bill models.Bill) error
}

type BillHandler struct {
	Store    BillStore
	Archive  Archiver
	Receipts *services.ReceiptService

	wg  sync.WaitGroup
	log *zap.Logger
}

// NewBillHandler wires the bill API. store nil means the database is not
// configured; archive may be nil.
func NewBillHandler(store BillStore, archive Archiver, receipts *services.ReceiptService) *BillHandler {
	return &BillHandler{
		Store:    store,
		Archive:  archive,
		Receipts: receipts,
		log:      zap.L().Named("bill_handler"),
	}
}

// UpsertBill handles POST /api/bills
func (h *BillHandler) UpsertBill(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		utils.Error(w, http.StatusServiceUnavailable, "Database not configured")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBillBody))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	bill, err := billing.NormalizeJSON(body)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	bill.InvoiceNumber = strings.TrimSpace(bill.InvoiceNumber)
	if bill.InvoiceNumber == "" {
		utils.Error(w, http.StatusBadRequest, "invoiceNumber required")
		return
	}

	if err := h.Store.Upsert(r.Context(), bill); err != nil {
		h.log.Error("bill upsert failed", zap.String("invoice_number", bill.InvoiceNumber), zap.Error(err))
		utils.Error(w, http.StatusInternalServerError, "Failed to save bill")
		return
	}
	metrics.BillsSaved.WithLabelValues("server").Inc()
	cache.InvalidateBill(r.Context(), bill.InvoiceNumber)
	h.archive(bill)

	utils.JSON(w, http.StatusOK, map[string]interface{}{"ok": true, "id": bill.InvoiceNumber})
}

// GetBill handles GET /api/bills/{id}
func (h *BillHandler) GetBill(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if data, ok := cache.GetCachedBill(r.Context(), id); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}

	bill, ok := h.lookup(w, r, id)
	if !ok {
		return
	}

	data, err := json.Marshal(bill)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to encode bill")
		return
	}
	cache.CacheBill(r.Context(), id, data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GetBillPDF handles GET /api/bills/{id}/pdf
func (h *BillHandler) GetBillPDF(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	bill, ok := h.lookup(w, r, id)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.Receipts.Write(&buf, *bill); err != nil {
		h.log.Error("receipt render failed", zap.String("invoice_number", id), zap.Error(err))
		utils.Error(w, http.StatusInternalServerError, "Failed to render receipt")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+utils.SafeFilename(id)+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// lookup writes the error response itself and reports whether to continue
func (h *BillHandler) lookup(w http.ResponseWriter, r *http.Request, id string) (*models.Bill, bool) {
	if h.Store == nil {
		utils.Error(w, http.StatusServiceUnavailable, "Database not configured")
		return nil, false
	}

	bill, err := h.Store.Get(r.Context(), id)
	if errors.Is(err, repositories.ErrBillNotFound) || (err == nil && bill == nil) {
		utils.Error(w, http.StatusNotFound, "Bill not found")
		return nil, false
	}
	if err != nil {
		h.log.Error("bill lookup failed", zap.String("invoice_number", id), zap.Error(err))
		utils.Error(w, http.StatusInternalServerError, "Failed to load bill")
		return nil, false
	}
	return bill, true
}

func (h *BillHandler) archive(bill models.Bill) {
	if h.Archive == nil {
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := h.Archive.Archive(ctx, bill); err != nil {
			h.log.Warn("bill archive failed", zap.String("invoice_number", bill.InvoiceNumber), zap.Error(err))
		}
	}()
}

// Wait blocks until background archive uploads finish
func (h *BillHandler) Wait() {
	h.wg.Wait()
}
