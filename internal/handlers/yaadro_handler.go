package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"bill-backend/internal/billing"
	"bill-backend/internal/metrics"
	"bill-backend/internal/models"
	"bill-backend/internal/yaadro"
	"bill-backend/pkg/utils"

	"go.uber.org/zap"
)

// OrderCreator is the Yaadro client as seen by the proxy
type OrderCreator interface {
	Configured() bool
	CreateOrder(ctx context.Context, bill models.Bill) (json.RawMessage, error)
}

// YaadroHandler proxies delivery orders so the integration token never
// leaves the server
type YaadroHandler struct {
	Orders OrderCreator
	log    *zap.Logger
}

func NewYaadroHandler(orders OrderCreator) *YaadroHandler {
	return &YaadroHandler{Orders: orders, log: zap.L().Named("yaadro_handler")}
}

// CreateOrder handles POST /api/yaadro/order with a bill as body
func (h *YaadroHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if h.Orders == nil || !h.Orders.Configured() {
		metrics.OrderForwards.WithLabelValues("not_configured").Inc()
		utils.Error(w, http.StatusServiceUnavailable, yaadro.ErrNotConfigured.Error())
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

	resp, err := h.Orders.CreateOrder(r.Context(), bill)
	if err != nil {
		h.writeError(w, bill.InvoiceNumber, err)
		return
	}

	metrics.OrderForwards.WithLabelValues("sent").Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(resp)
}

func (h *YaadroHandler) writeError(w http.ResponseWriter, invoiceNumber string, err error) {
	var vErr *yaadro.ValidationError
	var apiErr *yaadro.APIError

	switch {
	case errors.As(err, &vErr):
		metrics.OrderForwards.WithLabelValues("invalid").Inc()
		utils.Error(w, http.StatusBadRequest, vErr.Message)
	case errors.Is(err, yaadro.ErrNotConfigured):
		metrics.OrderForwards.WithLabelValues("not_configured").Inc()
		utils.Error(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &apiErr):
		metrics.OrderForwards.WithLabelValues("rejected").Inc()
		status := http.StatusBadRequest
		if apiErr.StatusCode >= 500 {
			status = http.StatusBadGateway
		}
		utils.JSON(w, status, map[string]string{
			"error":   apiErr.Error(),
			"details": apiErr.Details,
		})
	default:
		metrics.OrderForwards.WithLabelValues("transport").Inc()
		h.log.Error("order proxy failed", zap.String("invoice_number", invoiceNumber), zap.Error(err))
		utils.Error(w, http.StatusBadGateway, "Yaadro unreachable")
	}
}
