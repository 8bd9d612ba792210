package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bill-backend/internal/handlers"
	"bill-backend/internal/health"
	"bill-backend/internal/middleware"
	"bill-backend/internal/models"
	"bill-backend/internal/services"
)

type stubOrders struct{}

func (stubOrders) Configured() bool { return true }

func (stubOrders) CreateOrder(ctx context.Context, bill models.Bill) (json.RawMessage, error) {
	return json.RawMessage(`{"ok":true}`), nil
}

func newTestRouter(limiter *middleware.RateLimiter) http.Handler {
	return NewRouter(
		handlers.NewBillHandler(nil, nil, services.NewReceiptService("", "")),
		handlers.NewYaadroHandler(stubOrders{}),
		handlers.NewHealthHandler(health.NewHealthChecker(nil, nil)),
		limiter,
	)
}

func TestRoutes(t *testing.T) {
	router := newTestRouter(nil)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{"GET", "/health", "", http.StatusOK},
		{"GET", "/health/ready", "", http.StatusOK},
		{"GET", "/metrics", "", http.StatusOK},
		// no database configured
		{"POST", "/api/bills", `{"invoiceNumber":"INV-1"}`, http.StatusServiceUnavailable},
		{"GET", "/api/bills/INV-1", "", http.StatusServiceUnavailable},
		{"DELETE", "/api/bills/INV-1", "", http.StatusMethodNotAllowed},
		{"POST", "/api/yaadro/order", `{"invoiceNumber":"INV-1"}`, http.StatusOK},
		{"GET", "/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestOrderRouteIsRateLimited(t *testing.T) {
	router := newTestRouter(middleware.NewRateLimiter(0.001, 1))

	codes := make([]int, 2)
	for i := range codes {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/yaadro/order", strings.NewReader(`{}`)))
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 429]", codes)
	}
}
