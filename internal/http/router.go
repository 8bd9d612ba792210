package http

import (
	"net/http"

	"bill-backend/internal/handlers"
	"bill-backend/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	billHandler *handlers.BillHandler,
	yaadroHandler *handlers.YaadroHandler,
	healthHandler *handlers.HealthHandler,
	orderLimiter *middleware.RateLimiter,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	// Bill sync API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/bills", billHandler.UpsertBill).Methods("POST")
	api.HandleFunc("/bills/{id}", billHandler.GetBill).Methods("GET")
	api.HandleFunc("/bills/{id}/pdf", billHandler.GetBillPDF).Methods("GET")

	// Delivery order proxy
	order := http.HandlerFunc(yaadroHandler.CreateOrder)
	if orderLimiter != nil {
		api.Handle("/yaadro/order", orderLimiter.Middleware(order)).Methods("POST")
	} else {
		api.Handle("/yaadro/order", order).Methods("POST")
	}

	// Health check endpoints
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	return r
}
