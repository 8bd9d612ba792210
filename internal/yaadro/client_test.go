package yaadro

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"bill-backend/internal/models"
)

func forwardableBill() models.Bill {
	return models.Bill{
		InvoiceNumber: "INV-2025-4321",
		Date:          time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
		Customer:      models.Customer{Name: "Layla", Phone: "50 123 4567", Address: "JLT Cluster D"},
		Items: []models.InvoiceItem{
			{ID: "a", Name: "Karak Tea", Qty: 2, Rate: 100, GSTRate: 5, Amount: 200, GSTAmount: 10},
			{ID: "b", Name: "Samosa", Qty: 3, Rate: 2.5, GSTRate: 0, Amount: 7.5},
		},
		Subtotal: 207.5,
		Tax:      10,
		Total:    217.5,
	}
}

func TestBuildPayload(t *testing.T) {
	order := BuildPayload(forwardableBill())

	if order.CustomerName != "Layla" || order.CustomerPhoneNumber != "501234567" || order.Address != "JLT Cluster D" {
		t.Errorf("customer fields = %+v", order)
	}
	if order.TotalAmount != 217.5 || order.VAT != 10 || order.BillNo != "INV-2025-4321" {
		t.Errorf("amounts = %+v", order)
	}
	if order.Urgency != "Normal" || order.PaymentMode != "cash" || order.SpecialInstructions != "" {
		t.Errorf("fixed defaults = %+v", order)
	}
	if order.Tip != 0 || order.DeliveryCharge != 0 || order.Water || order.WaterCount != 0 {
		t.Errorf("zero defaults = %+v", order)
	}

	if len(order.Items) != 2 {
		t.Fatalf("Items len = %d", len(order.Items))
	}
	want := OrderItem{ItemName: "Karak Tea", Quantity: 2, Price: 100, TotalAmount: 200, VAT: 10}
	if order.Items[0] != want {
		t.Errorf("Items[0] = %+v, want %+v", order.Items[0], want)
	}
}

func TestBuildPayload_WalkInDefault(t *testing.T) {
	bill := forwardableBill()
	bill.Customer.Name = "  "
	if got := BuildPayload(bill).CustomerName; got != "Walk-in Customer" {
		t.Errorf("CustomerName = %q", got)
	}
}

func TestBuildPayload_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(BuildPayload(forwardableBill()))
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	json.Unmarshal(data, &m)

	for _, key := range []string{
		"customer_name", "customer_phone_number", "address", "total_amount", "bill_no",
		"urgency", "payment_mode", "special_instructions", "vat", "tip",
		"delivery_charge", "water", "water_count", "items",
	} {
		if _, ok := m[key]; !ok {
			t.Errorf("payload missing %q", key)
		}
	}
	item := m["items"].([]any)[0].(map[string]any)
	for _, key := range []string{"item_name", "quantity", "price", "totalamount", "vat"} {
		if _, ok := item[key]; !ok {
			t.Errorf("item missing %q", key)
		}
	}
}

func TestCreateOrder_Success(t *testing.T) {
	var gotPath string
	var gotOrder Order
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotOrder)
		w.Write([]byte(`{"order_id":"Y-1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "shop-7", "tok123", time.Second)
	res, err := c.CreateOrder(context.Background(), forwardableBill())
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if string(res) != `{"order_id":"Y-1"}` {
		t.Errorf("result = %s", res)
	}
	if gotPath != "/shop-7:tok123" {
		t.Errorf("path = %q, want /shop-7:tok123", gotPath)
	}
	if gotOrder.BillNo != "INV-2025-4321" || gotOrder.CustomerPhoneNumber != "501234567" {
		t.Errorf("posted order = %+v", gotOrder)
	}
}

func TestCreateOrder_NonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("created"))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, "s", "t", time.Second).CreateOrder(context.Background(), forwardableBill())
	if err != nil {
		t.Fatal(err)
	}
	if string(res) != `{"raw":"created"}` {
		t.Errorf("result = %s", res)
	}
}

func TestCreateOrder_ValidationFailsWithoutNetwork(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "s", "t", time.Second)
	for _, phone := range []string{"", "123456789", "0501234567", "5012345"} {
		bill := forwardableBill()
		bill.Customer.Phone = phone

		_, err := c.CreateOrder(context.Background(), bill)
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "phone" {
			t.Errorf("CreateOrder(phone %q) error = %v, want phone ValidationError", phone, err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("destination called %d times for invalid bills", n)
	}
}

func TestCreateOrder_NotConfigured(t *testing.T) {
	c := NewClient("", "", "", 0)
	_, err := c.CreateOrder(context.Background(), forwardableBill())
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("CreateOrder() error = %v, want ErrNotConfigured", err)
	}
}

func TestCreateOrder_APIErrors(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusUnprocessableEntity, false},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(`{"message":"shop closed"}`))
		}))

		_, err := NewClient(srv.URL, "s", "t", time.Second).CreateOrder(context.Background(), forwardableBill())
		srv.Close()

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("status %d: error = %v, want *APIError", tt.status, err)
		}
		if apiErr.StatusCode != tt.status || apiErr.Retryable != tt.retryable {
			t.Errorf("status %d: APIError = %+v", tt.status, apiErr)
		}
		if apiErr.Details != `{"message":"shop closed"}` {
			t.Errorf("Details = %q", apiErr.Details)
		}
	}
}

func TestCreateOrder_TransportErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := NewClient(base, "shop", "super-secret-token", time.Second).CreateOrder(context.Background(), forwardableBill())
	if err == nil {
		t.Fatal("CreateOrder() error = nil")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("transport failure reported as APIError")
	}
	if strings.Contains(err.Error(), "super-secret-token") {
		t.Errorf("error leaks token: %v", err)
	}
}
