package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"bill-backend/internal/yaadro"
)

func newOrderFixture(t *testing.T, fwd *fakeForwarder) (*OrderService, *HistoryService, *BillService) {
	t.Helper()
	history := NewHistoryService(newFlakyStore())
	bills := NewBillService(history, nil, 0)
	orders := NewOrderService(fwd, bills, history)
	return orders, history, bills
}

func TestOrderService_ForwardStampsAndResaves(t *testing.T) {
	ctx := context.Background()
	fwd := &fakeForwarder{}
	orders, history, bills := newOrderFixture(t, fwd)
	sentAt := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)
	orders.now = func() time.Time { return sentAt }

	bill, err := bills.Save(ctx, validDraft("INV-2025-3001", 2), true)
	if err != nil {
		t.Fatal(err)
	}

	res := orders.Forward(ctx, bill)
	if !res.OK || res.Error != "" {
		t.Fatalf("Forward() = %+v", res)
	}
	if string(res.Response) != `{"order_id":"Y-77"}` {
		t.Errorf("Response = %s", res.Response)
	}
	if res.SentAt == nil || !res.SentAt.Equal(sentAt) {
		t.Errorf("SentAt = %v", res.SentAt)
	}
	if len(fwd.calls) != 1 || fwd.calls[0].InvoiceNumber != "INV-2025-3001" {
		t.Errorf("forwarder calls = %+v", fwd.calls)
	}

	stored, _ := history.Get(ctx, "INV-2025-3001")
	if stored == nil || stored.YaadroSentAt == nil || !stored.YaadroSentAt.Equal(sentAt) {
		t.Errorf("stored bill = %+v", stored)
	}
	if got := numbers(history.Bills()); len(got) != 1 {
		t.Errorf("history = %v, want one entry", got)
	}
}

func TestOrderService_ForwardErrors(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantRetryable bool
		wantContains  string
	}{
		{
			name:         "validation",
			err:          &yaadro.ValidationError{Field: "phone", Message: "Valid UAE phone number required"},
			wantContains: "phone",
		},
		{
			name:         "not configured",
			err:          yaadro.ErrNotConfigured,
			wantContains: "not configured",
		},
		{
			name:          "server error",
			err:           &yaadro.APIError{StatusCode: 503, Details: "maintenance", Retryable: true},
			wantRetryable: true,
			wantContains:  "maintenance",
		},
		{
			name:         "client error",
			err:          &yaadro.APIError{StatusCode: 422, Details: "bad address"},
			wantContains: "bad address",
		},
		{
			name:          "transport",
			err:           errors.New("connection reset"),
			wantRetryable: true,
			wantContains:  "connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			observeLogs(t)
			orders, history, bills := newOrderFixture(t, &fakeForwarder{err: tt.err})
			bill, err := bills.Save(ctx, validDraft("INV-2025-3002", 1), true)
			if err != nil {
				t.Fatal(err)
			}

			res := orders.Forward(ctx, bill)
			if res.OK {
				t.Fatal("Forward() OK on error")
			}
			if res.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", res.Retryable, tt.wantRetryable)
			}
			if !strings.Contains(strings.ToLower(res.Error), tt.wantContains) {
				t.Errorf("Error = %q, want it to mention %q", res.Error, tt.wantContains)
			}

			stored, _ := history.Get(ctx, "INV-2025-3002")
			if stored.YaadroSentAt != nil {
				t.Error("failed forward stamped the bill")
			}
		})
	}
}

func TestOrderService_ForwardSavedUnknownBill(t *testing.T) {
	fwd := &fakeForwarder{}
	orders, _, _ := newOrderFixture(t, fwd)

	res := orders.ForwardSaved(context.Background(), "INV-missing")
	if res.OK || res.Error != ErrBillNotFound.Error() {
		t.Errorf("ForwardSaved() = %+v", res)
	}
	if len(fwd.calls) != 0 {
		t.Error("forwarder called for unknown bill")
	}
}
