package billing

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"bill-backend/internal/models"
	"bill-backend/internal/timeutil"
)

func TestToBill_TotalsMatchCart(t *testing.T) {
	ctx := context.Background()
	cart := OpenCart(ctx, nil)
	cart.AddItem(ctx, tea)
	cart.AddItem(ctx, cake)
	cart.AddItem(ctx, cake)
	cart.AddItem(ctx, coffee)

	bill := ToBill(cart.Snapshot(), nil, false)
	roundTripped := Normalize(bill)

	if roundTripped.Subtotal != cart.Subtotal() {
		t.Errorf("Subtotal = %v, want %v", roundTripped.Subtotal, cart.Subtotal())
	}
	if roundTripped.Tax != cart.TotalTax() {
		t.Errorf("Tax = %v, want %v", roundTripped.Tax, cart.TotalTax())
	}
	if roundTripped.Total != cart.GrandTotal() {
		t.Errorf("Total = %v, want %v", roundTripped.Total, cart.GrandTotal())
	}
	if !Reconciles(roundTripped) {
		t.Error("Reconciles() = false for a freshly converted bill")
	}
}

func TestToBill_CopiesItems(t *testing.T) {
	draft := models.Draft{InvoiceNumber: "INV-1", Items: []models.InvoiceItem{DeriveLine(tea, 1)}}
	bill := ToBill(draft, nil, false)
	draft.Items[0].Amount = 9999
	if bill.Items[0].Amount != 100 {
		t.Error("ToBill() shares the draft's item slice")
	}
}

func TestToBill_DropsZeroQuantityLines(t *testing.T) {
	ctx := context.Background()
	cart := OpenCart(ctx, nil)
	teaLine := cart.AddItem(ctx, tea)
	cart.AddItem(ctx, cake)
	cart.UpdateQty(ctx, teaLine.ID, 0)

	if n := len(cart.Items()); n != 2 {
		t.Fatalf("cart has %d lines, want the 0-qty line kept in the draft", n)
	}

	bill := ToBill(cart.Snapshot(), nil, false)
	if len(bill.Items) != 1 || bill.Items[0].ProductID != cake.ID {
		t.Fatalf("Items = %+v, want only the cake line", bill.Items)
	}
	if bill.Subtotal != cake.Price || !Reconciles(bill) {
		t.Errorf("Subtotal = %v, want %v", bill.Subtotal, cake.Price)
	}
}

func TestToBill_ForwardTimestamp(t *testing.T) {
	sentAt := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	prior := &models.Bill{InvoiceNumber: "INV-1", YaadroSentAt: &sentAt}
	draft := models.Draft{InvoiceNumber: "INV-1", Items: []models.InvoiceItem{RecomputeLine(DeriveLine(tea, 1), 4)}}

	kept := ToBill(draft, prior, true)
	if kept.YaadroSentAt == nil || !kept.YaadroSentAt.Equal(sentAt) {
		t.Errorf("YaadroSentAt = %v, want %v", kept.YaadroSentAt, sentAt)
	}
	if kept.Subtotal != 400 || !approx(kept.Total, 420) {
		t.Errorf("totals = %v/%v, want recomputed 400/420", kept.Subtotal, kept.Total)
	}

	dropped := ToBill(draft, prior, false)
	if dropped.YaadroSentAt != nil {
		t.Error("YaadroSentAt carried forward without being requested")
	}
}

func TestNormalizeJSON(t *testing.T) {
	fixedNow := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	clock = func() time.Time { return fixedNow }
	t.Cleanup(func() { clock = timeutil.Now })

	tests := []struct {
		name  string
		input string
		check func(t *testing.T, b models.Bill)
	}{
		{
			name:  "well formed",
			input: `{"invoiceNumber":"INV-2025-1234","date":"2025-01-15T08:00:00.000Z","customer":{"name":"Ali","email":"","phone":"501234567","address":"Deira"},"items":[{"id":"a","productId":"prod-1","name":"Tea","qty":2,"unit":"Nos","rate":100,"gstRate":5,"amount":200,"gstAmount":10}],"subtotal":200,"tax":10,"total":210,"yaadroSentAt":"2025-01-15T09:00:00Z"}`,
			check: func(t *testing.T, b models.Bill) {
				if b.InvoiceNumber != "INV-2025-1234" || b.Customer.Name != "Ali" || b.Customer.Address != "Deira" {
					t.Errorf("bill = %+v", b)
				}
				if !b.Date.Equal(time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)) {
					t.Errorf("Date = %v", b.Date)
				}
				if len(b.Items) != 1 || b.Items[0].Qty != 2 || b.Items[0].GSTAmount != 10 {
					t.Errorf("Items = %+v", b.Items)
				}
				if b.Total != 210 || b.YaadroSentAt == nil {
					t.Errorf("Total = %v, YaadroSentAt = %v", b.Total, b.YaadroSentAt)
				}
			},
		},
		{
			name:  "missing everything",
			input: `{}`,
			check: func(t *testing.T, b models.Bill) {
				if b.Items == nil || len(b.Items) != 0 {
					t.Errorf("Items = %#v, want empty slice", b.Items)
				}
				if b.Customer != (models.Customer{}) || b.Total != 0 {
					t.Errorf("bill = %+v", b)
				}
				if !b.Date.Equal(fixedNow) {
					t.Errorf("Date = %v, want the current time %v", b.Date, fixedNow)
				}
			},
		},
		{
			name:  "wrong types",
			input: `{"invoiceNumber":42,"customer":"nope","items":{"a":1},"subtotal":"12.5","tax":"abc","total":null}`,
			check: func(t *testing.T, b models.Bill) {
				if b.InvoiceNumber != "42" {
					t.Errorf("InvoiceNumber = %q, want 42", b.InvoiceNumber)
				}
				if b.Subtotal != 12.5 || b.Tax != 0 || b.Total != 0 {
					t.Errorf("totals = %v/%v/%v", b.Subtotal, b.Tax, b.Total)
				}
				if len(b.Items) != 0 || b.Customer != (models.Customer{}) {
					t.Errorf("bill = %+v", b)
				}
			},
		},
		{
			name:  "bad items",
			input: `{"items":[1,"x",{"id":7,"qty":"3","rate":true,"name":null}],"date":1736928000000}`,
			check: func(t *testing.T, b models.Bill) {
				if len(b.Items) != 1 {
					t.Fatalf("Items = %+v, want one object item", b.Items)
				}
				item := b.Items[0]
				if item.ID != "7" || item.Qty != 3 || item.Rate != 1 || item.Name != "" {
					t.Errorf("item = %+v", item)
				}
				if !b.Date.Equal(time.UnixMilli(1736928000000)) {
					t.Errorf("Date = %v", b.Date)
				}
			},
		},
		{
			name:  "not an object",
			input: `[1,2,3]`,
			check: func(t *testing.T, b models.Bill) {
				if b.InvoiceNumber != "" || b.Items == nil {
					t.Errorf("bill = %+v", b)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NormalizeJSON([]byte(tt.input))
			if err != nil {
				t.Fatalf("NormalizeJSON() error = %v", err)
			}
			tt.check(t, b)
		})
	}
}

func TestDecodeBill(t *testing.T) {
	bill, err := DecodeBill([]byte(`{"invoiceNumber":"INV-7","total":"8"}`))
	if err != nil || bill.InvoiceNumber != "INV-7" || bill.Total != 8 {
		t.Errorf("DecodeBill() = %+v, %v", bill, err)
	}

	for _, input := range []string{`1`, `[]`, `null`, `"INV-7"`, `{}`, `{"invoiceNumber":""}`} {
		if _, err := DecodeBill([]byte(input)); !errors.Is(err, ErrNotABill) {
			t.Errorf("DecodeBill(%s) error = %v, want ErrNotABill", input, err)
		}
	}
	if _, err := DecodeBill([]byte(`{oops`)); err == nil || errors.Is(err, ErrNotABill) {
		t.Errorf("DecodeBill(invalid) error = %v, want a JSON error", err)
	}
}

func TestNormalizeJSON_NotJSON(t *testing.T) {
	if _, err := NormalizeJSON([]byte("{not json")); err == nil {
		t.Error("NormalizeJSON() error = nil for invalid JSON")
	}
}

func TestNormalize_CanonicalRoundTrip(t *testing.T) {
	ctx := context.Background()
	cart := OpenCart(ctx, nil)
	cart.AddItem(ctx, tea)
	cart.AddItem(ctx, cake)
	name := "Fatima"
	cart.SetCustomer(ctx, CustomerPatch{Name: &name})
	bill := ToBill(cart.Snapshot(), nil, false)

	data, err := json.Marshal(bill)
	if err != nil {
		t.Fatal(err)
	}
	got, err := NormalizeJSON(data)
	if err != nil {
		t.Fatal(err)
	}

	if !got.Date.Equal(bill.Date) {
		t.Errorf("Date = %v, want %v", got.Date, bill.Date)
	}
	got.Date = bill.Date
	if !reflect.DeepEqual(got, bill) {
		t.Errorf("round trip = %+v, want %+v", got, bill)
	}
}

func TestNormalize_TypedNil(t *testing.T) {
	var b *models.Bill
	got := Normalize(b)
	if got.Items == nil {
		t.Error("Normalize(nil) Items = nil")
	}
	if got := Normalize("garbage"); got.InvoiceNumber != "" {
		t.Errorf("Normalize(string) = %+v", got)
	}
}
