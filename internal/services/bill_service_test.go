package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"bill-backend/internal/billing"
	"bill-backend/internal/models"

	"go.uber.org/zap/zapcore"
)

func TestBillService_SaveRejectsInvalidDraft(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	svc := NewBillService(NewHistoryService(store), nil, 0)

	draft := validDraft("INV-2025-1001", 1)
	draft.Items = nil

	_, err := svc.Save(ctx, draft, true)
	var vErr *billing.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "items" {
		t.Fatalf("Save() error = %v, want items validation error", err)
	}
	if bills, _ := store.List(ctx); len(bills) != 0 {
		t.Errorf("store has %d bills after rejected save", len(bills))
	}
}

func TestBillService_SaveDropsZeroQuantityLines(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	svc := NewBillService(NewHistoryService(store), nil, 0)

	cake := models.Product{ID: "prod-2", Name: "Cake", Price: 20, GSTRate: 5, Unit: models.UnitNos}
	cart := billing.OpenCart(ctx, nil)
	teaLine := cart.AddItem(ctx, tea)
	cart.AddItem(ctx, cake)
	cart.UpdateQty(ctx, teaLine.ID, 0)
	cart.SetInvoiceNumber(ctx, "INV-2025-1009")
	name := "Hamdan"
	cart.SetCustomer(ctx, billing.CustomerPatch{Name: &name})

	bill, err := svc.Save(ctx, cart.Snapshot(), true)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	stored, _ := store.Get(ctx, "INV-2025-1009")
	for _, b := range []*models.Bill{&bill, stored} {
		if b == nil || len(b.Items) != 1 || b.Items[0].Name != "Cake" {
			t.Fatalf("saved items = %+v, want only Cake", b)
		}
		if b.Total != 21 {
			t.Errorf("Total = %v, want 21", b.Total)
		}
	}

	cart.RemoveItem(ctx, cart.Items()[1].ID)
	_, err = svc.Save(ctx, cart.Snapshot(), true)
	var vErr *billing.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "items" {
		t.Errorf("Save(only 0-qty lines) error = %v, want items validation error", err)
	}
}

func TestBillService_SaveComputesTotalsAndMirrors(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	history := NewHistoryService(newFlakyStore())
	svc := NewBillService(history, remote, time.Second)

	bill, err := svc.Save(ctx, validDraft("INV-2025-1002", 3), true)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if bill.Subtotal != 300 || bill.Tax != 15 || bill.Total != 315 {
		t.Errorf("totals = %v/%v/%v, want 300/15/315", bill.Subtotal, bill.Tax, bill.Total)
	}
	if !billing.Reconciles(bill) {
		t.Error("saved bill does not reconcile")
	}

	svc.Wait()
	if remote.upsertCount() != 1 {
		t.Errorf("remote upserts = %d, want 1", remote.upsertCount())
	}
	if got := numbers(history.Bills()); !equalStrings(got, []string{"INV-2025-1002"}) {
		t.Errorf("history = %v", got)
	}
}

func TestBillService_ResaveKeepsForwardTimestamp(t *testing.T) {
	ctx := context.Background()
	history := NewHistoryService(newFlakyStore())
	bills := NewBillService(history, nil, 0)

	if _, err := bills.Save(ctx, validDraft("INV-2025-1003", 1), true); err != nil {
		t.Fatal(err)
	}

	t1 := time.Date(2025, 3, 3, 12, 30, 0, 0, time.UTC)
	orders := NewOrderService(&fakeForwarder{}, bills, history)
	orders.now = func() time.Time { return t1 }
	if res := orders.ForwardSaved(ctx, "INV-2025-1003"); !res.OK {
		t.Fatalf("ForwardSaved() = %+v", res)
	}

	// edit and save again under the same number
	edited, err := bills.Save(ctx, validDraft("INV-2025-1003", 4), true)
	if err != nil {
		t.Fatal(err)
	}
	if edited.Total != 420 {
		t.Errorf("Total = %v, want 420", edited.Total)
	}
	if edited.YaadroSentAt == nil || !edited.YaadroSentAt.Equal(t1) {
		t.Errorf("YaadroSentAt = %v, want %v", edited.YaadroSentAt, t1)
	}

	stored, _ := history.Get(ctx, "INV-2025-1003")
	if stored == nil || stored.YaadroSentAt == nil || !stored.YaadroSentAt.Equal(t1) {
		t.Errorf("stored YaadroSentAt = %v, want %v", stored, t1)
	}

	// without preservation the marker is dropped
	fresh, err := bills.Save(ctx, validDraft("INV-2025-1003", 4), false)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.YaadroSentAt != nil {
		t.Errorf("YaadroSentAt = %v, want nil", fresh.YaadroSentAt)
	}
}

func TestBillService_RemoteFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	logs := observeLogs(t)

	remote := newFakeRemote()
	remote.upsertErr = errors.New("connection refused")
	history := NewHistoryService(newFlakyStore())
	svc := NewBillService(history, remote, time.Second)

	if _, err := svc.Save(ctx, validDraft("INV-2025-1004", 2), true); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if b, _ := history.Get(ctx, "INV-2025-1004"); b == nil {
		t.Fatal("bill not readable locally")
	}

	svc.Wait()
	entries := logs.FilterMessage("remote sync failed").All()
	if len(entries) != 1 {
		t.Fatalf("got %d remote sync warnings, want 1", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn", entries[0].Level)
	}
	if got := entries[0].ContextMap()["invoice_number"]; got != "INV-2025-1004" {
		t.Errorf("invoice_number = %v", got)
	}
}

func TestBillService_LocalFailureReturnsError(t *testing.T) {
	ctx := context.Background()
	observeLogs(t)
	store := newFlakyStore()
	store.failUpsert = true
	remote := newFakeRemote()
	svc := NewBillService(NewHistoryService(store), remote, time.Second)

	_, err := svc.Save(ctx, validDraft("INV-2025-1005", 1), true)
	if !errors.Is(err, ErrSaveFailed) {
		t.Fatalf("Save() error = %v, want ErrSaveFailed", err)
	}
	svc.Wait()
	if remote.upsertCount() != 0 {
		t.Error("remote written after local failure")
	}
}

func TestBillService_MirrorGetsACopy(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	svc := NewBillService(NewHistoryService(newFlakyStore()), remote, time.Second)

	bill := billing.ToBill(validDraft("INV-2025-1006", 1), nil, false)
	if err := svc.Store(ctx, bill); err != nil {
		t.Fatal(err)
	}
	bill.Items[0].Name = "mutated"
	svc.Wait()

	got := remote.bills["INV-2025-1006"]
	if got.Items[0].Name != tea.Name {
		t.Errorf("mirrored name = %q, want %q", got.Items[0].Name, tea.Name)
	}
}
