package billing

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"bill-backend/internal/models"
	"bill-backend/internal/timeutil"

	"go.uber.org/zap"
)

// DraftStore persists the single in-progress invoice between sessions
type DraftStore interface {
	LoadDraft(ctx context.Context) (*models.Draft, error)
	SaveDraft(ctx context.Context, draft models.Draft) error
}

// CustomerPatch carries the customer fields to overwrite; nil fields are kept
type CustomerPatch struct {
	Name          *string
	Email         *string
	Phone         *string
	Address       *string
	GSTIN         *string
	PlaceOfSupply *string
}

// NewInvoiceNumber returns INV-<year>-<4 random digits>
func NewInvoiceNumber(now time.Time) string {
	return fmt.Sprintf("INV-%d-%d", now.Year(), 1000+rand.IntN(9000))
}

// Cart owns the draft invoice. Every mutation writes the whole draft to
// the DraftStore before returning.
type Cart struct {
	mu    sync.Mutex
	draft models.Draft
	store DraftStore
	log   *zap.Logger
	now   func() time.Time
}

// OpenCart restores the persisted draft, or starts a fresh one when
// nothing usable is stored. store may be nil for a purely in-memory cart.
func OpenCart(ctx context.Context, store DraftStore) *Cart {
	c := &Cart{
		store: store,
		log:   zap.L().Named("cart"),
		now:   timeutil.Now,
	}
	c.draft = models.Draft{Items: []models.InvoiceItem{}, Date: c.now()}

	if store != nil {
		draft, err := store.LoadDraft(ctx)
		switch {
		case err != nil:
			c.log.Warn("failed to load draft, starting fresh", zap.Error(err))
		case draft != nil:
			c.draft = *draft
			if c.draft.Items == nil {
				c.draft.Items = []models.InvoiceItem{}
			}
		}
	}

	c.EnsureInvoiceNumber(ctx)
	return c
}

// persist must be called with mu held
func (c *Cart) persist(ctx context.Context) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveDraft(ctx, cloneDraft(c.draft)); err != nil {
		c.log.Warn("failed to persist draft", zap.String("invoice_number", c.draft.InvoiceNumber), zap.Error(err))
	}
}

// EnsureInvoiceNumber assigns an invoice number when the draft has none
func (c *Cart) EnsureInvoiceNumber(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft.InvoiceNumber == "" {
		c.draft.InvoiceNumber = NewInvoiceNumber(c.now())
		c.persist(ctx)
	}
	return c.draft.InvoiceNumber
}

// SetCustomer shallow-merges patch into the current customer. No validation.
func (c *Cart) SetCustomer(ctx context.Context, patch CustomerPatch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cust := &c.draft.Customer
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&cust.Name, patch.Name)
	set(&cust.Email, patch.Email)
	set(&cust.Phone, patch.Phone)
	set(&cust.Address, patch.Address)
	set(&cust.GSTIN, patch.GSTIN)
	set(&cust.PlaceOfSupply, patch.PlaceOfSupply)
	c.persist(ctx)
}

// AddItem increments the line for p.ID if present, otherwise appends a new
// line at quantity 1. Returns the resulting line.
func (c *Cart) AddItem(ctx context.Context, p models.Product) models.InvoiceItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.persist(ctx)

	for i, item := range c.draft.Items {
		if item.ProductID == p.ID {
			c.draft.Items[i] = RecomputeLine(item, item.Qty+1)
			return c.draft.Items[i]
		}
	}

	item := DeriveLine(p, 1)
	c.draft.Items = append(c.draft.Items, item)
	return item
}

// RemoveItem deletes the line with itemID; unknown ids are ignored
func (c *Cart) RemoveItem(ctx context.Context, itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(itemID)
	if idx < 0 {
		return
	}
	c.draft.Items = append(c.draft.Items[:idx], c.draft.Items[idx+1:]...)
	c.persist(ctx)
}

// UpdateQty sets a typed quantity. Negative input becomes 0 and a line at 0
// stays in the cart until RemoveItem is called.
func (c *Cart) UpdateQty(ctx context.Context, itemID string, qty float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(itemID)
	if idx < 0 {
		return
	}
	c.draft.Items[idx] = RecomputeLine(c.draft.Items[idx], qty)
	c.persist(ctx)
}

// DecrementQty is the stepper entry point: it lowers the quantity by one
// and removes the line once it reaches 0.
func (c *Cart) DecrementQty(ctx context.Context, itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(itemID)
	if idx < 0 {
		return
	}
	next := c.draft.Items[idx].Qty - 1
	if next <= 0 {
		c.draft.Items = append(c.draft.Items[:idx], c.draft.Items[idx+1:]...)
	} else {
		c.draft.Items[idx] = RecomputeLine(c.draft.Items[idx], next)
	}
	c.persist(ctx)
}

func (c *Cart) indexOf(itemID string) int {
	for i, item := range c.draft.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

// SetInvoiceNumber overrides the draft's invoice number
func (c *Cart) SetInvoiceNumber(ctx context.Context, number string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.InvoiceNumber = number
	c.persist(ctx)
}

// SetDate overrides the draft's invoice date
func (c *Cart) SetDate(ctx context.Context, date time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Date = date
	c.persist(ctx)
}

// SetViewMode toggles read-only viewing of a loaded bill
func (c *Cart) SetViewMode(ctx context.Context, viewMode bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.ViewMode = viewMode
	c.persist(ctx)
}

// Reset clears the draft and assigns a new invoice number
func (c *Cart) Reset(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.draft = models.Draft{
		Items:         []models.InvoiceItem{},
		InvoiceNumber: NewInvoiceNumber(now),
		Date:          now,
	}
	c.persist(ctx)
}

// ExitView resets the draft if a bill is loaded for viewing. Reports
// whether a reset happened.
func (c *Cart) ExitView(ctx context.Context) bool {
	c.mu.Lock()
	viewing := c.draft.ViewMode
	c.mu.Unlock()
	if !viewing {
		return false
	}
	c.Reset(ctx)
	return true
}

// LoadInvoice replaces the draft with bill for read-only viewing
func (c *Cart) LoadInvoice(ctx context.Context, bill models.Bill) {
	c.load(ctx, bill, true)
}

// EditInvoice replaces the draft with bill and leaves it editable; saving
// again upserts the same invoice number.
func (c *Cart) EditInvoice(ctx context.Context, bill models.Bill) {
	c.load(ctx, bill, false)
}

func (c *Cart) load(ctx context.Context, bill models.Bill, viewMode bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = models.Draft{
		Customer:      bill.Customer,
		Items:         cloneItems(bill.Items),
		InvoiceNumber: bill.InvoiceNumber,
		Date:          bill.Date,
		ViewMode:      viewMode,
	}
	c.persist(ctx)
}

// Subtotal sums the current line amounts
func (c *Cart) Subtotal() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Subtotal(c.draft.Items)
}

// TotalTax sums the current line taxes
func (c *Cart) TotalTax() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return TotalTax(c.draft.Items)
}

// GrandTotal is Subtotal + TotalTax
func (c *Cart) GrandTotal() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GrandTotal(c.draft.Items)
}

// Items returns a copy of the lines in insertion order
func (c *Cart) Items() []models.InvoiceItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneItems(c.draft.Items)
}

// InvoiceNumber returns the draft's invoice number
func (c *Cart) InvoiceNumber() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.InvoiceNumber
}

// ViewMode reports whether the draft holds a bill loaded for viewing
func (c *Cart) ViewMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.ViewMode
}

// Snapshot returns a deep copy of the draft
func (c *Cart) Snapshot() models.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneDraft(c.draft)
}

func cloneItems(items []models.InvoiceItem) []models.InvoiceItem {
	out := make([]models.InvoiceItem, len(items))
	copy(out, items)
	return out
}

func cloneDraft(d models.Draft) models.Draft {
	d.Items = cloneItems(d.Items)
	return d
}
