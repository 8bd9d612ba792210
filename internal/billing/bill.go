package billing

import (
	"math"

	"bill-backend/internal/models"
)

// ToBill snapshots a draft into a bill. Customer and items are copied,
// lines left at quantity 0 are dropped, and the totals are computed from
// the remaining items. prior is the bill already
// stored under the same invoice number, if any; its yaadroSentAt is kept
// only when preserveForwarded is set.
func ToBill(d models.Draft, prior *models.Bill, preserveForwarded bool) models.Bill {
	items := billableItems(d.Items)
	bill := models.Bill{
		InvoiceNumber: d.InvoiceNumber,
		Date:          d.Date,
		Customer:      d.Customer,
		Items:         items,
		Subtotal:      Subtotal(items),
		Tax:           TotalTax(items),
		Total:         GrandTotal(items),
	}
	if preserveForwarded && prior != nil && prior.YaadroSentAt != nil {
		sentAt := *prior.YaadroSentAt
		bill.YaadroSentAt = &sentAt
	}
	return bill
}

// billableItems copies the lines with a positive quantity
func billableItems(items []models.InvoiceItem) []models.InvoiceItem {
	out := make([]models.InvoiceItem, 0, len(items))
	for _, item := range items {
		if item.Qty > 0 {
			out = append(out, item)
		}
	}
	return out
}

// CloneBill returns a copy of b that shares no slices or pointers
func CloneBill(b models.Bill) models.Bill {
	b.Items = cloneItems(b.Items)
	if b.YaadroSentAt != nil {
		sentAt := *b.YaadroSentAt
		b.YaadroSentAt = &sentAt
	}
	return b
}

const reconcileEpsilon = 1e-9

func closeTo(a, b float64) bool {
	return math.Abs(a-b) <= reconcileEpsilon*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// Reconciles reports whether the bill's totals match its own items
func Reconciles(b models.Bill) bool {
	return closeTo(b.Subtotal, Subtotal(b.Items)) &&
		closeTo(b.Tax, TotalTax(b.Items)) &&
		closeTo(b.Total, b.Subtotal+b.Tax)
}
