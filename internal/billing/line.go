package billing

import (
	"strings"

	"bill-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxRates lists the permitted GST/VAT percentages
var TaxRates = []float64{0, 5, 12, 18, 28}

// ValidTaxRate reports whether rate is one of TaxRates
func ValidTaxRate(rate float64) bool {
	for _, r := range TaxRates {
		if r == rate {
			return true
		}
	}
	return false
}

// ValidUnit reports whether u is a known measurement unit
func ValidUnit(u models.Unit) bool {
	switch u {
	case models.UnitNos, models.UnitPcs, models.UnitHours, models.UnitMonth, models.UnitYear, models.UnitProject:
		return true
	}
	return false
}

// clampQty maps negative and NaN quantities to zero
func clampQty(qty float64) float64 {
	if !(qty > 0) {
		return 0
	}
	return qty
}

// lineAmounts is the single place amount and tax are derived
func lineAmounts(qty, rate, taxRate float64) (amount, tax float64) {
	amount = qty * rate
	tax = amount * (taxRate / 100)
	return amount, tax
}

// DeriveLine creates a new line item for product at the given quantity.
// The line gets a fresh id; amounts keep full float precision.
func DeriveLine(p models.Product, qty float64) models.InvoiceItem {
	qty = clampQty(qty)
	amount, tax := lineAmounts(qty, p.Price, p.GSTRate)
	return models.InvoiceItem{
		ID:        uuid.NewString(),
		ProductID: p.ID,
		Name:      p.Name,
		Qty:       qty,
		Unit:      string(p.Unit),
		Rate:      p.Price,
		GSTRate:   p.GSTRate,
		Amount:    amount,
		GSTAmount: tax,
	}
}

// RecomputeLine returns item at newQty, using the item's own rate and
// gstRate rather than the live catalog.
func RecomputeLine(item models.InvoiceItem, newQty float64) models.InvoiceItem {
	item.Qty = clampQty(newQty)
	item.Amount, item.GSTAmount = lineAmounts(item.Qty, item.Rate, item.GSTRate)
	return item
}

// Subtotal sums line amounts in item order
func Subtotal(items []models.InvoiceItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Amount
	}
	return total
}

// TotalTax sums line tax amounts in item order
func TotalTax(items []models.InvoiceItem) float64 {
	var total float64
	for _, item := range items {
		total += item.GSTAmount
	}
	return total
}

// GrandTotal is Subtotal + TotalTax with no rounding step
func GrandTotal(items []models.InvoiceItem) float64 {
	return Subtotal(items) + TotalTax(items)
}

// FormatCurrency renders amount as AED with two decimals and thousands
// grouping. Display only; stored values are never rounded.
func FormatCurrency(amount float64) string {
	fixed := decimal.NewFromFloat(amount).StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + "AED " + b.String() + "." + frac
}
