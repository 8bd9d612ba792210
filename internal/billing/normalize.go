package billing

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"bill-backend/internal/models"
	"bill-backend/internal/timeutil"
)

// NormalizeJSON decodes data and runs it through Normalize. It only fails
// when data is not JSON at all.
func NormalizeJSON(data []byte) (models.Bill, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return models.Bill{}, err
	}
	return Normalize(raw), nil
}

// ErrNotABill means the payload decoded but is not an object naming a bill
var ErrNotABill = errors.New("payload is not a bill")

// DecodeBill is NormalizeJSON for payloads that must name a bill: the
// top-level value has to be an object with a non-empty invoiceNumber.
func DecodeBill(data []byte) (models.Bill, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return models.Bill{}, err
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return models.Bill{}, ErrNotABill
	}
	bill := normalizeMap(m)
	if strings.TrimSpace(bill.InvoiceNumber) == "" {
		return models.Bill{}, ErrNotABill
	}
	return bill, nil
}

// Normalize turns any value claiming to be a bill into a structurally valid
// Bill. Missing or mistyped fields become zero values, except a missing
// date which becomes the current time; it never fails.
// Callers detect "not found" before normalizing, not from the result.
func Normalize(raw any) models.Bill {
	switch v := raw.(type) {
	case models.Bill:
		return normalizeTyped(v)
	case *models.Bill:
		if v == nil {
			return emptyBill()
		}
		return normalizeTyped(*v)
	case map[string]any:
		return normalizeMap(v)
	}
	return emptyBill()
}

func emptyBill() models.Bill {
	return models.Bill{Items: []models.InvoiceItem{}}
}

func normalizeTyped(b models.Bill) models.Bill {
	b = CloneBill(b)
	if b.Items == nil {
		b.Items = []models.InvoiceItem{}
	}
	return b
}

// clock stamps bills that arrive without a usable date
var clock = timeutil.Now

func normalizeMap(m map[string]any) models.Bill {
	date := asTime(m["date"])
	if date.IsZero() {
		date = clock()
	}
	bill := models.Bill{
		InvoiceNumber: asString(m["invoiceNumber"]),
		Date:          date,
		Customer:      asCustomer(m["customer"]),
		Items:         asItems(m["items"]),
		Subtotal:      asNumber(m["subtotal"]),
		Tax:           asNumber(m["tax"]),
		Total:         asNumber(m["total"]),
	}
	if sentAt := asTime(m["yaadroSentAt"]); !sentAt.IsZero() {
		bill.YaadroSentAt = &sentAt
	}
	return bill
}

func asCustomer(v any) models.Customer {
	m, ok := v.(map[string]any)
	if !ok {
		return models.Customer{}
	}
	return models.Customer{
		Name:          asString(m["name"]),
		Email:         asString(m["email"]),
		Phone:         asString(m["phone"]),
		Address:       asString(m["address"]),
		GSTIN:         asString(m["gstin"]),
		PlaceOfSupply: asString(m["placeOfSupply"]),
	}
}

func asItems(v any) []models.InvoiceItem {
	list, ok := v.([]any)
	if !ok {
		return []models.InvoiceItem{}
	}
	items := make([]models.InvoiceItem, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, models.InvoiceItem{
			ID:        asString(m["id"]),
			ProductID: asString(m["productId"]),
			Name:      asString(m["name"]),
			Qty:       asNumber(m["qty"]),
			Unit:      asString(m["unit"]),
			Rate:      asNumber(m["rate"]),
			GSTRate:   asNumber(m["gstRate"]),
			Amount:    asNumber(m["amount"]),
			GSTAmount: asNumber(m["gstAmount"]),
		})
	}
	return items
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

func asNumber(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// asTime accepts ISO-8601 strings and epoch milliseconds; anything else is
// the zero time.
func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed
			}
		}
	case json.Number, float64:
		if ms := asNumber(t); ms != 0 {
			return time.UnixMilli(int64(ms)).UTC()
		}
	}
	return time.Time{}
}
