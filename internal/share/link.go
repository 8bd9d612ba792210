// Package share builds and parses bill share links.
//
// A short link only names the bill (<base>/?view=<invoiceNumber>) and needs a
// store lookup to resolve. A self-contained link adds the whole bill as a
// URL-safe base64 fragment, so it opens with no network access at all.
package share

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"

	"bill-backend/internal/billing"
	"bill-backend/internal/models"
)

// DefaultBaseURL is where shared links point when no base is configured
const DefaultBaseURL = "https://billsoftwareuae.vercel.app"

// ViewParams are the accepted query parameter names, in lookup order
var ViewParams = []string{"view", "v"}

// ShortURL returns <base>/?view=<invoiceNumber>
func ShortURL(base, invoiceNumber string) string {
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/") + "/?view=" + url.QueryEscape(invoiceNumber)
}

// SelfContainedURL returns the short URL with the encoded bill as fragment
func SelfContainedURL(base string, bill models.Bill) (string, error) {
	payload, err := EncodePayload(bill)
	if err != nil {
		return "", err
	}
	return ShortURL(base, bill.InvoiceNumber) + "#" + payload, nil
}

// EncodePayload serializes the normalized bill to compact JSON and encodes
// it with base64 using '-' and '_' and no padding.
func EncodePayload(bill models.Bill) (string, error) {
	data, err := json.Marshal(billing.Normalize(bill))
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodePayload reverses EncodePayload. Padding and the standard alphabet
// are tolerated. Anything undecodable, or JSON that is not an object with
// an invoiceNumber, yields false.
func DecodePayload(fragment string) (models.Bill, bool) {
	fragment = strings.TrimPrefix(strings.TrimSpace(fragment), "#")
	if fragment == "" {
		return models.Bill{}, false
	}

	fragment = strings.NewReplacer("+", "-", "/", "_").Replace(fragment)
	fragment = strings.TrimRight(fragment, "=")

	data, err := base64.RawURLEncoding.DecodeString(fragment)
	if err != nil {
		return models.Bill{}, false
	}

	bill, err := billing.DecodeBill(data)
	if err != nil {
		return models.Bill{}, false
	}
	return bill, true
}

// ViewLink is a parsed share URL
type ViewLink struct {
	InvoiceNumber string
	Fragment      string
}

// ParseViewURL extracts the invoice number (view or v) and fragment from a
// share URL. ok is false when the URL names no bill.
func ParseViewURL(raw string) (ViewLink, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ViewLink{}, false
	}

	q := u.Query()
	for _, param := range ViewParams {
		if id := q.Get(param); id != "" {
			return ViewLink{InvoiceNumber: id, Fragment: u.Fragment}, true
		}
	}
	return ViewLink{}, false
}
