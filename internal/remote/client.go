// Package remote talks to the cloud bill service (cmd/server).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bill-backend/internal/billing"
	"bill-backend/internal/models"
)

// ErrNotFound is returned by Fetch when the service has no such bill
var ErrNotFound = errors.New("remote: bill not found")

// ErrNotConfigured is returned when no base URL was given
var ErrNotConfigured = errors.New("remote: not configured")

// StatusError is a non-2xx response other than a fetch miss
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote: status %d: %s", e.StatusCode, e.Message)
}

// Client is the HTTP client for /api/bills
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether calls will attempt the network
func (c *Client) Configured() bool {
	return c != nil && c.BaseURL != ""
}

// Upsert posts the whole bill. The service overwrites any bill with the
// same invoice number.
func (c *Client) Upsert(ctx context.Context, bill models.Bill) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(bill)
	if err != nil {
		return fmt.Errorf("remote: encode bill: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/bills", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote: upsert %s: %w", bill.InvoiceNumber, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Fetch returns the bill stored under invoiceNumber, normalized. A 404
// yields ErrNotFound.
func (c *Client) Fetch(ctx context.Context, invoiceNumber string) (models.Bill, error) {
	if !c.Configured() {
		return models.Bill{}, ErrNotConfigured
	}

	endpoint := c.BaseURL + "/api/bills/" + url.PathEscape(invoiceNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Bill{}, fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return models.Bill{}, fmt.Errorf("remote: fetch %s: %w", invoiceNumber, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return models.Bill{}, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Bill{}, statusError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Bill{}, fmt.Errorf("remote: read response: %w", err)
	}
	bill, err := billing.DecodeBill(data)
	if err != nil {
		return models.Bill{}, fmt.Errorf("remote: decode bill %s: %w", invoiceNumber, err)
	}
	return bill, nil
}

func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &body) != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: body.Error}
}
