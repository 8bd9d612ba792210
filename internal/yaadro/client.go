// Package yaadro forwards saved bills to the Yaadro delivery API.
package yaadro

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
	"bill-backend/internal/logger"
	"bill-backend/internal/models"

	"go.uber.org/zap"
)

// DefaultBaseURL is the public create-order endpoint without credentials
const DefaultBaseURL = "https://api.yaadro.ae/api/orders/create/public"

// ErrNotConfigured means the shop id or integration token is missing.
// Retrying will not help.
var ErrNotConfigured = errors.New("Yaadro not configured (YAADRO_SHOP_ID / YAADRO_INTEGRATION_TOKEN)")

// ValidationError is a precondition failure detected before any network call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// APIError is a non-2xx answer from Yaadro
type APIError struct {
	StatusCode int
	Details    string
	Retryable  bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Yaadro order failed (status %d)", e.StatusCode)
}

// Client posts orders for one shop
type Client struct {
	BaseURL    string
	ShopID     string
	Token      string
	HTTPClient *http.Client
	log        *zap.Logger
}

func NewClient(baseURL, shopID, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ShopID:     shopID,
		Token:      token,
		HTTPClient: &http.Client{Timeout: timeout},
		log:        zap.L().Named("yaadro"),
	}
}

// Configured reports whether both credential halves are present
func (c *Client) Configured() bool {
	return c.ShopID != "" && c.Token != ""
}

// Validate checks the bill can be forwarded: a valid UAE mobile is required
func Validate(bill models.Bill) error {
	if !billing.ValidUAEPhone(bill.Customer.Phone) {
		return &ValidationError{
			Field:   "phone",
			Message: "Valid UAE mobile (9 digits, e.g. 501234567) is required to send to Yaadro",
		}
	}
	return nil
}

func (c *Client) endpoint() string {
	return c.BaseURL + "/" + url.PathEscape(c.ShopID) + ":" + url.PathEscape(c.Token)
}

// CreateOrder validates the bill, then posts it. The destination's
// response body is returned as-is (wrapped as {"raw": ...} if not JSON).
func (c *Client) CreateOrder(ctx context.Context, bill models.Bill) (json.RawMessage, error) {
	if err := Validate(bill); err != nil {
		return nil, err
	}
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	return c.post(ctx, BuildPayload(bill))
}

func (c *Client) post(ctx context.Context, order Order) (json.RawMessage, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("yaadro: encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("yaadro: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		// the URL carries the token
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("yaadro: request failed: %w", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yaadro: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("order rejected",
			zap.String("bill_no", order.BillNo),
			zap.Int("status", resp.StatusCode),
			zap.String("shop_id", c.ShopID),
			zap.String("token", logger.MaskSecret(c.Token)),
			zap.ByteString("details", text),
		)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Details:    string(text),
			Retryable:  resp.StatusCode >= 500,
		}
	}

	return rawResult(text), nil
}

func rawResult(text []byte) json.RawMessage {
	if len(bytes.TrimSpace(text)) == 0 {
		return json.RawMessage(`{}`)
	}
	if json.Valid(text) {
		return json.RawMessage(text)
	}
	wrapped, _ := json.Marshal(map[string]string{"raw": string(text)})
	return wrapped
}
