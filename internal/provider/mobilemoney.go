// Package provider contains the outbound mobile-money client and the
// callback authenticity check. The client never runs inside a database
// transaction; callers initiate pushes after committing.
package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"hotel_pms_backend/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
)

// ErrPushRejected is returned when the provider permanently rejects a push
// request (4xx). It is not retried.
var ErrPushRejected = errors.New("payment provider rejected push request")

// Client talks to the mobile-money provider's push API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries uint64
}

// NewClient creates a provider client from configuration.
func NewClient(cfg config.ProviderConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.PushTimeout},
		baseURL:    cfg.BaseURL,
		maxRetries: cfg.MaxRetries,
	}
}

type pushRequest struct {
	Phone     string `json:"phone"`
	Amount    string `json:"amount"`
	Reference string `json:"reference"`
}

type pushResponse struct {
	TransactionRef string `json:"transaction_ref"`
	Message        string `json:"message"`
}

// InitiatePush asks the provider to prompt the customer's phone for the given
// amount, referencing the bill number. Transient failures (network errors,
// 5xx) are retried with exponential backoff up to the configured attempt
// count; 4xx responses fail immediately.
func (c *Client) InitiatePush(ctx context.Context, phone string, amount decimal.Decimal, billNumber string) (string, error) {
	body, err := json.Marshal(pushRequest{
		Phone:     phone,
		Amount:    amount.StringFixed(2),
		Reference: billNumber,
	})
	if err != nil {
		return "", fmt.Errorf("encoding push request: %w", err)
	}

	var providerRef string
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/stkpush", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("provider push request: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("provider returned status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("%w: status %d", ErrPushRejected, resp.StatusCode))
		}

		var pr pushResponse
		if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding push response: %w", err))
		}
		if pr.TransactionRef == "" {
			return backoff.Permanent(errors.New("provider push response missing transaction_ref"))
		}
		providerRef = pr.TransactionRef
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newPushBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}
	return providerRef, nil
}

func newPushBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return b
}

// SignatureHeader carries the provider's HMAC signature on callbacks.
const SignatureHeader = "X-Provider-Signature"

// VerifySignature checks the HMAC-SHA256 hex signature over the raw callback
// body. Must be called before the callback payload is trusted.
func VerifySignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign computes the callback signature for a body. Used by tests and by the
// sandbox simulator.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
