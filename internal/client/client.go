// Package client provides typed access to the presale API and the cached
// data hooks the storefront builds on.
package client

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

	"github.com/shopspring/decimal"

	"token-presale/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout     = 15 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
	Fields  []domain.FieldError
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Message
	}
	return fmt.Sprintf("api error %d: %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// retryable reports whether a GET that failed with this status may be repeated.
func (e *APIError) retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// Client calls the presale HTTP API.
type Client struct {
	baseURL     string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for reads.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// New creates a client for the API served at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// get performs a GET with retries and exponential backoff. Client errors
// other than 429 are returned immediately.
func (c *Client) get(ctx context.Context, path string, result any) error {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		err := c.do(ctx, http.MethodGet, path, nil, result)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.retryable() {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// post performs a single POST. Mutations are never retried.
func (c *Client) post(ctx context.Context, path string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, payload, result)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, result any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Message string              `json:"message"`
			Errors  []domain.FieldError `json:"errors"`
		}
		if json.Unmarshal(respBody, &payload) == nil && payload.Message != "" {
			apiErr.Message = payload.Message
			apiErr.Fields = payload.Errors
		} else {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// GetPresale fetches the presale state and raised percentage.
func (c *Client) GetPresale(ctx context.Context) (*domain.PresaleView, error) {
	var v domain.PresaleView
	if err := c.get(ctx, "/api/presale", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Calculate quotes the token amount for paying amount in currency.
func (c *Client) Calculate(ctx context.Context, currency domain.Currency, amount decimal.Decimal) (*domain.Quote, error) {
	req := struct {
		Currency  domain.Currency `json:"currency"`
		PayAmount string          `json:"payAmount"`
	}{currency, amount.String()}

	var q domain.Quote
	if err := c.post(ctx, "/api/presale/calculate", req, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateTransaction records a pending purchase.
func (c *Client) CreateTransaction(ctx context.Context, in *domain.NewTransaction) (*domain.Transaction, error) {
	var tx domain.Transaction
	if err := c.post(ctx, "/api/transactions", in, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTransactions lists a wallet's transactions, newest first.
func (c *Client) GetTransactions(ctx context.Context, walletAddress string) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction
	if err := c.get(ctx, "/api/transactions/"+url.PathEscape(walletAddress), &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// GetReferral checks a referral code. Unknown and inactive codes return
// an *APIError with status 404.
func (c *Client) GetReferral(ctx context.Context, code string) (*domain.ReferralCheck, error) {
	var rc domain.ReferralCheck
	if err := c.get(ctx, "/api/referral/"+url.PathEscape(code), &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}

// ApplyReferral increments a referral code's usage count.
func (c *Client) ApplyReferral(ctx context.Context, code string) (*domain.ReferralCheck, error) {
	req := struct {
		Code string `json:"code"`
	}{code}

	var rc domain.ReferralCheck
	if err := c.post(ctx, "/api/referral/apply", req, &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}

// WalletPurchases returns a wallet's purchase history in the wallet panel shape.
func (c *Client) WalletPurchases(ctx context.Context, address string) ([]domain.WalletPurchase, error) {
	var out []domain.WalletPurchase
	if err := c.get(ctx, "/api/wallet/purchase?address="+url.QueryEscape(address), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecordWalletPurchase records a pending transaction without raising the
// presale total.
func (c *Client) RecordWalletPurchase(ctx context.Context, in *domain.NewTransaction) (*domain.Transaction, error) {
	var tx domain.Transaction
	if err := c.post(ctx, "/api/wallet/purchase", in, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// PresaleStats returns per-currency purchase totals.
func (c *Client) PresaleStats(ctx context.Context) ([]domain.CurrencyTotals, error) {
	var out struct {
		Totals []domain.CurrencyTotals `json:"totals"`
	}
	if err := c.get(ctx, "/api/presale/stats", &out); err != nil {
		return nil, err
	}
	return out.Totals, nil
}

// Health returns nil when the server answers its liveness probe.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}
