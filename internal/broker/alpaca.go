// Package broker is a minimal Alpaca REST client covering what the webhook
// bot needs: market order submission, account state and open positions.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type Config struct {
	APIKey             string
	APISecret          string
	BaseURL            string
	TimeoutSeconds     int
	RateLimitPerMinute int
}

type Client struct {
	cfg         Config
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// Order is the broker's view of a submitted order.
type Order struct {
	ID            string `json:"id"`
	ClientOrderID string `json:"client_order_id"`
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	Side          string `json:"side"`
	Status        string `json:"status"`
}

type Account struct {
	Equity string `json:"equity"`
	Cash   string `json:"cash"`
}

type Position struct {
	Symbol       string `json:"symbol"`
	Qty          string `json:"qty"`
	UnrealizedPL string `json:"unrealized_pl"`
	CurrentPrice string `json:"current_price"`
}

// StatusError is a non-2xx broker response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("broker: HTTP %d: %s", e.Code, e.Body)
}

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("broker: api key and secret are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://paper-api.alpaca.markets"
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 10
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 200
	}
	return &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		rateLimiter: rate.NewLimiter(rate.Limit(float64(cfg.RateLimitPerMinute)/60), 1),
	}, nil
}

// SubmitOrder places a market order, good-till-cancelled. The generated
// client order id makes a resubmission of the same request idempotent on the
// broker side.
func (c *Client) SubmitOrder(ctx context.Context, symbol string, qty int, side string) (*Order, error) {
	body := map[string]string{
		"symbol":          symbol,
		"qty":             strconv.Itoa(qty),
		"side":            side,
		"type":            "market",
		"time_in_force":   "gtc",
		"client_order_id": uuid.NewString(),
	}
	var order Order
	if err := c.do(ctx, http.MethodPost, "/v2/orders", body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) GetAccount(ctx context.Context) (*Account, error) {
	var acct Account
	if err := c.do(ctx, http.MethodGet, "/v2/account", nil, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

func (c *Client) ListPositions(ctx context.Context) ([]Position, error) {
	var positions []Position
	if err := c.do(ctx, http.MethodGet, "/v2/positions", nil, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("broker: rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("broker: marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("broker: create request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", c.cfg.APIKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.cfg.APISecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("broker: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("broker: parse response: %w", err)
		}
	}
	return nil
}
