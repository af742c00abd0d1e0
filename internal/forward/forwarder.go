// Package forward delivers extracted signals to the trading bot webhook.
//
// Delivery is best-effort and at-most-once: any HTTP response counts as
// delivered, transport errors are logged and swallowed, and nothing is
// retried. Losing a signal is accepted over risking a duplicate order.
package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/mkovacs/trading-bridge/internal/observ"
	"github.com/mkovacs/trading-bridge/internal/signal"
)

type payload struct {
	Signal string  `json:"signal"`
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

type Result struct {
	Delivered  bool
	StatusCode int
}

type Forwarder struct {
	url        string
	httpClient *http.Client
}

func New(webhookURL string, timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Forwarder{
		url:        webhookURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Forward posts sig to the webhook. The caller guards actionability; Forward
// refuses non-actionable signals anyway rather than trusting every call site.
func (f *Forwarder) Forward(ctx context.Context, sig *signal.Signal) Result {
	if !sig.Actionable() {
		observ.Log("forward_rejected", map[string]any{"reason": "not_actionable"})
		return Result{}
	}

	body, err := json.Marshal(payload{Signal: string(sig.Action), Symbol: sig.Symbol, Price: sig.Price})
	if err != nil {
		observ.Log("forward_error", map[string]any{"error": err.Error()})
		return Result{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		observ.Log("forward_error", map[string]any{"error": err.Error()})
		return Result{}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		// transport failure: logged, dropped, never retried
		observ.IncCounter("forward_errors_total", nil)
		observ.Log("forward_error", map[string]any{
			"symbol": sig.Symbol,
			"error":  err.Error(),
		})
		return Result{}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	observ.IncCounter("forward_sent_total", nil)
	observ.Log("forward_sent", map[string]any{
		"symbol":   sig.Symbol,
		"action":   string(sig.Action),
		"price":    sig.Price,
		"status":   resp.StatusCode,
		"response": string(respBody),
	})

	// status is logged, not enforced: a 4xx/5xx answer is still "delivered"
	return Result{Delivered: true, StatusCode: resp.StatusCode}
}

// URL returns the configured endpoint, mostly for startup logging.
func (f *Forwarder) URL() string { return f.url }
