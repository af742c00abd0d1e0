// Package notify pushes human-readable trade notifications to a Telegram
// chat. Notification failure never fails the trade path: errors are logged
// and swallowed.
package notify

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mkovacs/trading-bridge/internal/observ"
)

const defaultAPIBase = "https://api.telegram.org"

type Config struct {
	Enabled  bool
	BotToken string
	ChatID   string
	// APIBase overrides the Telegram endpoint, used in tests.
	APIBase string
}

type TelegramClient struct {
	cfg        Config
	httpClient *http.Client
}

func NewTelegramClient(cfg Config) *TelegramClient {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	return &TelegramClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts text to the configured chat. Disabled clients and delivery
// failures are both silent no-ops beyond a log line.
func (c *TelegramClient) Send(ctx context.Context, text string) {
	if !c.cfg.Enabled {
		return
	}

	endpoint := c.cfg.APIBase + "/bot" + c.cfg.BotToken + "/sendMessage"
	form := url.Values{
		"chat_id": {c.cfg.ChatID},
		"text":    {text},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		observ.Log("telegram_error", map[string]any{"error": err.Error()})
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observ.IncCounter("telegram_errors_total", nil)
		observ.Log("telegram_error", map[string]any{"error": err.Error()})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observ.IncCounter("telegram_errors_total", nil)
		observ.Log("telegram_error", map[string]any{"status": resp.StatusCode})
		return
	}
	observ.IncCounter("telegram_sent_total", nil)
}
