// Package ingest drives signal ingestion from the mailbox to the webhook,
// in a polling variant and a push (watch + Pub/Sub) variant.
package ingest

import (
	"context"
	"time"

	"github.com/mkovacs/trading-bridge/internal/forward"
	"github.com/mkovacs/trading-bridge/internal/mailbox"
	"github.com/mkovacs/trading-bridge/internal/observ"
	"github.com/mkovacs/trading-bridge/internal/signal"
)

// Mailbox is the slice of the mailbox client the loops consume.
type Mailbox interface {
	ListUnread(ctx context.Context, max int64) ([]mailbox.Ref, error)
	FetchRaw(ctx context.Context, id string) ([]byte, error)
	MarkRead(ctx context.Context, id string)
}

// Forwarder delivers actionable signals downstream.
type Forwarder interface {
	Forward(ctx context.Context, sig *signal.Signal) forward.Result
}

// Poller is the polling ingestion loop. Two states: idle between ticks,
// processing while a batch drains. The watermark and processed set live only
// in memory; a restart may reprocess messages a crashed run already marked
// read. Persisting the watermark externally would close that gap.
type Poller struct {
	mail       Mailbox
	fwd        Forwarder
	interval   time.Duration
	maxResults int64

	watermark string
	processed map[string]struct{}
}

func NewPoller(mail Mailbox, fwd Forwarder, interval time.Duration, maxResults int64) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Poller{
		mail:       mail,
		fwd:        fwd,
		interval:   interval,
		maxResults: maxResults,
		processed:  map[string]struct{}{},
	}
}

// Run polls until ctx is cancelled. Any error or panic inside a tick is
// absorbed at the loop boundary: logged, tick becomes a no-op, loop continues.
func (p *Poller) Run(ctx context.Context) {
	observ.Log("poller_started", map[string]any{
		"interval_seconds": p.interval.Seconds(),
		"max_results":      p.maxResults,
	})
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			observ.Log("poller_stopped", nil)
			return
		case <-ticker.C:
			p.safeTick(ctx)
		}
	}
}

func (p *Poller) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			observ.IncCounter("tick_panics_total", nil)
			observ.Log("tick_panic", map[string]any{"panic": r})
		}
	}()
	if err := p.Tick(ctx); err != nil {
		observ.IncCounter("tick_errors_total", nil)
		observ.Log("tick_error", map[string]any{"error": err.Error()})
	}
}

// Tick drains one batch of unread messages.
func (p *Poller) Tick(ctx context.Context) error {
	refs, err := p.mail.ListUnread(ctx, p.maxResults)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if ref.ID == p.watermark {
			continue
		}
		if _, done := p.processed[ref.ID]; done {
			continue
		}
		p.processOne(ctx, ref.ID, true)
		p.watermark = ref.ID
	}
	return nil
}

// processOne runs fetch -> extract -> forward for a single message id and
// records it as processed regardless of outcome. Shared by both variants; the
// push variant skips mark-read.
func (p *Poller) processOne(ctx context.Context, id string, markRead bool) {
	observ.IncCounter("messages_processed_total", nil)

	body := p.fetchBody(ctx, id)
	sig := signal.Extract(body)
	switch {
	case sig == nil:
		observ.Log("no_signal", map[string]any{"id": id})
	case !sig.Actionable():
		observ.IncCounter("signals_dropped_total", nil)
		observ.Log("signal_invalid", map[string]any{
			"id":     id,
			"action": string(sig.Action),
			"symbol": sig.Symbol,
			"price":  sig.Price,
		})
	default:
		p.fwd.Forward(ctx, sig)
	}

	if markRead {
		p.mail.MarkRead(ctx, id)
	}
	p.processed[id] = struct{}{}
}

// fetchBody returns the plain-text body, or "" when the message cannot be
// fetched. A fetch failure still counts as processed, mirroring the reference
// behavior of treating an unreadable mail as empty.
func (p *Poller) fetchBody(ctx context.Context, id string) string {
	raw, err := p.mail.FetchRaw(ctx, id)
	if err != nil {
		observ.Log("fetch_failed", map[string]any{"id": id, "error": err.Error()})
		return ""
	}
	body, err := mailbox.PlainTextBody(raw)
	if err != nil {
		// not well-formed MIME; scan the raw bytes rather than dropping
		return string(raw)
	}
	return body
}

// Watermark returns the id of the last processed message.
func (p *Poller) Watermark() string { return p.watermark }
