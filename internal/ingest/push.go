package ingest

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/mkovacs/trading-bridge/internal/mailbox"
	"github.com/mkovacs/trading-bridge/internal/observ"
)

// HistorySource resolves a history watermark into the message ids added
// since that point.
type HistorySource interface {
	HistorySince(ctx context.Context, start uint64) ([]string, error)
}

// Notification is the payload Gmail publishes to the Pub/Sub topic on
// mailbox changes.
type Notification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// PushLoop is the push-variant ingestion loop. The Pub/Sub delivery callback
// only enqueues onto a bounded queue; a single consumer does the actual
// fetch/extract/forward work, so a burst of notifications never blocks inside
// the provider's callback. Mark-read is not part of this variant.
type PushLoop struct {
	proc    *Poller
	hist    HistorySource
	watcher *mailbox.Watcher
	queue   chan Notification

	watermark uint64
}

func NewPushLoop(mail Mailbox, hist HistorySource, fwd Forwarder, watcher *mailbox.Watcher, queueDepth int) *PushLoop {
	if queueDepth <= 0 {
		queueDepth = 64
	}
	return &PushLoop{
		proc:    NewPoller(mail, fwd, 0, 0),
		hist:    hist,
		watcher: watcher,
		queue:   make(chan Notification, queueDepth),
	}
}

// Run registers the watch, starts the renewal check and the consumer, then
// blocks receiving notifications until ctx is cancelled.
func (l *PushLoop) Run(ctx context.Context, sub *pubsub.Subscription) error {
	if err := l.watcher.Start(ctx); err != nil {
		return err
	}
	l.watermark = l.watcher.StartHistoryID()

	go l.renewLoop(ctx)
	go l.consume(ctx)

	observ.Log("push_loop_started", map[string]any{"subscription": sub.String()})
	return sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		if l.Enqueue(m.Data) {
			m.Ack()
		} else {
			// queue full: let the broker redeliver instead of blocking here
			m.Nack()
		}
	})
}

// Enqueue parses a raw notification and offers it to the work queue without
// blocking. It reports whether the notification was accepted.
func (l *PushLoop) Enqueue(data []byte) bool {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		observ.Log("notification_malformed", map[string]any{"error": err.Error()})
		return true // malformed payloads are acked, redelivery cannot fix them
	}
	if n.HistoryID == 0 {
		return true
	}
	select {
	case l.queue <- n:
		observ.SetGauge("notification_queue_depth", float64(len(l.queue)), nil)
		return true
	default:
		observ.IncCounter("notifications_rejected_total", nil)
		observ.Log("notification_queue_full", map[string]any{"history_id": n.HistoryID})
		return false
	}
}

func (l *PushLoop) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-l.queue:
			observ.SetGauge("notification_queue_depth", float64(len(l.queue)), nil)
			l.Process(ctx, n)
		}
	}
}

// Process handles one notification: compute the history delta since its
// watermark and run each new message through the shared pipeline. Errors are
// absorbed here, the loop never dies on a bad notification.
func (l *PushLoop) Process(ctx context.Context, n Notification) {
	if n.HistoryID <= l.watermark {
		observ.Log("notification_stale", map[string]any{
			"history_id": n.HistoryID,
			"watermark":  l.watermark,
		})
		return
	}

	ids, err := l.hist.HistorySince(ctx, l.watermark)
	if err != nil {
		observ.IncCounter("history_errors_total", nil)
		observ.Log("history_failed", map[string]any{"error": err.Error()})
		return
	}
	for _, id := range ids {
		if _, done := l.proc.processed[id]; done {
			continue
		}
		l.proc.processOne(ctx, id, false)
	}
	l.watermark = n.HistoryID
}

// Watermark returns the last fully processed history id.
func (l *PushLoop) Watermark() uint64 { return l.watermark }

func (l *PushLoop) renewLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.watcher.RenewIfDue(ctx, now)
		}
	}
}
