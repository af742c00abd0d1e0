package mailbox

import (
	"context"
	"time"

	"github.com/mkovacs/trading-bridge/internal/observ"
)

// Registrar registers a mailbox watch and returns the starting history id.
type Registrar interface {
	Register(ctx context.Context, topic string) (uint64, error)
}

// Watcher keeps a provider-side watch alive. Watches expire server-side, so
// the registration is re-issued every interval (50 minutes in production).
// A failed renewal is logged and retried on the next interval check.
type Watcher struct {
	reg      Registrar
	topic    string
	interval time.Duration

	lastRenewal    time.Time
	startHistoryID uint64
}

func NewWatcher(reg Registrar, topic string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 50 * time.Minute
	}
	return &Watcher{reg: reg, topic: topic, interval: interval}
}

// Start issues the initial registration. Unlike renewals, a failure here is
// returned: there is no point subscribing without a live watch.
func (w *Watcher) Start(ctx context.Context) error {
	id, err := w.reg.Register(ctx, w.topic)
	if err != nil {
		return err
	}
	w.startHistoryID = id
	w.lastRenewal = time.Now()
	observ.Log("watch_registered", map[string]any{"topic": w.topic, "history_id": id})
	return nil
}

// RenewIfDue re-registers the watch when the interval has elapsed. It reports
// whether a renewal call was issued. Below the interval it is a no-op.
func (w *Watcher) RenewIfDue(ctx context.Context, now time.Time) bool {
	if now.Sub(w.lastRenewal) < w.interval {
		return false
	}
	id, err := w.reg.Register(ctx, w.topic)
	if err != nil {
		// lastRenewal stays put so the next check retries
		observ.IncCounter("watch_renewal_errors_total", nil)
		observ.Log("watch_renewal_failed", map[string]any{"topic": w.topic, "error": err.Error()})
		return true
	}
	w.lastRenewal = now
	w.startHistoryID = id
	observ.Log("watch_renewed", map[string]any{"topic": w.topic, "history_id": id})
	return true
}

// StartHistoryID returns the history id from the most recent registration.
func (w *Watcher) StartHistoryID() uint64 { return w.startHistoryID }
