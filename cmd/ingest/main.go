package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"

	"github.com/mkovacs/trading-bridge/internal/config"
	"github.com/mkovacs/trading-bridge/internal/forward"
	"github.com/mkovacs/trading-bridge/internal/ingest"
	"github.com/mkovacs/trading-bridge/internal/mailbox"
	"github.com/mkovacs/trading-bridge/internal/observ"
)

func main() {
	var cfgPath string
	var mode string
	var metricsAddr string
	flag.StringVar(&cfgPath, "config", "config/config.yaml", "config path")
	flag.StringVar(&mode, "mode", "poll", "ingest mode: poll or push")
	flag.StringVar(&metricsAddr, "metrics-addr", ":9090", "metrics listen address")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v (did you copy config.example.yaml?)", err)
	}
	if cfg.Forwarder.WebhookURL == "" {
		log.Fatalf("forwarder webhook_url is required (set BOT_WEBHOOK_URL)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scope := mailbox.ScopeModify
	if mode == "push" {
		scope = mailbox.ScopeReadonly
	}
	src, err := mailbox.SelectSource(cfg.Mailbox.TokenFile)
	if err != nil {
		log.Fatalf("locate credentials: %v", err)
	}
	tok, err := mailbox.LoadToken(src, scope)
	if err != nil {
		log.Fatalf("load token: %v", err)
	}
	client, err := mailbox.NewClient(ctx, tok.TokenSource(ctx))
	if err != nil {
		log.Fatalf("gmail client: %v", err)
	}

	fwd := forward.New(cfg.Forwarder.WebhookURL, time.Duration(cfg.Forwarder.TimeoutSecs)*time.Second)

	observ.Log("startup", map[string]any{
		"mode":        mode,
		"credentials": src.Name(),
		"webhook_url": cfg.Forwarder.WebhookURL,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", observ.Handler())
	mux.Handle("/healthz", observ.Health())
	go func() { _ = http.ListenAndServe(metricsAddr, mux) }()

	switch mode {
	case "poll":
		poller := ingest.NewPoller(client, fwd,
			time.Duration(cfg.Mailbox.PollIntervalSecs)*time.Second, cfg.Mailbox.MaxResults)
		poller.Run(ctx)
	case "push":
		if cfg.Mailbox.ProjectID == "" || cfg.Mailbox.TopicName == "" || cfg.Mailbox.SubscriptionName == "" {
			log.Fatalf("push mode needs project_id, topic_name and subscription_name")
		}
		var opts []option.ClientOption
		if cfg.Mailbox.ServiceAccount != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Mailbox.ServiceAccount))
		}
		psClient, err := pubsub.NewClient(ctx, cfg.Mailbox.ProjectID, opts...)
		if err != nil {
			log.Fatalf("pubsub client: %v", err)
		}
		defer psClient.Close()

		topic := "projects/" + cfg.Mailbox.ProjectID + "/topics/" + cfg.Mailbox.TopicName
		watcher := mailbox.NewWatcher(client, topic,
			time.Duration(cfg.Mailbox.WatchRenewMinutes)*time.Minute)
		loop := ingest.NewPushLoop(client, client, fwd, watcher, cfg.Mailbox.QueueDepth)
		if err := loop.Run(ctx, psClient.Subscription(cfg.Mailbox.SubscriptionName)); err != nil {
			log.Fatalf("push loop: %v", err)
		}
	default:
		log.Fatalf("unknown mode %q (want poll or push)", mode)
	}

	observ.Log("shutdown", map[string]any{"mode": mode})
}
