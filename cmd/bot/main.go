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

	"github.com/joho/godotenv"

	"github.com/mkovacs/trading-bridge/internal/broker"
	"github.com/mkovacs/trading-bridge/internal/config"
	"github.com/mkovacs/trading-bridge/internal/notify"
	"github.com/mkovacs/trading-bridge/internal/observ"
	"github.com/mkovacs/trading-bridge/internal/server"
	"github.com/mkovacs/trading-bridge/internal/store"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config/config.yaml", "config path")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v (did you copy config.example.yaml?)", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DB)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	brk, err := broker.New(broker.Config{
		APIKey:             cfg.Broker.APIKey,
		APISecret:          cfg.Broker.APISecret,
		BaseURL:            cfg.Broker.BaseURL,
		TimeoutSeconds:     cfg.Broker.TimeoutSecs,
		RateLimitPerMinute: cfg.Broker.RateLimitPerMinute,
	})
	if err != nil {
		log.Fatalf("broker: %v", err)
	}

	tg := notify.NewTelegramClient(notify.Config{
		Enabled:  cfg.Telegram.Enabled,
		BotToken: cfg.Telegram.BotToken,
		ChatID:   cfg.Telegram.ChatID,
	})

	h := server.NewHandler(brk, st, tg, server.Config{
		OrderQty:     cfg.Broker.OrderQty,
		StrategyName: cfg.Dashboard.DefaultStrategy,
	})

	observ.Log("startup", map[string]any{
		"listen_addr":      cfg.Server.ListenAddr,
		"broker_base_url":  cfg.Broker.BaseURL,
		"telegram_enabled": cfg.Telegram.Enabled,
	})

	srv := &http.Server{Addr: cfg.Server.ListenAddr, Handler: h.Mux()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("serve: %v", err)
	}

	observ.Log("shutdown", nil)
}
