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

	"github.com/mkovacs/trading-bridge/internal/config"
	"github.com/mkovacs/trading-bridge/internal/dashboard"
	"github.com/mkovacs/trading-bridge/internal/observ"
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

	h := dashboard.NewHandler(st, dashboard.Config{
		AccountURL:  cfg.Dashboard.AccountURL,
		RefreshSecs: cfg.Dashboard.RefreshSecs,
	})

	observ.Log("startup", map[string]any{
		"listen_addr": cfg.Dashboard.ListenAddr,
		"account_url": cfg.Dashboard.AccountURL,
	})

	srv := &http.Server{Addr: cfg.Dashboard.ListenAddr, Handler: h.Mux()}
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
