// Package server is the trading bot's HTTP surface: the webhook that turns
// forwarded signals into orders, and the account snapshot endpoint the
// dashboard reads.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mkovacs/trading-bridge/internal/broker"
	"github.com/mkovacs/trading-bridge/internal/observ"
	"github.com/mkovacs/trading-bridge/internal/store"
)

type Broker interface {
	SubmitOrder(ctx context.Context, symbol string, qty int, side string) (*broker.Order, error)
	GetAccount(ctx context.Context) (*broker.Account, error)
	ListPositions(ctx context.Context) ([]broker.Position, error)
}

type TradeLog interface {
	LogTrade(ctx context.Context, t store.Trade) error
	LogEquity(ctx context.Context, equity float64) error
}

type Notifier interface {
	Send(ctx context.Context, text string)
}

type Config struct {
	OrderQty     int
	StrategyName string
}

type Handler struct {
	broker   Broker
	tradeLog TradeLog
	notifier Notifier
	cfg      Config
}

func NewHandler(b Broker, tl TradeLog, n Notifier, cfg Config) *Handler {
	if cfg.OrderQty <= 0 {
		cfg.OrderQty = 1
	}
	if cfg.StrategyName == "" {
		cfg.StrategyName = "TrendPullback"
	}
	return &Handler{broker: b, tradeLog: tl, notifier: n, cfg: cfg}
}

// Mux returns the bot's routes mounted on a fresh mux.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", h.Webhook)
	mux.HandleFunc("/account", h.Account)
	mux.Handle("/metrics", observ.Handler())
	mux.Handle("/healthz", observ.Health())
	return mux
}

type webhookRequest struct {
	Signal string  `json:"signal"`
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Webhook receives a forwarded signal, places a market order, logs the trade
// and the resulting equity, and notifies the chat channel.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: "malformed request body"})
		return
	}

	side := strings.ToLower(req.Signal)
	if side != "buy" && side != "sell" {
		observ.IncCounter("webhook_invalid_total", nil)
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: "invalid signal received"})
		return
	}

	ctx := r.Context()
	order, err := h.broker.SubmitOrder(ctx, req.Symbol, h.cfg.OrderQty, side)
	if err != nil {
		msg := fmt.Sprintf("Error placing %s order for %s: %v", req.Signal, req.Symbol, err)
		observ.IncCounter("orders_failed_total", nil)
		observ.Log("order_failed", map[string]any{"symbol": req.Symbol, "error": err.Error()})
		h.notifier.Send(ctx, msg)
		writeJSON(w, http.StatusBadGateway, statusResponse{Status: "error", Message: msg})
		return
	}

	msg := fmt.Sprintf("%s order placed for %s at approx %.2f", req.Signal, req.Symbol, req.Price)
	observ.IncCounter("orders_placed_total", map[string]string{"side": side})
	observ.Log("order_placed", map[string]any{
		"order_id": order.ID,
		"symbol":   req.Symbol,
		"side":     side,
		"price":    req.Price,
	})

	if err := h.tradeLog.LogTrade(ctx, store.Trade{
		StrategyName: h.cfg.StrategyName,
		Symbol:       req.Symbol,
		EntryPrice:   req.Price,
		ExitPrice:    req.Price,
		Quantity:     h.cfg.OrderQty,
		RiskReward:   2.0,
	}); err != nil {
		observ.Log("trade_log_failed", map[string]any{"error": err.Error()})
	}

	h.logEquity(ctx)
	h.notifier.Send(ctx, msg)
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: msg})
}

func (h *Handler) logEquity(ctx context.Context) {
	acct, err := h.broker.GetAccount(ctx)
	if err != nil {
		observ.Log("equity_log_failed", map[string]any{"error": err.Error()})
		return
	}
	equity, err := strconv.ParseFloat(acct.Equity, 64)
	if err != nil {
		observ.Log("equity_log_failed", map[string]any{"error": err.Error()})
		return
	}
	if err := h.tradeLog.LogEquity(ctx, equity); err != nil {
		observ.Log("equity_log_failed", map[string]any{"error": err.Error()})
	}
}

type accountResponse struct {
	Equity    string             `json:"equity"`
	Cash      string             `json:"cash"`
	Positions []positionResponse `json:"positions"`
}

type positionResponse struct {
	Symbol       string `json:"symbol"`
	Qty          string `json:"qty"`
	UnrealizedPL string `json:"unrealized_pl"`
	CurrentPrice string `json:"current_price"`
}

// Account reports current equity, cash and open positions.
func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	acct, err := h.broker.GetAccount(ctx)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	positions, err := h.broker.ListPositions(ctx)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	resp := accountResponse{
		Equity:    acct.Equity,
		Cash:      acct.Cash,
		Positions: make([]positionResponse, 0, len(positions)),
	}
	for _, p := range positions {
		resp.Positions = append(resp.Positions, positionResponse{
			Symbol:       p.Symbol,
			Qty:          p.Qty,
			UnrealizedPL: p.UnrealizedPL,
			CurrentPrice: p.CurrentPrice,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
