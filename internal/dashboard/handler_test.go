package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkovacs/trading-bridge/internal/store"
)

type fakeTrades struct {
	trades   []store.Trade
	equity   []store.EquityPoint
	err      error
	gotMonth time.Month
	gotYear  int
	gotFrom  time.Time
	gotTo    time.Time
}

func (f *fakeTrades) TradesForMonth(_ context.Context, month time.Month, year int) ([]store.Trade, error) {
	f.gotMonth, f.gotYear = month, year
	return f.trades, f.err
}

func (f *fakeTrades) EquityCurve(_ context.Context, from, to time.Time) ([]store.EquityPoint, error) {
	f.gotFrom, f.gotTo = from, to
	return f.equity, f.err
}

func newTestHandler(ts *fakeTrades, accountURL string) *Handler {
	h := NewHandler(ts, Config{AccountURL: accountURL, RefreshSecs: 10})
	h.now = func() time.Time { return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC) }
	return h
}

func TestAPISummary(t *testing.T) {
	ts := &fakeTrades{
		trades: []store.Trade{
			{StrategyName: "TrendPullback", Symbol: "AAPL", ProfitLoss: 100, RiskReward: 2,
				Timestamp: time.Date(2026, 8, 10, 9, 30, 0, 0, time.UTC)},
		},
		equity: []store.EquityPoint{
			{Timestamp: time.Date(2025, 7, 10, 10, 0, 0, 0, time.UTC), Equity: 10500},
		},
	}
	h := newTestHandler(ts, "")

	rec := httptest.NewRecorder()
	h.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary?month=7&year=2025", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.July, ts.gotMonth)
	assert.Equal(t, 2025, ts.gotYear)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), ts.gotFrom)
	assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), ts.gotTo)

	var got summaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.TotalTrades)
	assert.Equal(t, 100.0, got.TotalProfitLoss)
	require.Len(t, got.AccountEquity, 1)
	assert.Equal(t, 10500.0, got.AccountEquity[0].Equity)
}

func TestAPISummary_DefaultsToCurrentMonth(t *testing.T) {
	ts := &fakeTrades{}
	h := newTestHandler(ts, "")

	rec := httptest.NewRecorder()
	h.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.August, ts.gotMonth)
	assert.Equal(t, 2026, ts.gotYear)
}

func TestIndex_RendersSummaryAndPositions(t *testing.T) {
	account := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"equity":"10500.00","cash":"9000.00","positions":[
			{"symbol":"AAPL","qty":"1","unrealized_pl":"12.30","current_price":"190.00"}]}`))
	}))
	defer account.Close()

	ts := &fakeTrades{
		trades: []store.Trade{
			{StrategyName: "TrendPullback", Symbol: "AAPL", ProfitLoss: 100, RiskReward: 2,
				Timestamp: time.Date(2026, 8, 10, 9, 30, 0, 0, time.UTC)},
		},
		equity: []store.EquityPoint{
			{Timestamp: time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC), Equity: 10432.55},
		},
	}
	h := newTestHandler(ts, account.URL+"/account")

	rec := httptest.NewRecorder()
	h.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Trading Bot Performance Dashboard")
	assert.Contains(t, body, "TrendPullback")
	assert.Contains(t, body, "10500.00")
	assert.Contains(t, body, "AAPL")
	assert.Contains(t, body, "Account Equity")
	assert.Contains(t, body, "10432.55")
}

func TestIndex_AccountUnreachable(t *testing.T) {
	ts := &fakeTrades{}
	h := newTestHandler(ts, "http://127.0.0.1:1/account")

	rec := httptest.NewRecorder()
	h.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No trades found")
	assert.Contains(t, rec.Body.String(), "unable to fetch account info")
}

func TestExportCSV(t *testing.T) {
	ts := &fakeTrades{trades: []store.Trade{
		{StrategyName: "Breakout", Symbol: "TSLA", EntryPrice: 250.5, ExitPrice: 255.5,
			Quantity: 2, ProfitLoss: 10, RiskReward: 1.5,
			Timestamp: time.Date(2026, 8, 10, 9, 30, 0, 0, time.UTC)},
	}}
	h := newTestHandler(ts, "")

	rec := httptest.NewRecorder()
	h.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export.csv?month=8&year=2026", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "monthly_report_2026_08.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "timestamp,strategy_name,symbol,entry_price,exit_price,quantity,profit_loss,risk_reward", lines[0])
	assert.Contains(t, lines[1], "Breakout")
	assert.Contains(t, lines[1], "TSLA")
	assert.Contains(t, lines[1], "250.5")
}

func TestTradeSourceError(t *testing.T) {
	ts := &fakeTrades{err: assert.AnError}
	h := newTestHandler(ts, "")

	rec := httptest.NewRecorder()
	h.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
