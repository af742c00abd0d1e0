package dashboard

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/mkovacs/trading-bridge/internal/observ"
	"github.com/mkovacs/trading-bridge/internal/store"
)

// TradeSource reads the trade and equity history backing the report.
type TradeSource interface {
	TradesForMonth(ctx context.Context, month time.Month, year int) ([]store.Trade, error)
	EquityCurve(ctx context.Context, from, to time.Time) ([]store.EquityPoint, error)
}

type Config struct {
	// AccountURL is the bot's /account endpoint for live equity/positions.
	AccountURL  string
	RefreshSecs int
}

type Handler struct {
	trades     TradeSource
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
}

func NewHandler(trades TradeSource, cfg Config) *Handler {
	if cfg.RefreshSecs <= 0 {
		cfg.RefreshSecs = 10
	}
	return &Handler{
		trades:     trades,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		now:        time.Now,
	}
}

func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.Index)
	mux.HandleFunc("/api/summary", h.APISummary)
	mux.HandleFunc("/export.csv", h.ExportCSV)
	mux.Handle("/healthz", observ.Health())
	return mux
}

// monthYear reads the month/year filter, defaulting to the current month.
func (h *Handler) monthYear(r *http.Request) (time.Month, int) {
	now := h.now()
	month, year := now.Month(), now.Year()
	if v, err := strconv.Atoi(r.URL.Query().Get("month")); err == nil && v >= 1 && v <= 12 {
		month = time.Month(v)
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil && v > 0 {
		year = v
	}
	return month, year
}

// monthBounds is the half-open [from, to) window covering the month.
func monthBounds(month time.Month, year int) (time.Time, time.Time) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

type accountInfo struct {
	Equity    string `json:"equity"`
	Cash      string `json:"cash"`
	Positions []struct {
		Symbol       string `json:"symbol"`
		Qty          string `json:"qty"`
		UnrealizedPL string `json:"unrealized_pl"`
		CurrentPrice string `json:"current_price"`
	} `json:"positions"`
}

// fetchAccount best-effort queries the bot. The dashboard renders without it.
func (h *Handler) fetchAccount(ctx context.Context) *accountInfo {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.cfg.AccountURL, nil)
	if err != nil {
		return nil
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		observ.Log("account_fetch_failed", map[string]any{"error": err.Error()})
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	var info accountInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil
	}
	return &info
}

type pageData struct {
	Month       time.Month
	Year        int
	RefreshSecs int
	Summary     Summary
	Equity      []store.EquityPoint
	Account     *accountInfo
}

// Index renders the auto-refreshing HTML report.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	month, year := h.monthYear(r)
	trades, err := h.trades.TradesForMonth(r.Context(), month, year)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	from, to := monthBounds(month, year)
	equity, err := h.trades.EquityCurve(r.Context(), from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data := pageData{
		Month:       month,
		Year:        year,
		RefreshSecs: h.cfg.RefreshSecs,
		Summary:     Summarize(trades),
		Equity:      equity,
		Account:     h.fetchAccount(r.Context()),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, data); err != nil {
		observ.Log("dashboard_render_failed", map[string]any{"error": err.Error()})
	}
}

type summaryResponse struct {
	Summary
	AccountEquity []equityJSON `json:"account_equity"`
}

type equityJSON struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}

// APISummary serves the same report as JSON.
func (h *Handler) APISummary(w http.ResponseWriter, r *http.Request) {
	month, year := h.monthYear(r)
	trades, err := h.trades.TradesForMonth(r.Context(), month, year)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	from, to := monthBounds(month, year)
	equity, err := h.trades.EquityCurve(r.Context(), from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := summaryResponse{Summary: Summarize(trades)}
	for _, p := range equity {
		resp.AccountEquity = append(resp.AccountEquity, equityJSON{Timestamp: p.Timestamp, Equity: p.Equity})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// ExportCSV streams the month's trades as a CSV report.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	month, year := h.monthYear(r)
	trades, err := h.trades.TradesForMonth(r.Context(), month, year)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=monthly_report_%d_%02d.csv", year, int(month)))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"timestamp", "strategy_name", "symbol", "entry_price", "exit_price", "quantity", "profit_loss", "risk_reward"})
	for _, t := range trades {
		_ = cw.Write([]string{
			t.Timestamp.UTC().Format(time.RFC3339),
			t.StrategyName,
			t.Symbol,
			strconv.FormatFloat(t.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(t.ExitPrice, 'f', -1, 64),
			strconv.Itoa(t.Quantity),
			strconv.FormatFloat(t.ProfitLoss, 'f', -1, 64),
			strconv.FormatFloat(t.RiskReward, 'f', -1, 64),
		})
	}
	cw.Flush()
}

var pageTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
<meta http-equiv="refresh" content="{{.RefreshSecs}}">
<title>Trading Bot Performance Dashboard</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 1.5em; }
td, th { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
th { background: #f2f2f2; }
.metric { display: inline-block; margin-right: 2em; }
.metric b { font-size: 1.4em; display: block; }
</style>
</head>
<body>
<h1>Trading Bot Performance Dashboard</h1>
<p>{{.Month}} {{.Year}} &middot; <a href="/export.csv?month={{printf "%d" .Month}}&year={{.Year}}">Download CSV</a></p>

{{if eq .Summary.TotalTrades 0}}
<p><i>No trades found for this period.</i></p>
{{else}}
<h2>Monthly Summary</h2>
<div>
  <span class="metric"><b>{{.Summary.TotalTrades}}</b>Total Trades</span>
  <span class="metric"><b>{{printf "%.2f" .Summary.WinRate}}%</b>Win Rate</span>
  <span class="metric"><b>{{printf "%.2f" .Summary.TotalProfitLoss}}</b>Total P/L</span>
  <span class="metric"><b>{{printf "%.2f" .Summary.AvgRiskReward}}</b>Avg Risk/Reward</span>
</div>

<h2>Strategy Breakdown</h2>
<table>
<tr><th>Strategy</th><th>Trades</th><th>Total P/L</th><th>Avg P/L</th><th>Avg R/R</th><th>Win Rate</th></tr>
{{range .Summary.Strategies}}
<tr><td>{{.Name}}</td><td>{{.TradeCount}}</td><td>{{printf "%.2f" .ProfitLoss}}</td><td>{{printf "%.2f" .AvgProfitLoss}}</td><td>{{printf "%.2f" .AvgRiskReward}}</td><td>{{printf "%.2f" .WinRate}}%</td></tr>
{{end}}
</table>

<h2>Equity Curve (Cumulative P/L)</h2>
<table>
<tr><th>Time</th><th>Cumulative P/L</th></tr>
{{range .Summary.Curve}}
<tr><td>{{.Timestamp.Format "2006-01-02 15:04:05"}}</td><td>{{printf "%.2f" .CumulativePL}}</td></tr>
{{end}}
</table>
{{end}}

{{if .Equity}}
<h2>Account Equity</h2>
<table>
<tr><th>Time</th><th>Equity</th></tr>
{{range .Equity}}
<tr><td>{{.Timestamp.Format "2006-01-02 15:04:05"}}</td><td>{{printf "%.2f" .Equity}}</td></tr>
{{end}}
</table>
{{end}}

<h2>Open Positions</h2>
{{if and .Account .Account.Positions}}
<p>Account equity: {{.Account.Equity}} &middot; cash: {{.Account.Cash}}</p>
<table>
<tr><th>Symbol</th><th>Qty</th><th>Unrealized P/L</th><th>Current Price</th></tr>
{{range .Account.Positions}}
<tr><td>{{.Symbol}}</td><td>{{.Qty}}</td><td>{{.UnrealizedPL}}</td><td>{{.CurrentPrice}}</td></tr>
{{end}}
</table>
{{else}}
<p><i>No open positions or unable to fetch account info.</i></p>
{{end}}
</body>
</html>
`))
