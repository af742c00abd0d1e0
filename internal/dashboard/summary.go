// Package dashboard renders trading performance reports from the trade log
// and the bot's account endpoint.
package dashboard

import (
	"sort"
	"time"

	"github.com/mkovacs/trading-bridge/internal/store"
)

type StrategyStats struct {
	Name          string  `json:"strategy_name"`
	TradeCount    int     `json:"trade_count"`
	ProfitLoss    float64 `json:"profit_loss_sum"`
	AvgProfitLoss float64 `json:"profit_loss_mean"`
	AvgRiskReward float64 `json:"risk_reward_mean"`
	WinRate       float64 `json:"win_rate"`
}

type CurvePoint struct {
	Timestamp    time.Time `json:"timestamp"`
	CumulativePL float64   `json:"cumulative_pl"`
}

type Summary struct {
	TotalTrades     int             `json:"total_trades"`
	Wins            int             `json:"wins"`
	WinRate         float64         `json:"win_rate"`
	TotalProfitLoss float64         `json:"total_profit_loss"`
	AvgRiskReward   float64         `json:"avg_risk_reward"`
	Strategies      []StrategyStats `json:"strategies"`
	Curve           []CurvePoint    `json:"equity_curve"`
}

// Summarize aggregates a set of trades into the dashboard's headline numbers,
// per-strategy breakdown and cumulative P/L curve.
func Summarize(trades []store.Trade) Summary {
	s := Summary{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return s
	}

	sorted := make([]store.Trade, len(trades))
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	byStrategy := map[string]*StrategyStats{}
	byStrategyWins := map[string]int{}
	var rrSum, cumPL float64

	for _, t := range sorted {
		s.TotalProfitLoss += t.ProfitLoss
		rrSum += t.RiskReward
		if t.ProfitLoss > 0 {
			s.Wins++
		}

		st, ok := byStrategy[t.StrategyName]
		if !ok {
			st = &StrategyStats{Name: t.StrategyName}
			byStrategy[t.StrategyName] = st
		}
		st.TradeCount++
		st.ProfitLoss += t.ProfitLoss
		st.AvgRiskReward += t.RiskReward
		if t.ProfitLoss > 0 {
			byStrategyWins[t.StrategyName]++
		}

		cumPL += t.ProfitLoss
		s.Curve = append(s.Curve, CurvePoint{Timestamp: t.Timestamp, CumulativePL: cumPL})
	}

	s.WinRate = float64(s.Wins) / float64(s.TotalTrades) * 100
	s.AvgRiskReward = rrSum / float64(s.TotalTrades)

	names := make([]string, 0, len(byStrategy))
	for name := range byStrategy {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		st := byStrategy[name]
		st.AvgProfitLoss = st.ProfitLoss / float64(st.TradeCount)
		st.AvgRiskReward = st.AvgRiskReward / float64(st.TradeCount)
		st.WinRate = float64(byStrategyWins[name]) / float64(st.TradeCount) * 100
		s.Strategies = append(s.Strategies, *st)
	}
	return s
}
