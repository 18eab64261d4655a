package pnl

import (
	"sort"
)

// DefaultTopN caps the winner and loser lists.
const DefaultTopN = 10

// SymbolPnL is the realized result of one symbol.
type SymbolPnL struct {
	Symbol string
	PnL    float64
	Trades int
}

// Summary aggregates a set of realized trades.
type Summary struct {
	TotalPnL     float64
	Trades       int
	Wins         int
	Losses       int
	GrossProfit  float64
	GrossLoss    float64 // positive number
	ProfitFactor float64 // zero when there are no losses
	WinRate      float64

	TopWinners []RealizedTrade
	TopLosers  []RealizedTrade

	BySymbol         []SymbolPnL
	TopSymbolWinners []SymbolPnL
	TopSymbolLosers  []SymbolPnL
}

// Summarize totals the trades and ranks them. Rankings are stable: equal
// PnL keeps input order. topN <= 0 uses DefaultTopN.
func Summarize(trades []RealizedTrade, topN int) Summary {
	if topN <= 0 {
		topN = DefaultTopN
	}

	var s Summary
	index := map[string]int{}
	for _, t := range trades {
		s.TotalPnL += t.PnL
		s.Trades++
		switch {
		case t.PnL > 0:
			s.Wins++
			s.GrossProfit += t.PnL
		case t.PnL < 0:
			s.Losses++
			s.GrossLoss -= t.PnL
		}

		i, ok := index[t.Symbol]
		if !ok {
			i = len(s.BySymbol)
			index[t.Symbol] = i
			s.BySymbol = append(s.BySymbol, SymbolPnL{Symbol: t.Symbol})
		}
		s.BySymbol[i].PnL += t.PnL
		s.BySymbol[i].Trades++
	}

	if s.GrossLoss > 0 {
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	}
	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades)
	}

	s.TopWinners = rank(trades, topN, func(t RealizedTrade) float64 { return t.PnL }, true)
	s.TopLosers = rank(trades, topN, func(t RealizedTrade) float64 { return t.PnL }, false)
	s.TopSymbolWinners = rank(s.BySymbol, topN, func(p SymbolPnL) float64 { return p.PnL }, true)
	s.TopSymbolLosers = rank(s.BySymbol, topN, func(p SymbolPnL) float64 { return p.PnL }, false)
	return s
}

// rank returns up to n items ordered by key, highest first when desc.
func rank[T any](items []T, n int, key func(T) float64, desc bool) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return key(out[i]) > key(out[j])
		}
		return key(out[i]) < key(out[j])
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// DailyPnL is the realized result of one exit date.
type DailyPnL struct {
	Date       string // YYYY-MM-DD, UTC
	PnL        float64
	Cumulative float64
	Trades     int
}

// DailyCurve buckets trades by exit date and accumulates an equity curve.
func DailyCurve(trades []RealizedTrade) []DailyPnL {
	byDate := map[string]*DailyPnL{}
	for _, t := range trades {
		d := t.ExitDate()
		p, ok := byDate[d]
		if !ok {
			p = &DailyPnL{Date: d}
			byDate[d] = p
		}
		p.PnL += t.PnL
		p.Trades++
	}

	out := make([]DailyPnL, 0, len(byDate))
	for _, p := range byDate {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	var cum float64
	for i := range out {
		cum += out[i].PnL
		out[i].Cumulative = cum
	}
	return out
}
