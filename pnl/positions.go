package pnl

import (
	"math"
	"sort"
)

// NetPosition is a signed position size: positive long, negative short.
type NetPosition struct {
	Symbol string
	Qty    float64
}

// Discrepancy is a symbol where the open lots disagree with what the
// broker reports.
type Discrepancy struct {
	Symbol   string
	FromLots float64
	Reported float64
}

func (d Discrepancy) Diff() float64 { return d.Reported - d.FromLots }

// NetOpen sums open lots into a signed quantity per symbol.
func NetOpen(lots []OpenLot) map[string]float64 {
	net := map[string]float64{}
	for _, l := range lots {
		if l.Side == ShortLot {
			net[l.Symbol] -= l.Qty
			continue
		}
		net[l.Symbol] += l.Qty
	}
	return net
}

// CompareOpenLots lists the symbols whose reconstructed position differs
// from the reported one by more than eps. A window that starts after a
// position was opened will show up here; that is expected.
func CompareOpenLots(lots []OpenLot, reported []NetPosition, eps float64) []Discrepancy {
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	fromLots := NetOpen(lots)
	rep := map[string]float64{}
	for _, p := range reported {
		rep[p.Symbol] += p.Qty
	}

	seen := map[string]bool{}
	var symbols []string
	for s := range fromLots {
		seen[s] = true
		symbols = append(symbols, s)
	}
	for s := range rep {
		if !seen[s] {
			symbols = append(symbols, s)
		}
	}
	sort.Strings(symbols)

	var out []Discrepancy
	for _, s := range symbols {
		if math.Abs(fromLots[s]-rep[s]) > eps {
			out = append(out, Discrepancy{Symbol: s, FromLots: fromLots[s], Reported: rep[s]})
		}
	}
	return out
}
