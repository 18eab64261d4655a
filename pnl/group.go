package pnl

import (
	"sort"

	"github.com/rustyeddy/pnl/fill"
)

// GroupBySymbol partitions fills by symbol and orders each partition by
// time. Fills with equal timestamps keep their input order, so the feed's
// own ordering decides ties. The input slice is not modified.
func GroupBySymbol(fills []fill.Fill) map[string][]fill.Fill {
	groups := make(map[string][]fill.Fill)
	for _, f := range fills {
		groups[f.Symbol] = append(groups[f.Symbol], f)
	}
	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool {
			return g[i].Time.Before(g[j].Time)
		})
	}
	return groups
}

// Symbols returns the group keys in lexical order.
func Symbols(groups map[string][]fill.Fill) []string {
	out := make([]string, 0, len(groups))
	for s := range groups {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
