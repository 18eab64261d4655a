package pnl

import (
	"fmt"
	"math"

	"github.com/rustyeddy/pnl/fill"
)

// DefaultEpsilon is the quantity below which residue counts as zero.
const DefaultEpsilon = 1e-5

// SymbolResult is the outcome of replaying one symbol.
type SymbolResult struct {
	Symbol   string
	Trades   []RealizedTrade
	OpenLots []OpenLot
	Errors   []error
}

// book is the per-symbol FIFO state. Both queues are oldest first.
type book struct {
	symbol string
	eps    float64
	long   []Lot
	short  []Lot
	trades []RealizedTrade
}

// ReplaySymbol runs the FIFO matcher over fills that are already in
// chronological order. It holds no state between calls. A fill whose
// quantity is at or below eps would neither match nor open a lot; it is
// skipped and reported as an AnomalyError.
func ReplaySymbol(symbol string, fills []fill.Fill, eps float64) SymbolResult {
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	b := &book{symbol: symbol, eps: eps}
	res := SymbolResult{Symbol: symbol}

	for _, f := range fills {
		if err := b.check(f); err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		if err := b.apply(f); err != nil {
			res.Errors = append(res.Errors, err)
		}
	}

	res.Trades = b.trades
	res.OpenLots = b.open()
	return res
}

func (b *book) check(f fill.Fill) error {
	anomaly := func(reason string) error {
		return &AnomalyError{Symbol: b.symbol, FillID: f.ID, Reason: reason}
	}
	switch {
	case f.Symbol != b.symbol:
		return anomaly("symbol " + f.Symbol + " does not belong to this book")
	case math.IsNaN(f.Qty) || math.IsInf(f.Qty, 0) || f.Qty <= 0:
		return anomaly("non-positive or non-finite quantity")
	case f.Qty <= b.eps:
		return anomaly(fmt.Sprintf("quantity %g is below tolerance %g", f.Qty, b.eps))
	case math.IsNaN(f.Price) || math.IsInf(f.Price, 0) || f.Price <= 0:
		return anomaly("non-positive or non-finite price")
	case f.Side != fill.Buy && f.Side != fill.Sell:
		return anomaly("unknown side " + string(f.Side))
	}
	return nil
}

// apply matches f against the opposite queue and queues any remainder.
// Matches are computed first and committed only if every one is sane, so a
// bad fill never leaves the queues half consumed.
func (b *book) apply(f fill.Fill) error {
	opposite, same := &b.short, &b.long
	typ := Short
	if f.Side == fill.Sell {
		opposite, same = &b.long, &b.short
		typ = Long
	}

	remaining := f.Qty
	var matched []RealizedTrade
	consumed := 0
	var partial float64 // qty left in the first unconsumed lot

	queue := *opposite
	for i := 0; remaining > b.eps && i < len(queue); i++ {
		lot := queue[i]
		qty := math.Min(remaining, lot.Qty)
		if math.IsNaN(qty) || qty < 0 {
			return &AnomalyError{Symbol: b.symbol, FillID: f.ID, Reason: "matched quantity is negative or NaN"}
		}

		pnl := (f.Price - lot.Price) * qty
		if typ == Short {
			pnl = (lot.Price - f.Price) * qty
		}
		if math.IsNaN(pnl) || math.IsInf(pnl, 0) {
			return &AnomalyError{Symbol: b.symbol, FillID: f.ID, Reason: "pnl is not finite"}
		}

		matched = append(matched, RealizedTrade{
			Symbol:      b.symbol,
			Type:        typ,
			EntryTime:   lot.Time,
			ExitTime:    f.Time,
			Qty:         qty,
			EntryPrice:  lot.Price,
			ExitPrice:   f.Price,
			PnL:         pnl,
			EntryFillID: lot.FillID,
			ExitFillID:  f.ID,
			EntryRef:    lot.Ref,
			ExitRef:     f.Ref,
		})

		remaining -= qty
		left := lot.Qty - qty
		if left < b.eps {
			consumed = i + 1
			partial = 0
			continue
		}
		partial = left
		consumed = i
	}

	// commit
	if partial > 0 {
		queue[consumed].Qty = partial
	}
	*opposite = queue[consumed:]
	b.trades = append(b.trades, matched...)
	if remaining > b.eps {
		*same = append(*same, Lot{Qty: remaining, Price: f.Price, Time: f.Time, FillID: f.ID, Ref: f.Ref})
	}
	return nil
}

func (b *book) open() []OpenLot {
	var out []OpenLot
	for _, l := range b.long {
		out = append(out, OpenLot{Symbol: b.symbol, Side: LongLot, Lot: l})
	}
	for _, l := range b.short {
		out = append(out, OpenLot{Symbol: b.symbol, Side: ShortLot, Lot: l})
	}
	return out
}
