// Package pnl rebuilds round-trip trades from a stream of fills using FIFO
// lot matching and summarizes the realized profit and loss.
package pnl

import (
	"fmt"
	"time"
)

type TradeType string

const (
	Long  TradeType = "Long"
	Short TradeType = "Short"
)

// RealizedTrade is one matched entry/exit segment.
type RealizedTrade struct {
	Symbol      string
	Type        TradeType
	EntryTime   time.Time
	ExitTime    time.Time
	Qty         float64
	EntryPrice  float64
	ExitPrice   float64
	PnL         float64
	EntryFillID string
	ExitFillID  string
	EntryRef    string
	ExitRef     string
}

// ExitDate is the UTC calendar day the trade closed on.
func (t RealizedTrade) ExitDate() string {
	return t.ExitTime.UTC().Format("2006-01-02")
}

func (t RealizedTrade) String() string {
	return fmt.Sprintf("%s %s %g %g->%g pnl=%.2f", t.Symbol, t.Type, t.Qty, t.EntryPrice, t.ExitPrice, t.PnL)
}

// Lot is open quantity waiting to be matched.
type Lot struct {
	Qty    float64
	Price  float64
	Time   time.Time
	FillID string
	Ref    string
}

type LotSide string

const (
	LongLot  LotSide = "long"
	ShortLot LotSide = "short"
)

// OpenLot is a lot left unmatched at the end of a replay.
type OpenLot struct {
	Symbol string
	Side   LotSide
	Lot
}

// AnomalyError is recorded when a fill reaching the engine cannot be
// applied without corrupting the queues. The fill is skipped.
type AnomalyError struct {
	Symbol string
	FillID string
	Reason string
}

func (e *AnomalyError) Error() string {
	return fmt.Sprintf("skipped fill %s on %s: %s", e.FillID, e.Symbol, e.Reason)
}
