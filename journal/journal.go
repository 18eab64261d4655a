// journal/journal.go
package journal

import (
	"time"

	"github.com/rustyeddy/pnl/pnl"
)

// TradeRecord is a realized trade as stored, tagged with the profile it
// belongs to and the sync run that last wrote it.
type TradeRecord struct {
	TradeID     string
	Strategy    string
	Symbol      string
	Type        string
	Qty         float64
	EntryPrice  float64
	ExitPrice   float64
	EntryTime   time.Time
	ExitTime    time.Time
	PnL         float64
	EntryFillID string
	ExitFillID  string
	EntryRef    string
	ExitRef     string
	RunID       string
}

// FromTrade converts an engine trade into a record.
func FromTrade(strategy, runID string, t pnl.RealizedTrade) TradeRecord {
	return TradeRecord{
		Strategy:    strategy,
		Symbol:      t.Symbol,
		Type:        string(t.Type),
		Qty:         t.Qty,
		EntryPrice:  t.EntryPrice,
		ExitPrice:   t.ExitPrice,
		EntryTime:   t.EntryTime.UTC(),
		ExitTime:    t.ExitTime.UTC(),
		PnL:         t.PnL,
		EntryFillID: t.EntryFillID,
		ExitFillID:  t.ExitFillID,
		EntryRef:    t.EntryRef,
		ExitRef:     t.ExitRef,
		RunID:       runID,
	}
}

// Trade converts the record back into an engine trade.
func (r TradeRecord) Trade() pnl.RealizedTrade {
	return pnl.RealizedTrade{
		Symbol:      r.Symbol,
		Type:        pnl.TradeType(r.Type),
		EntryTime:   r.EntryTime,
		ExitTime:    r.ExitTime,
		Qty:         r.Qty,
		EntryPrice:  r.EntryPrice,
		ExitPrice:   r.ExitPrice,
		PnL:         r.PnL,
		EntryFillID: r.EntryFillID,
		ExitFillID:  r.ExitFillID,
		EntryRef:    r.EntryRef,
		ExitRef:     r.ExitRef,
	}
}

// Trades converts a slice of records.
func Trades(recs []TradeRecord) []pnl.RealizedTrade {
	out := make([]pnl.RealizedTrade, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Trade())
	}
	return out
}

type Journal interface {
	RecordTrade(TradeRecord) error
	Close() error
}

// RunRecorder is implemented by journals that keep a history of sync runs.
type RunRecorder interface {
	RecordRun(SyncRun) error
}
