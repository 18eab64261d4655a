// journal/csv.go
package journal

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"go.uber.org/multierr"
)

var tradeHeader = []string{
	"trade_id", "strategy", "symbol", "type", "qty", "entry_price", "exit_price",
	"entry_time", "exit_time", "pnl", "entry_fill_id", "exit_fill_id",
	"entry_ref", "exit_ref", "run_id",
}

type CSVJournal struct {
	trades *csv.Writer
	tf     *os.File
}

var _ Journal = (*CSVJournal)(nil)

func NewCSV(tradesPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}

	tw := csv.NewWriter(tf)
	if err := tw.Write(tradeHeader); err != nil {
		return nil, multierr.Append(err, tf.Close())
	}
	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, multierr.Append(err, tf.Close())
	}

	return &CSVJournal{trades: tw, tf: tf}, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	if err := j.trades.Write(tradeRow(t)); err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	return multierr.Append(j.trades.Error(), j.tf.Close())
}

// WriteTradesCSV writes a header and one row per record.
func WriteTradesCSV(w io.Writer, recs []TradeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write(tradeRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func tradeRow(t TradeRecord) []string {
	return []string{
		t.TradeID,
		t.Strategy,
		t.Symbol,
		t.Type,
		f(t.Qty),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.EntryTime.UTC().Format(time.RFC3339Nano),
		t.ExitTime.UTC().Format(time.RFC3339Nano),
		f(t.PnL),
		t.EntryFillID,
		t.ExitFillID,
		t.EntryRef,
		t.ExitRef,
		t.RunID,
	}
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
